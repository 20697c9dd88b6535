package content

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JustinHellens-SA/real-estate-auto-post/pkg/models"
)

func intPtr(v int) *int { return &v }

func TestScoreWeights(t *testing.T) {
	score := Score(models.EngagementData{
		Likes:    10,
		Comments: 2,
		Shares:   1,
		Clicks:   intPtr(0),
	})
	assert.Equal(t, 21.0, score)
}

func TestScoreInquiriesDominate(t *testing.T) {
	quiet := Score(models.EngagementData{Likes: 200})
	leads := Score(models.EngagementData{Likes: 10, Inquiries: 5})
	assert.Greater(t, leads, quiet)
}

func TestScoreNilClicks(t *testing.T) {
	score := Score(models.EngagementData{Likes: 3, Comments: 1})
	assert.Equal(t, 6.0, score)
}

func TestAnalyzeCaptionHookPriority(t *testing.T) {
	tests := []struct {
		name    string
		caption string
		want    string
	}{
		{"lifestyle keyword", "Imagine waking up to ocean views", HookLifestyle},
		{"lifestyle beats question", "Imagine living here?", HookLifestyle},
		{"investment", "Strong growth corridor with rental upside", HookInvestment},
		{"investment beats question", "Looking for value?", HookInvestment},
		{"question", "Ready to move up the ladder?", HookQuestion},
		{"urgency", "Just listed in Umhlanga!", HookUrgency},
		{"question beats urgency", "Just listed — interested?", HookQuestion},
		{"feature fallback", "Four bedrooms, double garage, solar geyser", HookFeature},
		{"case insensitive", "EXCLUSIVE release this weekend", HookUrgency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AnalyzeCaption(tt.caption).HookStyle)
		})
	}
}

func TestAnalyzeCaptionCounts(t *testing.T) {
	a := AnalyzeCaption("Sea views 🌊☀️ #JustListed #Ballito")
	assert.Equal(t, 2, a.EmojiCount)
	assert.Equal(t, 2, a.HashtagCount)
}

func TestAnalyzeCaptionLengthIsRunes(t *testing.T) {
	a := AnalyzeCaption("café 🌊")
	assert.Equal(t, 6, a.CaptionLength)
}

func TestPriceRange(t *testing.T) {
	assert.Equal(t, RangeUnder1M, PriceRange(999_999))
	assert.Equal(t, Range1M35M, PriceRange(1_000_000))
	assert.Equal(t, Range1M35M, PriceRange(3_499_999))
	assert.Equal(t, Range35M5M, PriceRange(3_500_000))
	assert.Equal(t, Range35M5M, PriceRange(4_999_999))
	assert.Equal(t, RangeOver5M, PriceRange(5_000_000))
}
