// Package content derives engagement scores and caption features from raw
// post data. Everything here is pure computation; persistence lives in the
// learning package.
package content

import (
	"regexp"
	"strings"

	"github.com/JustinHellens-SA/real-estate-auto-post/pkg/models"
)

// Hook style labels shared with the insight store
const (
	HookLifestyle  = "lifestyle"
	HookInvestment = "investment"
	HookQuestion   = "question"
	HookUrgency    = "urgency"
	HookFeature    = "feature"
)

// Price range buckets (ZAR)
const (
	RangeUnder1M = "under_1m"
	Range1M35M   = "1m_3.5m"
	Range35M5M   = "3.5m_5m"
	RangeOver5M  = "over_5m"
)

var hashtagPattern = regexp.MustCompile(`#\w+`)

// Score collapses raw interaction counts into a single comparable number.
// Inquiries dominate because they are the signal agents actually care about.
func Score(e models.EngagementData) float64 {
	score := float64(e.Likes)*1 + float64(e.Comments)*3 + float64(e.Shares)*5
	if e.Clicks != nil {
		score += float64(*e.Clicks) * 2
	}
	score += float64(e.Inquiries) * 50
	return score
}

// AnalyzeCaption classifies the opening hook and counts surface features.
// Classification checks are ordered; the first match wins.
func AnalyzeCaption(caption string) models.ContentAnalysis {
	lower := strings.ToLower(caption)

	var style string
	switch {
	case containsAny(lower, "lifestyle", "imagine", "experience"):
		style = HookLifestyle
	case containsAny(lower, "investment", "value", "growth"):
		style = HookInvestment
	case strings.Contains(caption, "?"):
		style = HookQuestion
	case containsAny(lower, "just listed", "new listing", "exclusive"):
		style = HookUrgency
	default:
		style = HookFeature
	}

	return models.ContentAnalysis{
		HookStyle:     style,
		CaptionLength: len([]rune(caption)),
		EmojiCount:    countEmoji(caption),
		HashtagCount:  len(hashtagPattern.FindAllString(caption, -1)),
	}
}

// PriceRange buckets a numeric price for segment grouping
func PriceRange(price float64) string {
	switch {
	case price < 1_000_000:
		return RangeUnder1M
	case price < 3_500_000:
		return Range1M35M
	case price < 5_000_000:
		return Range35M5M
	default:
		return RangeOver5M
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func countEmoji(s string) int {
	count := 0
	for _, r := range s {
		if (r >= 0x1F300 && r <= 0x1F9FF) ||
			(r >= 0x2600 && r <= 0x26FF) ||
			(r >= 0x2700 && r <= 0x27BF) {
			count++
		}
	}
	return count
}
