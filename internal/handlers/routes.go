package handlers

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes attaches the API surface to the given group
func RegisterRoutes(api *gin.RouterGroup) {
	posts := api.Group("/posts")
	{
		posts.POST("", CreatePost)
		posts.GET("", ListPosts)
		posts.GET("/ready", ListReadyPosts)
		posts.GET("/stats", GetStatistics)
		posts.GET("/:id", GetPost)
		posts.GET("/:id/history", GetHistory)
		posts.POST("/:id/transition", TransitionPost)
		posts.POST("/:id/fail", FailPost)
		posts.POST("/:id/retry", RetryPost)
		posts.POST("/:id/schedule", SchedulePost)
		posts.POST("/:id/posted", MarkPosted)
		posts.POST("/:id/engagement", RecordEngagement)
		posts.PATCH("/:id/engagement", PatchEngagement)
		posts.GET("/:id/engagement", GetEngagement)
		posts.POST("/:id/engagement/inquiry", RecordInquiry)
	}

	ins := api.Group("/insights")
	{
		ins.GET("", GetInsights)
		ins.GET("/content", GetContentInsights)
		ins.GET("/agents/:id", GetAgentPerformance)
	}
}
