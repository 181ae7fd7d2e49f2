package router

import (
	"clipstream/internal/api/handler"
	"clipstream/internal/api/middleware"
	"clipstream/internal/config"

	"github.com/gin-gonic/gin"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Auth       *handler.AuthHandler
	Upload     *handler.UploadHandler
	Video      *handler.VideoHandler
	Engagement *handler.EngagementHandler
	Channel    *handler.ChannelHandler
	Comment    *handler.CommentHandler
}

// Setup registers the /api/v1 routes.
func Setup(r *gin.Engine, jwtCfg *config.JWTConfig, h Handlers) {
	authRequired := middleware.AuthRequired(jwtCfg)
	optionalAuth := middleware.OptionalAuth(jwtCfg)

	v1 := r.Group("/api/v1")

	// --- auth ---
	auth := v1.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.GET("/me", authRequired, h.Auth.Me)
	}

	// --- videos and uploads ---
	videos := v1.Group("/videos")
	{
		videos.POST("/upload_create/", authRequired, h.Upload.Create)
		videos.POST("/upload_url/", authRequired, h.Upload.PartURL)
		videos.POST("/upload_complete/", authRequired, h.Upload.Complete)
		videos.POST("/upload_abort/", authRequired, h.Upload.Abort)
		videos.POST("/download_url/", optionalAuth, h.Upload.DownloadURL)

		videos.POST("", authRequired, h.Video.Create)
		videos.GET("/:id", optionalAuth, h.Video.GetDetail)
		videos.PATCH("/:id", authRequired, h.Video.Update)
		videos.DELETE("/:id", authRequired, h.Video.Delete)

		videos.POST("/:id/comments", authRequired, h.Comment.Create)
		videos.GET("/:id/comments", optionalAuth, h.Comment.List)
	}

	// --- engagement and browse ---
	video := v1.Group("/video")
	{
		video.GET("", optionalAuth, h.Engagement.Browse)
		video.POST("/:id/like/", optionalAuth, h.Engagement.Like)
		video.DELETE("/:id/like/", authRequired, h.Engagement.Unlike)
		video.POST("/:id/view/", optionalAuth, h.Engagement.View)
	}

	// --- channels ---
	channels := v1.Group("/channels")
	{
		channels.PUT("/me", authRequired, h.Channel.UpdateMe)
		channels.POST("/me/avatar_url", authRequired, h.Channel.AvatarURL)
		channels.GET("/me/subscriptions", authRequired, h.Channel.MySubscriptions)

		channels.GET("/:slug", h.Channel.GetDetail)
		channels.GET("/:slug/videos", optionalAuth, h.Channel.Videos)
		channels.POST("/:slug/subscribe", authRequired, h.Channel.Subscribe)
		channels.DELETE("/:slug/subscribe", authRequired, h.Channel.Unsubscribe)
	}

	v1.DELETE("/comments/:id", authRequired, h.Comment.Delete)
}
