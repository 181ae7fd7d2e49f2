package handler

import (
	"errors"
	"io"
	"strconv"

	"clipstream/internal/api/dto"
	"clipstream/internal/api/middleware"
	"clipstream/internal/api/response"
	"clipstream/internal/service"

	"github.com/gin-gonic/gin"
)

type EngagementHandler struct {
	engagement *service.EngagementService
	feed       *service.FeedService
}

func NewEngagementHandler(engagement *service.EngagementService, feed *service.FeedService) *EngagementHandler {
	return &EngagementHandler{engagement: engagement, feed: feed}
}

// Like POST /api/v1/video/:id/like/
func (h *EngagementHandler) Like(c *gin.Context) {
	var req dto.LikeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	isLike := true
	if req.IsLike != nil {
		isLike = *req.IsLike
	}

	like, err := h.engagement.Like(c.Request.Context(), middleware.CurrentCaller(c), c.Param("id"), isLike)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "like saved", dto.LikeData{Status: "ok", IsLike: like.IsLike})
}

// Unlike DELETE /api/v1/video/:id/like/
func (h *EngagementHandler) Unlike(c *gin.Context) {
	if err := h.engagement.Unlike(c.Request.Context(), middleware.CurrentCaller(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// View POST /api/v1/video/:id/view/
func (h *EngagementHandler) View(c *gin.Context) {
	err := h.engagement.RegisterView(c.Request.Context(), middleware.CurrentCaller(c), c.Param("id"), c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "view registered", nil)
}

// Browse GET /api/v1/video?search=&uploaded=&ordering=&c=&page_size=
func (h *EngagementHandler) Browse(c *gin.Context) {
	page, err := h.feed.Browse(c.Request.Context(), middleware.CurrentCaller(c), feedParams(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "ok", dto.NewFeedData(page.Results, page.Next, page.NoResults))
}

func feedParams(c *gin.Context) service.FeedParams {
	pageSize, _ := strconv.Atoi(c.Query("page_size"))
	return service.FeedParams{
		Search:   c.Query("search"),
		Uploaded: c.Query("uploaded"),
		Ordering: c.Query("ordering"),
		Cursor:   c.Query("c"),
		PageSize: pageSize,
	}
}
