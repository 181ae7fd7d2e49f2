package handler

import (
	"clipstream/internal/api/dto"
	"clipstream/internal/api/middleware"
	"clipstream/internal/api/response"
	"clipstream/internal/service"

	"github.com/gin-gonic/gin"
)

type ChannelHandler struct {
	channels *service.ChannelService
	subs     *service.SubscriptionService
	feed     *service.FeedService
}

func NewChannelHandler(channels *service.ChannelService, subs *service.SubscriptionService, feed *service.FeedService) *ChannelHandler {
	return &ChannelHandler{channels: channels, subs: subs, feed: feed}
}

// GetDetail GET /api/v1/channels/:slug
func (h *ChannelHandler) GetDetail(c *gin.Context) {
	detail, err := h.channels.Detail(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "ok", dto.NewChannelDetail(detail.Channel, detail.AvatarURL))
}

// Videos GET /api/v1/channels/:slug/videos
func (h *ChannelHandler) Videos(c *gin.Context) {
	page, err := h.feed.ChannelVideos(c.Request.Context(), middleware.CurrentCaller(c), c.Param("slug"), feedParams(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "ok", dto.NewFeedData(page.Results, page.Next, page.NoResults))
}

// UpdateMe PUT /api/v1/channels/me
func (h *ChannelHandler) UpdateMe(c *gin.Context) {
	var req dto.ChannelUpdateRequest
	if !bindJSON(c, &req) {
		return
	}

	ch, err := h.channels.UpdateMe(c.Request.Context(), middleware.CurrentCaller(c), service.ChannelUpdate{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "channel updated", dto.NewChannelInfo(ch))
}

// AvatarURL POST /api/v1/channels/me/avatar_url
func (h *ChannelHandler) AvatarURL(c *gin.Context) {
	var req dto.AvatarURLRequest
	if !bindJSON(c, &req) {
		return
	}

	upload, err := h.channels.AvatarUploadURL(c.Request.Context(), middleware.CurrentCaller(c), req.Filename)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "avatar url generated", dto.AvatarURLData{URL: upload.URL, Key: upload.Key})
}

// Subscribe POST /api/v1/channels/:slug/subscribe
func (h *ChannelHandler) Subscribe(c *gin.Context) {
	if _, err := h.subs.Subscribe(c.Request.Context(), middleware.CurrentCaller(c), c.Param("slug")); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "subscribed", nil)
}

// Unsubscribe DELETE /api/v1/channels/:slug/subscribe
func (h *ChannelHandler) Unsubscribe(c *gin.Context) {
	if err := h.subs.Unsubscribe(c.Request.Context(), middleware.CurrentCaller(c), c.Param("slug")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MySubscriptions GET /api/v1/channels/me/subscriptions
func (h *ChannelHandler) MySubscriptions(c *gin.Context) {
	page, pageSize := parsePagination(c)
	skip := (page - 1) * pageSize

	rows, total, err := h.subs.ListMine(c.Request.Context(), middleware.CurrentCaller(c), skip, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "ok", dto.NewChannelListData(rows, total, page, pageSize))
}
