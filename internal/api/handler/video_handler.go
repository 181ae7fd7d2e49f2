package handler

import (
	"clipstream/internal/api/dto"
	"clipstream/internal/api/middleware"
	"clipstream/internal/api/response"
	"clipstream/internal/model"
	"clipstream/internal/service"

	"github.com/gin-gonic/gin"
)

type VideoHandler struct {
	videos *service.VideoService
}

func NewVideoHandler(videos *service.VideoService) *VideoHandler {
	return &VideoHandler{videos: videos}
}

// Create POST /api/v1/videos
func (h *VideoHandler) Create(c *gin.Context) {
	var req dto.VideoCreateRequest
	if !bindJSON(c, &req) {
		return
	}

	video, err := h.videos.Create(c.Request.Context(), middleware.CurrentCaller(c), service.CreateVideoInput{
		Name:        req.Name,
		Description: req.Description,
		Status:      model.VideoStatus(req.Status),
		Link:        req.Link,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "video created", dto.NewVideoInfo(video))
}

// GetDetail GET /api/v1/videos/:id
func (h *VideoHandler) GetDetail(c *gin.Context) {
	video, err := h.videos.Detail(c.Request.Context(), middleware.CurrentCaller(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "ok", dto.NewVideoDetail(video))
}

// Update PATCH /api/v1/videos/:id
func (h *VideoHandler) Update(c *gin.Context) {
	var req dto.VideoUpdateRequest
	if !bindJSON(c, &req) {
		return
	}

	in := service.UpdateVideoInput{Name: req.Name, Description: req.Description}
	if req.Status != nil {
		status := model.VideoStatus(*req.Status)
		in.Status = &status
	}

	video, err := h.videos.Update(c.Request.Context(), middleware.CurrentCaller(c), c.Param("id"), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "video updated", dto.NewVideoInfo(video))
}

// Delete DELETE /api/v1/videos/:id
func (h *VideoHandler) Delete(c *gin.Context) {
	if err := h.videos.Delete(c.Request.Context(), middleware.CurrentCaller(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
