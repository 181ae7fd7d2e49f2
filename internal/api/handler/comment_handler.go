package handler

import (
	"clipstream/internal/api/dto"
	"clipstream/internal/api/middleware"
	"clipstream/internal/api/response"
	"clipstream/internal/service"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	commentService *service.CommentService
}

func NewCommentHandler(commentService *service.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

// Create POST /api/v1/videos/:id/comments
func (h *CommentHandler) Create(c *gin.Context) {
	var req dto.CommentCreateRequest
	if !bindJSON(c, &req) {
		return
	}

	comment, err := h.commentService.Create(c.Request.Context(), middleware.CurrentCaller(c), c.Param("id"), req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "comment created", dto.NewCommentInfo(comment))
}

// List GET /api/v1/videos/:id/comments
func (h *CommentHandler) List(c *gin.Context) {
	page, pageSize := parsePagination(c)
	skip := (page - 1) * pageSize

	comments, total, err := h.commentService.List(c.Request.Context(), middleware.CurrentCaller(c), c.Param("id"), skip, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "ok", dto.NewCommentListData(comments, total, page, pageSize))
}

// Delete DELETE /api/v1/comments/:id
func (h *CommentHandler) Delete(c *gin.Context) {
	commentID, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.commentService.Delete(c.Request.Context(), middleware.CurrentCaller(c), commentID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
