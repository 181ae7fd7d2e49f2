package handler

import (
	"clipstream/internal/api/dto"
	"clipstream/internal/api/middleware"
	"clipstream/internal/api/response"
	infraMinio "clipstream/internal/infra/minio"
	"clipstream/internal/model"
	"clipstream/internal/service"

	"github.com/gin-gonic/gin"
)

type UploadHandler struct {
	uploads *service.UploadCoordinator
}

func NewUploadHandler(uploads *service.UploadCoordinator) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

// Create POST /api/v1/videos/upload_create/
func (h *UploadHandler) Create(c *gin.Context) {
	var req dto.UploadCreateRequest
	if !bindJSON(c, &req) {
		return
	}

	ticket, err := h.uploads.CreateUpload(c.Request.Context(), middleware.CurrentCaller(c), service.CreateUploadInput{
		Filename:    req.Filename,
		Name:        req.Name,
		Description: req.Description,
		Status:      model.VideoStatus(req.Status),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "upload created", dto.UploadCreateData{
		VideoID:  ticket.VideoID,
		UploadID: ticket.UploadID,
	})
}

// PartURL POST /api/v1/videos/upload_url/
func (h *UploadHandler) PartURL(c *gin.Context) {
	var req dto.UploadPartURLRequest
	if !bindJSON(c, &req) {
		return
	}

	u, err := h.uploads.GeneratePartURL(c.Request.Context(), middleware.CurrentCaller(c), req.VideoID, req.UploadID, req.PartNumber)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "part url generated", dto.URLData{URL: u})
}

// Complete POST /api/v1/videos/upload_complete/
func (h *UploadHandler) Complete(c *gin.Context) {
	var req dto.UploadCompleteRequest
	if !bindJSON(c, &req) {
		return
	}

	parts := make([]infraMinio.Part, 0, len(req.Parts))
	for _, p := range req.Parts {
		parts = append(parts, infraMinio.Part{Number: p.PartNumber, ETag: p.ETag})
	}

	video, err := h.uploads.CompleteUpload(c.Request.Context(), middleware.CurrentCaller(c), req.VideoID, req.UploadID, parts)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "upload completed", dto.NewVideoInfo(video))
}

// Abort POST /api/v1/videos/upload_abort/
func (h *UploadHandler) Abort(c *gin.Context) {
	var req dto.UploadAbortRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.uploads.AbortUpload(c.Request.Context(), middleware.CurrentCaller(c), req.VideoID, req.UploadID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DownloadURL POST /api/v1/videos/download_url/
func (h *UploadHandler) DownloadURL(c *gin.Context) {
	var req dto.DownloadURLRequest
	if !bindJSON(c, &req) {
		return
	}

	u, err := h.uploads.GenerateDownloadURL(c.Request.Context(), middleware.CurrentCaller(c), req.VideoID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "download url generated", dto.URLData{URL: u})
}
