package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/digimall/admin-gateway/internal/application/media"
	"github.com/digimall/admin-gateway/internal/domain/identity"
	"github.com/digimall/admin-gateway/internal/interfaces/http/dto"
	"github.com/digimall/admin-gateway/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// multipartOverhead is the allowance for form fields and part headers on
// top of the file itself
const multipartOverhead = 1 << 20

// MediaService is the upload use case
type MediaService interface {
	Upload(ctx context.Context, id identity.Identity, input media.UploadInput) (*media.Outcome, error)
	MaxUploadSize() int64
}

// MediaHandler handles media uploads
type MediaHandler struct {
	BaseHandler
	media MediaService
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(media MediaService) *MediaHandler {
	return &MediaHandler{media: media}
}

// Upload godoc
// @Summary      Upload media
// @Description  Stores a file in object storage or forwards it to the backend
// @Tags         media
// @Accept       multipart/form-data
// @Produce      json
// @Param        file   formData file   true  "File to upload"
// @Param        folder formData string false "Target folder"
// @Success      201 {object} dto.Response{data=dto.MediaUploadResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      413 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      415 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /media/upload [post]
func (h *MediaHandler) Upload(c *gin.Context) {
	if limit := h.media.MaxUploadSize(); limit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeFileTooLarge, "Uploaded file exceeds the size limit")
		case errors.Is(err, http.ErrMissingFile):
			h.Error(c, http.StatusBadRequest, dto.ErrCodeValidationRequired, "Form field 'file' is required")
		default:
			h.BadRequest(c, "Request must be multipart/form-data with a 'file' field")
		}
		return
	}
	if form := c.Request.MultipartForm; form != nil {
		// Large parts are spooled to temporary files
		defer func() { _ = form.RemoveAll() }()
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	defer file.Close()

	outcome, err := h.media.Upload(c.Request.Context(), middleware.GetIdentity(c), media.UploadInput{
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
		Folder:   c.PostForm("folder"),
		File:     file,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if outcome.Relayed != nil {
		contentType := outcome.Relayed.ContentType
		if contentType == "" {
			contentType = "application/json; charset=utf-8"
		}
		c.Data(outcome.Relayed.StatusCode, contentType, outcome.Relayed.Body)
		return
	}

	stored := outcome.Stored
	if stored == nil {
		h.InternalError(c, "Upload produced no result")
		return
	}
	resp := dto.MediaUploadResponse{
		Key:         stored.Key,
		URL:         stored.URL,
		Size:        stored.Size,
		ContentType: stored.ContentType,
		Filename:    stored.Filename,
	}
	if !stored.ExpiresAt.IsZero() {
		expiresAt := stored.ExpiresAt
		resp.ExpiresAt = &expiresAt
	}
	h.Created(c, resp)
}
