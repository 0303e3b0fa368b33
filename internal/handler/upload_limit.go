package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/hemline/internal/pkg/errcode"
	"github.com/xxxsen/hemline/internal/pkg/response"
)

// formatUploadLimit renders a byte limit for error messages, e.g. "5MB" or "512KB".
func formatUploadLimit(limit int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
	)
	switch {
	case limit <= 0:
		return "0KB"
	case limit >= mb:
		return strconv.FormatInt(limit/mb, 10) + "MB"
	case limit >= kb:
		return strconv.FormatInt(limit/kb, 10) + "KB"
	default:
		return strconv.FormatInt(limit, 10) + "B"
	}
}

// openImageUpload opens the "image" form file. On failure the response is
// already written and ok is false.
func openImageUpload(c *gin.Context, limit int64) (multipart.File, *multipart.FileHeader, bool) {
	if limit > 0 {
		// leave room for the multipart envelope
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+64*1024)
	}
	header, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, errcode.ErrInvalidFile, "image exceeds "+formatUploadLimit(limit))
			return nil, nil, false
		}
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalidFile, "image is required")
		return nil, nil, false
	}
	if limit > 0 && header.Size > limit {
		response.Error(c, http.StatusRequestEntityTooLarge, errcode.ErrInvalidFile, "image exceeds "+formatUploadLimit(limit))
		return nil, nil, false
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalidFile, "failed to open image")
		return nil, nil, false
	}
	return file, header, true
}
