package handler

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	appErr "github.com/xxxsen/hemline/internal/pkg/errors"
	"github.com/xxxsen/hemline/internal/pkg/response"
	"github.com/xxxsen/hemline/internal/service"
)

type GalleryHandler struct {
	gallery *service.GalleryService
}

func NewGalleryHandler(gallery *service.GalleryService) *GalleryHandler {
	return &GalleryHandler{gallery: gallery}
}

func (h *GalleryHandler) List(c *gin.Context) {
	page, err := h.gallery.List(c.Request.Context(), getUserID(c), pageRequest(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, page)
}

// Upload takes the "image" form file plus optional file_name and description
// fields. The file name defaults to the uploaded name without its extension.
func (h *GalleryHandler) Upload(c *gin.Context) {
	file, header, ok := openImageUpload(c, h.gallery.MaxUploadBytes())
	if !ok {
		return
	}
	defer file.Close()

	name := strings.TrimSpace(c.PostForm("file_name"))
	if name == "" {
		base := filepath.Base(header.Filename)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	img, err := h.gallery.Upload(c.Request.Context(), getUserID(c), name, c.PostForm("description"), file, header.Size)
	if err != nil {
		handleError(c, err)
		return
	}
	response.SuccessWithStatus(c, http.StatusCreated, img)
}

func (h *GalleryHandler) Get(c *gin.Context) {
	img, err := h.gallery.Get(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, img)
}

func (h *GalleryHandler) Update(c *gin.Context) {
	var req service.GalleryUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.ErrInvalid)
		return
	}
	img, err := h.gallery.Update(c.Request.Context(), getUserID(c), c.Param("id"), req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, img)
}

func (h *GalleryHandler) Delete(c *gin.Context) {
	h.remove(c, []string{c.Param("id")})
}

func (h *GalleryHandler) BulkDelete(c *gin.Context) {
	var req idsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.Invalid("ids must be an array"))
		return
	}
	h.remove(c, req.IDs)
}

func (h *GalleryHandler) remove(c *gin.Context, ids []string) {
	n, err := h.gallery.Delete(c.Request.Context(), getUserID(c), ids)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, affectedResponse{AffectedCount: int64(n)})
}
