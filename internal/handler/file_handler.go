package handler

import (
	"errors"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/hemline/internal/filestore"
	appErr "github.com/xxxsen/hemline/internal/pkg/errors"
)

type FileHandler struct {
	store filestore.Store
}

func NewFileHandler(store filestore.Store) *FileHandler {
	return &FileHandler{store: store}
}

// Get streams a business image kept by the local store. Remote stores hand
// out their own URLs, so nothing is served for them here.
func (h *FileHandler) Get(c *gin.Context) {
	if h.store.Type() != "local" {
		handleError(c, appErr.ErrNotFound)
		return
	}
	key := c.Param("key")
	file, err := h.store.Open(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, filestore.ErrInvalidKey) {
			err = appErr.ErrNotFound
		}
		handleError(c, err)
		return
	}
	defer file.Close()

	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, -1, contentType, file, map[string]string{
		"Cache-Control": "public, max-age=86400",
	})
}
