package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErr "github.com/xxxsen/hemline/internal/pkg/errors"
	"github.com/xxxsen/hemline/internal/pkg/response"
	"github.com/xxxsen/hemline/internal/service"
)

type FolderHandler struct {
	folders *service.FolderService
}

func NewFolderHandler(folders *service.FolderService) *FolderHandler {
	return &FolderHandler{folders: folders}
}

type addImagesRequest struct {
	ImageIDs  []string `json:"image_ids"`
	FolderIDs []string `json:"folder_ids"`
}

type removeImagesRequest struct {
	ImageIDs []string `json:"image_ids"`
}

type coverRequest struct {
	ImageID string `json:"image_id"`
}

type shareRequest struct {
	Emails []string `json:"emails"`
}

func (h *FolderHandler) List(c *gin.Context) {
	page, err := h.folders.List(c.Request.Context(), getUserID(c), pageRequest(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, page)
}

func (h *FolderHandler) Create(c *gin.Context) {
	var req service.FolderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.ErrInvalid)
		return
	}
	folder, err := h.folders.Create(c.Request.Context(), getUserID(c), req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.SuccessWithStatus(c, http.StatusCreated, folder)
}

func (h *FolderHandler) Get(c *gin.Context) {
	folder, err := h.folders.Get(c.Request.Context(), getUserID(c), c.Param("id"), pageRequest(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, folder)
}

func (h *FolderHandler) Update(c *gin.Context) {
	var req service.FolderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.ErrInvalid)
		return
	}
	folder, err := h.folders.Update(c.Request.Context(), getUserID(c), c.Param("id"), req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, folder)
}

func (h *FolderHandler) Delete(c *gin.Context) {
	if err := h.folders.Delete(c.Request.Context(), getUserID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

func (h *FolderHandler) AddImages(c *gin.Context) {
	var req addImagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.ErrInvalid)
		return
	}
	folder, err := h.folders.AddImages(c.Request.Context(), getUserID(c), c.Param("id"), req.ImageIDs, req.FolderIDs)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, folder)
}

func (h *FolderHandler) RemoveImages(c *gin.Context) {
	var req removeImagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.Invalid("image_ids must be an array"))
		return
	}
	folder, err := h.folders.RemoveImages(c.Request.Context(), getUserID(c), c.Param("id"), req.ImageIDs)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, folder)
}

func (h *FolderHandler) SetCover(c *gin.Context) {
	var req coverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.ErrInvalid)
		return
	}
	folder, err := h.folders.SetCover(c.Request.Context(), getUserID(c), c.Param("id"), req.ImageID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, folder)
}

// Share accepts an empty body, which only publishes the folder.
func (h *FolderHandler) Share(c *gin.Context) {
	var req shareRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			handleError(c, appErr.ErrInvalid)
			return
		}
	}
	folder, err := h.folders.Share(c.Request.Context(), getUserID(c), c.Param("id"), req.Emails)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, folder)
}

func (h *FolderHandler) Unshare(c *gin.Context) {
	folder, err := h.folders.Unshare(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, folder)
}

func (h *FolderHandler) PublicShow(c *gin.Context) {
	folder, err := h.folders.PublicFolder(c.Request.Context(), c.Param("public_id"), pageRequest(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, folder)
}

func (h *FolderHandler) PublicImages(c *gin.Context) {
	page, err := h.folders.PublicImages(c.Request.Context(), c.Param("public_id"), pageRequest(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, page)
}
