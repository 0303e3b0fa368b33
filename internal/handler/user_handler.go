package handler

import (
	"github.com/gin-gonic/gin"

	appErr "github.com/xxxsen/hemline/internal/pkg/errors"
	"github.com/xxxsen/hemline/internal/pkg/response"
	"github.com/xxxsen/hemline/internal/service"
)

type UserHandler struct {
	users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req service.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.ErrInvalid)
		return
	}
	user, err := h.users.UpdateProfile(c.Request.Context(), getUserID(c), req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, user)
}

func (h *UserHandler) UpdateBusinessImage(c *gin.Context) {
	file, header, ok := openImageUpload(c, h.users.MaxUploadBytes())
	if !ok {
		return
	}
	defer file.Close()

	user, err := h.users.UpdateBusinessImage(c.Request.Context(), getUserID(c), file, header.Size)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, user)
}
