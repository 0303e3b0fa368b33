package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErr "github.com/xxxsen/hemline/internal/pkg/errors"
	"github.com/xxxsen/hemline/internal/pkg/response"
	"github.com/xxxsen/hemline/internal/service"
)

type WaitlistHandler struct {
	waitlist *service.WaitlistService
}

func NewWaitlistHandler(waitlist *service.WaitlistService) *WaitlistHandler {
	return &WaitlistHandler{waitlist: waitlist}
}

func (h *WaitlistHandler) Join(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.ErrInvalid)
		return
	}
	entry, created, err := h.waitlist.Join(c.Request.Context(), req.Email)
	if err != nil {
		handleError(c, err)
		return
	}
	if !created {
		response.Success(c, gin.H{"message": "already on the waitlist", "entry": entry})
		return
	}
	response.SuccessWithStatus(c, http.StatusCreated, gin.H{"message": "added to the waitlist", "entry": entry})
}
