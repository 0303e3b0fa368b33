package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/hemline/internal/pkg/response"
	"github.com/xxxsen/hemline/internal/service"
)

type AccountHandler struct {
	accounts *service.AccountService
	cookie   *RefreshCookie
}

func NewAccountHandler(accounts *service.AccountService, cookie *RefreshCookie) *AccountHandler {
	return &AccountHandler{accounts: accounts, cookie: cookie}
}

func (h *AccountHandler) RequestDeletion(c *gin.Context) {
	if err := h.accounts.RequestDeletion(c.Request.Context(), getUserID(c)); err != nil {
		handleError(c, err)
		return
	}
	h.cookie.Clear(c)
	response.Success(c, gin.H{
		"message":    "account scheduled for deletion",
		"grace_days": int(h.accounts.Grace() / (24 * time.Hour)),
	})
}

func (h *AccountHandler) CancelDeletion(c *gin.Context) {
	session, err := h.accounts.CancelDeletion(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	h.cookie.Set(c, session.RefreshToken)
	response.Success(c, toSessionResponse(session))
}

// SweepDeletions is the operator endpoint behind the admin key.
func (h *AccountHandler) SweepDeletions(c *gin.Context) {
	deleted, err := h.accounts.SweepExpiredDeletions(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": deleted})
}
