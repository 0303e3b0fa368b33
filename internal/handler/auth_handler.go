package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/hemline/internal/model"
	appErr "github.com/xxxsen/hemline/internal/pkg/errors"
	"github.com/xxxsen/hemline/internal/pkg/response"
	"github.com/xxxsen/hemline/internal/service"
)

type AuthHandler struct {
	sessions *service.SessionService
	cookie   *RefreshCookie
}

func NewAuthHandler(sessions *service.SessionService, cookie *RefreshCookie) *AuthHandler {
	return &AuthHandler{sessions: sessions, cookie: cookie}
}

type emailRequest struct {
	Email string `json:"email"`
}

type verifyCodeRequest struct {
	Code string `json:"code"`
}

type SessionResponse struct {
	AccessToken         string      `json:"access_token"`
	AccessExpiresAt     int64       `json:"access_expires_at"`
	RefreshToken        string      `json:"refresh_token,omitempty"`
	User                *model.User `json:"user,omitempty"`
	ToBeDeleted         bool        `json:"to_be_deleted"`
	DeletionRequestedAt *int64      `json:"date_requested_for_deletion,omitempty"`
}

func toSessionResponse(s *service.Session) SessionResponse {
	return SessionResponse{
		AccessToken:         s.AccessToken,
		AccessExpiresAt:     s.AccessExpiresAt,
		RefreshToken:        s.RefreshToken,
		User:                s.User,
		ToBeDeleted:         s.ToBeDeleted,
		DeletionRequestedAt: s.DeletionRequestedAt,
	}
}

func (h *AuthHandler) RequestMagicLink(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.ErrInvalid)
		return
	}
	if _, err := h.sessions.RequestLogin(c.Request.Context(), req.Email); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "check your email for the sign in link"})
}

func (h *AuthHandler) VerifyCode(c *gin.Context) {
	var req verifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleVerifyError(c, appErr.ErrInvalid)
		return
	}
	session, err := h.sessions.VerifyCode(c.Request.Context(), req.Code)
	h.finishVerify(c, session, err)
}

func (h *AuthHandler) VerifyToken(c *gin.Context) {
	session, err := h.sessions.VerifyToken(c.Request.Context(), c.Query("token"))
	h.finishVerify(c, session, err)
}

func (h *AuthHandler) finishVerify(c *gin.Context, session *service.Session, err error) {
	if err != nil {
		handleVerifyError(c, err)
		return
	}
	if session.RefreshToken != "" {
		h.cookie.Set(c, session.RefreshToken)
	} else {
		h.cookie.Clear(c)
	}
	response.Success(c, toSessionResponse(session))
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	token, _ := c.Cookie(h.cookie.Name())
	session, err := h.sessions.Refresh(c.Request.Context(), token)
	if err != nil {
		h.cookie.Clear(c)
		handleError(c, err)
		return
	}
	response.Success(c, toSessionResponse(session))
}

func (h *AuthHandler) Profile(c *gin.Context) {
	user, err := h.sessions.Profile(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, user)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.sessions.Logout(c.Request.Context(), getUserID(c)); err != nil {
		handleError(c, err)
		return
	}
	h.cookie.Clear(c)
	response.Success(c, gin.H{"message": "logged out"})
}
