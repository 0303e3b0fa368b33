package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/hemline/internal/middleware"
	"github.com/xxxsen/hemline/internal/pkg/errcode"
	appErr "github.com/xxxsen/hemline/internal/pkg/errors"
	"github.com/xxxsen/hemline/internal/pkg/response"
	"github.com/xxxsen/hemline/internal/service"
)

type expiredFlag struct {
	Expired bool `json:"expired"`
}

func getUserID(c *gin.Context) string {
	value, _ := c.Get(middleware.ContextUserIDKey)
	userID, _ := value.(string)
	return userID
}

// handleError is the single place where errors become status codes.
func handleError(c *gin.Context, err error) {
	writeError(c, err, http.StatusUnauthorized)
}

// handleVerifyError reports an unknown or used credential as 422 so clients
// can tell it apart from a session problem.
func handleVerifyError(c *gin.Context, err error) {
	writeError(c, err, http.StatusUnprocessableEntity)
}

func writeError(c *gin.Context, err error, invalidCredentialStatus int) {
	if err == nil {
		return
	}
	requestID, _ := c.Get(middleware.ContextRequestIDKey)
	fields := []zap.Field{
		zap.Any("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("user_id", getUserID(c)),
		zap.Error(err),
	}
	logger := logutil.GetLogger(c.Request.Context())

	switch {
	case errors.Is(err, appErr.ErrInvalid):
		logger.Debug("request rejected", fields...)
		message := "invalid request"
		var verr *appErr.ValidationError
		if errors.As(err, &verr) {
			message = verr.Reason
		}
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, message)
	case errors.Is(err, appErr.ErrExpiredCredential):
		logger.Info("credential rejected", fields...)
		response.ErrorWithData(c, http.StatusUnauthorized, errcode.ErrExpiredCredential, "credential expired", expiredFlag{Expired: true})
	case errors.Is(err, appErr.ErrInvalidCredential):
		logger.Info("credential rejected", fields...)
		response.ErrorWithData(c, invalidCredentialStatus, errcode.ErrInvalidCredential, "invalid or expired credential", expiredFlag{})
	case errors.Is(err, appErr.ErrRevokedToken):
		logger.Warn("revoked token presented", fields...)
		response.ErrorWithData(c, http.StatusUnauthorized, errcode.ErrRevokedToken, "invalid or expired credential", expiredFlag{})
	case errors.Is(err, appErr.ErrUnauthorized):
		response.Error(c, http.StatusUnauthorized, errcode.ErrUnauthorized, "unauthorized")
	case errors.Is(err, appErr.ErrForbidden):
		response.Error(c, http.StatusForbidden, errcode.ErrForbidden, "forbidden")
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, http.StatusNotFound, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrConflict):
		response.Error(c, http.StatusConflict, errcode.ErrConflict, "conflict")
	case errors.Is(err, appErr.ErrTooMany):
		response.Error(c, http.StatusTooManyRequests, errcode.ErrTooMany, http.StatusText(http.StatusTooManyRequests))
	case errors.Is(err, service.ErrUnsupportedImage):
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalidFile, "image must be png, jpeg, webp or gif")
	case errors.Is(err, service.ErrImageTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, errcode.ErrInvalidFile, "image too large")
	case errors.Is(err, service.ErrUploadFailed):
		logger.Error("upload failed", fields...)
		response.Error(c, http.StatusBadGateway, errcode.ErrUploadFailed, "image upload failed")
	default:
		logger.Error("request failed", fields...)
		response.Error(c, http.StatusInternalServerError, errcode.ErrInternal, "internal error")
	}
}

// pageRequest reads page and per_page; bad values fall back to defaults.
func pageRequest(c *gin.Context) service.PageRequest {
	page, _ := strconv.Atoi(c.Query("page"))
	perPage, _ := strconv.Atoi(c.Query("per_page"))
	return service.PageRequest{Page: page, PerPage: perPage}
}

type idsRequest struct {
	IDs []string `json:"ids"`
}

type affectedResponse struct {
	AffectedCount int64 `json:"affected_count"`
}
