package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/hemline/internal/pkg/errcode"
	"github.com/xxxsen/hemline/internal/pkg/response"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db Pinger
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.PingContext(ctx); err != nil {
		logutil.GetLogger(ctx).Error("health check failed", zap.Error(err))
		response.Error(c, http.StatusServiceUnavailable, errcode.ErrInternal, "database unavailable")
		return
	}
	response.Success(c, gin.H{"status": "ok"})
}
