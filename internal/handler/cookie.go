package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/hemline/internal/config"
)

// RefreshCookie writes and clears the http-only refresh token cookie.
type RefreshCookie struct {
	name     string
	domain   string
	path     string
	secure   bool
	sameSite http.SameSite
	maxAge   time.Duration
}

func NewRefreshCookie(cfg config.CookieConfig, maxAge time.Duration) *RefreshCookie {
	sameSite := http.SameSiteStrictMode
	switch strings.ToLower(cfg.SameSite) {
	case "lax":
		sameSite = http.SameSiteLaxMode
	case "none":
		sameSite = http.SameSiteNoneMode
	}
	return &RefreshCookie{
		name:     cfg.Name,
		domain:   cfg.Domain,
		path:     cfg.Path,
		secure:   !cfg.Insecure,
		sameSite: sameSite,
		maxAge:   maxAge,
	}
}

func (rc *RefreshCookie) Name() string {
	return rc.name
}

func (rc *RefreshCookie) Set(c *gin.Context, token string) {
	rc.write(c, token, int(rc.maxAge/time.Second))
}

func (rc *RefreshCookie) Clear(c *gin.Context) {
	rc.write(c, "", -1)
}

func (rc *RefreshCookie) write(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(rc.sameSite)
	c.SetCookie(rc.name, value, maxAge, rc.path, rc.domain, rc.secure, true)
}
