package http

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// requireActor reads the caller identity every ledger mutation is attributed
// to. The header is set by the platform gateway, which has already
// authenticated the collaborator.
func (s *Server) requireActor(c *gin.Context) (string, bool) {
	actor := strings.TrimSpace(c.GetHeader("X-Actor-DID"))
	if actor == "" {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "X-Actor-DID header required")
		return "", false
	}
	return actor, true
}

func (s *Server) requireAdmin(c *gin.Context) bool {
	if s.adminAPIKey == "" {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "admin key required")
		return false
	}
	key := c.GetHeader("X-Admin-Key")
	if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.adminAPIKey)) != 1 {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid admin key")
		return false
	}
	return true
}

// checkRateLimit applies the per-actor write budget. With no limiter
// configured every request passes.
func (s *Server) checkRateLimit(c *gin.Context, actor string) bool {
	if s.rateLimiter == nil || s.rateLimitRequests <= 0 {
		return true
	}
	key := "actor:" + actor
	decision, err := s.rateLimiter.Allow(c.Request.Context(), key, s.rateLimitRequests, s.rateLimitWindow)
	if err != nil {
		if s.rateLimitFailClosed {
			writeErrorCode(c, http.StatusServiceUnavailable, "RATE_LIMIT_UNAVAILABLE", "rate limiter unavailable")
			return false
		}
		return true
	}
	if !decision.Allowed {
		c.Header("Retry-After", decision.ResetAt.UTC().Format(http.TimeFormat))
		writeErrorCode(c, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded")
		return false
	}
	return true
}
