package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/erpadmin/internal/common"
	"github.com/dmitrijs2005/erpadmin/internal/server/auth"
)

const userIDKey = "user_id"

// requestLogger tags each request with an ID (taken from the client when
// present) and logs a summary once the handler returns.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		rid := c.GetHeader(common.RequestIDHeaderName)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Writer.Header().Set(common.RequestIDHeaderName, rid)

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		attrs := []any{
			"request_id", rid,
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
			s.logger.Error(c.Request.Context(), "request", attrs...)
			return
		}
		s.logger.Info(c.Request.Context(), "request", attrs...)
	}
}

// requireAccessToken verifies the bearer token and stores the subject under
// userIDKey.
func (s *Server) requireAccessToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(common.AuthorizationHeaderName))
		scheme, token, ok := strings.Cut(raw, " ")
		if !ok || !strings.EqualFold(scheme, common.BearerScheme) || strings.TrimSpace(token) == "" {
			abortDetail(c, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := auth.ParseToken(strings.TrimSpace(token), s.jwtSecret)
		if err != nil {
			if errors.Is(err, common.ErrTokenExpired) {
				abortDetail(c, http.StatusUnauthorized, "token expired")
				return
			}
			abortDetail(c, http.StatusUnauthorized, "invalid token")
			return
		}

		c.Set(userIDKey, claims.Subject)
		c.Next()
	}
}
