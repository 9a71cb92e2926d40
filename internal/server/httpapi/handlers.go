package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/erpadmin/internal/common"
	"github.com/dmitrijs2005/erpadmin/internal/server/services"
)

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortDetail(c, http.StatusBadRequest, "invalid json")
		return
	}

	pair, err := s.users.Login(c.Request.Context(), req.Username, []byte(req.Password))
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			abortDetail(c, http.StatusUnauthorized, "invalid username or password")
			return
		}
		s.fail(c, err)
		return
	}

	s.logger.Info(c.Request.Context(), "Logged in", "username", req.Username)
	c.JSON(http.StatusOK, toTokenResponse(pair))
}

func (s *Server) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortDetail(c, http.StatusBadRequest, "invalid json")
		return
	}

	pair, err := s.users.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrRefreshTokenExpired):
			abortDetail(c, http.StatusUnauthorized, "refresh token expired")
		case errors.Is(err, common.ErrorUnauthorized):
			abortDetail(c, http.StatusUnauthorized, "invalid refresh token")
		default:
			s.fail(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, toTokenResponse(pair))
}

func (s *Server) logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortDetail(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := s.users.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) me(c *gin.Context) {
	p, err := s.users.Profile(c.Request.Context(), c.GetString(userIDKey))
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			abortDetail(c, http.StatusUnauthorized, "unknown user")
			return
		}
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, profileResponse{
		ID:          p.ID,
		Username:    p.Username,
		FullName:    p.FullName,
		Email:       p.Email,
		Roles:       p.Roles,
		Permissions: p.Permissions,
	})
}

func (s *Server) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortDetail(c, http.StatusBadRequest, "invalid json")
		return
	}

	err := s.users.ChangePassword(c.Request.Context(), c.GetString(userIDKey),
		[]byte(req.CurrentPassword), []byte(req.NewPassword), []byte(req.ConfirmPassword))
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorValidation):
			abortDetail(c, http.StatusBadRequest, validationDetail(err))
		case errors.Is(err, common.ErrorUnauthorized):
			abortDetail(c, http.StatusUnauthorized, "unknown user")
		default:
			s.fail(c, err)
		}
		return
	}
	c.Status(http.StatusNoContent)
}

// fail records err for the request log and answers 500 without leaking it.
func (s *Server) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	abortDetail(c, http.StatusInternalServerError, "internal error")
}

func abortDetail(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, errorResponse{Detail: detail})
}

// validationDetail strips the sentinel prefix from a wrapped ErrorValidation.
func validationDetail(err error) string {
	msg := strings.TrimPrefix(err.Error(), common.ErrorValidation.Error()+": ")
	if msg == "" {
		return common.ErrorValidation.Error()
	}
	return msg
}

func toTokenResponse(p *services.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int64(p.ExpiresIn / time.Second),
	}
}
