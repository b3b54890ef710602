package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/taskdeck/taskdeck-backend/internal/auth"
	"github.com/taskdeck/taskdeck-backend/internal/auth/domain"
	"github.com/taskdeck/taskdeck-backend/internal/logging"
)

type registerReq struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	user, pair, err := h.authService.Register(c.Request.Context(), domain.RegisterRequest{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		h.writeError(c, err, "failed to register")
		return
	}

	h.setSessionCookies(c, pair)
	c.JSON(http.StatusCreated, gin.H{"user": user, "tokens": pair})
}

type loginReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, pair, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err, "failed to login")
		return
	}

	h.setSessionCookies(c, pair)
	c.JSON(http.StatusOK, gin.H{"user": user, "tokens": pair})
}

func (h *Handler) logout(c *gin.Context) {
	ctx := c.Request.Context()

	var identity *domain.Identity
	if token := auth.RequestToken(c.Request, h.cookies.Host); token != "" && h.verifier != nil {
		// an expired or revoked token still gets its cookies cleared
		identity, _ = h.verifier.Verify(ctx, token)
	}

	if err := h.authService.Logout(ctx, identity, h.refreshTokenFrom(c, "")); err != nil {
		logging.FromContext(ctx).WithError(err).Warn("logout")
	}

	h.clearSessionCookies(c)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *Handler) refresh(c *gin.Context) {
	var req refreshReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	user, pair, err := h.authService.Refresh(c.Request.Context(), h.refreshTokenFrom(c, req.RefreshToken))
	if err != nil {
		h.writeError(c, err, "failed to refresh session")
		return
	}

	h.setSessionCookies(c, pair)
	c.JSON(http.StatusOK, gin.H{"user": user, "tokens": pair})
}

type forgotReq struct {
	Email string `json:"email" binding:"required"`
}

func (h *Handler) forgotPassword(c *gin.Context) {
	var req forgotReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.authService.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		logging.FromContext(c.Request.Context()).WithError(err).Error("forgot password")
	}
	c.JSON(http.StatusOK, gin.H{"message": "if the account exists, a reset link has been sent"})
}

type resetReq struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) resetPassword(c *gin.Context) {
	var req resetReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.authService.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		if errors.Is(err, domain.ErrInvalidToken) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired reset token"})
			return
		}
		h.writeError(c, err, "failed to reset password")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

func (h *Handler) refreshTokenFrom(c *gin.Context, fromBody string) string {
	if t := strings.TrimSpace(fromBody); t != "" {
		return t
	}
	host := auth.CookieHost(c.Request, h.cookies.Host)
	return auth.ExtractToken(c.GetHeader("Cookie"), auth.UserCookieName(host))
}

func (h *Handler) setSessionCookies(c *gin.Context, pair *domain.TokenPair) {
	host := auth.CookieHost(c.Request, h.cookies.Host)
	auth.SetSessionCookie(c.Writer, auth.AccessCookieName(host), pair.AccessToken, h.cookies.AccessTTL, h.cookies.Secure)
	auth.SetSessionCookie(c.Writer, auth.UserCookieName(host), pair.RefreshToken, h.cookies.RefreshTTL, h.cookies.Secure)
}

func (h *Handler) clearSessionCookies(c *gin.Context) {
	host := auth.CookieHost(c.Request, h.cookies.Host)
	auth.SetSessionCookie(c.Writer, auth.AccessCookieName(host), "", -1, h.cookies.Secure)
	auth.SetSessionCookie(c.Writer, auth.UserCookieName(host), "", -1, h.cookies.Secure)
}

func (h *Handler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	case errors.Is(err, domain.ErrInvalidToken), errors.Is(err, domain.ErrTokenRevoked):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "email already exists"})
	case errors.Is(err, domain.ErrWeakPassword), errors.Is(err, domain.ErrInvalidEmail), errors.Is(err, domain.ErrPasswordLogin):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	default:
		logging.FromContext(c.Request.Context()).WithError(err).Error(fallback)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
