package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/andvari/socialcore/internal/httperr"
	"github.com/andvari/socialcore/internal/principal"
	"github.com/andvari/socialcore/internal/session"
)

// Handler exposes the credential endpoints: login, refresh, logout and
// the two-step password reset.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	res, err := h.svc.Login(c.Request.Context(), req.Email, req.Password, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":          res.Account.Principal(),
		"access":        res.Access,
		"refresh":       res.Refresh,
		"session_token": res.SessionToken,
	})
}

type RefreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

func (h *Handler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	access, refresh, err := h.svc.Refresh(c.Request.Context(), req.Refresh)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access": access, "refresh": refresh})
}

type LogoutRequest struct {
	Refresh string `json:"refresh"`
}

// Logout revokes the refresh token and ends the current session. A
// bad refresh token is reported, but the session is ended regardless.
func (h *Handler) Logout(c *gin.Context) {
	var req LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	p := principal.FromContext(c)
	err := h.svc.Logout(c.Request.Context(), p.ID, req.Refresh, c.GetHeader(session.TokenHeader), c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Logged out successfully."})
}

type ResetRequest struct {
	Email string `json:"email" binding:"required"`
}

func (h *Handler) PasswordReset(c *gin.Context) {
	var req ResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	if err := h.svc.RequestReset(c.Request.Context(), req.Email); err != nil {
		h.logger.Errorw("password reset request failed", "err", err)
		httperr.Respond(c, err)
		return
	}
	// Same body for matched and unmatched emails.
	c.JSON(http.StatusOK, gin.H{"detail": "If the email exists, a reset link has been sent."})
}

type ResetConfirmRequest struct {
	UID                  string `json:"uid" binding:"required"`
	Token                string `json:"token" binding:"required"`
	Password             string `json:"password" binding:"required"`
	PasswordConfirmation string `json:"password_confirmation" binding:"required"`
}

func (h *Handler) PasswordResetConfirm(c *gin.Context) {
	var req ResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	if err := h.svc.ConfirmReset(c.Request.Context(), req.UID, req.Token, req.Password, req.PasswordConfirmation); err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Password has been reset successfully."})
}
