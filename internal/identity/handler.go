package identity

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/andvari/socialcore/internal/httperr"
	"github.com/andvari/socialcore/internal/identity/entity"
	identityrepo "github.com/andvari/socialcore/internal/identity/repo"
	"github.com/andvari/socialcore/internal/principal"
)

// TokenIssuer mints the access/refresh pair for a fresh account so the
// registration response can log the caller straight in.
type TokenIssuer interface {
	IssuePair(a *entity.Account) (access, refresh string, err error)
}

// Handler exposes HTTP endpoints for account registration and the
// caller's own account record.
type Handler struct {
	svc    *Service
	tokens TokenIssuer
	logger *zap.SugaredLogger
}

func NewHandler(db *sqlx.DB, svc *Service, tokens TokenIssuer, logger *zap.SugaredLogger) *Handler {
	if svc == nil {
		svc = NewService(db, nil, nil)
	}
	return &Handler{svc: svc, tokens: tokens, logger: logger}
}

// RegisterRequest is the signup payload.
type RegisterRequest struct {
	Email                string  `json:"email" binding:"required"`
	Password             string  `json:"password" binding:"required"`
	PasswordConfirmation string  `json:"password_confirmation" binding:"required"`
	FirstName            string  `json:"first_name"`
	LastName             string  `json:"last_name"`
	Bio                  *string `json:"bio"`
	DateOfBirth          *string `json:"date_of_birth"`
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	in := RegisterInput{
		Email:                req.Email,
		Password:             req.Password,
		PasswordConfirmation: req.PasswordConfirmation,
		FirstName:            req.FirstName,
		LastName:             req.LastName,
		Bio:                  req.Bio,
	}
	if req.DateOfBirth != nil {
		dob, err := time.Parse("2006-01-02", *req.DateOfBirth)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "date_of_birth must be YYYY-MM-DD"})
			return
		}
		in.DateOfBirth = &dob
	}

	a, err := h.svc.Register(c.Request.Context(), in)
	if err != nil {
		h.logger.Debugw("registration failed", "err", err)
		httperr.Respond(c, err)
		return
	}

	access, refresh, err := h.tokens.IssuePair(a)
	if err != nil {
		h.logger.Errorw("token issuance after signup failed", "account_id", a.ID, "err", err)
		httperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":    a,
		"access":  access,
		"refresh": refresh,
	})
}

// Me returns the caller's own account record.
func (h *Handler) Me(c *gin.Context) {
	p := principal.FromContext(c)
	a, err := h.svc.Get(c.Request.Context(), p.ID)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// UpdateMeRequest is the partial account update payload.
type UpdateMeRequest struct {
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	Bio         *string `json:"bio"`
	DateOfBirth *string `json:"date_of_birth"`
}

func (h *Handler) UpdateMe(c *gin.Context) {
	var req UpdateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	u := identityrepo.AccountUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Bio:       req.Bio,
	}
	if req.DateOfBirth != nil {
		dob, err := time.Parse("2006-01-02", *req.DateOfBirth)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "date_of_birth must be YYYY-MM-DD"})
			return
		}
		u.DateOfBirth = &dob
	}
	p := principal.FromContext(c)
	a, err := h.svc.Update(c.Request.Context(), p.ID, u)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}
