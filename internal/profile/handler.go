package profile

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/andvari/socialcore/internal/httperr"
	"github.com/andvari/socialcore/internal/principal"
	"github.com/andvari/socialcore/internal/profile/entity"
	profilerepo "github.com/andvari/socialcore/internal/profile/repo"
)

// Handler exposes HTTP endpoints for profiles and the social graph.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Own returns the caller's own profile.
func (h *Handler) Own(c *gin.Context) {
	p := principal.FromContext(c)
	view, err := h.svc.View(c.Request.Context(), p.ID, p.ID)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Detail returns another account's profile, privacy policy applied.
func (h *Handler) Detail(c *gin.Context) {
	ownerID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid user id"})
		return
	}
	p := principal.FromContext(c)
	view, err := h.svc.View(c.Request.Context(), p.ID, ownerID)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// UpdateRequest is the partial profile update payload.
type UpdateRequest struct {
	PrivacySetting     *entity.PrivacySetting `json:"privacy_setting"`
	EmailNotifications *bool                  `json:"email_notifications"`
	PushNotifications  *bool                  `json:"push_notifications"`
	Website            *string                `json:"website"`
	GithubUsername     *string                `json:"github_username"`
	TwitterUsername    *string                `json:"twitter_username"`
	LinkedinUsername   *string                `json:"linkedin_username"`
	Location           *string                `json:"location"`
	Occupation         *string                `json:"occupation"`
	Company            *string                `json:"company"`
	ThemePreference    *string                `json:"theme_preference"`
	LanguagePreference *string                `json:"language_preference"`
}

func (h *Handler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	p := principal.FromContext(c)
	u := profilerepo.ProfileUpdate{
		PrivacySetting:     req.PrivacySetting,
		EmailNotifications: req.EmailNotifications,
		PushNotifications:  req.PushNotifications,
		Website:            req.Website,
		GithubUsername:     req.GithubUsername,
		TwitterUsername:    req.TwitterUsername,
		LinkedinUsername:   req.LinkedinUsername,
		Location:           req.Location,
		Occupation:         req.Occupation,
		Company:            req.Company,
		ThemePreference:    req.ThemePreference,
		LanguagePreference: req.LanguagePreference,
	}
	view, err := h.svc.Update(c.Request.Context(), p.ID, u, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ToggleRequest names a target account for a follow or block toggle.
// The action field is accepted for wire compatibility; the operation is
// a pure toggle either way.
type ToggleRequest struct {
	UserID int64  `json:"user_id" binding:"required"`
	Action string `json:"action"`
}

func (h *Handler) Follow(c *gin.Context) {
	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	p := principal.FromContext(c)
	following, err := h.svc.ToggleFollow(c.Request.Context(), p.ID, req.UserID, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	email, err := h.svc.TargetEmail(c.Request.Context(), req.UserID)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	if following {
		c.JSON(http.StatusOK, gin.H{"detail": fmt.Sprintf("You are now following %s.", email), "following": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": fmt.Sprintf("You have unfollowed %s.", email), "following": false})
}

func (h *Handler) Block(c *gin.Context) {
	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	p := principal.FromContext(c)
	blocking, err := h.svc.ToggleBlock(c.Request.Context(), p.ID, req.UserID, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	email, err := h.svc.TargetEmail(c.Request.Context(), req.UserID)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	if blocking {
		c.JSON(http.StatusOK, gin.H{"detail": fmt.Sprintf("You have blocked %s.", email), "blocking": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": fmt.Sprintf("You have unblocked %s.", email), "blocking": false})
}

func (h *Handler) Search(c *gin.Context) {
	p := principal.FromContext(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	rows, err := h.svc.Search(c.Request.Context(), p.ID, c.Query("q"), limit)
	if err != nil {
		h.logger.Errorw("user search failed", "err", err)
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(rows), "results": rows})
}
