package admin

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/andvari/socialcore/internal/httperr"
	identityrepo "github.com/andvari/socialcore/internal/identity/repo"
	"github.com/andvari/socialcore/internal/principal"
	profileentity "github.com/andvari/socialcore/internal/profile/entity"
	profilerepo "github.com/andvari/socialcore/internal/profile/repo"
)

// Handler exposes the /api/management endpoints.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid id"})
		return 0, false
	}
	return id, true
}

func boolQuery(c *gin.Context, name string) *bool {
	v, ok := c.GetQuery(name)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

func (h *Handler) ListUsers(c *gin.Context) {
	opts := identityrepo.ListOptions{
		IsActive:    boolQuery(c, "is_active"),
		IsStaff:     boolQuery(c, "is_staff"),
		IsSuperuser: boolQuery(c, "is_superuser"),
		Search:      c.Query("search"),
		OrderBy:     c.Query("ordering"),
	}
	opts.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	opts.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	page, err := h.svc.ListUsers(c.Request.Context(), principal.FromContext(c), opts)
	if err != nil {
		h.logger.Errorw("admin user listing failed", "err", err)
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) GetUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	a, err := h.svc.GetUser(c.Request.Context(), principal.FromContext(c), id)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// UpdateUserRequest is the partial admin edit payload.
type UpdateUserRequest struct {
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	Bio         *string `json:"bio"`
	DateOfBirth *string `json:"date_of_birth"`
}

func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req UpdateUserRequest
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
	a, err := h.svc.UpdateUser(c.Request.Context(), principal.FromContext(c), id, u)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteUser(c.Request.Context(), principal.FromContext(c), id); err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "User deleted successfully."})
}

// SetActiveRequest carries the target state; absent means toggle.
type SetActiveRequest struct {
	IsActive *bool `json:"is_active"`
}

func (h *Handler) Activate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	p := principal.FromContext(c)
	var (
		state bool
		err   error
	)
	if req.IsActive != nil {
		state, err = h.svc.SetActive(c.Request.Context(), p, id, *req.IsActive)
	} else {
		state, err = h.svc.ToggleActive(c.Request.Context(), p, id)
	}
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "is_active": state})
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context(), principal.FromContext(c))
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) Export(c *gin.Context) {
	rows, err := h.svc.Export(c.Request.Context(), principal.FromContext(c), boolQuery(c, "is_active"), boolQuery(c, "is_staff"))
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(rows), "results": rows})
}

func (h *Handler) GetProfile(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	pr, err := h.svc.GetProfile(c.Request.Context(), principal.FromContext(c), id)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, pr)
}

// UpdateProfileRequest mirrors the caller-writable profile fields.
type UpdateProfileRequest struct {
	PrivacySetting     *string `json:"privacy_setting"`
	EmailNotifications *bool   `json:"email_notifications"`
	PushNotifications  *bool   `json:"push_notifications"`
	Website            *string `json:"website"`
	GithubUsername     *string `json:"github_username"`
	TwitterUsername    *string `json:"twitter_username"`
	LinkedinUsername   *string `json:"linkedin_username"`
	Location           *string `json:"location"`
	Occupation         *string `json:"occupation"`
	Company            *string `json:"company"`
	ThemePreference    *string `json:"theme_preference"`
	LanguagePreference *string `json:"language_preference"`
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	u := profilerepo.ProfileUpdate{
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
	if req.PrivacySetting != nil {
		ps := profileentity.PrivacySetting(*req.PrivacySetting)
		if !ps.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "privacy_setting must be public, friends or private"})
			return
		}
		u.PrivacySetting = &ps
	}
	pr, err := h.svc.UpdateProfile(c.Request.Context(), principal.FromContext(c), id, u)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, pr)
}
