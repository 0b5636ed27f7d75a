package activity

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/andvari/socialcore/internal/activity/entity"
	actrepo "github.com/andvari/socialcore/internal/activity/repo"
	"github.com/andvari/socialcore/internal/httperr"
	"github.com/andvari/socialcore/internal/principal"
)

// SessionCounter reports how many sessions an account has open. The
// session registry implements it; the indirection keeps this package
// off the session domain.
type SessionCounter interface {
	CountActive(ctx context.Context, accountID int64) (int64, error)
}

// Handler exposes HTTP endpoints for the activity log, aggregate, and
// analytics read models.
type Handler struct {
	svc      *Service
	sessions SessionCounter
	logger   *zap.SugaredLogger
}

func NewHandler(svc *Service, sessions SessionCounter, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, sessions: sessions, logger: logger}
}

func (h *Handler) List(c *gin.Context) {
	p := principal.FromContext(c)
	opts := actrepo.ListOptions{
		Type: entity.ActivityType(c.Query("activity_type")),
	}
	opts.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	opts.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if opts.Type != "" && !opts.Type.Known() {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "unknown activity_type"})
		return
	}
	rows, total, err := h.svc.List(c.Request.Context(), p.ID, opts)
	if err != nil {
		h.logger.Errorw("activity list failed", "account_id", p.ID, "err", err)
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": total, "results": rows})
}

func (h *Handler) Detail(c *gin.Context) {
	p := principal.FromContext(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid activity id"})
		return
	}
	ev, err := h.svc.Get(c.Request.Context(), p.ID, id)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

func (h *Handler) Stats(c *gin.Context) {
	p := principal.FromContext(c)
	active, err := h.sessions.CountActive(c.Request.Context(), p.ID)
	if err != nil {
		h.logger.Warnw("active session count failed", "account_id", p.ID, "err", err)
		active = 0
	}
	stats, err := h.svc.Stats(c.Request.Context(), p.ID, active)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) Aggregation(c *gin.Context) {
	p := principal.FromContext(c)
	agg, err := h.svc.Aggregate(c.Request.Context(), p.ID)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, agg)
}

// UpdateAggregationRequest exposes the single writable projection field.
type UpdateAggregationRequest struct {
	ShowActivity *bool `json:"show_activity" binding:"required"`
}

func (h *Handler) UpdateAggregation(c *gin.Context) {
	var req UpdateAggregationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	p := principal.FromContext(c)
	agg, err := h.svc.SetShowActivity(c.Request.Context(), p.ID, *req.ShowActivity)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, agg)
}

func (h *Handler) Analytics(c *gin.Context) {
	p := principal.FromContext(c)
	out, err := h.svc.Analytics(c.Request.Context(), p.ID, time.Now())
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
