package session

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/andvari/socialcore/internal/httperr"
	"github.com/andvari/socialcore/internal/principal"
)

// TokenHeader carries the opaque session token on authenticated
// requests; the middleware and the end-all endpoint both read it.
const TokenHeader = "X-Session-Token"

// Handler exposes HTTP endpoints for a caller's own sessions.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) List(c *gin.Context) {
	p := principal.FromContext(c)
	rows, err := h.svc.List(c.Request.Context(), p.ID)
	if err != nil {
		h.logger.Errorw("session list failed", "account_id", p.ID, "err", err)
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(rows), "results": rows})
}

func (h *Handler) Detail(c *gin.Context) {
	p := principal.FromContext(c)
	sess, err := h.svc.Get(c.Request.Context(), p.ID, c.Param("token"))
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// End terminates one session; repeating the call succeeds without
// changing anything.
func (h *Handler) End(c *gin.Context) {
	p := principal.FromContext(c)
	if err := h.svc.End(c.Request.Context(), p.ID, c.Param("token")); err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Session ended successfully."})
}

// EndAll terminates every active session except the caller's current
// one, identified by the session token header. Without the header
// there is no way to tell which session to spare, so the request is
// rejected rather than ending the current session too.
func (h *Handler) EndAll(c *gin.Context) {
	p := principal.FromContext(c)
	current := c.GetHeader(TokenHeader)
	if current == "" {
		httperr.Respond(c, fmt.Errorf("%w: the %s header is required", httperr.ErrValidation, TokenHeader))
		return
	}
	n, err := h.svc.EndAllExcept(c.Request.Context(), p.ID, current)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": fmt.Sprintf("Ended %d active sessions.", n), "count": n})
}
