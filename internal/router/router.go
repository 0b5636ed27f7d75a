// Package router wires the middleware chain and the HTTP surface.
package router

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/andvari/socialcore/internal/activity"
	"github.com/andvari/socialcore/internal/admin"
	"github.com/andvari/socialcore/internal/auth"
	"github.com/andvari/socialcore/internal/httperr"
	"github.com/andvari/socialcore/internal/identity"
	"github.com/andvari/socialcore/internal/principal"
	"github.com/andvari/socialcore/internal/profile"
	"github.com/andvari/socialcore/internal/session"
	"github.com/andvari/socialcore/pkg/utilities"
)

// AccessVerifier checks a bearer token and yields its claims.
type AccessVerifier interface {
	ParseAccess(raw string) (*auth.Claims, error)
}

// Handlers collects the per-domain HTTP handlers the router mounts.
type Handlers struct {
	Identity *identity.Handler
	Auth     *auth.Handler
	Profile  *profile.Handler
	Activity *activity.Handler
	Session  *session.Handler
	Admin    *admin.Handler
}

const requestIDHeader = "X-Request-ID"

// RequestID tags every request with a ksuid, reusing the caller's when
// one is presented.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = utilities.NewKSUID()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// SecurityHeaders sets common HTTP security headers. Intentionally
// simple and conservative so it works with most setups.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer-when-downgrade")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		if h.Get("Content-Security-Policy") == "" {
			h.Set("Content-Security-Policy", "default-src 'self'; object-src 'none'; base-uri 'self';")
		}
		if c.Request.TLS != nil {
			h.Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
		}
		c.Next()
	}
}

// RequestLogging logs each request at debug level.
func RequestLogging(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debugw("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"remote", c.ClientIP(),
			"status", c.Writer.Status(),
			"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
			"size", c.Writer.Size(),
			"request_id", c.GetString("request_id"),
		)
	}
}

// Authenticate requires a valid bearer access token and attaches the
// caller's principal.
func Authenticate(tokens AccessVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "authentication required"})
			return
		}
		claims, err := tokens.ParseAccess(raw)
		if err != nil {
			c.AbortWithStatusJSON(httperr.Status(err), gin.H{"detail": err.Error()})
			return
		}
		principal.Set(c, principal.Principal{ID: claims.AccountID, IsStaff: claims.IsStaff})
		c.Next()
	}
}

// PresenceToucher refreshes an account's last_active stamp; the
// profile repository implements it.
type PresenceToucher interface {
	TouchLastActive(ctx context.Context, accountID int64) error
}

// SessionGuard validates the opaque session token when one is
// presented: a token bound to another account aborts the request, a
// valid one gets its liveness stamp refreshed. Profile presence is
// touched best-effort on every authenticated request.
func SessionGuard(sessions *session.Service, presence PresenceToucher) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := principal.FromContext(c)
		if token := c.GetHeader(session.TokenHeader); token != "" {
			if err := sessions.Guard(c.Request.Context(), token, p.ID); err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "session is no longer valid"})
				return
			}
		}
		if presence != nil {
			_ = presence.TouchLastActive(c.Request.Context(), p.ID)
		}
		c.Next()
	}
}

func corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowOrigins = strings.Split(origins, ",")
	} else {
		cfg.AllowAllOrigins = true
	}
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", session.TokenHeader, requestIDHeader)
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	return cfg
}

// New builds the gin engine with the full middleware chain and route
// table.
func New(h Handlers, tokens AccessVerifier, sessions *session.Service, presence PresenceToucher, logger *zap.SugaredLogger) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.New(corsConfig()))
	engine.Use(SecurityHeaders())
	engine.Use(RequestID())
	engine.Use(RequestLogging(logger))

	engine.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	api := engine.Group("/api")
	authed := func(g *gin.RouterGroup) *gin.RouterGroup {
		g.Use(Authenticate(tokens), SessionGuard(sessions, presence))
		return g
	}

	ag := api.Group("/auth")
	{
		ag.POST("/register", h.Identity.Register)
		ag.POST("/login", h.Auth.Login)
		ag.POST("/token/refresh", h.Auth.Refresh)
		ag.POST("/password-reset", h.Auth.PasswordReset)
		ag.POST("/password-reset/confirm", h.Auth.PasswordResetConfirm)

		me := authed(ag.Group(""))
		me.POST("/logout", h.Auth.Logout)
		me.GET("/profile", h.Identity.Me)
		me.PATCH("/profile", h.Identity.UpdateMe)
	}

	pg := authed(api.Group("/profiles"))
	{
		pg.GET("/profile", h.Profile.Own)
		pg.PATCH("/profile", h.Profile.Update)
		pg.GET("/profile/:user_id", h.Profile.Detail)
		pg.POST("/follow", h.Profile.Follow)
		pg.POST("/block", h.Profile.Block)
		pg.GET("/search", h.Profile.Search)
	}

	actg := authed(api.Group("/activity"))
	{
		actg.GET("/activities", h.Activity.List)
		actg.GET("/activities/stats", h.Activity.Stats)
		actg.GET("/activities/:id", h.Activity.Detail)
		actg.GET("/aggregation", h.Activity.Aggregation)
		actg.PATCH("/aggregation", h.Activity.UpdateAggregation)
		actg.GET("/analytics", h.Activity.Analytics)

		actg.GET("/sessions", h.Session.List)
		actg.POST("/sessions/end-all", h.Session.EndAll)
		actg.GET("/sessions/:token", h.Session.Detail)
		actg.DELETE("/sessions/:token", h.Session.End)
	}

	mg := authed(api.Group("/management"))
	{
		mg.GET("/users", h.Admin.ListUsers)
		mg.GET("/users/stats", h.Admin.Stats)
		mg.GET("/users/export", h.Admin.Export)
		mg.GET("/users/:id", h.Admin.GetUser)
		mg.PATCH("/users/:id", h.Admin.UpdateUser)
		mg.DELETE("/users/:id", h.Admin.DeleteUser)
		mg.POST("/users/:id/activate", h.Admin.Activate)
		mg.GET("/users/:id/profile", h.Admin.GetProfile)
		mg.PATCH("/users/:id/profile", h.Admin.UpdateProfile)
	}

	return engine
}
