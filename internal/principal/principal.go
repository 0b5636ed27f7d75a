// Package principal carries the authenticated account identity through
// the request context.
package principal

import "github.com/gin-gonic/gin"

const contextKey = "socialcore.principal"

// Principal identifies the authenticated caller of a request.
type Principal struct {
	ID      int64
	IsStaff bool
}

// Set attaches the principal to the gin context.
func Set(c *gin.Context, p Principal) {
	c.Set(contextKey, p)
}

// FromContext returns the principal set by the auth middleware. It
// panics when called from an unauthenticated route, which is a routing
// bug, not a runtime condition.
func FromContext(c *gin.Context) Principal {
	return c.MustGet(contextKey).(Principal)
}
