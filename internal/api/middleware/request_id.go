package middleware

import (
	"context"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type contextKey string

const (
	// RequestIDHeader is the HTTP header for request tracing.
	RequestIDHeader = "X-Request-ID"

	ctxKeyRequestID contextKey = "request_id"
	ctxKeyPrincipal contextKey = "principal"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID       string
	Username     string
	RestaurantID int64
	RoleIDs      []int64
	SuperAdmin   bool
}

// Actor is the identity recorded on role changes.
func (p Principal) Actor() string {
	if p.Username != "" {
		return p.Username
	}
	return p.UserID
}

// HasRole reports whether the principal was issued the given role.
func (p Principal) HasRole(roleID int64) bool {
	return slices.Contains(p.RoleIDs, roleID)
}

// RequestID injects a unique request ID into the context and response header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" {
			id, _ := uuid.NewV7()
			rid = id.String()
		}
		c.Set(string(ctxKeyRequestID), rid)
		c.Writer.Header().Set(RequestIDHeader, rid)
		c.Request = c.Request.WithContext(
			context.WithValue(c.Request.Context(), ctxKeyRequestID, rid),
		)
		c.Next()
	}
}

// GetRequestID extracts request ID from context.
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return v
	}
	return ""
}

// SetPrincipal stores the authenticated caller in context.
func SetPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal, p)
}

// GetPrincipal extracts the authenticated caller from context.
func GetPrincipal(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKeyPrincipal).(Principal)
	return p, ok
}
