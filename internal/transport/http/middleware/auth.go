package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/domain"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/usecase"
)

const requestContextKey = "auth_request_context"

// ErrorResponse matches the handlers.ErrorResponse structure
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// newErrorResponse creates an error response with trace ID
func newErrorResponse(c *gin.Context, code, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		Code:    code,
		TraceID: GetTraceID(c),
	}
}

// BearerToken extracts the raw credential from the Authorization header, or
// from the token query parameter for websocket upgrades that cannot set
// headers. An absent credential returns the empty string.
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}

	return strings.TrimSpace(c.Query("token"))
}

// Authenticate resolves the request context for every request. An absent
// token produces an anonymous context and the chain continues; a present but
// invalid token aborts with the mapped error. A session-store outage aborts
// with 500 rather than degrading the caller to anonymous.
func Authenticate(builder *usecase.ContextBuilder) gin.HandlerFunc {
	return func(c *gin.Context) {
		rc, err := builder.Build(c.Request.Context(), BearerToken(c))
		if err != nil {
			if derr, ok := domain.AsError(err); ok {
				c.AbortWithStatusJSON(derr.Status, newErrorResponse(c, derr.Code, derr.Message))
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				newErrorResponse(c, domain.CodeServiceError, "authentication failed"))
			return
		}

		c.Set(requestContextKey, rc)
		c.Next()
	}
}

// RequireAuth rejects anonymous requests. Must run after Authenticate.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !RequestContext(c).Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, domain.CodeUnauthenticated, "authentication required"))
			return
		}
		c.Next()
	}
}

// RequirePermission rejects requests whose session lacks the permission.
// Must run after Authenticate.
func RequirePermission(permission domain.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := usecase.RequirePermission(RequestContext(c), permission); err != nil {
			if derr, ok := domain.AsError(err); ok {
				c.AbortWithStatusJSON(derr.Status, newErrorResponse(c, derr.Code, derr.Message))
				return
			}
			c.AbortWithStatusJSON(http.StatusForbidden,
				newErrorResponse(c, domain.CodeForbidden, "forbidden"))
			return
		}
		c.Next()
	}
}

// RequestContext returns the context resolved by Authenticate, or nil when
// the middleware did not run.
func RequestContext(c *gin.Context) *usecase.RequestContext {
	if value, exists := c.Get(requestContextKey); exists {
		if rc, ok := value.(*usecase.RequestContext); ok {
			return rc
		}
	}
	return nil
}
