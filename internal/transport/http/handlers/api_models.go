package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/domain"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/transport/http/middleware"
)

// ErrorResponse is the generic error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID.
func NewErrorResponse(c *gin.Context, code, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		Code:    code,
		TraceID: middleware.GetTraceID(c),
	}
}

// LoginRequest carries login credentials.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SmithResponse is the public identity projection.
type SmithResponse struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Role      string     `json:"role"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

// LoginResponse bundles the signed token with the session snapshot.
type LoginResponse struct {
	Token       string        `json:"token"`
	ExpiresAt   time.Time     `json:"expires_at"`
	Smith       SmithResponse `json:"smith"`
	Permissions []string      `json:"permissions"`
}

// SessionResponse describes the caller's current session.
type SessionResponse struct {
	SessionID   string        `json:"session_id"`
	Smith       SmithResponse `json:"smith"`
	Role        string        `json:"role"`
	Permissions []string      `json:"permissions"`
	IssuedAt    time.Time     `json:"issued_at"`
	ExpiresAt   time.Time     `json:"expires_at"`
}

// StatusPublishRequest is the body for robot/task status publications.
type StatusPublishRequest struct {
	Status  string  `json:"status" binding:"required"`
	FleetID string  `json:"fleet_id,omitempty"`
	Battery float64 `json:"battery,omitempty"`
}

// PolicyBreachRequest reports an edict violation on the breach channel.
type PolicyBreachRequest struct {
	RobotID  string `json:"robot_id" binding:"required"`
	EdictID  string `json:"edict_id" binding:"required"`
	Severity string `json:"severity" binding:"required"`
	Detail   string `json:"detail,omitempty"`
}

// PublishResponse reports the outcome of a broker publication.
type PublishResponse struct {
	Published bool   `json:"published"`
	Debounced bool   `json:"debounced,omitempty"`
	Channel   string `json:"channel"`
}

// InvalidateCacheRequest names the cache pattern to drop.
type InvalidateCacheRequest struct {
	Pattern string `json:"pattern" binding:"required"`
}

// InvalidateCacheResponse reports how many entries were removed.
type InvalidateCacheResponse struct {
	Removed int `json:"removed"`
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse reports dependency health.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func smithResponse(identity domain.Identity) SmithResponse {
	return SmithResponse{
		ID:        identity.ID,
		Email:     identity.Email,
		Name:      identity.Name,
		Role:      string(identity.Role),
		LastLogin: identity.LastLogin,
	}
}

func permissionStrings(permissions []domain.Permission) []string {
	out := make([]string, 0, len(permissions))
	for _, p := range permissions {
		out = append(out, string(p))
	}
	return out
}
