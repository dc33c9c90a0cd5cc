package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/domain"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/port"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/infra/telemetry"
)

const (
	rateLimitProblemType  = "https://sepulki.example.com/errors/rate-limit-exceeded"
	rateLimitProblemTitle = "Rate Limit Exceeded"
)

// IdentifierFunc extracts the identifier used to scope rate limits (e.g., client IP).
type IdentifierFunc func(*gin.Context) (string, bool)

// RateLimitRule configures a fixed-window limit for a particular identifier,
// with an optional progressive slow-down band below the hard limit.
type RateLimitRule struct {
	Name       string
	Limit      int
	Window     time.Duration
	Identifier IdentifierFunc

	// SlowDownAfter enables progressive delay once the window count passes the
	// threshold: SlowDownStep per excess hit, capped at SlowDownMax. Zero
	// disables the band. Delay only applies to requests the hard limit admits.
	SlowDownAfter int
	SlowDownStep  time.Duration
	SlowDownMax   time.Duration
}

// ProblemDetails represents an RFC 9457 compatible error payload for rate limits.
type ProblemDetails struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Status     int    `json:"status"`
	Detail     string `json:"detail"`
	Instance   string `json:"instance"`
	RetryAfter int    `json:"retry_after"`
	TraceID    string `json:"trace_id,omitempty"`
}

// RateLimiter enforces named throttling policies backed by a shared counter
// store. Counter store failures fail open with a log line: throttling is a
// protection layer, not an authentication layer.
type RateLimiter struct {
	store   port.RateLimitStore
	audit   port.AuditPublisher
	metrics *telemetry.Metrics
	logger  *zap.Logger
	now     func() time.Time
	sleep   func(time.Duration)
}

// NewRateLimiter builds a reusable rate limiter middleware helper.
func NewRateLimiter(store port.RateLimitStore, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RateLimiter{
		store:  store,
		logger: logger,
		now:    time.Now,
		sleep:  time.Sleep,
	}
}

// WithAudit publishes breach events for rejected requests.
func (rl *RateLimiter) WithAudit(audit port.AuditPublisher) *RateLimiter {
	rl.audit = audit
	return rl
}

// WithMetrics records rejected requests per policy.
func (rl *RateLimiter) WithMetrics(m *telemetry.Metrics) *RateLimiter {
	rl.metrics = m
	return rl
}

// WithClock allows injection of a custom clock (primarily for testing).
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	if now != nil {
		rl.now = now
	}
	return rl
}

// WithSleep allows injection of the delay function (primarily for testing).
func (rl *RateLimiter) WithSleep(sleep func(time.Duration)) *RateLimiter {
	if sleep != nil {
		rl.sleep = sleep
	}
	return rl
}

// ClientIPIdentifier builds an IdentifierFunc using the request's client IP.
func ClientIPIdentifier() IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		ip := c.ClientIP()
		if ip == "" {
			return "", false
		}
		return ip, true
	}
}

// RateLimit returns a Gin middleware enforcing the provided rules. Hard
// rejection is evaluated before any slow-down: a request over the limit is
// refused immediately, never delayed first.
func (rl *RateLimiter) RateLimit(rules ...RateLimitRule) gin.HandlerFunc {
	filtered := make([]RateLimitRule, 0, len(rules))
	for _, rule := range rules {
		if rule.Identifier == nil || rule.Limit <= 0 || rule.Window <= 0 {
			continue
		}
		if rule.Name == "" {
			rule.Name = "default"
		}
		filtered = append(filtered, rule)
	}

	return func(c *gin.Context) {
		if len(filtered) == 0 || rl.store == nil {
			c.Next()
			return
		}

		var delay time.Duration

		for _, rule := range filtered {
			identifier, ok := rule.Identifier(c)
			if !ok || identifier == "" {
				continue
			}

			key := fmt.Sprintf("%s:%s", rule.Name, identifier)

			decision, err := rl.store.CheckAndIncrement(c.Request.Context(), key, rule.Limit, rule.Window)
			if err != nil {
				rl.logger.Warn("rate limit check failed",
					zap.String("rule", rule.Name),
					zap.String("identifier", identifier),
					zap.Error(err),
				)
				continue
			}

			rl.applyHeaders(c, rule, decision)

			if !decision.Allowed {
				rl.respondRateLimited(c, rule, identifier, decision)
				return
			}

			if d := rl.slowDownDelay(rule, decision.Count); d > delay {
				delay = d
			}
		}

		if delay > 0 {
			rl.sleep(delay)
		}

		c.Next()
	}
}

// slowDownDelay computes the progressive delay for an admitted request.
func (rl *RateLimiter) slowDownDelay(rule RateLimitRule, count int) time.Duration {
	if rule.SlowDownAfter <= 0 || rule.SlowDownStep <= 0 {
		return 0
	}

	excess := count - rule.SlowDownAfter
	if excess <= 0 {
		return 0
	}

	delay := time.Duration(excess) * rule.SlowDownStep
	if rule.SlowDownMax > 0 && delay > rule.SlowDownMax {
		delay = rule.SlowDownMax
	}
	return delay
}

func (rl *RateLimiter) applyHeaders(c *gin.Context, rule RateLimitRule, decision port.RateLimitDecision) {
	headers := c.Writer.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(rule.Limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(max(decision.Remaining, 0)))
	headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

	if !decision.Allowed {
		seconds := int(math.Ceil(decision.ResetAt.Sub(rl.now()).Seconds()))
		if seconds < 0 {
			seconds = 0
		}
		headers.Set("Retry-After", strconv.Itoa(seconds))
	}
}

func (rl *RateLimiter) respondRateLimited(c *gin.Context, rule RateLimitRule, identifier string, decision port.RateLimitDecision) {
	retrySeconds := int(math.Ceil(decision.ResetAt.Sub(rl.now()).Seconds()))
	if retrySeconds < 0 {
		retrySeconds = 0
	}

	rl.metrics.ObserveRateLimited(rule.Name)

	if rl.audit != nil {
		event := domain.RateLimitBreachEvent{
			EventID:    uuid.NewString(),
			Policy:     rule.Name,
			Identifier: identifier,
			Limit:      rule.Limit,
			OccurredAt: rl.now().UTC(),
		}
		if err := rl.audit.PublishRateLimitBreach(c.Request.Context(), event); err != nil {
			rl.logger.Warn("publish rate limit breach failed",
				zap.String("rule", rule.Name),
				zap.Error(err),
			)
		}
	}

	instance := c.FullPath()
	if instance == "" {
		instance = c.Request.URL.Path
	}

	problem := ProblemDetails{
		Type:       rateLimitProblemType,
		Title:      rateLimitProblemTitle,
		Status:     http.StatusTooManyRequests,
		Detail:     fmt.Sprintf("Too many requests. Try again in %d seconds.", retrySeconds),
		Instance:   instance,
		RetryAfter: retrySeconds,
		TraceID:    GetTraceID(c),
	}

	c.AbortWithStatusJSON(http.StatusTooManyRequests, problem)
}
