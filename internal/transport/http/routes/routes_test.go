package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/domain"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/port"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/infra/config"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/transport/http/middleware"
)

type fakeRateLimitStore struct {
	counts map[string]int
}

func newFakeRateLimitStore() *fakeRateLimitStore {
	return &fakeRateLimitStore{counts: make(map[string]int)}
}

func (f *fakeRateLimitStore) CheckAndIncrement(ctx context.Context, key string, limit int, window time.Duration) (port.RateLimitDecision, error) {
	f.counts[key]++
	count := f.counts[key]
	return port.RateLimitDecision{
		Allowed:   count <= limit,
		Count:     count,
		Remaining: limit - count,
		ResetAt:   time.Now().Add(window),
	}, nil
}

func testRateLimitConfig() *config.AppConfig {
	return &config.AppConfig{
		RateLimit: config.RateLimitSettings{
			LoginMaxAttempts:    5,
			LoginWindow:         15 * time.Minute,
			RegisterMaxAttempts: 3,
			RegisterWindow:      time.Hour,
			ResetMaxAttempts:    3,
			ResetWindow:         time.Hour,
			GeneralMaxAttempts:  100,
			GeneralWindow:       15 * time.Minute,
		},
	}
}

func newDelegatedFlowRouter(t *testing.T) (*gin.Engine, *fakeRateLimitStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := newFakeRateLimitStore()
	deps := Dependencies{
		Config:      testRateLimitConfig(),
		RateLimiter: middleware.NewRateLimiter(store, zaptest.NewLogger(t)),
	}

	router := gin.New()
	mountDelegatedFlows(router.Group("/api/v1/auth"), deps)
	return router, store
}

func post(router *gin.Engine, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.RemoteAddr = "203.0.113.9:4242"
	router.ServeHTTP(rec, req)
	return rec
}

// The registration and password-reset flows live in the identity provider, but
// their throttling policies are enforced here with their own keys and limits.
func TestDelegatedFlowsAreThrottledPerPolicy(t *testing.T) {
	router, store := newDelegatedFlowRouter(t)

	for i := 0; i < 3; i++ {
		rec := post(router, "/api/v1/auth/register")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("request %d: expected 404 from the delegated flow, got %d", i+1, rec.Code)
		}
	}

	rec := post(router, "/api/v1/auth/register")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("4th registration attempt: expected 429, got %d", rec.Code)
	}
	var problem middleware.ProblemDetails
	if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
		t.Fatalf("decode problem details: %v", err)
	}
	if problem.Status != http.StatusTooManyRequests {
		t.Fatalf("unexpected problem status %d", problem.Status)
	}

	// The password-reset policy counts separately from registration.
	for i := 0; i < 3; i++ {
		if rec := post(router, "/api/v1/auth/password-reset"); rec.Code != http.StatusNotFound {
			t.Fatalf("reset request %d: expected 404, got %d", i+1, rec.Code)
		}
	}
	if rec := post(router, "/api/v1/auth/password-reset"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("4th reset attempt: expected 429, got %d", rec.Code)
	}

	if store.counts["register:203.0.113.9"] != 4 {
		t.Fatalf("register policy counted %d hits, want 4", store.counts["register:203.0.113.9"])
	}
	if store.counts["password_reset:203.0.113.9"] != 4 {
		t.Fatalf("password_reset policy counted %d hits, want 4", store.counts["password_reset:203.0.113.9"])
	}
}

func TestDelegatedFlowRespondsNotFound(t *testing.T) {
	router, _ := newDelegatedFlowRouter(t)

	rec := post(router, "/api/v1/auth/register")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["code"] != domain.CodeNotFound {
		t.Fatalf("expected %s, got %s", domain.CodeNotFound, body["code"])
	}
}

func TestRateLimitPolicyConstructors(t *testing.T) {
	store := newFakeRateLimitStore()
	deps := Dependencies{
		Config:      testRateLimitConfig(),
		RateLimiter: middleware.NewRateLimiter(store, zaptest.NewLogger(t)),
	}

	for name, build := range map[string]func(Dependencies) []gin.HandlerFunc{
		"login":          loginRateLimit,
		"register":       registerRateLimit,
		"password_reset": passwordResetRateLimit,
		"general":        generalRateLimit,
	} {
		if got := build(deps); len(got) != 1 {
			t.Errorf("%s policy: expected one middleware, got %d", name, len(got))
		}
	}

	// A policy with no limit configured is skipped entirely.
	disabled := deps
	disabled.Config = &config.AppConfig{}
	for name, build := range map[string]func(Dependencies) []gin.HandlerFunc{
		"login":          loginRateLimit,
		"register":       registerRateLimit,
		"password_reset": passwordResetRateLimit,
		"general":        generalRateLimit,
	} {
		if got := build(disabled); got != nil {
			t.Errorf("%s policy with zero limit should be disabled", name)
		}
	}
}
