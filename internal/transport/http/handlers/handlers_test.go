package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	red "github.com/redis/go-redis/v9"
	"go.uber.org/zap/zaptest"

	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/domain"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/port"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/infra/kafka"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/infra/security"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/pubsub"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/repository"
	redisrepo "github.com/Brand-Beacon/Sepulki-sub002/internal/repository/redis"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/transport/http/middleware"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/usecase"
)

const gatewayTestPassword = "hammer-and-tongs"

type stubIdentityRepo struct {
	identities map[string]domain.Identity
	hashes     map[string]string
}

func (s *stubIdentityRepo) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	identity, ok := s.identities[id]
	if !ok || !identity.IsActive {
		return nil, repository.ErrNotFound
	}
	copied := identity
	return &copied, nil
}

func (s *stubIdentityRepo) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	for _, identity := range s.identities {
		if identity.Email == email && identity.IsActive {
			copied := identity
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *stubIdentityRepo) CredentialsByEmail(ctx context.Context, email string) (*domain.Identity, string, error) {
	identity, err := s.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	return identity, s.hashes[email], nil
}

func (s *stubIdentityRepo) TouchLastLogin(ctx context.Context, id string) error {
	return nil
}

type stubRobotRepo struct {
	robots        map[string]domain.Robot
	overviewCalls int
}

func (s *stubRobotRepo) GetByID(ctx context.Context, id string) (*domain.Robot, error) {
	robot, ok := s.robots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := robot
	return &copied, nil
}

func (s *stubRobotRepo) List(ctx context.Context, limit, offset int) ([]domain.Robot, error) {
	out := make([]domain.Robot, 0, len(s.robots))
	for _, robot := range s.robots {
		out = append(out, robot)
	}
	return out, nil
}

func (s *stubRobotRepo) Overview(ctx context.Context) (*domain.FleetOverview, error) {
	s.overviewCalls++
	overview := &domain.FleetOverview{
		ByStatus:    make(map[domain.RobotStatus]int),
		GeneratedAt: time.Now().UTC(),
	}
	for _, robot := range s.robots {
		overview.ByStatus[robot.Status]++
		overview.Total++
	}
	return overview, nil
}

type publishedEvent struct {
	Channel domain.Channel
	Type    string
	Payload any
}

type stubEventBus struct {
	published []publishedEvent
}

func (s *stubEventBus) Publish(ctx context.Context, channel domain.Channel, eventType string, payload any) error {
	if !channel.Valid() {
		return domain.NewValidationError(fmt.Sprintf("unknown channel %q", channel), "channel")
	}
	s.published = append(s.published, publishedEvent{Channel: channel, Type: eventType, Payload: payload})
	return nil
}

func (s *stubEventBus) Subscribe(channel domain.Channel) (port.Subscription, error) {
	return nil, fmt.Errorf("not supported in tests")
}

type gatewayFixture struct {
	router *gin.Engine
	robots *stubRobotRepo
	bus    *stubEventBus
	mr     *miniredis.Miniredis
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := red.NewClient(&red.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	log := zaptest.NewLogger(t)

	hash, err := security.HashPassword(gatewayTestPassword)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	identities := &stubIdentityRepo{
		identities: map[string]domain.Identity{
			"smith-1": {ID: "smith-1", Email: "smith@sepulki.io", Name: "Smith", Role: domain.RoleSmith, IsActive: true},
			"over-1":  {ID: "over-1", Email: "over@sepulki.io", Name: "Over", Role: domain.RoleOverSmith, IsActive: true},
		},
		hashes: map[string]string{
			"smith@sepulki.io": hash,
			"over@sepulki.io":  hash,
		},
	}

	sessions := redisrepo.NewSessionRepository(client, "session")
	cache := redisrepo.NewCacheRepository(client, "cache")
	limits := redisrepo.NewRateLimitRepository(client, "ratelimit")

	codec := security.NewCodec(security.CodecOptions{Secret: "gateway-test-secret"})
	audit := kafka.NewStubPublisher(log)

	authService := usecase.NewAuthService(identities, sessions, codec, audit, time.Hour, log)
	builder := usecase.NewContextBuilder(codec, sessions, identities, log)

	robots := &stubRobotRepo{robots: map[string]domain.Robot{
		"robot-1": {ID: "robot-1", Name: "welder-alpha", FleetID: "fleet-1", Status: domain.RobotStatusIdle, UpdatedAt: time.Now().UTC()},
	}}
	bus := &stubEventBus{}

	authHandler := NewAuthHandler(authService)
	fleetHandler := NewFleetHandler(robots, cache, bus, pubsub.NewDebouncer(), log)

	limiter := middleware.NewRateLimiter(limits, log)
	loginRule := middleware.RateLimitRule{
		Name:       "login",
		Limit:      5,
		Window:     time.Minute,
		Identifier: middleware.ClientIPIdentifier(),
	}

	router := gin.New()
	router.Use(middleware.EnrichContext())

	api := router.Group("/api/v1")
	api.Use(middleware.Authenticate(builder))

	authHandler.RegisterRoutes(api.Group("/auth"), limiter.RateLimit(loginRule))

	fleet := api.Group("/fleet")
	fleet.Use(middleware.RequireAuth())
	fleetHandler.RegisterRoutes(fleet)

	return &gatewayFixture{router: router, robots: robots, bus: bus, mr: mr}
}

func (f *gatewayFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "203.0.113.9:4242"
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *gatewayFixture) login(t *testing.T, email string) LoginResponse {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{
		Email:    email,
		Password: gatewayTestPassword,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}

	var resp LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp
}

func TestGatewayLoginAndSession(t *testing.T) {
	f := newGatewayFixture(t)

	resp := f.login(t, "smith@sepulki.io")
	if resp.Token == "" {
		t.Fatal("login response missing token")
	}
	if resp.Smith.Role != string(domain.RoleSmith) {
		t.Fatalf("unexpected role %s", resp.Smith.Role)
	}

	rec := f.do(t, http.MethodGet, "/api/v1/auth/session", resp.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("session lookup failed: %d %s", rec.Code, rec.Body.String())
	}

	var session SessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode session response: %v", err)
	}
	if session.Smith.ID != "smith-1" {
		t.Fatalf("unexpected smith %s", session.Smith.ID)
	}
	if len(session.Permissions) == 0 {
		t.Fatal("session response missing permission snapshot")
	}
}

func TestGatewayLoginRejectsBadCredentials(t *testing.T) {
	f := newGatewayFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{
		Email:    "smith@sepulki.io",
		Password: "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != domain.CodeUnauthenticated {
		t.Fatalf("expected %s, got %s", domain.CodeUnauthenticated, resp.Code)
	}
}

func TestGatewayRejectsAnonymousAndGarbageTokens(t *testing.T) {
	f := newGatewayFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/fleet/overview", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != domain.CodeUnauthenticated {
		t.Fatalf("expected %s, got %s", domain.CodeUnauthenticated, resp.Code)
	}

	rec = f.do(t, http.MethodGet, "/api/v1/fleet/overview", "garbage.token.here", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", rec.Code)
	}
}

func TestGatewayPermissionGate(t *testing.T) {
	f := newGatewayFixture(t)

	smith := f.login(t, "smith@sepulki.io")

	// A smith can read the fleet but not publish status.
	rec := f.do(t, http.MethodGet, "/api/v1/fleet/overview", smith.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for VIEW_FLEET, got %d %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/api/v1/fleet/robots/robot-1/status", smith.Token, StatusPublishRequest{Status: "WORKING"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d %s", rec.Code, rec.Body.String())
	}
	if resp := decodeError(t, rec); resp.Code != domain.CodeForbidden {
		t.Fatalf("expected %s, got %s", domain.CodeForbidden, resp.Code)
	}
	if len(f.bus.published) != 0 {
		t.Fatal("forbidden request must not publish")
	}
}

func TestGatewayPublishRobotStatus(t *testing.T) {
	f := newGatewayFixture(t)

	over := f.login(t, "over@sepulki.io")

	rec := f.do(t, http.MethodPost, "/api/v1/fleet/robots/robot-1/status", over.Token, StatusPublishRequest{
		Status:  "WORKING",
		FleetID: "fleet-1",
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d %s", rec.Code, rec.Body.String())
	}

	if len(f.bus.published) != 1 {
		t.Fatalf("expected one published event, got %d", len(f.bus.published))
	}
	published := f.bus.published[0]
	if published.Channel != domain.ChannelRobotStatus || published.Type != "robot.status" {
		t.Fatalf("unexpected publication %+v", published)
	}
	event, ok := published.Payload.(domain.RobotStatusEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", published.Payload)
	}
	if event.RobotID != "robot-1" || event.Status != "WORKING" {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestGatewayPolicyBreachDebounce(t *testing.T) {
	f := newGatewayFixture(t)

	over := f.login(t, "over@sepulki.io")
	body := PolicyBreachRequest{RobotID: "robot-1", EdictID: "edict-9", Severity: "CRITICAL"}

	rec := f.do(t, http.MethodPost, "/api/v1/fleet/policy-breaches", over.Token, body)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d %s", rec.Code, rec.Body.String())
	}
	var first PublishResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &first); err != nil {
		t.Fatalf("decode publish response: %v", err)
	}
	if !first.Published || first.Debounced {
		t.Fatalf("first breach should publish: %+v", first)
	}

	rec = f.do(t, http.MethodPost, "/api/v1/fleet/policy-breaches", over.Token, body)
	var second PublishResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &second); err != nil {
		t.Fatalf("decode publish response: %v", err)
	}
	if second.Published || !second.Debounced {
		t.Fatalf("repeat breach should be debounced: %+v", second)
	}

	if len(f.bus.published) != 1 {
		t.Fatalf("expected one breach publication, got %d", len(f.bus.published))
	}
}

func TestGatewayOverviewCaching(t *testing.T) {
	f := newGatewayFixture(t)

	smith := f.login(t, "smith@sepulki.io")

	for i := 0; i < 3; i++ {
		rec := f.do(t, http.MethodGet, "/api/v1/fleet/overview", smith.Token, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}

	if f.robots.overviewCalls != 1 {
		t.Fatalf("expected one repository hit behind the cache, got %d", f.robots.overviewCalls)
	}
}

func TestGatewayCacheInvalidation(t *testing.T) {
	f := newGatewayFixture(t)

	smith := f.login(t, "smith@sepulki.io")
	over := f.login(t, "over@sepulki.io")

	// Warm the cache, invalidate, and confirm the next read goes to the store.
	f.do(t, http.MethodGet, "/api/v1/fleet/overview", smith.Token, nil)

	rec := f.do(t, http.MethodPost, "/api/v1/fleet/cache/invalidate", over.Token, InvalidateCacheRequest{Pattern: "fleet:*"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	var resp InvalidateCacheResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode invalidate response: %v", err)
	}
	if resp.Removed != 1 {
		t.Fatalf("expected 1 removed entry, got %d", resp.Removed)
	}

	f.do(t, http.MethodGet, "/api/v1/fleet/overview", smith.Token, nil)
	if f.robots.overviewCalls != 2 {
		t.Fatalf("expected repository hit after invalidation, got %d", f.robots.overviewCalls)
	}
}

func TestGatewayLogoutRevokesSession(t *testing.T) {
	f := newGatewayFixture(t)

	smith := f.login(t, "smith@sepulki.io")

	rec := f.do(t, http.MethodPost, "/api/v1/auth/logout", smith.Token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, "/api/v1/auth/session", smith.Token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", rec.Code)
	}
}

func TestGatewayRefreshRotatesToken(t *testing.T) {
	f := newGatewayFixture(t)

	smith := f.login(t, "smith@sepulki.io")

	rec := f.do(t, http.MethodPost, "/api/v1/auth/refresh", smith.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	var refreshed LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &refreshed); err != nil {
		t.Fatalf("decode refresh response: %v", err)
	}
	if refreshed.Token == smith.Token {
		t.Fatal("refresh must mint a new token")
	}

	rec = f.do(t, http.MethodGet, "/api/v1/auth/session", refreshed.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("new token should resolve: %d %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, "/api/v1/auth/session", smith.Token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("rotated token should be rejected, got %d", rec.Code)
	}
}

func TestGatewayLoginRateLimit(t *testing.T) {
	f := newGatewayFixture(t)

	bad := LoginRequest{Email: "smith@sepulki.io", Password: "wrong"}
	for i := 0; i < 5; i++ {
		rec := f.do(t, http.MethodPost, "/api/v1/auth/login", "", bad)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, rec.Code)
		}
	}

	rec := f.do(t, http.MethodPost, "/api/v1/auth/login", "", bad)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on sixth attempt, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestGatewaySessionExpiryEndsAccess(t *testing.T) {
	f := newGatewayFixture(t)

	smith := f.login(t, "smith@sepulki.io")

	rec := f.do(t, http.MethodGet, "/api/v1/auth/session", smith.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 before expiry, got %d", rec.Code)
	}

	f.mr.FastForward(2 * time.Hour)

	rec = f.do(t, http.MethodGet, "/api/v1/auth/session", smith.Token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after expiry, got %d", rec.Code)
	}
}
