package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/domain"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/port"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/repository"
)

type fakeIdentityRepo struct {
	identities map[string]domain.Identity
	hashes     map[string]string

	getByIDCalls int
	touched      []string
	touchErr     error
	getErr       error
}

func newFakeIdentityRepo() *fakeIdentityRepo {
	return &fakeIdentityRepo{
		identities: make(map[string]domain.Identity),
		hashes:     make(map[string]string),
	}
}

func (f *fakeIdentityRepo) add(identity domain.Identity, hash string) {
	f.identities[identity.ID] = identity
	f.hashes[identity.Email] = hash
}

func (f *fakeIdentityRepo) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	f.getByIDCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	identity, ok := f.identities[id]
	if !ok || !identity.IsActive {
		return nil, repository.ErrNotFound
	}
	copied := identity
	return &copied, nil
}

func (f *fakeIdentityRepo) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	for _, identity := range f.identities {
		if identity.Email == email && identity.IsActive {
			copied := identity
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeIdentityRepo) CredentialsByEmail(ctx context.Context, email string) (*domain.Identity, string, error) {
	identity, err := f.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	return identity, f.hashes[email], nil
}

func (f *fakeIdentityRepo) TouchLastLogin(ctx context.Context, id string) error {
	f.touched = append(f.touched, id)
	return f.touchErr
}

// fakeSessionStore models the store the way Redis behaves: records evict on a
// store-side deadline, and Extend moves the deadline without touching fields.
type fakeSessionStore struct {
	sessions  map[string]domain.Session
	deadlines map[string]time.Time
	now       func() time.Time

	createErr error
	getErr    error
	deleteErr error
	deleted   []string
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		sessions:  make(map[string]domain.Session),
		deadlines: make(map[string]time.Time),
		now:       time.Now,
	}
}

func (f *fakeSessionStore) Create(ctx context.Context, identity domain.Identity, permissions []domain.Permission, ttl time.Duration) (*domain.Session, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}

	now := f.now().UTC()
	session := domain.Session{
		ID:          uuid.NewString(),
		IdentityID:  identity.ID,
		Role:        identity.Role,
		Permissions: append([]domain.Permission(nil), permissions...),
		IssuedAt:    now,
		ExpiresAt:   now.Add(ttl),
	}
	f.sessions[session.ID] = session
	f.deadlines[session.ID] = now.Add(ttl)

	copied := session
	return &copied, nil
}

func (f *fakeSessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	session, ok := f.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	if !f.now().Before(f.deadlines[sessionID]) {
		delete(f.sessions, sessionID)
		delete(f.deadlines, sessionID)
		return nil, nil
	}
	copied := session
	return &copied, nil
}

func (f *fakeSessionStore) Extend(ctx context.Context, sessionID string, ttl time.Duration) error {
	if _, ok := f.sessions[sessionID]; !ok {
		return nil
	}
	f.deadlines[sessionID] = f.now().UTC().Add(ttl)
	return nil
}

func (f *fakeSessionStore) Delete(ctx context.Context, sessionID string) error {
	f.deleted = append(f.deleted, sessionID)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.sessions, sessionID)
	delete(f.deadlines, sessionID)
	return nil
}

type fakeAuditPublisher struct {
	created   []domain.SessionCreatedEvent
	refreshed []domain.SessionRefreshedEvent
	revoked   []domain.SessionRevokedEvent
	breaches  []domain.RateLimitBreachEvent

	err error
}

func (f *fakeAuditPublisher) PublishSessionCreated(ctx context.Context, event domain.SessionCreatedEvent) error {
	f.created = append(f.created, event)
	return f.err
}

func (f *fakeAuditPublisher) PublishSessionRefreshed(ctx context.Context, event domain.SessionRefreshedEvent) error {
	f.refreshed = append(f.refreshed, event)
	return f.err
}

func (f *fakeAuditPublisher) PublishSessionRevoked(ctx context.Context, event domain.SessionRevokedEvent) error {
	f.revoked = append(f.revoked, event)
	return f.err
}

func (f *fakeAuditPublisher) PublishRateLimitBreach(ctx context.Context, event domain.RateLimitBreachEvent) error {
	f.breaches = append(f.breaches, event)
	return f.err
}

var (
	_ port.IdentityRepository = (*fakeIdentityRepo)(nil)
	_ port.SessionStore       = (*fakeSessionStore)(nil)
	_ port.AuditPublisher     = (*fakeAuditPublisher)(nil)
)
