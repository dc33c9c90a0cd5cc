package usecase

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/domain"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/port"
)

// Loaders dedupes repeated lookups within one request. Concurrent loads for
// the same key collapse into a single repository call; completed loads are
// served from the request-local cache for the rest of the request.
type Loaders struct {
	identities port.IdentityRepository

	group singleflight.Group

	mu           sync.RWMutex
	identityByID map[string]*domain.Identity
}

func newLoaders(identities port.IdentityRepository) *Loaders {
	return &Loaders{
		identities:   identities,
		identityByID: make(map[string]*domain.Identity),
	}
}

// Identity resolves an identity by id, at most once per request per id.
func (l *Loaders) Identity(ctx context.Context, id string) (*domain.Identity, error) {
	l.mu.RLock()
	cached, ok := l.identityByID[id]
	l.mu.RUnlock()
	if ok {
		return cached, nil
	}

	result, err, _ := l.group.Do("identity:"+id, func() (any, error) {
		identity, err := l.identities.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		l.mu.Lock()
		l.identityByID[id] = identity
		l.mu.Unlock()

		return identity, nil
	})
	if err != nil {
		return nil, err
	}

	identity, ok := result.(*domain.Identity)
	if !ok {
		return nil, fmt.Errorf("loaders: unexpected identity result type %T", result)
	}
	return identity, nil
}

// IdentityByEmail resolves an identity by email. Results are cached under the
// id as well, so a follow-up Identity call for the same smith is free.
func (l *Loaders) IdentityByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	result, err, _ := l.group.Do("identity-email:"+email, func() (any, error) {
		identity, err := l.identities.GetByEmail(ctx, email)
		if err != nil {
			return nil, err
		}

		l.mu.Lock()
		l.identityByID[identity.ID] = identity
		l.mu.Unlock()

		return identity, nil
	})
	if err != nil {
		return nil, err
	}

	identity, ok := result.(*domain.Identity)
	if !ok {
		return nil, fmt.Errorf("loaders: unexpected identity result type %T", result)
	}
	return identity, nil
}
