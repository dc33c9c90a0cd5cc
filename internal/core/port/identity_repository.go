package port

import (
	"context"

	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/domain"
)

// IdentityRepository exposes the read-only identity lookups the gateway needs
// from the relational collaborator. Only active smiths resolve.
type IdentityRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Identity, error)
	GetByEmail(ctx context.Context, email string) (*domain.Identity, error)

	// CredentialsByEmail returns the identity together with its stored password
	// hash for login verification.
	CredentialsByEmail(ctx context.Context, email string) (*domain.Identity, string, error)

	// TouchLastLogin records a successful authentication moment.
	TouchLastLogin(ctx context.Context, id string) error
}
