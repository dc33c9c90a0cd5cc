package postgres

import (
	"context"
	"fmt"
	"strings"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/domain"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/port"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/repository"
)

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// IdentityRepository reads smith identities from PostgreSQL. The gateway only
// consumes the lookups needed to validate identity and role; everything else
// about the relational schema belongs to the domain services.
type IdentityRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewIdentityRepository wires a PostgreSQL-backed identity repository.
func NewIdentityRepository(pool *pgxpool.Pool) *IdentityRepository {
	return &IdentityRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// NewIdentityRepositoryWithExecutor constructs a repository over any executor,
// primarily for tests.
func NewIdentityRepositoryWithExecutor(exec pgExecutor) *IdentityRepository {
	return &IdentityRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var identityColumns = []string{"id", "email", "name", "role", "is_active", "created_at", "last_login_at"}

// GetByID returns the active identity with the supplied id.
func (r *IdentityRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("identity id is required")
	}

	query := r.builder.Select(identityColumns...).
		From("smiths").
		Where(squirrel.Eq{"id": id, "is_active": true})

	return r.queryOne(ctx, query)
}

// GetByEmail returns the active identity with the supplied email.
func (r *IdentityRepository) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	query := r.builder.Select(identityColumns...).
		From("smiths").
		Where(squirrel.Eq{"email": email, "is_active": true})

	return r.queryOne(ctx, query)
}

// CredentialsByEmail returns the identity alongside its stored password hash
// for login verification.
func (r *IdentityRepository) CredentialsByEmail(ctx context.Context, email string) (*domain.Identity, string, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, "", fmt.Errorf("email is required")
	}

	columns := append(append([]string{}, identityColumns...), "password_hash")
	query := r.builder.Select(columns...).
		From("smiths").
		Where(squirrel.Eq{"email": email, "is_active": true})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, "", fmt.Errorf("build credentials sql: %w", err)
	}

	var (
		identity domain.Identity
		hash     string
	)
	row := r.exec.QueryRow(ctx, sqlStr, args...)
	if err := row.Scan(&identity.ID, &identity.Email, &identity.Name, &identity.Role, &identity.IsActive, &identity.CreatedAt, &identity.LastLogin, &hash); err != nil {
		if err == pgx.ErrNoRows {
			return nil, "", repository.ErrNotFound
		}
		return nil, "", fmt.Errorf("scan smith credentials: %w", err)
	}

	return &identity, hash, nil
}

// TouchLastLogin records a successful authentication moment.
func (r *IdentityRepository) TouchLastLogin(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("identity id is required")
	}

	query := r.builder.Update("smiths").
		Set("last_login_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build touch last login sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *IdentityRepository) queryOne(ctx context.Context, query squirrel.SelectBuilder) (*domain.Identity, error) {
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build smith sql: %w", err)
	}

	var identity domain.Identity
	row := r.exec.QueryRow(ctx, sqlStr, args...)
	if err := row.Scan(&identity.ID, &identity.Email, &identity.Name, &identity.Role, &identity.IsActive, &identity.CreatedAt, &identity.LastLogin); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan smith: %w", err)
	}

	return &identity, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ port.IdentityRepository = (*IdentityRepository)(nil)
