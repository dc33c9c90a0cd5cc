package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/domain"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/port"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/infra/logger"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/infra/security"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/repository"
)

var (
	// ErrInvalidCredentials indicates the provided email or password are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// AuthService coordinates the login, logout and refresh flows.
type AuthService struct {
	identities port.IdentityRepository
	sessions   port.SessionStore
	codec      *security.Codec
	audit      port.AuditPublisher
	logger     *zap.Logger
	sessionTTL time.Duration
	now        func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(
	identities port.IdentityRepository,
	sessions port.SessionStore,
	codec *security.Codec,
	audit port.AuditPublisher,
	sessionTTL time.Duration,
	log *zap.Logger,
) *AuthService {
	if sessionTTL <= 0 {
		sessionTTL = domain.DefaultSessionTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		identities: identities,
		sessions:   sessions,
		codec:      codec,
		audit:      audit,
		logger:     log,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

// LoginInput carries credentials plus request metadata for the audit trail.
type LoginInput struct {
	Email     string
	Password  string
	IP        *string
	UserAgent *string
}

// LoginResult bundles everything a successful authentication produces.
type LoginResult struct {
	Token       string
	Claims      *security.TokenClaims
	Identity    domain.Identity
	Session     domain.Session
	Permissions []domain.Permission
}

// Login verifies credentials, pins the role's permission snapshot into a new
// session and signs the matching bearer token.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" {
		return nil, domain.NewValidationError("email is required", "email")
	}
	if input.Password == "" {
		return nil, domain.NewValidationError("password is required", "password")
	}

	identity, hash, err := s.identities.CredentialsByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup identity: %w", err)
	}

	ok, err := security.VerifyPassword(input.Password, hash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	permissions := domain.PermissionsForRole(identity.Role)

	session, err := s.sessions.Create(ctx, *identity, permissions, s.sessionTTL)
	if err != nil {
		return nil, err
	}

	token, claims, err := s.codec.Encode(security.EncodeInput{
		Identity:  *identity,
		SessionID: session.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	if err := s.identities.TouchLastLogin(ctx, identity.ID); err != nil {
		s.logger.Warn("touch last login failed",
			zap.String("identity_id", identity.ID),
			zap.Error(err),
		)
	}

	s.publishCreated(ctx, *session, input)

	s.logger.Info("session created",
		zap.String("session_id", session.ID),
		zap.String("identity_id", identity.ID),
		zap.String("email", logger.MaskEmail(identity.Email)),
		zap.String("role", string(identity.Role)),
	)

	return &LoginResult{
		Token:       token,
		Claims:      claims,
		Identity:    *identity,
		Session:     *session,
		Permissions: permissions,
	}, nil
}

// Logout invalidates the session ahead of its TTL. Idempotent: logging out an
// already-deleted session succeeds.
func (s *AuthService) Logout(ctx context.Context, session domain.Session) error {
	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		return err
	}

	event := domain.SessionRevokedEvent{
		EventID:    uuid.NewString(),
		SessionID:  session.ID,
		IdentityID: session.IdentityID,
		RevokedAt:  s.now().UTC(),
		Reason:     "logout",
	}
	if err := s.audit.PublishSessionRevoked(ctx, event); err != nil {
		s.logger.Warn("publish session revoked failed",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
	}

	s.logger.Info("session revoked",
		zap.String("session_id", session.ID),
		zap.String("identity_id", session.IdentityID),
	)

	return nil
}

// Refresh rotates the session id and token. The permission snapshot carries
// over unchanged from the current session; a role change still requires a
// fresh login to take effect.
func (s *AuthService) Refresh(ctx context.Context, identity domain.Identity, current domain.Session) (*LoginResult, error) {
	session, err := s.sessions.Create(ctx, identity, current.Permissions, s.sessionTTL)
	if err != nil {
		return nil, err
	}

	token, claims, err := s.codec.Encode(security.EncodeInput{
		Identity:  identity,
		SessionID: session.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	if err := s.sessions.Delete(ctx, current.ID); err != nil {
		s.logger.Warn("delete rotated session failed",
			zap.String("session_id", current.ID),
			zap.Error(err),
		)
	}

	event := domain.SessionRefreshedEvent{
		EventID:      uuid.NewString(),
		OldSessionID: current.ID,
		NewSessionID: session.ID,
		IdentityID:   identity.ID,
		RefreshedAt:  s.now().UTC(),
		NewExpiresAt: session.ExpiresAt,
	}
	if err := s.audit.PublishSessionRefreshed(ctx, event); err != nil {
		s.logger.Warn("publish session refreshed failed",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
	}

	return &LoginResult{
		Token:       token,
		Claims:      claims,
		Identity:    identity,
		Session:     *session,
		Permissions: session.Permissions,
	}, nil
}

func (s *AuthService) publishCreated(ctx context.Context, session domain.Session, input LoginInput) {
	event := domain.SessionCreatedEvent{
		EventID:    uuid.NewString(),
		SessionID:  session.ID,
		IdentityID: session.IdentityID,
		Role:       session.Role,
		IssuedAt:   session.IssuedAt,
		ExpiresAt:  session.ExpiresAt,
		IP:         input.IP,
		UserAgent:  input.UserAgent,
	}
	if err := s.audit.PublishSessionCreated(ctx, event); err != nil {
		s.logger.Warn("publish session created failed",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
	}
}
