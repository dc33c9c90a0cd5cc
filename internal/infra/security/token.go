package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/domain"
)

// TokenClaims carries the identity and session claims embedded in the bearer
// credential. The token is stateless: structural validity is necessary but not
// sufficient, the referenced session must still resolve in the session store.
type TokenClaims struct {
	Email     string      `json:"email"`
	Name      string      `json:"name,omitempty"`
	Role      domain.Role `json:"role"`
	SessionID string      `json:"sessionId"`
	jwt.RegisteredClaims
}

// IdentityID returns the subject claim.
func (c TokenClaims) IdentityID() string {
	return c.Subject
}

// CodecOptions configures token signing and validity.
type CodecOptions struct {
	// Secret keys the HMAC signature. Development deployments may leave it
	// empty to fall back to a fixed insecure key; production must set it.
	Secret string
	Issuer string
	TTL    time.Duration

	// Method is the signing algorithm; defaults to HS256. Swapping it (and the
	// keying material) is the extension point for real asymmetric signatures.
	Method jwt.SigningMethod

	// Now is injectable for tests.
	Now func() time.Time
}

// insecureDevSecret signs tokens when no secret is configured. Matches the
// development fallback of the legacy orchestrator so locally issued tokens
// remain interchangeable.
const insecureDevSecret = "your-super-secret-jwt-key-change-in-production"

// Codec encodes and decodes the three-part bearer credential. It is a pure
// function over its inputs and never consults the session store.
type Codec struct {
	secret []byte
	issuer string
	ttl    time.Duration
	method jwt.SigningMethod
	now    func() time.Time
}

// NewCodec constructs a Codec from options, applying defaults.
func NewCodec(opts CodecOptions) *Codec {
	secret := opts.Secret
	if secret == "" {
		secret = insecureDevSecret
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = domain.DefaultSessionTTL
	}

	method := opts.Method
	if method == nil {
		method = jwt.SigningMethodHS256
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Codec{
		secret: []byte(secret),
		issuer: strings.TrimSpace(opts.Issuer),
		ttl:    ttl,
		method: method,
		now:    now,
	}
}

// EncodeInput names the claims required to mint a credential.
type EncodeInput struct {
	Identity  domain.Identity
	SessionID string
}

// Encode produces a signed token whose payload carries the identity and session
// claims. Expiry is fixed at the codec's TTL from issuance (24h by default).
func (c *Codec) Encode(input EncodeInput) (string, *TokenClaims, error) {
	if input.Identity.ID == "" {
		return "", nil, fmt.Errorf("token: identity id is required")
	}
	if input.SessionID == "" {
		return "", nil, fmt.Errorf("token: session id is required")
	}

	issuedAt := c.now().UTC()
	claims := &TokenClaims{
		Email:     input.Identity.Email,
		Name:      input.Identity.Name,
		Role:      input.Identity.Role,
		SessionID: input.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   input.Identity.ID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(c.ttl)),
		},
	}

	token := jwt.NewWithClaims(c.method, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", nil, fmt.Errorf("token: sign: %w", err)
	}

	return signed, claims, nil
}

// Decode structurally validates the credential: three well-formed parts, a
// parseable payload, required fields present, and an expiry in the future.
// Failures map to AuthenticationError; the session referenced by the claims is
// not resolved here.
func (c *Codec) Decode(raw string) (*TokenClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, domain.NewAuthenticationError("missing token")
	}
	if strings.Count(raw, ".") != 2 {
		return nil, domain.NewAuthenticationError("malformed token")
	}

	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != c.method.Alg() {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.now))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, domain.NewAuthenticationError("token expired").WithCause(err)
		default:
			return nil, domain.NewAuthenticationError("invalid token").WithCause(err)
		}
	}

	if !token.Valid {
		return nil, domain.NewAuthenticationError("invalid token")
	}
	if claims.Subject == "" || claims.SessionID == "" {
		return nil, domain.NewAuthenticationError("token missing required claims")
	}

	return claims, nil
}
