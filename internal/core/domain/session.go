package domain

import "time"

// DefaultSessionTTL bounds the lifetime of a login session and its token.
const DefaultSessionTTL = 24 * time.Hour

// Session binds an identity to a time-boxed set of granted permissions.
// The authoritative copy lives in the session store; in-process values are
// read-through snapshots and must never be written back.
type Session struct {
	ID          string       `json:"id"`
	IdentityID  string       `json:"identity_id"`
	Role        Role         `json:"role"`
	Permissions []Permission `json:"permissions"`
	IssuedAt    time.Time    `json:"issued_at"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

// IsExpired reports whether the session has elapsed its validity window.
func (s Session) IsExpired(at time.Time) bool {
	return !s.ExpiresAt.After(at)
}

// HasPermission tests membership against the permission snapshot captured at
// session creation. A role change mid-session does not alter an existing
// session's grants until re-authentication; this pinning is intended behavior.
func (s Session) HasPermission(p Permission) bool {
	for _, granted := range s.Permissions {
		if granted == p {
			return true
		}
	}
	return false
}
