package domain

import "time"

// SessionCreatedEvent captures a successful authentication for the audit stream.
type SessionCreatedEvent struct {
	EventID    string
	SessionID  string
	IdentityID string
	Role       Role
	IssuedAt   time.Time
	ExpiresAt  time.Time
	IP         *string
	UserAgent  *string
}

// SessionRefreshedEvent captures a session rotation.
type SessionRefreshedEvent struct {
	EventID      string
	OldSessionID string
	NewSessionID string
	IdentityID   string
	RefreshedAt  time.Time
	NewExpiresAt time.Time
}

// SessionRevokedEvent captures an explicit logout or administrative invalidation.
type SessionRevokedEvent struct {
	EventID    string
	SessionID  string
	IdentityID string
	RevokedAt  time.Time
	Reason     string
}

// RateLimitBreachEvent captures a rejected burst for abuse monitoring.
type RateLimitBreachEvent struct {
	EventID    string
	Policy     string
	Identifier string
	Limit      int
	OccurredAt time.Time
}
