package domain

import "time"

// Role enumerates the closed, totally ordered set of smith roles.
// Ordering: Smith < OverSmith < Admin.
type Role string

const (
	RoleSmith     Role = "SMITH"
	RoleOverSmith Role = "OVER_SMITH"
	RoleAdmin     Role = "ADMIN"
)

// Valid reports whether the role belongs to the closed enumeration.
func (r Role) Valid() bool {
	switch r {
	case RoleSmith, RoleOverSmith, RoleAdmin:
		return true
	}
	return false
}

// Rank returns the position of the role in the total order. Unknown roles rank lowest.
func (r Role) Rank() int {
	switch r {
	case RoleSmith:
		return 1
	case RoleOverSmith:
		return 2
	case RoleAdmin:
		return 3
	}
	return 0
}

// Identity mirrors the persisted representation of a smith in the smiths table.
// The gateway references identities; it never owns or mutates them.
type Identity struct {
	ID        string
	Email     string
	Name      string
	Role      Role
	IsActive  bool
	CreatedAt time.Time
	LastLogin *time.Time
}
