package usecase

import (
	"fmt"

	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/domain"
)

// RequirePermission gates an operation on the session's permission snapshot.
// Authentication is always checked before authorization: an anonymous caller
// gets an AuthenticationError even when the permission itself would also be
// missing. Admins hold every permission and short-circuit the snapshot check.
func RequirePermission(rc *RequestContext, permission domain.Permission) error {
	if !rc.Authenticated() {
		return domain.NewAuthenticationError("authentication required")
	}

	if rc.Session().Role == domain.RoleAdmin {
		return nil
	}

	if !rc.HasPermission(permission) {
		return domain.NewAuthorizationError(fmt.Sprintf("missing permission %s", permission))
	}

	return nil
}

// RequireAnyPermission passes when the session holds at least one of the
// given permissions.
func RequireAnyPermission(rc *RequestContext, permissions ...domain.Permission) error {
	if !rc.Authenticated() {
		return domain.NewAuthenticationError("authentication required")
	}

	if rc.Session().Role == domain.RoleAdmin {
		return nil
	}

	for _, permission := range permissions {
		if rc.HasPermission(permission) {
			return nil
		}
	}

	return domain.NewAuthorizationError("insufficient permissions")
}

// RequireRole gates an operation on a minimum role rank.
func RequireRole(rc *RequestContext, minimum domain.Role) error {
	if !rc.Authenticated() {
		return domain.NewAuthenticationError("authentication required")
	}

	if rc.Session().Role.Rank() < minimum.Rank() {
		return domain.NewAuthorizationError(fmt.Sprintf("requires role %s or above", minimum))
	}

	return nil
}
