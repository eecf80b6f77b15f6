package auth

import "authgate/internal/models"

// HasScopes is the privilege evaluator: the required scope set must be a
// subset of the user's granted scopes. One rule for the whole service:
// a superuser satisfies every scope set implicitly, so superusers never
// need explicit privilege rows.
//
// Scopes are always read from live store state (the user is loaded per
// request), never from claims embedded in the token, so revoking a
// privilege takes effect on the next request even for outstanding tokens.
func HasScopes(user *models.User, required []string) bool {
	if user.IsSuperuser {
		return true
	}
	for _, scope := range required {
		if !user.HasPrivilege(scope) {
			return false
		}
	}
	return true
}
