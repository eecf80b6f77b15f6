package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"authgate/internal/auth"
	"authgate/internal/models"
	"authgate/internal/util"

	"github.com/gin-gonic/gin"
)

// requestTimeout bounds store round-trips for a single gate decision.
const requestTimeout = 5 * time.Second

// BearerToken extracts the bearer token from the Authorization header.
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// Authenticated runs the gate for the request and puts the resolved user
// into the gin context as "currentUser". Rejections map onto the
// credential/privilege/store split: 401 for anything wrong with the token
// or its bearer, 403 for missing scopes, 503 when the store is down (a
// store outage must not masquerade as a rejection).
func Authenticated(gate *auth.Gate, requiredScopes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := BearerToken(c)
		if tokenStr == "" {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "missing bearer token")
			c.Abort()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		user, err := gate.Authenticate(ctx, tokenStr, c.ClientIP(), requiredScopes)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrInsufficientPrivilege):
				util.Error(c, http.StatusForbidden, util.CodeForbidden, "insufficient privileges")
			case errors.Is(err, auth.ErrStoreUnavailable):
				util.Error(c, http.StatusServiceUnavailable, util.CodeStoreErr, "credential store unavailable")
			case errors.Is(err, auth.ErrSessionConflict):
				util.Error(c, http.StatusUnauthorized, util.CodeAuth, "session bound to another client")
			case errors.Is(err, auth.ErrExpired):
				util.Error(c, http.StatusUnauthorized, util.CodeAuth, "token expired")
			default:
				// revoked, malformed, bad signature, unknown principal
				util.Error(c, http.StatusUnauthorized, util.CodeAuth, "could not validate credentials")
			}
			c.Abort()
			return
		}

		c.Set("currentUser", user)
		c.Next()
	}
}

// RequireSuperuser allows only superusers through. Must run after
// Authenticated.
func RequireSuperuser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsSuperuser {
			util.Error(c, http.StatusForbidden, util.CodeForbidden, "superuser required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser returns the user resolved by Authenticated, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get("currentUser")
	if !ok {
		return nil
	}
	user, ok := v.(*models.User)
	if !ok {
		return nil
	}
	return user
}
