package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"authgate/internal/models"
	"authgate/internal/store"
	"authgate/internal/token"
)

// Gate is the per-request authentication decision procedure. It is a pure
// decision function: Authenticate never writes to the store, so it cannot
// race the sweep or concurrent logins beyond ordinary row visibility.
type Gate struct {
	store        *store.Store
	issuer       *token.Issuer
	multiSession bool

	// observe is called with the outcome label of every decision; nil is fine.
	observe func(outcome string)
}

func NewGate(s *store.Store, issuer *token.Issuer, allowMultiSession bool) *Gate {
	return &Gate{store: s, issuer: issuer, multiSession: allowMultiSession}
}

// WithObserver sets a decision-outcome callback (used for metrics).
func (g *Gate) WithObserver(fn func(outcome string)) *Gate {
	g.observe = fn
	return g
}

func (g *Gate) done(outcome string, err error) error {
	if g.observe != nil {
		g.observe(outcome)
	}
	return err
}

// Authenticate decides whether the bearer token is acceptable for a request
// from client needing requiredScopes, and returns the resolved user.
// Checks run in a fixed order, short-circuiting on the first failure:
//
//	revoked -> signature/shape -> expiry -> principal -> scopes -> session binding
//
// Expiry is checked only after signature validation so a forged token can
// never be classified as merely expired. Store failures surface as
// ErrStoreUnavailable, never as a rejection.
func (g *Gate) Authenticate(ctx context.Context, tokenStr, client string, requiredScopes []string) (*models.User, error) {
	revoked, err := g.store.IsTokenRevoked(ctx, tokenStr)
	if err != nil {
		return nil, g.done("store_error", fmt.Errorf("%w: %v", ErrStoreUnavailable, err))
	}
	if revoked {
		return nil, g.done("revoked", ErrRevoked)
	}

	claims, err := g.issuer.Parse(tokenStr)
	if err != nil {
		if errors.Is(err, token.ErrBadSignature) {
			return nil, g.done("bad_signature", fmt.Errorf("%w: %v", ErrBadSignature, err))
		}
		return nil, g.done("malformed", fmt.Errorf("%w: %v", ErrMalformed, err))
	}

	if claims.ExpiresAt.Before(time.Now()) {
		return nil, g.done("expired", ErrExpired)
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, g.done("malformed", fmt.Errorf("%w: %v", ErrMalformed, err))
	}

	user, err := g.store.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// account deleted since the token was issued
			return nil, g.done("unknown_principal", ErrUnknownPrincipal)
		}
		return nil, g.done("store_error", fmt.Errorf("%w: %v", ErrStoreUnavailable, err))
	}

	if !HasScopes(user, requiredScopes) {
		return nil, g.done("insufficient_privilege", ErrInsufficientPrivilege)
	}

	if err := g.checkBinding(ctx, user.ID, client); err != nil {
		if errors.Is(err, ErrSessionConflict) {
			return nil, g.done("session_conflict", err)
		}
		return nil, g.done("store_error", err)
	}

	return user, g.done("accepted", nil)
}

// checkBinding enforces the single-session policy: with multi-session
// allowed, or with no session row recorded yet, any client is fine;
// otherwise the stored client must match. Read-only.
func (g *Gate) checkBinding(ctx context.Context, userID uint, client string) error {
	if g.multiSession {
		return nil
	}
	sess, err := g.store.SessionByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if sess.Client != client {
		return ErrSessionConflict
	}
	return nil
}

// Login verifies username+password, mints a token and records the session
// for the client address. The upsert makes the new login supersede any
// previous session for the user.
func (g *Gate) Login(ctx context.Context, username, password, client string, verify func(plain, digest string) bool) (string, *models.User, error) {
	user, err := g.store.UserByName(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil, ErrBadCredentials
		}
		return "", nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !verify(password, user.PasswordHash) {
		return "", nil, ErrBadCredentials
	}

	tokenStr, err := g.issuer.Issue(user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	expiresAt := time.Now().Add(g.issuer.TTL())
	if err := g.store.RecordSession(ctx, user.ID, client, expiresAt); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return tokenStr, user, nil
}

// Logout routes the token into the revocation ledger, recovering its expiry
// from the claims for ledger bookkeeping. Expiry is ignored on parse: an
// already-expired token can still be logged out without error. Malformed or
// forged tokens surface distinctly so the caller can choose its policy
// (the HTTP layer reports success regardless, since such a token will never
// authenticate anyway).
func (g *Gate) Logout(ctx context.Context, tokenStr string) error {
	claims, err := g.issuer.Parse(tokenStr)
	if err != nil {
		if errors.Is(err, token.ErrBadSignature) {
			return fmt.Errorf("%w: %v", ErrBadSignature, err)
		}
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := g.store.RevokeToken(ctx, tokenStr, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
