package auth

import "errors"

// Rejection taxonomy for the authentication gate. Every Authenticate
// failure wraps exactly one of these sentinels, so callers can map them to
// transport outcomes with errors.Is. The split that matters at the edge:
// credential problems (401) vs privilege problems (403) vs store outages
// (503, retryable) — a store outage must never look like a rejection.
var (
	ErrRevoked               = errors.New("token revoked")
	ErrBadSignature          = errors.New("token signature invalid")
	ErrMalformed             = errors.New("token malformed")
	ErrExpired               = errors.New("token expired")
	ErrUnknownPrincipal      = errors.New("unknown principal")
	ErrInsufficientPrivilege = errors.New("insufficient privilege")
	ErrSessionConflict       = errors.New("session bound to another client")
	ErrStoreUnavailable      = errors.New("credential store unavailable")
	ErrBadCredentials        = errors.New("bad username or password")
	ErrDuplicateUser         = errors.New("user already exists")
)
