package auth

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"authgate/internal/models"
	"authgate/internal/store"
	"authgate/internal/token"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "gate-test-secret"

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&models.User{},
		&models.Privilege{},
		&models.ActiveSession{},
		&models.RevokedToken{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store.New(db)
}

func newTestGate(t *testing.T, multiSession bool) (*Gate, *store.Store, *token.Issuer) {
	t.Helper()
	s := newTestStore(t)
	issuer := token.NewIssuer(testSecret, 15*time.Minute)
	return NewGate(s, issuer, multiSession), s, issuer
}

func createUser(t *testing.T, s *store.Store, username string, superuser bool, scopes ...string) *models.User {
	t.Helper()
	user := &models.User{Username: username, PasswordHash: "unused", IsSuperuser: superuser}
	if err := s.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	for _, scope := range scopes {
		if err := s.GrantPrivilege(context.Background(), user.ID, scope); err != nil {
			t.Fatalf("grant %s: %v", scope, err)
		}
	}
	return user
}

// signToken builds a token with an arbitrary expiry, for cases the issuer
// will not produce (already expired, odd subjects).
func signToken(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestAuthenticate_Accepts(t *testing.T) {
	gate, s, issuer := newTestGate(t, true)
	user := createUser(t, s, "alice", false)

	tok, err := issuer.Issue(user.ID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	got, err := gate.Authenticate(context.Background(), tok, "1.2.3.4", nil)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if got.Username != "alice" {
		t.Errorf("resolved user = %q, want alice", got.Username)
	}
}

// Revocation wins: once revoked, a valid unexpired token is rejected as
// revoked, before any other check runs.
func TestAuthenticate_RevokedWins(t *testing.T) {
	gate, s, issuer := newTestGate(t, true)
	user := createUser(t, s, "alice", false)

	tok, _ := issuer.Issue(user.ID)
	if err := s.RevokeToken(context.Background(), tok, time.Now().Add(15*time.Minute)); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	_, err := gate.Authenticate(context.Background(), tok, "1.2.3.4", nil)
	if !errors.Is(err, ErrRevoked) {
		t.Errorf("Authenticate() error = %v, want ErrRevoked", err)
	}
}

// Expiry is independent of the ledger: an expired token is rejected even
// though it was never revoked and no sweep has run.
func TestAuthenticate_ExpiredWithoutLedger(t *testing.T) {
	gate, s, _ := newTestGate(t, true)
	user := createUser(t, s, "alice", false)

	tok := signToken(t, strconv.Itoa(int(user.ID)), time.Now().Add(-time.Minute))

	_, err := gate.Authenticate(context.Background(), tok, "1.2.3.4", nil)
	if !errors.Is(err, ErrExpired) {
		t.Errorf("Authenticate() error = %v, want ErrExpired", err)
	}
}

// A tampered token must never be classified as merely expired: signature
// is checked before expiry.
func TestAuthenticate_TamperedBeforeExpired(t *testing.T) {
	gate, s, _ := newTestGate(t, true)
	user := createUser(t, s, "alice", false)

	// expired token signed with the wrong key
	claims := jwt.RegisteredClaims{
		Subject:   strconv.Itoa(int(user.ID)),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("wrong-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	_, err = gate.Authenticate(context.Background(), tok, "1.2.3.4", nil)
	if !errors.Is(err, ErrBadSignature) {
		t.Errorf("Authenticate() error = %v, want ErrBadSignature (never ErrExpired)", err)
	}
}

func TestAuthenticate_Malformed(t *testing.T) {
	gate, _, _ := newTestGate(t, true)

	_, err := gate.Authenticate(context.Background(), "not-a-token", "1.2.3.4", nil)
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("Authenticate() error = %v, want ErrMalformed", err)
	}
}

func TestAuthenticate_DeletedPrincipal(t *testing.T) {
	gate, s, issuer := newTestGate(t, true)
	user := createUser(t, s, "alice", false)

	tok, _ := issuer.Issue(user.ID)
	if err := s.DeleteUser(context.Background(), user.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	_, err := gate.Authenticate(context.Background(), tok, "1.2.3.4", nil)
	if !errors.Is(err, ErrUnknownPrincipal) {
		t.Errorf("Authenticate() error = %v, want ErrUnknownPrincipal", err)
	}
}

func TestAuthenticate_Scopes(t *testing.T) {
	gate, s, issuer := newTestGate(t, true)

	plain := createUser(t, s, "plain", false)
	scoped := createUser(t, s, "scoped", false, "admin", "read")
	super := createUser(t, s, "root", true)

	plainTok, _ := issuer.Issue(plain.ID)
	scopedTok, _ := issuer.Issue(scoped.ID)
	superTok, _ := issuer.Issue(super.ID)

	// no privileges, scope required
	_, err := gate.Authenticate(context.Background(), plainTok, "1.2.3.4", []string{"admin"})
	if !errors.Is(err, ErrInsufficientPrivilege) {
		t.Errorf("plain user error = %v, want ErrInsufficientPrivilege", err)
	}

	// explicit grants satisfy the subset check
	if _, err := gate.Authenticate(context.Background(), scopedTok, "1.2.3.4", []string{"admin", "read"}); err != nil {
		t.Errorf("scoped user error = %v, want nil", err)
	}
	_, err = gate.Authenticate(context.Background(), scopedTok, "1.2.3.4", []string{"admin", "write"})
	if !errors.Is(err, ErrInsufficientPrivilege) {
		t.Errorf("partially scoped user error = %v, want ErrInsufficientPrivilege", err)
	}

	// superuser satisfies any scope set without explicit grants
	if _, err := gate.Authenticate(context.Background(), superTok, "1.2.3.4", []string{"admin", "write", "anything"}); err != nil {
		t.Errorf("superuser error = %v, want nil", err)
	}
}

// Privileges are read live from the store, so revoking one invalidates
// outstanding tokens immediately.
func TestAuthenticate_LivePrivileges(t *testing.T) {
	gate, s, issuer := newTestGate(t, true)
	user := createUser(t, s, "alice", false, "admin")

	tok, _ := issuer.Issue(user.ID)
	if _, err := gate.Authenticate(context.Background(), tok, "1.2.3.4", []string{"admin"}); err != nil {
		t.Fatalf("before revoke: %v", err)
	}

	if err := s.RevokePrivilege(context.Background(), user.ID, "admin"); err != nil {
		t.Fatalf("revoke privilege: %v", err)
	}
	_, err := gate.Authenticate(context.Background(), tok, "1.2.3.4", []string{"admin"})
	if !errors.Is(err, ErrInsufficientPrivilege) {
		t.Errorf("after revoke error = %v, want ErrInsufficientPrivilege", err)
	}
}

func TestAuthenticate_SessionBinding(t *testing.T) {
	user := func(s *store.Store) *models.User { return createUser(t, s, "alice", false) }

	// multi-session disallowed: stored client must match the requester
	gate, s, issuer := newTestGate(t, false)
	u := user(s)
	tok, _ := issuer.Issue(u.ID)
	if err := s.RecordSession(context.Background(), u.ID, "1.2.3.4", time.Now().Add(15*time.Minute)); err != nil {
		t.Fatalf("record: %v", err)
	}

	if _, err := gate.Authenticate(context.Background(), tok, "1.2.3.4", nil); err != nil {
		t.Errorf("matching client error = %v, want nil", err)
	}
	_, err := gate.Authenticate(context.Background(), tok, "9.9.9.9", nil)
	if !errors.Is(err, ErrSessionConflict) {
		t.Errorf("foreign client error = %v, want ErrSessionConflict", err)
	}

	// multi-session allowed: any client passes
	gateMulti, sMulti, issuerMulti := newTestGate(t, true)
	uMulti := user(sMulti)
	tokMulti, _ := issuerMulti.Issue(uMulti.ID)
	if err := sMulti.RecordSession(context.Background(), uMulti.ID, "1.2.3.4", time.Now().Add(15*time.Minute)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := gateMulti.Authenticate(context.Background(), tokMulti, "9.9.9.9", nil); err != nil {
		t.Errorf("multi-session foreign client error = %v, want nil", err)
	}
}

// No session row recorded yet means no binding to enforce.
func TestAuthenticate_NoSessionRow(t *testing.T) {
	gate, s, issuer := newTestGate(t, false)
	user := createUser(t, s, "alice", false)
	tok, _ := issuer.Issue(user.ID)

	if _, err := gate.Authenticate(context.Background(), tok, "5.6.7.8", nil); err != nil {
		t.Errorf("Authenticate() without session row error = %v, want nil", err)
	}
}

func TestLogout_Idempotent(t *testing.T) {
	gate, s, issuer := newTestGate(t, true)
	user := createUser(t, s, "alice", false)
	tok, _ := issuer.Issue(user.ID)

	if err := gate.Logout(context.Background(), tok); err != nil {
		t.Fatalf("first logout: %v", err)
	}
	if err := gate.Logout(context.Background(), tok); err != nil {
		t.Fatalf("second logout: %v", err)
	}

	// still rejected as revoked, not anything else
	_, err := gate.Authenticate(context.Background(), tok, "1.2.3.4", nil)
	if !errors.Is(err, ErrRevoked) {
		t.Errorf("Authenticate() after double logout = %v, want ErrRevoked", err)
	}
}

func TestLogout_UnusableTokens(t *testing.T) {
	gate, _, _ := newTestGate(t, true)

	err := gate.Logout(context.Background(), "garbage")
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("Logout(garbage) = %v, want ErrMalformed", err)
	}

	forged := func() string {
		claims := jwt.RegisteredClaims{
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}
		tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
		return tok
	}()
	err = gate.Logout(context.Background(), forged)
	if !errors.Is(err, ErrBadSignature) {
		t.Errorf("Logout(forged) = %v, want ErrBadSignature", err)
	}
}

// Logout of an already-expired token succeeds: parse ignores expiry.
func TestLogout_ExpiredToken(t *testing.T) {
	gate, s, _ := newTestGate(t, true)
	user := createUser(t, s, "alice", false)

	tok := signToken(t, strconv.Itoa(int(user.ID)), time.Now().Add(-time.Minute))
	if err := gate.Logout(context.Background(), tok); err != nil {
		t.Errorf("Logout(expired) = %v, want nil", err)
	}
}

// Full scenario: login issues a token, authenticate accepts, logout flips
// the same token to Revoked.
func TestLoginAuthenticateLogout(t *testing.T) {
	gate, s, _ := newTestGate(t, false)

	verify := func(plain, digest string) bool { return plain == digest }
	u := &models.User{Username: "alice", PasswordHash: "s3cret"}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create: %v", err)
	}

	// wrong password
	if _, _, err := gate.Login(context.Background(), "alice", "wrong", "1.2.3.4", verify); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("bad password error = %v, want ErrBadCredentials", err)
	}
	// unknown user looks identical to a wrong password
	if _, _, err := gate.Login(context.Background(), "nobody", "s3cret", "1.2.3.4", verify); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("unknown user error = %v, want ErrBadCredentials", err)
	}

	tok, user, err := gate.Login(context.Background(), "alice", "s3cret", "1.2.3.4", verify)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("login user = %q", user.Username)
	}

	sess, err := s.SessionByUser(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("session after login: %v", err)
	}
	if sess.Client != "1.2.3.4" {
		t.Errorf("session client = %q, want 1.2.3.4", sess.Client)
	}

	if _, err := gate.Authenticate(context.Background(), tok, "1.2.3.4", nil); err != nil {
		t.Fatalf("authenticate after login: %v", err)
	}

	if err := gate.Logout(context.Background(), tok); err != nil {
		t.Fatalf("logout: %v", err)
	}
	_, err = gate.Authenticate(context.Background(), tok, "1.2.3.4", nil)
	if !errors.Is(err, ErrRevoked) {
		t.Errorf("authenticate after logout = %v, want ErrRevoked", err)
	}
}

// A later login supersedes the previous session binding.
func TestLogin_SupersedesSession(t *testing.T) {
	gate, s, _ := newTestGate(t, false)
	verify := func(plain, digest string) bool { return plain == digest }
	u := &models.User{Username: "alice", PasswordHash: "pw"}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create: %v", err)
	}

	tok1, _, err := gate.Login(context.Background(), "alice", "pw", "1.1.1.1", verify)
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	_, _, err = gate.Login(context.Background(), "alice", "pw", "2.2.2.2", verify)
	if err != nil {
		t.Fatalf("second login: %v", err)
	}

	// the first token is now bound to the second login's client
	_, err = gate.Authenticate(context.Background(), tok1, "1.1.1.1", nil)
	if !errors.Is(err, ErrSessionConflict) {
		t.Errorf("old client after re-login = %v, want ErrSessionConflict", err)
	}
	if _, err := gate.Authenticate(context.Background(), tok1, "2.2.2.2", nil); err != nil {
		t.Errorf("new client after re-login = %v, want nil", err)
	}
}

func TestAuthenticate_Observer(t *testing.T) {
	gate, s, issuer := newTestGate(t, true)
	outcomes := map[string]int{}
	gate.WithObserver(func(outcome string) { outcomes[outcome]++ })

	user := createUser(t, s, "alice", false)
	tok, _ := issuer.Issue(user.ID)

	if _, err := gate.Authenticate(context.Background(), tok, "1.2.3.4", nil); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	gate.Authenticate(context.Background(), "junk", "1.2.3.4", nil)

	if outcomes["accepted"] != 1 || outcomes["malformed"] != 1 {
		t.Errorf("outcomes = %v, want accepted=1 malformed=1", outcomes)
	}
}
