package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Load runs under a sync.Once, so a single test exercises the file and
// environment paths together.
func TestLoad_EnvOverridesMissingKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	// jwt.secret and the pool keys are deliberately absent from the
	// file; they must arrive through the environment alone.
	yaml := `server:
  address: "127.0.0.1"
  port: 9000
  mode: "release"
database:
  path: "authgate.db"
auth:
  allow_multi_sessions: false
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("AUTHGATE_JWT_SECRET", "env-only-secret")
	t.Setenv("AUTHGATE_JWT_TTL_MINUTES", "30")
	t.Setenv("AUTHGATE_DATABASE_MAX_OPEN_CONNS", "3")
	t.Setenv("AUTHGATE_SERVER_PORT", "9100")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.JWT.Secret != "env-only-secret" {
		t.Errorf("jwt.secret = %q, want env value", cfg.JWT.Secret)
	}
	if got := cfg.JWT.TTL(); got != 30*time.Minute {
		t.Errorf("jwt ttl = %v, want 30m", got)
	}
	if cfg.Database.MaxOpenConns != 3 {
		t.Errorf("max_open_conns = %d, want 3", cfg.Database.MaxOpenConns)
	}
	// environment wins over the file for keys present in both
	if cfg.Server.Port != 9100 {
		t.Errorf("server.port = %d, want env override 9100", cfg.Server.Port)
	}
	// file values untouched by the environment survive
	if cfg.Server.Address != "127.0.0.1" {
		t.Errorf("server.address = %q, want file value", cfg.Server.Address)
	}
	if cfg.Database.Path != "authgate.db" {
		t.Errorf("database.path = %q, want file value", cfg.Database.Path)
	}

	if Get() != cfg {
		t.Error("Get() should return the loaded configuration")
	}
}

func TestDatabaseConfig_Defaults(t *testing.T) {
	var c DatabaseConfig
	if got := c.PoolSize(); got != 10 {
		t.Errorf("PoolSize() = %d, want 10", got)
	}
	if got := c.IdleSize(); got != 5 {
		t.Errorf("IdleSize() = %d, want 5", got)
	}
	if got := c.BusyTimeoutMS(); got != 5000 {
		t.Errorf("BusyTimeoutMS() = %d, want 5000", got)
	}

	c = DatabaseConfig{MaxOpenConns: 2, MaxIdleConns: 1, BusyTimeoutMs: 250}
	if got := c.PoolSize(); got != 2 {
		t.Errorf("PoolSize() = %d, want 2", got)
	}
	if got := c.IdleSize(); got != 1 {
		t.Errorf("IdleSize() = %d, want 1", got)
	}
	if got := c.BusyTimeoutMS(); got != 250 {
		t.Errorf("BusyTimeoutMS() = %d, want 250", got)
	}
}

func TestJWTConfig_TTLDefault(t *testing.T) {
	var c JWTConfig
	if got := c.TTL(); got != 15*time.Minute {
		t.Errorf("TTL() = %v, want 15m", got)
	}
}
