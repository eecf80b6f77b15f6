package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Address string `mapstructure:"address"`
	Port    int    `mapstructure:"port"`
	Mode    string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Path          string `mapstructure:"path"`
	LogMode       bool   `mapstructure:"log_mode"`
	MaxOpenConns  int    `mapstructure:"max_open_conns"`
	MaxIdleConns  int    `mapstructure:"max_idle_conns"`
	BusyTimeoutMs int    `mapstructure:"busy_timeout_ms"`
}

// PoolSize returns the writer pool size, defaulting to 10.
func (c DatabaseConfig) PoolSize() int {
	if c.MaxOpenConns <= 0 {
		return 10
	}
	return c.MaxOpenConns
}

// IdleSize returns the idle connection count, defaulting to 5.
func (c DatabaseConfig) IdleSize() int {
	if c.MaxIdleConns <= 0 {
		return 5
	}
	return c.MaxIdleConns
}

// BusyTimeoutMS returns the SQLite busy timeout, defaulting to 5000ms.
func (c DatabaseConfig) BusyTimeoutMS() int {
	if c.BusyTimeoutMs <= 0 {
		return 5000
	}
	return c.BusyTimeoutMs
}

type JWTConfig struct {
	Secret     string `mapstructure:"secret"`
	TTLMinutes int    `mapstructure:"ttl_minutes"`
}

// TTL returns the token lifetime, defaulting to 15 minutes.
func (c JWTConfig) TTL() time.Duration {
	if c.TTLMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.TTLMinutes) * time.Minute
}

type AuthConfig struct {
	AllowMultiSessions    bool `mapstructure:"allow_multi_sessions"`
	AllowSelfRegistration bool `mapstructure:"allow_self_registration"`
	BcryptCost            int  `mapstructure:"bcrypt_cost"`
}

// SuperuserConfig optionally bootstraps an initial superuser at startup.
type SuperuserConfig struct {
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	FirstName string `mapstructure:"first_name"`
	LastName  string `mapstructure:"last_name"`
	Email     string `mapstructure:"email"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Superuser SuperuserConfig `mapstructure:"superuser"`
	Log       LogConfig       `mapstructure:"log"`
}

var (
	appConfig *Config
	once      sync.Once
)

// Load loads configuration from given file path (e.g. "config.yaml").
// If path is empty, it defaults to "config.yaml" in current working directory.
// Settings are fixed for the lifetime of the process; a restart re-reads them.
func Load(path string) (*Config, error) {
	var err error
	once.Do(func() {
		v := viper.New()

		if path == "" {
			v.SetConfigName("config")
			v.SetConfigType("yaml")
			v.AddConfigPath(".")
		} else {
			v.SetConfigFile(path)
		}

		// environment overrides, e.g. AUTHGATE_JWT_SECRET=...
		// Unmarshal only sees env values for keys viper knows about, so
		// every overridable key is bound explicitly; a key absent from
		// the yaml file still takes its env value.
		v.SetEnvPrefix("AUTHGATE")
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		for _, key := range []string{
			"server.address", "server.port", "server.mode",
			"database.path", "database.log_mode",
			"database.max_open_conns", "database.max_idle_conns", "database.busy_timeout_ms",
			"jwt.secret", "jwt.ttl_minutes",
			"auth.allow_multi_sessions", "auth.allow_self_registration", "auth.bcrypt_cost",
			"superuser.username", "superuser.password",
			"superuser.first_name", "superuser.last_name", "superuser.email",
			"log.level",
		} {
			_ = v.BindEnv(key)
		}
		v.AutomaticEnv()

		if err = v.ReadInConfig(); err != nil {
			err = fmt.Errorf("read config: %w", err)
			return
		}

		var c Config
		if err = v.Unmarshal(&c); err != nil {
			err = fmt.Errorf("unmarshal config: %w", err)
			return
		}

		if c.JWT.Secret == "" {
			err = fmt.Errorf("jwt.secret is not set")
			return
		}

		appConfig = &c
	})

	if err != nil {
		return nil, err
	}
	return appConfig, nil
}

// Get returns the loaded global configuration.
// Call Load() once at application startup.
func Get() *Config {
	return appConfig
}
