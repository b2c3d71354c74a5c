// Package config loads process configuration from the environment, after an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// MinSecretLength is the shortest accepted SESSION_SECRET, in bytes.
const MinSecretLength = 32

// Config is the full process configuration, grouped by concern.
type Config struct {
	HTTP     HTTPConfig
	Session  SessionConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Login    LoginConfig
	Hotels   HotelsConfig
	Locale   LocaleConfig
	Audit    AuditConfig
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// HTTPConfig controls the listener and graceful shutdown.
type HTTPConfig struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:":3000"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	// TrustProxy reads the client address from forwarding headers. Leave it
	// off unless a proxy in front overwrites them.
	TrustProxy bool `env:"HTTP_TRUST_PROXY" envDefault:"false"`
}

// SessionConfig controls the signed session cookie. Revocation needs Redis.
type SessionConfig struct {
	Secret       string        `env:"SESSION_SECRET,required,notEmpty"`
	CookieName   string        `env:"SESSION_COOKIE_NAME" envDefault:"session"`
	TTL          time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	SecureCookie bool          `env:"SESSION_SECURE_COOKIE" envDefault:"true"`
	Revocation   bool          `env:"SESSION_REVOCATION" envDefault:"false"`
}

// PostgresConfig holds the account database DSN.
type PostgresConfig struct {
	DSN string `env:"DATABASE_URL,required,notEmpty"`
}

// RedisConfig locates the Redis used for login throttling and revocation.
// Prefix namespaces every key.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	Prefix   string `env:"REDIS_PREFIX" envDefault:"wl:"`
}

// LoginConfig sets the failed-login budget per window.
type LoginConfig struct {
	MaxAttempts      int           `env:"LOGIN_MAX_ATTEMPTS" envDefault:"5"`
	Cooldown         time.Duration `env:"LOGIN_COOLDOWN" envDefault:"15m"`
	EnableIPThrottle bool          `env:"LOGIN_IP_THROTTLE" envDefault:"false"`
}

// HotelsConfig points at the Hotelbeds availability API. Search is disabled
// until both credentials are set.
type HotelsConfig struct {
	BaseURL string        `env:"HOTELBEDS_API_URL" envDefault:"https://api.test.hotelbeds.com/hotel-api/1.0"`
	APIKey  string        `env:"HOTELBEDS_API_KEY"`
	Secret  string        `env:"HOTELBEDS_API_SECRET"`
	Timeout time.Duration `env:"HOTELBEDS_TIMEOUT" envDefault:"10s"`
}

// Enabled reports whether both Hotelbeds credentials are set.
func (c HotelsConfig) Enabled() bool {
	return c.APIKey != "" && c.Secret != ""
}

// LocaleConfig lists the URL locales the gate accepts.
type LocaleConfig struct {
	Supported []string `env:"LOCALES" envDefault:"en,fr" envSeparator:","`
	Default   string   `env:"DEFAULT_LOCALE" envDefault:"fr"`
}

// AuditConfig sizes the asynchronous audit queue.
type AuditConfig struct {
	Enabled    bool `env:"AUDIT_ENABLED" envDefault:"true"`
	BufferSize int  `env:"AUDIT_BUFFER" envDefault:"1024"`
	DropIfFull bool `env:"AUDIT_DROP_IF_FULL" envDefault:"true"`
}

// Load reads .env when present, parses the environment and validates the
// result.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate normalizes locale lists and checks cross-field constraints.
func (c *Config) Validate() error {
	if len(c.Session.Secret) < MinSecretLength {
		return fmt.Errorf("SESSION_SECRET must be at least %d bytes", MinSecretLength)
	}
	if c.Session.TTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if strings.TrimSpace(c.Session.CookieName) == "" {
		return errors.New("SESSION_COOKIE_NAME must not be empty")
	}
	if c.Login.MaxAttempts <= 0 || c.Login.Cooldown <= 0 {
		return errors.New("LOGIN_MAX_ATTEMPTS and LOGIN_COOLDOWN must be positive")
	}
	if c.Audit.BufferSize <= 0 {
		return errors.New("AUDIT_BUFFER must be positive")
	}

	locales := make([]string, 0, len(c.Locale.Supported))
	for _, l := range c.Locale.Supported {
		l = strings.ToLower(strings.TrimSpace(l))
		if l != "" && !slices.Contains(locales, l) {
			locales = append(locales, l)
		}
	}
	if len(locales) == 0 {
		return errors.New("LOCALES must list at least one locale")
	}
	c.Locale.Supported = locales
	c.Locale.Default = strings.ToLower(strings.TrimSpace(c.Locale.Default))
	if !slices.Contains(locales, c.Locale.Default) {
		return fmt.Errorf("DEFAULT_LOCALE %q is not in LOCALES", c.Locale.Default)
	}
	return nil
}
