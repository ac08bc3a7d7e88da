package authflow

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config defines a public type used by authflow APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	JWT      JWTConfig
	Password PasswordConfig
	Codes    CodeConfig
	Refresh  RefreshStoreConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig carries the two HS256 signing contexts. Access and refresh
// tokens use independent secrets.
type JWTConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig carries the bcrypt work factor. Zero selects the default
// cost (10).
type PasswordConfig struct {
	Cost int
}

/*
====================================
CODE CONFIG
====================================
*/

// CodeConfig controls the one-time codes used for email verification and
// password reset.
type CodeConfig struct {
	Digits int
	TTL    time.Duration
}

// RefreshStoreConfig controls the Redis-backed refresh-token registry.
type RefreshStoreConfig struct {
	RedisPrefix string
}

// AuditConfig defines a public type used by authflow APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by authflow APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Password: PasswordConfig{
			Cost: 10,
		},
		Codes: CodeConfig{
			Digits: 6,
			TTL:    10 * time.Minute,
		},
		Refresh: RefreshStoreConfig{
			RedisPrefix: "rt",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessSecret = cloneBytes(cfg.JWT.AccessSecret)
	out.JWT.RefreshSecret = cloneBytes(cfg.JWT.RefreshSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration for internal consistency. It is called
// by [Builder.Build] and may be called directly.
//
// Validate may return an error when input validation fails.
func (c *Config) Validate() error {
	// JWT
	if len(c.JWT.AccessSecret) == 0 {
		return errors.New("JWT AccessSecret is required")
	}
	if len(c.JWT.RefreshSecret) == 0 {
		return errors.New("JWT RefreshSecret is required")
	}
	if string(c.JWT.AccessSecret) == string(c.JWT.RefreshSecret) {
		return errors.New("JWT AccessSecret and RefreshSecret must differ")
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be >= AccessTTL")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Password
	if c.Password.Cost != 0 && (c.Password.Cost < 4 || c.Password.Cost > 31) {
		return errors.New("Password Cost must be between 4 and 31")
	}

	// Codes
	if c.Codes.Digits < 6 || c.Codes.Digits > 10 {
		return errors.New("Codes Digits must be between 6 and 10")
	}
	if c.Codes.TTL <= 0 {
		return errors.New("Codes TTL must be > 0")
	}
	if c.Codes.TTL > time.Hour {
		return errors.New("Codes TTL must be <= 1h")
	}

	// Refresh store
	if c.Refresh.RedisPrefix == "" {
		return errors.New("Refresh RedisPrefix is required")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}

/*
====================================
ENVIRONMENT
====================================
*/

type envConfig struct {
	JWTSecret         string `env:"JWT_SECRET,required"`
	JWTRefreshSecret  string `env:"JWT_REFRESH_SECRET,required"`
	AccessTTLSeconds  int    `env:"JWT_EXPIRES_IN" envDefault:"900"`
	RefreshTTLSeconds int    `env:"JWT_REFRESH_EXPIRES_IN" envDefault:"604800"`
	Issuer            string `env:"JWT_ISSUER"`
	CodeDigits        int    `env:"AUTH_CODE_DIGITS" envDefault:"6"`
	CodeTTLSeconds    int    `env:"AUTH_CODE_TTL" envDefault:"600"`
	RedisPrefix       string `env:"AUTH_REDIS_PREFIX" envDefault:"rt"`
}

// ConfigFromEnv builds a [Config] from the process environment. TTL
// variables are plain second counts. Unset optional variables fall back to
// the package defaults.
//
// ConfigFromEnv may return an error when a required variable is missing or
// the resulting configuration fails [Config.Validate].
func ConfigFromEnv() (Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return Config{}, err
	}

	cfg := defaultConfig()
	cfg.JWT.AccessSecret = []byte(raw.JWTSecret)
	cfg.JWT.RefreshSecret = []byte(raw.JWTRefreshSecret)
	cfg.JWT.AccessTTL = time.Duration(raw.AccessTTLSeconds) * time.Second
	cfg.JWT.RefreshTTL = time.Duration(raw.RefreshTTLSeconds) * time.Second
	cfg.JWT.Issuer = raw.Issuer
	cfg.Codes.Digits = raw.CodeDigits
	cfg.Codes.TTL = time.Duration(raw.CodeTTLSeconds) * time.Second
	cfg.Refresh.RedisPrefix = raw.RedisPrefix

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
