package authd

import (
	"errors"
	"time"

	"github.com/naviriti/authd/password"
)

// JWTConfig holds session token parameters. Secret has no default; callers
// must inject at least 32 bytes.
type JWTConfig struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
	Leeway time.Duration
}

// PasswordConfig holds bcrypt parameters.
type PasswordConfig struct {
	Cost int
}

// OTPConfig controls the one-time codes used by the verification and
// password reset flows.
type OTPConfig struct {
	TTL time.Duration
}

// AccountConfig gates optional account behaviors.
type AccountConfig struct {
	// AllowPreverified enables registration without email verification.
	// Off by default; deployments enable it for development environments.
	AllowPreverified bool
}

// RedisConfig scopes the key namespace shared by the user store and the
// token denylist.
type RedisConfig struct {
	KeyPrefix string
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles the engine counters.
type MetricsConfig struct {
	Enabled bool
}

// Config is the engine configuration validated by Builder.Build.
type Config struct {
	JWT      JWTConfig
	Password PasswordConfig
	OTP      OTPConfig
	Account  AccountConfig
	Redis    RedisConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			TTL: 7 * 24 * time.Hour,
		},
		Password: PasswordConfig{
			Cost: password.DefaultCost,
		},
		OTP: OTPConfig{
			TTL: 10 * time.Minute,
		},
		Redis: RedisConfig{
			KeyPrefix: "authd",
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks the invariants Build depends on.
func (c Config) Validate() error {
	if len(c.JWT.Secret) < 32 {
		return errors.New("JWT.Secret must be at least 32 bytes")
	}
	if c.JWT.TTL <= 0 {
		return errors.New("JWT.TTL must be positive")
	}
	if c.OTP.TTL <= 0 {
		return errors.New("OTP.TTL must be positive")
	}
	if c.Redis.KeyPrefix == "" {
		return errors.New("Redis.KeyPrefix must not be empty")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
