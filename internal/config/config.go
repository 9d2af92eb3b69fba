// Package config provides configuration loading for the auth daemon.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envProduction = "production"

// Config holds all daemon configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Auth   AuthConfig   `mapstructure:"auth"`
	Mail   MailConfig   `mapstructure:"mail"`
	Audit  AuditConfig  `mapstructure:"audit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	Environment        string        `mapstructure:"environment"`
	CORSAllowedOrigins []string      `mapstructure:"cors_allowed_origins"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// Addr returns the Redis address string.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AuthConfig holds engine-level settings.
type AuthConfig struct {
	JWTSecret        string        `mapstructure:"jwt_secret"`
	JWTTTL           time.Duration `mapstructure:"jwt_ttl"`
	JWTIssuer        string        `mapstructure:"jwt_issuer"`
	OTPTTL           time.Duration `mapstructure:"otp_ttl"`
	BcryptCost       int           `mapstructure:"bcrypt_cost"`
	AllowPreverified bool          `mapstructure:"allow_preverified"`
}

// MailConfig selects and configures the mail transport. Mode is "smtp"
// or "outbox"; the outbox records mail in memory and is only for
// development.
type MailConfig struct {
	Mode     string        `mapstructure:"mode"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// AuditConfig controls the audit event pipeline.
type AuditConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	BufferSize int  `mapstructure:"buffer_size"`
}

// Load reads configuration from files and AUTHD_-prefixed environment
// variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/authd")

	v.SetEnvPrefix("AUTHD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Nested keys only bind to env vars reliably when bound explicitly.
	v.BindEnv("auth.jwt_secret", "AUTHD_AUTH_JWT_SECRET")
	v.BindEnv("redis.password", "AUTHD_REDIS_PASSWORD")
	v.BindEnv("mail.username", "AUTHD_MAIL_USERNAME")
	v.BindEnv("mail.password", "AUTHD_MAIL_PASSWORD")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine; defaults plus env vars carry it.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.cors_allowed_origins", []string{"http://localhost:*"})

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "authd")

	v.SetDefault("auth.jwt_ttl", "168h")
	v.SetDefault("auth.otp_ttl", "10m")
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.allow_preverified", false)

	v.SetDefault("mail.mode", "outbox")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.timeout", "10s")

	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.buffer_size", 256)
}

// Production reports whether the daemon runs with production hardening.
func (c *Config) Production() bool {
	return strings.EqualFold(c.Server.Environment, envProduction)
}

// Validate enforces the settings that must never be defaulted silently.
// In production a signing secret is mandatory, mail must be a real
// transport, and the preverified registration path stays off.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) > 0 && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 bytes, got %d", len(c.Auth.JWTSecret))
	}

	switch c.Mail.Mode {
	case "smtp", "outbox":
	default:
		return fmt.Errorf("mail.mode must be smtp or outbox, got %q", c.Mail.Mode)
	}

	if !c.Production() {
		return nil
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required in production")
	}
	if c.Mail.Mode != "smtp" {
		return fmt.Errorf("mail.mode must be smtp in production, got %q", c.Mail.Mode)
	}
	if c.Auth.AllowPreverified {
		return fmt.Errorf("auth.allow_preverified must be false in production")
	}
	return nil
}
