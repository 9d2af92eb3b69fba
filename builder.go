package authd

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/naviriti/authd/internal/audit"
	"github.com/naviriti/authd/internal/stores"
	"github.com/naviriti/authd/jwt"
	"github.com/naviriti/authd/mail"
	"github.com/naviriti/authd/password"
)

// Builder assembles an Engine. Each builder builds at most once.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	mailer mail.Mailer
	sink   audit.Sink

	built bool
}

func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. Unset fields keep their
// zero values and fail validation in Build, so callers usually start from
// a copy of the defaults.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithSecret sets the token signing secret.
func (b *Builder) WithSecret(secret []byte) *Builder {
	b.config.JWT.Secret = cloneBytes(secret)
	return b
}

func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithMailer sets the delivery transport for verification and reset
// codes. When unset, Build falls back to an in-memory outbox, which is
// only appropriate for development and tests.
func (b *Builder) WithMailer(m mail.Mailer) *Builder {
	b.mailer = m
	return b
}

func (b *Builder) WithAuditSink(sink audit.Sink) *Builder {
	b.sink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	hasher, err := password.NewBcrypt(password.Config{
		Cost: cfg.Password.Cost,
	})
	if err != nil {
		return nil, err
	}

	manager, err := jwt.NewManager(jwt.Config{
		Secret: cfg.JWT.Secret,
		TTL:    cfg.JWT.TTL,
		Issuer: cfg.JWT.Issuer,
		Leeway: cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	mailer := b.mailer
	if mailer == nil {
		mailer = mail.NewOutbox()
	}

	engine := &Engine{
		config:       cfg,
		users:        stores.NewUserStore(b.redis, cfg.Redis.KeyPrefix),
		denylist:     stores.NewDenylist(b.redis, cfg.Redis.KeyPrefix),
		jwtManager:   manager,
		passwordHash: hasher,
		mailer:       mailer,
		metrics:      NewMetrics(cfg.Metrics),
		now:          time.Now,
	}
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.sink)

	b.built = true

	return engine, nil
}
