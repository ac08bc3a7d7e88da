package authflow

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/ferrylane/authflow/otp"
	"github.com/ferrylane/authflow/password"
	"github.com/ferrylane/authflow/refresh"
	"github.com/ferrylane/authflow/token"
)

// Builder assembles an [Engine]. A Builder is single-use; Build fails on the
// second call.
type Builder struct {
	config Config
	redis  *redis.Client

	directory Directory
	mailer    Mailer
	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with the package defaults.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing the refresh-token registry.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithDirectory sets the account directory implementation.
func (b *Builder) WithDirectory(d Directory) *Builder {
	b.directory = d
	return b
}

// WithMailer sets the outbound mail implementation.
func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

// WithAuditSink sets the sink receiving audit events. Ignored unless
// [AuditConfig.Enabled] is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles metric collection.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles latency histogram collection.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and collaborators and constructs the
// [Engine].
//
// Build may return an error when input validation or component construction
// fails.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.directory == nil {
		return nil, errors.New("directory required")
	}
	if b.mailer == nil {
		return nil, errors.New("mailer required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	engine := &Engine{
		config:    cfg,
		directory: b.directory,
		mailer:    b.mailer,
	}

	signer, err := token.NewSigner(token.Config{
		AccessSecret:  cloneBytes(cfg.JWT.AccessSecret),
		RefreshSecret: cloneBytes(cfg.JWT.RefreshSecret),
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Issuer:        cfg.JWT.Issuer,
		Leeway:        cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}
	engine.tokens = signer

	hasher, err := password.NewBcrypt(password.Config{
		Cost: cfg.Password.Cost,
	})
	if err != nil {
		return nil, err
	}
	engine.passwordHash = hasher

	codes, err := otp.NewGenerator(cfg.Codes.Digits, cfg.Codes.TTL)
	if err != nil {
		return nil, err
	}
	engine.codes = codes

	engine.refreshStore = refresh.NewStore(b.redis, cfg.Refresh.RedisPrefix)
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}
