package authgate

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/paygate-labs/authgate/provider"
	"github.com/paygate-labs/authgate/session"
	"github.com/paygate-labs/authgate/token"
)

// Builder assembles an [Engine]. Construction is allocation-only; no I/O
// happens before Build, and a builder is single-use.
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	provider  ProviderClient
	logger    zerolog.Logger
	auditSink AuditSink
	built     bool
}

// New returns a builder seeded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
		logger: zerolog.Nop(),
	}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client for the session store. Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithProvider sets the identity provider client. When omitted, Build
// constructs the default HTTP client from Config.Provider.
func (b *Builder) WithProvider(p ProviderClient) *Builder {
	b.provider = p
	return b
}

// WithLogger sets the engine's internal logger. Defaults to a no-op logger.
func (b *Builder) WithLogger(log zerolog.Logger) *Builder {
	b.logger = log
	return b
}

// WithAuditSink sets the destination for audit events.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process metric counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, constructs every subcomponent, and
// returns a ready engine.
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

	codec, err := token.NewManager(token.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		SigningMethod: token.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cfg.JWT.PrivateKey,
		PublicKey:     cfg.JWT.PublicKey,
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	prov := b.provider
	if prov == nil {
		prov, err = provider.NewClient(provider.Config{
			BaseURL: cfg.Provider.BaseURL,
			Timeout: cfg.Provider.Timeout,
			Logger:  b.logger,
		})
		if err != nil {
			return nil, err
		}
	}

	engine := &Engine{
		config:   cfg,
		codec:    codec,
		sessions: session.NewStore(b.redis, cfg.Session.RedisPrefix),
		provider: prov,
		audit:    newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:  newMetrics(cfg.Metrics),
		log:      b.logger,
		now:      time.Now,
	}

	b.built = true
	return engine, nil
}
