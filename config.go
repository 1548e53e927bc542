package authgate

import (
	"errors"
	"time"
)

// Config is the engine's complete policy surface. It is copied at Build time
// and treated as immutable afterwards; nothing in the engine mutates it.
type Config struct {
	JWT      JWTConfig
	Session  SessionConfig
	Provider ProviderConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

// JWTConfig configures the gateway credential codec. The key pair is loaded
// once at startup and never rotated in-process.
type JWTConfig struct {
	// AccessTTL is the fixed lifetime of gateway access credentials. It is
	// a gateway policy, unlike session record TTLs which track the provider.
	AccessTTL     time.Duration
	SigningMethod string // "rs256" (default) or "ed25519"
	PrivateKey    []byte // PEM
	PublicKey     []byte // PEM; optional when PrivateKey is set
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

// SessionConfig configures the session store adapter.
type SessionConfig struct {
	RedisPrefix string // defaults to "session"
}

// ProviderConfig configures the default provider client. Ignored when a
// custom [ProviderClient] is supplied to the builder.
type ProviderConfig struct {
	BaseURL string
	Timeout time.Duration
}

// AuditConfig controls the asynchronous audit event dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events instead of blocking the request path when the
	// buffer is saturated. Dropped counts are observable via AuditDropped.
	DropIfFull bool
}

// MetricsConfig controls the in-process metric counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			SigningMethod: "rs256",
		},
		Session: SessionConfig{
			RedisPrefix: "session",
		},
		Provider: ProviderConfig{
			Timeout: 10 * time.Second,
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

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = append([]byte(nil), cfg.JWT.PrivateKey...)
	out.JWT.PublicKey = append([]byte(nil), cfg.JWT.PublicKey...)
	return out
}

// Validate performs the coarse structural checks that do not require parsing
// key material; the token codec validates the keys themselves.
func (c *Config) Validate() error {
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT.AccessTTL must be positive")
	}
	if len(c.JWT.PrivateKey) == 0 && len(c.JWT.PublicKey) == 0 {
		return errors.New("JWT signing key pair required")
	}
	if c.Audit.Enabled && c.Audit.BufferSize < 0 {
		return errors.New("Audit.BufferSize must not be negative")
	}
	return nil
}
