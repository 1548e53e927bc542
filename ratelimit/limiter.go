package ratelimit

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrTooManyRequests is returned when a tracker has exhausted its window
	// budget for a scope.
	ErrTooManyRequests = errors.New("too many requests")
	// ErrStorageUnavailable is returned when the counter storage cannot be
	// reached. The limiter fails closed; callers decide how to surface it.
	ErrStorageUnavailable = errors.New("rate limit storage unavailable")
)

// Storage is the pluggable counter backend: a list of hit timestamps per
// tracker+scope key, expiring with the window.
type Storage interface {
	// Records returns the recorded hit timestamps for key, in unix
	// milliseconds. Missing keys yield an empty slice.
	Records(ctx context.Context, key string) ([]int64, error)
	// Add records one hit at ts (unix milliseconds). ttl bounds how long the
	// backend must retain it; anything older is garbage.
	Add(ctx context.Context, key string, ts int64, ttl time.Duration) error
}

// Policy is one window budget: at most Limit hits per Window.
type Policy struct {
	Limit  int
	Window time.Duration
}

// Config holds the default policy plus per-scope overrides and exemptions.
// Scopes are caller-defined; the HTTP middleware uses route paths.
type Config struct {
	Default Policy
	Scopes  map[string]Policy
	Exempt  []string
}

// Limiter enforces a sliding-window request budget per tracker (typically a
// source IP) and scope. It holds no mutable state of its own; every decision
// reads and writes the external storage.
type Limiter struct {
	storage Storage
	config  Config
	now     func() time.Time
}

// New creates a [Limiter] over the given storage.
func New(storage Storage, cfg Config) *Limiter {
	if cfg.Default.Limit <= 0 {
		cfg.Default.Limit = 100
	}
	if cfg.Default.Window <= 0 {
		cfg.Default.Window = time.Minute
	}
	return &Limiter{storage: storage, config: cfg, now: time.Now}
}

// Allow checks and records one hit for tracker within scope. Returns
// [ErrTooManyRequests] when the tracker is at or over the scope's limit,
// counting only hits inside the sliding window.
func (l *Limiter) Allow(ctx context.Context, tracker, scope string) error {
	if l.exempt(scope) {
		return nil
	}

	policy := l.policyFor(scope)
	key := scope + ":" + tracker
	now := l.now()
	cutoff := now.Add(-policy.Window).UnixMilli()

	stamps, err := l.storage.Records(ctx, key)
	if err != nil {
		return err
	}

	live := 0
	for _, ts := range stamps {
		if ts > cutoff {
			live++
		}
	}
	if live >= policy.Limit {
		return ErrTooManyRequests
	}

	return l.storage.Add(ctx, key, now.UnixMilli(), policy.Window)
}

func (l *Limiter) policyFor(scope string) Policy {
	if p, ok := l.config.Scopes[scope]; ok {
		if p.Limit > 0 && p.Window > 0 {
			return p
		}
	}
	return l.config.Default
}

func (l *Limiter) exempt(scope string) bool {
	for _, e := range l.config.Exempt {
		if e == scope {
			return true
		}
	}
	return false
}
