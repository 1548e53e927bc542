// Package ratelimit implements the sliding-window request limiter guarding
// the gateway's entry points.
//
// The limiter is independent of the token engine: it counts hit timestamps
// per tracker+scope key in a pluggable storage backend and rejects a hit
// once the in-window count reaches the scope's limit. Default policy,
// per-scope overrides, and exemptions come from configuration.
package ratelimit
