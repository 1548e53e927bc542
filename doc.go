// Package authgate is an authentication gateway engine that fronts an
// external identity/financial provider. It issues its own short-lived signed
// credentials, keeps revocable session state in Redis, and rotates refresh
// tokens with single-use replay detection.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build]. The engine itself holds no cross-request mutable state;
// sessions and rate-limit counters live in the external store, so instances
// scale horizontally.
//
// # Architecture boundaries
//
// authgate is the lifecycle engine only. The transport layer (GraphQL or
// HTTP), CORS/TLS policy, and the provider's own API are external
// collaborators. Subpackages hold the leaf components: token (credential
// codec), session (store adapter), provider (auth client), ratelimit
// (entry-point limiter), middleware (HTTP guard).
//
// # Consistency model
//
// The two per-subject session records are written sequentially, not
// transactionally. Concurrent refreshes for one subject race on the store
// and resolve through replay detection: the refresh credential's token
// identifier hash is single-use, so the second writer fails instead of
// being serialized by a lock.
package authgate
