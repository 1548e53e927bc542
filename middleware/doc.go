// Package middleware exposes the HTTP adapters for the authgate engine:
// credential guarding, per-client rate limiting, correlation IDs, and
// request logging.
//
// Each adapter translates HTTP semantics into engine or limiter calls and
// nothing more. Guards never parse credentials themselves; the engine does,
// and rejections are deliberately uniform so a caller cannot distinguish a
// bad signature from a revoked session.
package middleware
