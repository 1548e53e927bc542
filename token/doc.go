// Package token is the credential codec for the gateway: it signs and
// verifies the access and refresh JWTs the gateway issues to its own clients,
// and produces the one-way digests the session store keeps for revocation
// cross-checks.
//
// Signing keys are process-wide immutable configuration. They are parsed once
// in [NewManager] and no Manager method mutates them.
package token
