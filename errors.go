package authgate

import "errors"

var (
	// ErrEngineNotReady is returned when an Engine method is called before
	// Build completed.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrAuthenticationFailed covers bad credentials and provider rejection.
	// Callers surface it as a generic invalid-credentials message; the
	// distinction stays in internal logs.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrRefreshInvalid covers every refresh rejection: unknown subject,
	// hash mismatch, and replayed token identifier. The cases are
	// deliberately indistinguishable to the caller.
	ErrRefreshInvalid = errors.New("invalid or replayed refresh token")
	// ErrTokenInvalid is returned when a presented credential fails
	// signature or expiry verification.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrSessionExpired is returned when no session record exists for an
	// otherwise valid credential. The caller should re-authenticate.
	ErrSessionExpired = errors.New("session expired or missing")
	// ErrCredentialRevoked is returned when a cryptographically valid
	// credential no longer matches the stored hash.
	ErrCredentialRevoked = errors.New("credential revoked")
	// ErrStoreUnavailable is returned when the session store cannot be
	// reached. Never retried by the engine.
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrProviderUnavailable is returned when the identity provider cannot
	// be reached or answers outside its contract status codes.
	ErrProviderUnavailable = errors.New("identity provider unavailable")
	// ErrMalformedProviderResponse is returned when a successful provider
	// response cannot be decoded.
	ErrMalformedProviderResponse = errors.New("malformed provider response")
)
