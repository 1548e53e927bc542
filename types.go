package authgate

import (
	"context"
	"time"

	"github.com/paygate-labs/authgate/provider"
)

// Principal is the external user identity asserted by gateway credentials.
// Immutable per session; sourced from the provider's authentication response.
type Principal struct {
	SubjectID      string
	Name           string
	OrganizationID string
}

// TokenPair is the gateway credential pair returned by Login and Refresh.
// ExpiresAt mirrors the provider access token's expiry, which also bounds
// the session record's lifetime.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// AuthResult is returned by Validate for a credential that passed both the
// signature check and the stored-hash cross-check.
type AuthResult struct {
	Principal Principal
}

// ProviderSession exposes the stored provider token pair for a subject, for
// callers that talk to the provider's own API on the user's behalf.
type ProviderSession struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// ProviderClient is the engine's contract with the external identity
// provider. Implementations must not retry; the engine surfaces failures
// as-is.
type ProviderClient interface {
	Authenticate(ctx context.Context, login, password string) (*provider.Grant, error)
	Refresh(ctx context.Context, refreshToken string) (*provider.Grant, error)
	Revoke(ctx context.Context, accessToken string) error
}
