package authgate

import (
	"context"
	"errors"

	"github.com/paygate-labs/authgate/session"
)

// ProviderSession returns the stored provider token pair for a subject, for
// callers that need to hit the provider's API directly on the user's behalf.
// The caller is expected to have validated the subject's gateway credential
// first; this method only reads state.
func (e *Engine) ProviderSession(ctx context.Context, subjectID string) (*ProviderSession, error) {
	if e == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}

	acc, err := e.sessions.GetAccess(ctx, subjectID)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrCorruptRecord):
			return nil, ErrSessionExpired
		default:
			return nil, e.mapStoreError(err)
		}
	}

	out := &ProviderSession{
		AccessToken:     acc.ProviderToken,
		AccessExpiresAt: acc.ProviderExpiresAt,
	}

	// The refresh record may be gone (expired or never written); the access
	// half alone is still useful.
	if rec, err := e.sessions.GetRefresh(ctx, subjectID); err == nil {
		out.RefreshToken = rec.ProviderRefreshToken
		out.RefreshExpiresAt = rec.ProviderExpiresAt
	} else if errors.Is(err, session.ErrStoreUnavailable) {
		return nil, e.mapStoreError(err)
	}

	return out, nil
}
