package authgate

import (
	"context"
	"errors"

	"github.com/paygate-labs/authgate/provider"
	"github.com/paygate-labs/authgate/session"
	"github.com/paygate-labs/authgate/token"
)

// Refresh rotates the gateway credential pair. The presented refresh
// credential is valid for exactly one rotation: its hash and its token
// identifier's hash must both match the stored refresh record, and rotation
// rewrites both, so a second use of the same credential fails replay
// detection. When the shadowed provider access token is still unexpired it
// is reused; otherwise the provider pair is rotated too.
//
// Concurrent refreshes for one subject are not locked out; the loser of the
// race simply fails the replay check after the winner's write lands.
func (e *Engine) Refresh(ctx context.Context, refreshCredential string) (*TokenPair, error) {
	if e == nil || e.sessions == nil || e.provider == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.codec.Parse(refreshCredential)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, ErrRefreshInvalid
	}
	if claims.ID == "" {
		// Access credentials carry no token identifier; they must never
		// pass as refresh credentials.
		e.metricInc(MetricRefreshFailure)
		return nil, ErrRefreshInvalid
	}
	subjectID := claims.Subject

	rec, err := e.sessions.GetRefresh(ctx, subjectID)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrCorruptRecord):
			e.metricInc(MetricRefreshFailure)
			return nil, ErrRefreshInvalid
		default:
			return nil, e.mapStoreError(err)
		}
	}

	if token.Hash(refreshCredential) != rec.RefreshHash || token.Hash(claims.ID) != rec.JTIHash {
		e.metricInc(MetricRefreshReplayDetected)
		e.emitAudit(ctx, EventRefreshReplay, subjectID, false, ErrRefreshInvalid, nil)
		e.log.Warn().Str("subject", subjectID).Msg("refresh credential replay detected")
		return nil, ErrRefreshInvalid
	}

	grant, err := e.resolveGrant(ctx, subjectID, claims, rec)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, EventRefreshed, subjectID, false, err, nil)
		return nil, err
	}

	now := e.now()
	if grant.AccessExpiresAt.Sub(now) <= 0 {
		e.metricInc(MetricRefreshFailure)
		return nil, ErrMalformedProviderResponse
	}
	if grant.RefreshToken == "" || grant.RefreshExpiresAt.Sub(now) <= 0 {
		// An unrotatable lineage is as good as a dead one.
		e.metricInc(MetricRefreshFailure)
		return nil, ErrRefreshInvalid
	}

	pair, err := e.issueAndPersist(ctx, principalFromGrant(grant), grant)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, EventRefreshed, subjectID, false, err, nil)
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, EventRefreshed, subjectID, true, nil, nil)

	return pair, nil
}

// resolveGrant decides between reusing the shadowed provider tokens and
// cascading the rotation to the provider. Reuse requires the provider access
// token's remaining lifetime to be strictly positive.
func (e *Engine) resolveGrant(ctx context.Context, subjectID string, claims *token.Claims, rec *session.RefreshRecord) (*provider.Grant, error) {
	now := e.now()

	acc, err := e.sessions.GetAccess(ctx, subjectID)
	if err == nil && acc.ProviderExpiresAt.Sub(now) > 0 {
		return &provider.Grant{
			AccessToken:      acc.ProviderToken,
			AccessExpiresAt:  acc.ProviderExpiresAt,
			RefreshToken:     rec.ProviderRefreshToken,
			RefreshExpiresAt: rec.ProviderExpiresAt,
			User: provider.UserInfo{
				ID:             claims.Subject,
				Name:           claims.Name,
				OrganizationID: claims.OrganizationID,
			},
		}, nil
	}
	if err != nil && errors.Is(err, session.ErrStoreUnavailable) {
		return nil, e.mapStoreError(err)
	}

	grant, err := e.provider.Refresh(ctx, rec.ProviderRefreshToken)
	if err != nil {
		if errors.Is(err, provider.ErrInvalidCredentials) {
			// The provider no longer honors the stored refresh token; the
			// local lineage is dead.
			return nil, ErrRefreshInvalid
		}
		return nil, e.mapProviderError(err)
	}
	if grant.AccessToken == "" {
		return nil, ErrMalformedProviderResponse
	}
	return grant, nil
}
