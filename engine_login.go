package authgate

import (
	"context"
	"errors"

	"github.com/paygate-labs/authgate/provider"
	"github.com/paygate-labs/authgate/session"
	"github.com/paygate-labs/authgate/token"
)

// Login authenticates against the identity provider and, on success, mints a
// gateway access/refresh credential pair and writes the subject's session
// record pair. On provider failure nothing is written: there is no partial
// state to roll back.
func (e *Engine) Login(ctx context.Context, login, password string) (*TokenPair, error) {
	if e == nil || e.sessions == nil || e.provider == nil {
		return nil, ErrEngineNotReady
	}
	if login == "" || password == "" {
		e.metricInc(MetricLoginFailure)
		return nil, ErrAuthenticationFailed
	}

	grant, err := e.provider.Authenticate(ctx, login, password)
	if err != nil {
		mapped := e.mapProviderError(err)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, EventLoginFailure, "", false, mapped, map[string]string{"login": login})
		return nil, mapped
	}
	if grant.AccessToken == "" {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, EventLoginFailure, "", false, ErrAuthenticationFailed, map[string]string{
			"login":  login,
			"reason": "missing_provider_access_token",
		})
		return nil, ErrAuthenticationFailed
	}

	now := e.now()
	accessTTL := grant.AccessExpiresAt.Sub(now)
	if accessTTL <= 0 {
		// A session that can never validate must not be created.
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, EventLoginFailure, grant.User.ID, false, ErrAuthenticationFailed, map[string]string{
			"reason": "provider_access_token_expired",
		})
		return nil, ErrAuthenticationFailed
	}

	principal := principalFromGrant(grant)
	pair, err := e.issueAndPersist(ctx, principal, grant)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, EventLoginFailure, principal.SubjectID, false, err, nil)
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, EventLoginSuccess, principal.SubjectID, true, nil, nil)
	e.log.Debug().Str("subject", principal.SubjectID).Msg("session created")

	return pair, nil
}

// issueAndPersist mints a gateway credential pair against the provider grant
// and overwrites the subject's record pair. Writes are sequential, not
// transactional: the guard only ever reads the access record, so no reader
// observes a half-written pair, and a stale refresh record fails its hash
// check on next use.
func (e *Engine) issueAndPersist(ctx context.Context, principal Principal, grant *provider.Grant) (*TokenPair, error) {
	now := e.now()
	accessTTL := grant.AccessExpiresAt.Sub(now)
	refreshTTL := grant.RefreshExpiresAt.Sub(now)

	access, err := e.codec.IssueAccess(principal.SubjectID, principal.Name, principal.OrganizationID)
	if err != nil {
		return nil, err
	}

	var refresh, jti string
	if grant.RefreshToken != "" && refreshTTL > 0 {
		refresh, jti, err = e.codec.IssueRefresh(principal.SubjectID, principal.Name, principal.OrganizationID, refreshTTL)
		if err != nil {
			return nil, err
		}
	}

	err = e.sessions.SaveAccess(ctx, principal.SubjectID, &session.AccessRecord{
		ProviderToken:     grant.AccessToken,
		ProviderExpiresAt: grant.AccessExpiresAt,
		AccessHash:        token.Hash(access),
	}, accessTTL)
	if err != nil {
		return nil, e.mapStoreError(err)
	}

	if refresh != "" {
		err = e.sessions.SaveRefresh(ctx, principal.SubjectID, &session.RefreshRecord{
			ProviderRefreshToken: grant.RefreshToken,
			ProviderExpiresAt:    grant.RefreshExpiresAt,
			RefreshHash:          token.Hash(refresh),
			JTIHash:              token.Hash(jti),
		}, refreshTTL)
		if err != nil {
			return nil, e.mapStoreError(err)
		}
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    grant.AccessExpiresAt,
	}, nil
}

func principalFromGrant(grant *provider.Grant) Principal {
	return Principal{
		SubjectID:      grant.User.ID,
		Name:           grant.User.Name,
		OrganizationID: grant.User.OrganizationID,
	}
}

func (e *Engine) mapProviderError(err error) error {
	switch {
	case errors.Is(err, provider.ErrInvalidCredentials):
		return ErrAuthenticationFailed
	case errors.Is(err, provider.ErrMalformedResponse):
		return ErrMalformedProviderResponse
	default:
		e.metricInc(MetricProviderUnavailable)
		return ErrProviderUnavailable
	}
}

func (e *Engine) mapStoreError(err error) error {
	if errors.Is(err, session.ErrStoreUnavailable) {
		e.metricInc(MetricStoreUnavailable)
		return ErrStoreUnavailable
	}
	return err
}
