package authgate

import (
	"context"
	"errors"

	"github.com/paygate-labs/authgate/session"
	"github.com/paygate-labs/authgate/token"
)

// Validate verifies an access credential: signature and expiry first, then a
// cross-check of the credential's digest against the stored session record.
// The cross-check is what makes an otherwise-stateless token revocable; a
// revoked or superseded credential still verifies cryptographically but no
// longer matches the stored hash.
func (e *Engine) Validate(ctx context.Context, accessCredential string) (*AuthResult, error) {
	if e == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}

	start := e.now()
	res, err := e.validate(ctx, accessCredential)
	if e.metrics != nil {
		e.metrics.ObserveValidateLatency(e.now().Sub(start))
	}
	if err != nil {
		e.metricInc(MetricValidateFailure)
		return nil, err
	}

	e.metricInc(MetricValidateSuccess)
	return res, nil
}

func (e *Engine) validate(ctx context.Context, accessCredential string) (*AuthResult, error) {
	claims, err := e.codec.Parse(accessCredential)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	rec, err := e.sessions.GetAccess(ctx, claims.Subject)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNotFound):
			return nil, ErrSessionExpired
		case errors.Is(err, session.ErrCorruptRecord):
			e.log.Error().Str("subject", claims.Subject).Msg("corrupt access record")
			return nil, ErrSessionExpired
		default:
			return nil, e.mapStoreError(err)
		}
	}

	if token.Hash(accessCredential) != rec.AccessHash {
		return nil, ErrCredentialRevoked
	}

	return &AuthResult{
		Principal: Principal{
			SubjectID:      claims.Subject,
			Name:           claims.Name,
			OrganizationID: claims.OrganizationID,
		},
	}, nil
}
