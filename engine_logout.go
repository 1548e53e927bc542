package authgate

import (
	"context"
	"errors"

	"github.com/paygate-labs/authgate/session"
)

// Logout revokes the subject's provider session and deletes both local
// records. Local deletion is attempted even when the provider revoke fails:
// local invalidation must never depend on the provider's availability. The
// returned bool reports whether the provider acknowledged the revoke; the
// error reports whether local deletion succeeded.
func (e *Engine) Logout(ctx context.Context, subjectID string) (bool, error) {
	if e == nil || e.sessions == nil || e.provider == nil {
		return false, ErrEngineNotReady
	}

	revoked := false
	rec, err := e.sessions.GetAccess(ctx, subjectID)
	switch {
	case err == nil:
		if revokeErr := e.provider.Revoke(ctx, rec.ProviderToken); revokeErr != nil {
			e.emitAudit(ctx, EventRevokeFailed, subjectID, false, revokeErr, nil)
			e.log.Warn().Str("subject", subjectID).Err(revokeErr).Msg("provider revoke failed; deleting local session anyway")
		} else {
			revoked = true
		}
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrCorruptRecord):
		// Nothing to revoke upstream; still delete whatever is left locally.
	default:
		// Store unreadable. Deletion below is still attempted: it may
		// succeed even when reads fail, and failing open is not an option.
		e.log.Warn().Str("subject", subjectID).Err(err).Msg("access record unreadable during logout")
	}

	if err := e.sessions.Delete(ctx, subjectID); err != nil {
		e.metricInc(MetricStoreUnavailable)
		e.emitAudit(ctx, EventLogout, subjectID, false, err, nil)
		return revoked, ErrStoreUnavailable
	}

	e.metricInc(MetricLogout)
	e.metricInc(MetricSessionRevoked)
	e.emitAudit(ctx, EventLogout, subjectID, true, nil, nil)

	return revoked, nil
}
