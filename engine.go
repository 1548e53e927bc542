package authgate

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/paygate-labs/authgate/session"
	"github.com/paygate-labs/authgate/token"
)

// Engine is the session/token lifecycle state machine. All mutable state
// lives in the external store; Engine methods are safe for concurrent use
// after [Builder.Build].
type Engine struct {
	config   Config
	codec    *token.Manager
	sessions *session.Store
	provider ProviderClient
	audit    *auditDispatcher
	metrics  *Metrics
	log      zerolog.Logger

	// now is the engine's clock; overridden in tests.
	now func() time.Time
}

// Close stops the audit dispatcher, draining buffered events first.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were dropped due to dispatcher
// backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine's counters and histograms.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// StoreHealthy reports whether the session store answers a ping.
func (e *Engine) StoreHealthy(ctx context.Context) error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}
	if err := e.sessions.Ping(ctx); err != nil {
		return ErrStoreUnavailable
	}
	return nil
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) emitAudit(ctx context.Context, eventType, subjectID string, success bool, opErr error, metadata map[string]string) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp:     e.now(),
		EventType:     eventType,
		SubjectID:     subjectID,
		CorrelationID: CorrelationIDFromContext(ctx),
		IP:            ClientIPFromContext(ctx),
		Success:       success,
		Metadata:      metadata,
	}
	if opErr != nil {
		event.Error = opErr.Error()
	}
	e.audit.Emit(ctx, event)
}
