package authgate

import (
	"context"
	"log/slog"
	"time"

	"github.com/Edraak/authgate/directory"
	"github.com/Edraak/authgate/internal/limiters"
	"github.com/Edraak/authgate/internal/lockaudit"
	"github.com/Edraak/authgate/password"
	"github.com/Edraak/authgate/session"
	"github.com/Edraak/authgate/token"
)

// Engine coordinates the login, token-exchange, and admin operations. All
// methods are safe for concurrent use after [Builder.Build].
type Engine struct {
	config   Config
	limiter  *limiters.LoginLimiter
	locks    lockaudit.Store
	sessions *session.Store
	tokens   *token.Manager
	hasher   *password.Hasher
	users    directory.Directory
	audit    *auditDispatcher
	metrics  *Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// Close drains and stops the audit dispatcher. The engine must not be used
// afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were dropped under
// backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of every engine counter.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) emitAudit(ctx context.Context, eventType string, success bool, username, sessionKey, ip string, err error, meta func() map[string]string) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp:  e.now(),
		EventType:  eventType,
		Username:   username,
		SessionKey: sessionKey,
		IP:         ip,
		Success:    success,
	}
	if err != nil {
		event.Error = err.Error()
	}
	if meta != nil {
		event.Metadata = meta()
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) warn(msg string, args ...any) {
	if e == nil || e.logger == nil {
		return
	}
	e.logger.Warn(msg, args...)
}
