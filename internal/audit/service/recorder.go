package service

import (
	"context"
	"errors"

	"cpcaisse/internal/audit/models"
	id "cpcaisse/pkg/domain"
	dErrors "cpcaisse/pkg/domain-errors"
	"cpcaisse/pkg/platform/sentinel"
	txcontext "cpcaisse/pkg/platform/tx"
	"cpcaisse/pkg/requestcontext"
)

// Appender writes one event inside the ambient transaction.
type Appender interface {
	Append(ctx context.Context, event models.Event) error
}

// Recorder is the only write path to the audit trail. It has no HTTP surface.
type Recorder struct {
	store Appender
}

func NewRecorder(store Appender) *Recorder {
	return &Recorder{store: store}
}

// Record appends event within the caller's transaction, stamping id, time and
// network address from the request when unset. Outside a transaction it
// fails with an invariant violation and writes nothing.
func (r *Recorder) Record(ctx context.Context, event models.Event) error {
	if !txcontext.Active(ctx) {
		return dErrors.New(dErrors.CodeInvariantViolation, "audit event recorded outside a transaction")
	}
	if event.ID.IsNil() {
		event.ID = id.NewAuditEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.IPAddress == "" {
		event.IPAddress = requestcontext.ClientIP(ctx)
	}
	if event.Details == nil {
		event.Details = map[string]any{}
	}

	if err := r.store.Append(ctx, event); err != nil {
		if errors.Is(err, sentinel.ErrNoTransaction) {
			return dErrors.Wrap(err, dErrors.CodeInvariantViolation, "audit event recorded outside a transaction")
		}
		return dErrors.Wrap(err, dErrors.CodePersistence, "failed to record audit event")
	}
	return nil
}
