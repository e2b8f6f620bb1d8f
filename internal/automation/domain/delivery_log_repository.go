package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DeliveryLogRepository manages delivery-log rows, the engine's only shared
// mutable state. Implementations must make Create atomic with respect to the
// dedup invariant (insert-conflict-ignore against the partial unique index),
// and AcquireDue must claim rows so that concurrent workers never process
// the same row twice.
type DeliveryLogRepository interface {
	// Create inserts a pending row. Returns ErrAlreadyTriggered when a
	// non-failed row already exists for the same
	// (automation_id, recipient_id, context_key) triple.
	Create(ctx context.Context, log *DeliveryLog) error

	// ExistsActive reports whether a non-failed row exists for the triple.
	// This is the cheap read-side dedup check; Create remains the
	// authoritative one.
	ExistsActive(ctx context.Context, automationID, recipientID uuid.UUID, contextKey string) (bool, error)

	// Claim moves one row from pending to sending, returning false when the
	// row was no longer pending (a concurrent worker beat us to it).
	Claim(ctx context.Context, id uuid.UUID) (bool, error)

	// AcquireDue atomically claims up to limit pending rows whose
	// scheduled_for is at or before dueTime, moving them to sending, FIFO by
	// scheduled_for. Returns ErrNoDueDeliveries when nothing is due.
	AcquireDue(ctx context.Context, dueTime time.Time, limit int) ([]*DeliveryLog, error)

	// MarkSent finalizes a row after a successful send.
	MarkSent(ctx context.Context, id, conversationID, messageID uuid.UUID, sentAt time.Time) error

	// MarkFailed finalizes a row with the send error. Failed rows are
	// terminal but never block a later retry of the same logical event.
	MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error
}
