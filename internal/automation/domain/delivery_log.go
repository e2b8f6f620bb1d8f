package domain

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DeliveryStatus is the state of one delivery-log row.
type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "pending"
	DeliverySending DeliveryStatus = "sending" // claimed by a worker or the immediate path
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
)

// DeliveryLog is the durable record of one rule's attempt to message one
// recipient for one event. The table behind it is the engine's sole
// coordination point: a partial unique index over
// (automation_id, recipient_id, context_key) where status <> 'failed'
// guarantees at most one live row per logical event, and failed rows never
// block a retry by a later event of the same kind.
//
// Transitions: pending -> sending -> sent | failed. Rows never leave a
// terminal state.
type DeliveryLog struct {
	ID           uuid.UUID       `json:"id"`
	AutomationID uuid.UUID       `json:"automation_id"`
	RecipientID  uuid.UUID       `json:"recipient_id"`
	ContextKey   string          `json:"context_key"`
	TriggerData  json.RawMessage `json:"trigger_data"` // serialized enriched TriggerContext
	Status       DeliveryStatus  `json:"status"`
	ScheduledFor time.Time       `json:"scheduled_for"`

	SentAt         sql.NullTime   `json:"sent_at,omitempty"`
	ConversationID uuid.NullUUID  `json:"conversation_id,omitempty"`
	MessageID      uuid.NullUUID  `json:"message_id,omitempty"`
	ErrorMessage   sql.NullString `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewDeliveryLog builds a pending row for one (rule, event) pair. The
// context must already be enriched and carry its final ContextKey; it is
// serialized wholesale so the worker can render the template later without
// re-resolving the recipient.
func NewDeliveryLog(rule *AutomationRule, tc *TriggerContext, now time.Time) (*DeliveryLog, error) {
	data, err := json.Marshal(tc)
	if err != nil {
		return nil, err
	}
	return &DeliveryLog{
		ID:           uuid.New(),
		AutomationID: rule.ID,
		RecipientID:  tc.RecipientID,
		ContextKey:   tc.ContextKey,
		TriggerData:  data,
		Status:       DeliveryPending,
		ScheduledFor: now.Add(rule.Delay()),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Context deserializes the trigger data captured at dispatch time.
func (d *DeliveryLog) Context() (*TriggerContext, error) {
	var tc TriggerContext
	if err := json.Unmarshal(d.TriggerData, &tc); err != nil {
		return nil, err
	}
	return &tc, nil
}
