package domain

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// TriggerContext is the event payload handed to the dispatcher. RecipientID
// is the only required field; the rest depends on the trigger type. The
// dispatcher enriches it in-flight with the recipient's display data before
// any template is rendered, and the enriched context is what gets serialized
// onto the delivery log row.
type TriggerContext struct {
	RecipientID     uuid.UUID `json:"recipient_id"`
	ProductID       string    `json:"product_id,omitempty"`
	ProductName     string    `json:"product_name,omitempty"`
	ProgressPercent *int      `json:"progress_percent,omitempty"`

	// ContextKey is the deduplication identity for one logical event
	// instance. When empty it is derived from the trigger type and product.
	ContextKey string `json:"context_key,omitempty"`

	// Enriched by the dispatcher from the recipient's profile.
	RecipientName      string `json:"recipient_name,omitempty"`
	RecipientFirstName string `json:"recipient_first_name,omitempty"`
	DaysSinceJoin      *int   `json:"days_since_join,omitempty"`
}

// Key returns the dedup key for this event under the given trigger type:
// the explicit ContextKey when set, otherwise "{triggerType}_{productId}"
// ("general" when the event has no product).
func (tc *TriggerContext) Key(t TriggerType) string {
	if tc.ContextKey != "" {
		return tc.ContextKey
	}
	scope := "general"
	if tc.ProductID != "" {
		scope = tc.ProductID
	}
	return fmt.Sprintf("%s_%s", t, scope)
}

// Enrich fills in the recipient display fields from a member profile.
func (tc *TriggerContext) Enrich(m *Member, days int) {
	tc.RecipientName = m.DisplayName()
	tc.RecipientFirstName = m.FirstName
	tc.DaysSinceJoin = &days
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
