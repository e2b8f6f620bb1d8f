package domain

import (
	"time"

	"github.com/google/uuid"
)

// TriggerType is a named class of member lifecycle event that can activate
// automation rules.
type TriggerType string

const (
	TriggerWelcome            TriggerType = "welcome"
	TriggerPurchase           TriggerType = "purchase"
	TriggerPurchaseSpecific   TriggerType = "purchase_specific"
	TriggerCourseStarted      TriggerType = "course_started"
	TriggerCourseProgress25   TriggerType = "course_progress_25"
	TriggerCourseProgress50   TriggerType = "course_progress_50"
	TriggerCourseProgress75   TriggerType = "course_progress_75"
	TriggerCourseCompleted    TriggerType = "course_completed"
	TriggerInactivity7d       TriggerType = "inactivity_7d"
	TriggerInactivity14d      TriggerType = "inactivity_14d"
	TriggerInactivity30d      TriggerType = "inactivity_30d"
	TriggerAnniversary30d     TriggerType = "anniversary_30d"
	TriggerAnniversary90d     TriggerType = "anniversary_90d"
	TriggerAnniversary1y      TriggerType = "anniversary_1y"
	TriggerFirstCommunityPost TriggerType = "first_community_post"
)

// courseScoped reports whether rules of this trigger type may optionally pin
// themselves to a single product via trigger_config.
func (t TriggerType) courseScoped() bool {
	switch t {
	case TriggerCourseStarted,
		TriggerCourseProgress25, TriggerCourseProgress50, TriggerCourseProgress75,
		TriggerCourseCompleted:
		return true
	}
	return false
}

// AutomationRule is an admin-authored reaction to a trigger type. The engine
// reads rules and never mutates them.
type AutomationRule struct {
	ID              uuid.UUID      `json:"id"`
	Name            string         `json:"name"`
	TriggerType     TriggerType    `json:"trigger_type"`
	TriggerConfig   map[string]any `json:"trigger_config,omitempty"` // stored as JSONB
	MessageTemplate string         `json:"message_template"`
	SenderID        *uuid.UUID     `json:"sender_id,omitempty"` // nil means "any administrator"
	DelayMinutes    int            `json:"delay_minutes"`
	IsEnabled       bool           `json:"is_enabled"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// ConfigProductID extracts the product scope from the rule's trigger config,
// or "" when the rule is not product-scoped. Authoring tools have stored the
// value both as a string and as a JSON number, so both are accepted.
func (r *AutomationRule) ConfigProductID() string {
	if r.TriggerConfig == nil {
		return ""
	}
	switch v := r.TriggerConfig["productId"].(type) {
	case string:
		return v
	case float64:
		return formatNumber(v)
	}
	return ""
}

// Matches reports whether this rule applies to the given event context.
// The rule is assumed to already match on trigger type and enabled state;
// this only applies the rule's own product scoping:
//
//   - purchase_specific rules fire only when the event carries the exact
//     product id the rule is configured for;
//   - course_* rules that declare a productId fire only for that product;
//   - everything else matches unconditionally.
func (r *AutomationRule) Matches(tc *TriggerContext) bool {
	switch {
	case r.TriggerType == TriggerPurchaseSpecific:
		cfg := r.ConfigProductID()
		return cfg != "" && tc.ProductID == cfg
	case r.TriggerType.courseScoped():
		cfg := r.ConfigProductID()
		return cfg == "" || tc.ProductID == cfg
	}
	return true
}

// Delay is the configured wait between rule activation and the actual send.
func (r *AutomationRule) Delay() time.Duration {
	if r.DelayMinutes <= 0 {
		return 0
	}
	return time.Duration(r.DelayMinutes) * time.Minute
}
