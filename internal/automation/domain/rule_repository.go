package domain

import (
	"context"

	"github.com/google/uuid"
)

// RuleRepository reads admin-authored automation rules. The engine never
// writes rules.
type RuleRepository interface {
	// ListEnabledByTriggerType returns all enabled rules for the given
	// trigger type, oldest first. No match is an empty slice, not an error.
	ListEnabledByTriggerType(ctx context.Context, t TriggerType) ([]*AutomationRule, error)

	// GetByID returns one rule regardless of enabled state, or ErrNotFound.
	// The worker uses it to re-load the rule behind a deferred delivery.
	GetByID(ctx context.Context, id uuid.UUID) (*AutomationRule, error)
}
