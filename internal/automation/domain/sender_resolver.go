package domain

import (
	"context"

	"github.com/google/uuid"
)

// SenderResolver decides which identity a rule's message is sent as. Making
// this an explicit capability keeps the "any administrator" fallback out of
// the dispatch logic instead of hiding it in an ad hoc query.
type SenderResolver interface {
	// ResolveSender returns the rule's fixed sender when configured,
	// otherwise an administrator chosen by a stable policy. Returns
	// ErrNoSenderAvailable when neither exists.
	ResolveSender(ctx context.Context, rule *AutomationRule) (uuid.UUID, error)
}
