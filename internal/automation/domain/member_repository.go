package domain

import (
	"context"

	"github.com/google/uuid"
)

// MemberRepository reads member profiles from the portal's member store.
type MemberRepository interface {
	// GetByID returns the member's profile, or ErrRecipientNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*Member, error)
}
