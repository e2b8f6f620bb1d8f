package domain

import (
	"context"

	"github.com/google/uuid"
)

// ConversationRepository finds or creates the thread a rule's message lands
// in and appends messages to it. Which existing thread counts as "the" thread
// is governed by the configured ConversationStrategy.
type ConversationRepository interface {
	// Resolve returns the conversation id for the sender/recipient pair,
	// creating the thread (with exactly those two participants, sender
	// flagged as the administrative party) when none matches. Creation
	// failures are reported as ErrConversationCreation.
	Resolve(ctx context.Context, senderID, recipientID uuid.UUID) (uuid.UUID, error)

	// AppendMessage inserts one message authored by senderID and returns
	// its id.
	AppendMessage(ctx context.Context, conversationID, senderID uuid.UUID, body string) (uuid.UUID, error)
}
