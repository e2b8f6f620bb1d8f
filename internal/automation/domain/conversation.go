package domain

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is a two-party thread between an administrator and a member.
// The engine only ever creates threads with exactly those two participants
// and appends one message at a time; everything else about conversations is
// owned by the portal's messaging service.
type Conversation struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// Participant ties a member to a conversation. IsAdmin marks the
// administrative party of the thread.
type Participant struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	MemberID       uuid.UUID `json:"member_id"`
	IsAdmin        bool      `json:"is_admin"`
	JoinedAt       time.Time `json:"joined_at"`
}

// Message is one direct message inside a conversation.
type Message struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}

// ConversationStrategy selects how an existing thread is matched when the
// engine needs to message a recipient. The source system's intent here is
// ambiguous, so both readings are supported and picked via configuration.
type ConversationStrategy string

const (
	// StrategyPerRecipient reuses the member's existing admin thread no
	// matter which administrator is sending, adding the sender as a
	// participant when missing. One thread per member.
	StrategyPerRecipient ConversationStrategy = "per_recipient"

	// StrategyPerSender keys threads by the exact sender/recipient pair.
	// One thread per admin-member pair.
	StrategyPerSender ConversationStrategy = "per_sender"
)

// Valid reports whether s is a known strategy.
func (s ConversationStrategy) Valid() bool {
	return s == StrategyPerRecipient || s == StrategyPerSender
}
