package domain

import "errors"

var (
	// ErrNotFound indicates that a requested resource does not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrRecipientNotFound indicates the event's recipient has no profile;
	// the dispatcher aborts the whole trigger call when it sees this.
	ErrRecipientNotFound = errors.New("recipient not found")
	// ErrNoSenderAvailable indicates a rule has no fixed sender and no
	// administrator account exists to send on its behalf.
	ErrNoSenderAvailable = errors.New("no sender available")
	// ErrConversationCreation indicates the conversation or one of its
	// participants could not be inserted.
	ErrConversationCreation = errors.New("conversation creation failed")
	// ErrMessageSend indicates the message insert itself failed.
	ErrMessageSend = errors.New("message send failed")
	// ErrAlreadyTriggered indicates a non-failed delivery log already exists
	// for the (automation, recipient, context key) triple. Not a failure:
	// the duplicate event is silently skipped.
	ErrAlreadyTriggered = errors.New("automation already triggered for context")
	// ErrNoDueDeliveries indicates the worker found nothing to process.
	ErrNoDueDeliveries = errors.New("no due deliveries found")
)
