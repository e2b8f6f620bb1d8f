package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/toddhamam/members-automation/internal/platform/messagebroker"
)

// Lifecycle event names published by the portal services.
const (
	EventMemberSignedUp  = "member.signed_up"
	EventMemberPurchased = "member.purchased"
	EventCourseStarted   = "course.started"
	EventCourseProgress  = "course.progress"
	EventCourseCompleted = "course.completed"
	EventMemberInactive  = "member.inactive"
	EventAnniversary     = "member.anniversary"
	EventFirstPost       = "community.first_post"
)

// MemberEvent is the JSON payload the portal publishes for member lifecycle
// events. Fields beyond Event and RecipientID are event-specific.
type MemberEvent struct {
	Event           string    `json:"event"`
	RecipientID     uuid.UUID `json:"recipient_id"`
	ProductID       string    `json:"product_id,omitempty"`
	ProductName     string    `json:"product_name,omitempty"`
	ProgressPercent int       `json:"progress_percent,omitempty"`
	Days            int       `json:"days,omitempty"`
}

// EventConsumer bridges the portal's event stream to the dispatcher: it
// decodes lifecycle events off NATS and hands each one to the matching
// trigger wrapper. Malformed or unknown events are logged and dropped; the
// dispatcher itself never returns errors, so nothing is redelivered.
type EventConsumer struct {
	dispatcher *Dispatcher
	logger     *slog.Logger
	sub        *nats.Subscription
}

// NewEventConsumer creates an EventConsumer.
func NewEventConsumer(dispatcher *Dispatcher, logger *slog.Logger) *EventConsumer {
	return &EventConsumer{
		dispatcher: dispatcher,
		logger:     logger.With("component", "event_consumer"),
	}
}

// Start subscribes to the event subject with a queue group so only one
// service instance reacts to each event.
func (c *EventConsumer) Start(client *messagebroker.NATSClient, subject, queueGroup string) error {
	sub, err := client.QueueSubscribe(subject, queueGroup, func(msg *nats.Msg) {
		// Each event gets its own deadline; a stuck store must not stall
		// the subscription callback forever.
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		c.Handle(ctx, msg.Data)
	})
	if err != nil {
		return err
	}
	c.sub = sub
	return nil
}

// Handle processes one raw event payload.
func (c *EventConsumer) Handle(ctx context.Context, data []byte) {
	var event MemberEvent
	if err := json.Unmarshal(data, &event); err != nil {
		c.logger.ErrorContext(ctx, "Failed to decode member event", "error", err, "payload", string(data))
		return
	}
	if event.RecipientID == uuid.Nil {
		c.logger.WarnContext(ctx, "Member event without recipient", "event", event.Event)
		return
	}

	c.logger.DebugContext(ctx, "Handling member event", "event", event.Event, "recipient_id", event.RecipientID)

	switch event.Event {
	case EventMemberSignedUp:
		c.dispatcher.FireWelcome(ctx, event.RecipientID)
	case EventMemberPurchased:
		c.dispatcher.FirePurchase(ctx, event.RecipientID, event.ProductID, event.ProductName)
	case EventCourseStarted:
		c.dispatcher.FireCourseStarted(ctx, event.RecipientID, event.ProductID, event.ProductName)
	case EventCourseProgress:
		c.dispatcher.FireCourseProgress(ctx, event.RecipientID, event.ProductID, event.ProductName, event.ProgressPercent)
	case EventCourseCompleted:
		c.dispatcher.FireCourseCompleted(ctx, event.RecipientID, event.ProductID, event.ProductName)
	case EventMemberInactive:
		c.dispatcher.FireInactivity(ctx, event.RecipientID, event.Days)
	case EventAnniversary:
		c.dispatcher.FireAnniversary(ctx, event.RecipientID, event.Days)
	case EventFirstPost:
		c.dispatcher.FireFirstCommunityPost(ctx, event.RecipientID)
	default:
		c.logger.WarnContext(ctx, "Unknown member event", "event", event.Event)
	}
}

// Stop unsubscribes from the event stream.
func (c *EventConsumer) Stop() {
	if c.sub == nil {
		return
	}
	if err := c.sub.Unsubscribe(); err != nil {
		c.logger.Warn("Failed to unsubscribe from events", "error", err)
	}
}
