package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/toddhamam/members-automation/internal/automation/domain"
)

// SendResult carries the identifiers of a successful send.
type SendResult struct {
	ConversationID uuid.UUID
	MessageID      uuid.UUID
}

// MessageSender performs the send operation shared by the dispatcher's
// immediate path and the delivery worker: resolve an effective sender,
// resolve or create the conversation, render the template, and append one
// message. It also owns finalizing the delivery-log row.
type MessageSender struct {
	logs          domain.DeliveryLogRepository
	conversations domain.ConversationRepository
	senders       domain.SenderResolver
	logger        *slog.Logger
}

// NewMessageSender creates a MessageSender.
func NewMessageSender(
	logs domain.DeliveryLogRepository,
	conversations domain.ConversationRepository,
	senders domain.SenderResolver,
	logger *slog.Logger,
) *MessageSender {
	return &MessageSender{
		logs:          logs,
		conversations: conversations,
		senders:       senders,
		logger:        logger.With("component", "message_sender"),
	}
}

// Send executes the send operation for one rule and enriched context.
func (s *MessageSender) Send(ctx context.Context, rule *domain.AutomationRule, tc *domain.TriggerContext) (*SendResult, error) {
	timer := prometheus.NewTimer(sendDurationHist.WithLabelValues(string(rule.TriggerType)))
	defer timer.ObserveDuration()

	senderID, err := s.senders.ResolveSender(ctx, rule)
	if err != nil {
		return nil, fmt.Errorf("resolve sender: %w", err)
	}

	conversationID, err := s.conversations.Resolve(ctx, senderID, tc.RecipientID)
	if err != nil {
		return nil, fmt.Errorf("resolve conversation: %w", err)
	}

	body := RenderTemplate(rule.MessageTemplate, tc)

	messageID, err := s.conversations.AppendMessage(ctx, conversationID, senderID, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMessageSend, err)
	}

	s.logger.InfoContext(ctx, "Automation message sent",
		"automation_id", rule.ID,
		"recipient_id", tc.RecipientID,
		"conversation_id", conversationID,
		"message_id", messageID,
	)
	return &SendResult{ConversationID: conversationID, MessageID: messageID}, nil
}

// Deliver runs Send for a claimed delivery-log row and finalizes the row to
// sent or failed. Send errors are captured on the row, never returned; the
// returned error reports only a failure to persist the outcome. The boolean
// reports whether the message went out.
func (s *MessageSender) Deliver(ctx context.Context, rule *domain.AutomationRule, log *domain.DeliveryLog, tc *domain.TriggerContext) (bool, error) {
	result, sendErr := s.Send(ctx, rule, tc)
	if sendErr != nil {
		s.logger.WarnContext(ctx, "Automation send failed",
			"delivery_log_id", log.ID,
			"automation_id", rule.ID,
			"recipient_id", log.RecipientID,
			"error", sendErr,
		)
		if err := s.logs.MarkFailed(ctx, log.ID, sendErr.Error()); err != nil {
			return false, fmt.Errorf("mark delivery failed: %w", err)
		}
		return false, nil
	}

	if err := s.logs.MarkSent(ctx, log.ID, result.ConversationID, result.MessageID, time.Now().UTC()); err != nil {
		return true, fmt.Errorf("mark delivery sent: %w", err)
	}
	return true, nil
}
