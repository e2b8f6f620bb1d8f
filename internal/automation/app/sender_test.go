package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/toddhamam/members-automation/internal/automation/domain"
)

func testRule(trigger domain.TriggerType, template string, delayMinutes int) *domain.AutomationRule {
	return &domain.AutomationRule{
		ID:              uuid.New(),
		Name:            "rule under test",
		TriggerType:     trigger,
		MessageTemplate: template,
		DelayMinutes:    delayMinutes,
		IsEnabled:       true,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}
}

func TestMessageSender_Send_Success(t *testing.T) {
	c := setupTest(t)
	ctx := context.Background()

	rule := testRule(domain.TriggerPurchase, "Hi {{member_name}}, thanks for buying {{product_name}}!", 0)
	tc := domain.TriggerContext{
		RecipientID:   uuid.New(),
		ProductName:   "Atlas",
		RecipientName: "Jane Doe",
	}
	senderID := uuid.New()
	conversationID := uuid.New()
	messageID := uuid.New()

	c.senders.On("ResolveSender", ctx, rule).Return(senderID, nil).Once()
	c.conversations.On("Resolve", ctx, senderID, tc.RecipientID).Return(conversationID, nil).Once()
	c.conversations.On("AppendMessage", ctx, conversationID, senderID, "Hi Jane Doe, thanks for buying Atlas!").
		Return(messageID, nil).Once()

	result, err := c.sender.Send(ctx, rule, &tc)

	require.NoError(t, err)
	assert.Equal(t, conversationID, result.ConversationID)
	assert.Equal(t, messageID, result.MessageID)
	c.senders.AssertExpectations(t)
	c.conversations.AssertExpectations(t)
}

func TestMessageSender_Send_NoSenderAvailable(t *testing.T) {
	c := setupTest(t)
	ctx := context.Background()

	rule := testRule(domain.TriggerWelcome, "Welcome!", 0)
	tc := domain.TriggerContext{RecipientID: uuid.New()}

	c.senders.On("ResolveSender", ctx, rule).Return(uuid.Nil, domain.ErrNoSenderAvailable).Once()

	result, err := c.sender.Send(ctx, rule, &tc)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoSenderAvailable)
	assert.Nil(t, result)
	c.conversations.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything)
}

func TestMessageSender_Send_ConversationError(t *testing.T) {
	c := setupTest(t)
	ctx := context.Background()

	rule := testRule(domain.TriggerWelcome, "Welcome!", 0)
	tc := domain.TriggerContext{RecipientID: uuid.New()}
	senderID := uuid.New()
	wrapped := errors.New("insert conversation: connection refused")

	c.senders.On("ResolveSender", ctx, rule).Return(senderID, nil).Once()
	c.conversations.On("Resolve", ctx, senderID, tc.RecipientID).
		Return(uuid.Nil, errors.Join(domain.ErrConversationCreation, wrapped)).Once()

	result, err := c.sender.Send(ctx, rule, &tc)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConversationCreation)
	assert.Nil(t, result)
	c.conversations.AssertNotCalled(t, "AppendMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMessageSender_Send_AppendError(t *testing.T) {
	c := setupTest(t)
	ctx := context.Background()

	rule := testRule(domain.TriggerWelcome, "Welcome!", 0)
	tc := domain.TriggerContext{RecipientID: uuid.New()}
	senderID := uuid.New()
	conversationID := uuid.New()

	c.senders.On("ResolveSender", ctx, rule).Return(senderID, nil).Once()
	c.conversations.On("Resolve", ctx, senderID, tc.RecipientID).Return(conversationID, nil).Once()
	c.conversations.On("AppendMessage", ctx, conversationID, senderID, "Welcome!").
		Return(uuid.Nil, errors.New("db down")).Once()

	_, err := c.sender.Send(ctx, rule, &tc)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMessageSend)
}

func TestMessageSender_Deliver_MarksSent(t *testing.T) {
	c := setupTest(t)
	ctx := context.Background()

	rule := testRule(domain.TriggerWelcome, "Welcome!", 0)
	tc := domain.TriggerContext{RecipientID: uuid.New(), ContextKey: "welcome_general"}
	log, err := domain.NewDeliveryLog(rule, &tc, time.Now().UTC())
	require.NoError(t, err)

	senderID := uuid.New()
	conversationID := uuid.New()
	messageID := uuid.New()

	c.senders.On("ResolveSender", ctx, rule).Return(senderID, nil).Once()
	c.conversations.On("Resolve", ctx, senderID, tc.RecipientID).Return(conversationID, nil).Once()
	c.conversations.On("AppendMessage", ctx, conversationID, senderID, "Welcome!").Return(messageID, nil).Once()
	c.logs.On("MarkSent", ctx, log.ID, conversationID, messageID, mock.AnythingOfType("time.Time")).Return(nil).Once()

	sent, err := c.sender.Deliver(ctx, rule, log, &tc)

	require.NoError(t, err)
	assert.True(t, sent)
	c.logs.AssertExpectations(t)
}

func TestMessageSender_Deliver_SendFailureLandsOnRow(t *testing.T) {
	c := setupTest(t)
	ctx := context.Background()

	rule := testRule(domain.TriggerWelcome, "Welcome!", 0)
	tc := domain.TriggerContext{RecipientID: uuid.New(), ContextKey: "welcome_general"}
	log, err := domain.NewDeliveryLog(rule, &tc, time.Now().UTC())
	require.NoError(t, err)

	c.senders.On("ResolveSender", ctx, rule).Return(uuid.Nil, domain.ErrNoSenderAvailable).Once()
	c.logs.On("MarkFailed", ctx, log.ID, mock.MatchedBy(func(msg string) bool {
		return strings.Contains(msg, "no sender available")
	})).Return(nil).Once()

	sent, err := c.sender.Deliver(ctx, rule, log, &tc)

	// A send failure is the row's problem, not the caller's.
	require.NoError(t, err)
	assert.False(t, sent)
	c.logs.AssertNotCalled(t, "MarkSent", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	c.logs.AssertExpectations(t)
}

func TestMessageSender_Deliver_MarkSentFailureReturned(t *testing.T) {
	c := setupTest(t)
	ctx := context.Background()

	rule := testRule(domain.TriggerWelcome, "Welcome!", 0)
	tc := domain.TriggerContext{RecipientID: uuid.New(), ContextKey: "welcome_general"}
	log, err := domain.NewDeliveryLog(rule, &tc, time.Now().UTC())
	require.NoError(t, err)

	senderID := uuid.New()
	conversationID := uuid.New()
	messageID := uuid.New()

	c.senders.On("ResolveSender", ctx, rule).Return(senderID, nil).Once()
	c.conversations.On("Resolve", ctx, senderID, tc.RecipientID).Return(conversationID, nil).Once()
	c.conversations.On("AppendMessage", ctx, conversationID, senderID, "Welcome!").Return(messageID, nil).Once()
	c.logs.On("MarkSent", ctx, log.ID, conversationID, messageID, mock.AnythingOfType("time.Time")).
		Return(errors.New("connection reset")).Once()

	sent, err := c.sender.Deliver(ctx, rule, log, &tc)

	// The message went out even though the bookkeeping did not.
	require.Error(t, err)
	assert.True(t, sent)
}
