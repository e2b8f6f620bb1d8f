package app

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/toddhamam/members-automation/internal/automation/domain"
)

// --- Mocks ---

type MockRuleRepository struct {
	mock.Mock
}

func (m *MockRuleRepository) ListEnabledByTriggerType(ctx context.Context, t domain.TriggerType) ([]*domain.AutomationRule, error) {
	args := m.Called(ctx, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AutomationRule), args.Error(1)
}

func (m *MockRuleRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.AutomationRule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AutomationRule), args.Error(1)
}

type MockDeliveryLogRepository struct {
	mock.Mock
}

func (m *MockDeliveryLogRepository) Create(ctx context.Context, log *domain.DeliveryLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockDeliveryLogRepository) ExistsActive(ctx context.Context, automationID, recipientID uuid.UUID, contextKey string) (bool, error) {
	args := m.Called(ctx, automationID, recipientID, contextKey)
	return args.Bool(0), args.Error(1)
}

func (m *MockDeliveryLogRepository) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockDeliveryLogRepository) AcquireDue(ctx context.Context, dueTime time.Time, limit int) ([]*domain.DeliveryLog, error) {
	args := m.Called(ctx, dueTime, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.DeliveryLog), args.Error(1)
}

func (m *MockDeliveryLogRepository) MarkSent(ctx context.Context, id, conversationID, messageID uuid.UUID, sentAt time.Time) error {
	args := m.Called(ctx, id, conversationID, messageID, sentAt)
	return args.Error(0)
}

func (m *MockDeliveryLogRepository) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error {
	args := m.Called(ctx, id, errorMessage)
	return args.Error(0)
}

type MockMemberRepository struct {
	mock.Mock
}

func (m *MockMemberRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Member, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Member), args.Error(1)
}

type MockConversationRepository struct {
	mock.Mock
}

func (m *MockConversationRepository) Resolve(ctx context.Context, senderID, recipientID uuid.UUID) (uuid.UUID, error) {
	args := m.Called(ctx, senderID, recipientID)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockConversationRepository) AppendMessage(ctx context.Context, conversationID, senderID uuid.UUID, body string) (uuid.UUID, error) {
	args := m.Called(ctx, conversationID, senderID, body)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

type MockSenderResolver struct {
	mock.Mock
}

func (m *MockSenderResolver) ResolveSender(ctx context.Context, rule *domain.AutomationRule) (uuid.UUID, error) {
	args := m.Called(ctx, rule)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

// --- Test setup ---

type testComponents struct {
	dispatcher    *Dispatcher
	worker        *Worker
	sender        *MessageSender
	rules         *MockRuleRepository
	logs          *MockDeliveryLogRepository
	members       *MockMemberRepository
	conversations *MockConversationRepository
	senders       *MockSenderResolver
}

func setupTest(t *testing.T) testComponents {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	rules := new(MockRuleRepository)
	logs := new(MockDeliveryLogRepository)
	members := new(MockMemberRepository)
	conversations := new(MockConversationRepository)
	senders := new(MockSenderResolver)

	sender := NewMessageSender(logs, conversations, senders, log)
	dispatcher := NewDispatcher(rules, logs, members, sender, log)
	worker := NewWorker(logs, rules, sender, log, WorkerConfig{
		PollingInterval: time.Minute,
		BatchSize:       50,
	})

	return testComponents{
		dispatcher:    dispatcher,
		worker:        worker,
		sender:        sender,
		rules:         rules,
		logs:          logs,
		members:       members,
		conversations: conversations,
		senders:       senders,
	}
}
