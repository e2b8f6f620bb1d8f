package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/toddhamam/members-automation/internal/automation/domain"
)

func TestEventConsumer_Handle_RoutesEvents(t *testing.T) {
	recipientID := uuid.New()

	testCases := []struct {
		name    string
		payload string
		trigger domain.TriggerType
	}{
		{
			name:    "signup routes to welcome",
			payload: fmt.Sprintf(`{"event":"member.signed_up","recipient_id":%q}`, recipientID),
			trigger: domain.TriggerWelcome,
		},
		{
			name:    "course start routes with product",
			payload: fmt.Sprintf(`{"event":"course.started","recipient_id":%q,"product_id":"atlas-101","product_name":"Atlas"}`, recipientID),
			trigger: domain.TriggerCourseStarted,
		},
		{
			name:    "progress milestone routes to its trigger",
			payload: fmt.Sprintf(`{"event":"course.progress","recipient_id":%q,"product_id":"atlas-101","progress_percent":75}`, recipientID),
			trigger: domain.TriggerCourseProgress75,
		},
		{
			name:    "completion routes to course_completed",
			payload: fmt.Sprintf(`{"event":"course.completed","recipient_id":%q,"product_id":"atlas-101"}`, recipientID),
			trigger: domain.TriggerCourseCompleted,
		},
		{
			name:    "inactivity routes by day threshold",
			payload: fmt.Sprintf(`{"event":"member.inactive","recipient_id":%q,"days":14}`, recipientID),
			trigger: domain.TriggerInactivity14d,
		},
		{
			name:    "anniversary routes by mark",
			payload: fmt.Sprintf(`{"event":"member.anniversary","recipient_id":%q,"days":365}`, recipientID),
			trigger: domain.TriggerAnniversary1y,
		},
		{
			name:    "first post routes to first_community_post",
			payload: fmt.Sprintf(`{"event":"community.first_post","recipient_id":%q}`, recipientID),
			trigger: domain.TriggerFirstCommunityPost,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			c := setupTest(t)
			consumer := NewEventConsumer(c.dispatcher, slog.New(slog.NewTextHandler(io.Discard, nil)))

			c.rules.On("ListEnabledByTriggerType", mock.Anything, tt.trigger).
				Return([]*domain.AutomationRule{}, nil).Once()

			consumer.Handle(context.Background(), []byte(tt.payload))

			c.rules.AssertExpectations(t)
		})
	}
}

func TestEventConsumer_Handle_PurchaseFansOut(t *testing.T) {
	c := setupTest(t)
	consumer := NewEventConsumer(c.dispatcher, slog.New(slog.NewTextHandler(io.Discard, nil)))

	recipientID := uuid.New()
	c.rules.On("ListEnabledByTriggerType", mock.Anything, domain.TriggerPurchase).
		Return([]*domain.AutomationRule{}, nil).Once()
	c.rules.On("ListEnabledByTriggerType", mock.Anything, domain.TriggerPurchaseSpecific).
		Return([]*domain.AutomationRule{}, nil).Once()

	payload := fmt.Sprintf(`{"event":"member.purchased","recipient_id":%q,"product_id":"atlas-101","product_name":"Atlas"}`, recipientID)
	consumer.Handle(context.Background(), []byte(payload))

	c.rules.AssertExpectations(t)
}

func TestEventConsumer_Handle_DropsBadInput(t *testing.T) {
	testCases := []struct {
		name    string
		payload string
	}{
		{"malformed json", `{"event":`},
		{"missing recipient", `{"event":"member.signed_up"}`},
		{"unknown event", fmt.Sprintf(`{"event":"member.renamed","recipient_id":%q}`, uuid.New())},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			c := setupTest(t)
			consumer := NewEventConsumer(c.dispatcher, slog.New(slog.NewTextHandler(io.Discard, nil)))

			consumer.Handle(context.Background(), []byte(tt.payload))

			c.rules.AssertNotCalled(t, "ListEnabledByTriggerType", mock.Anything, mock.Anything)
		})
	}
}
