package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/toddhamam/members-automation/internal/automation/domain"
)

// Dispatcher reacts to one lifecycle event: it matches enabled rules,
// deduplicates against the delivery log, records one row per firing rule and
// either sends immediately or leaves the row for the worker.
//
// TriggerAutomation is fire-and-forget by contract: every failure is logged
// and isolated to the rule it occurred in, nothing propagates to the caller.
type Dispatcher struct {
	rules   domain.RuleRepository
	logs    domain.DeliveryLogRepository
	members domain.MemberRepository
	sender  *MessageSender
	logger  *slog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(
	rules domain.RuleRepository,
	logs domain.DeliveryLogRepository,
	members domain.MemberRepository,
	sender *MessageSender,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		rules:   rules,
		logs:    logs,
		members: members,
		sender:  sender,
		logger:  logger.With("component", "dispatcher"),
	}
}

// TriggerAutomation processes one event against all matching enabled rules.
func (d *Dispatcher) TriggerAutomation(ctx context.Context, t domain.TriggerType, tc domain.TriggerContext) {
	rules, err := d.rules.ListEnabledByTriggerType(ctx, t)
	if err != nil {
		d.logger.ErrorContext(ctx, "Failed to load automation rules", "trigger_type", t, "error", err)
		return
	}

	matched := rules[:0:0]
	for _, rule := range rules {
		if rule.Matches(&tc) {
			matched = append(matched, rule)
		}
	}
	if len(matched) == 0 {
		return
	}

	member, err := d.members.GetByID(ctx, tc.RecipientID)
	if err != nil {
		if errors.Is(err, domain.ErrRecipientNotFound) {
			// Cannot template a message without recipient data: the whole
			// event is skipped, no rows are written, nothing is retried.
			d.logger.WarnContext(ctx, "Recipient has no profile, skipping event",
				"trigger_type", t, "recipient_id", tc.RecipientID)
		} else {
			d.logger.ErrorContext(ctx, "Failed to load recipient profile",
				"trigger_type", t, "recipient_id", tc.RecipientID, "error", err)
		}
		return
	}

	now := time.Now().UTC()
	tc.Enrich(member, member.DaysSinceJoin(now))
	tc.ContextKey = tc.Key(t)

	for _, rule := range matched {
		d.processRule(ctx, rule, tc, now)
	}
}

// processRule handles one matched rule independently of its siblings.
func (d *Dispatcher) processRule(ctx context.Context, rule *domain.AutomationRule, tc domain.TriggerContext, now time.Time) {
	triggerType := string(rule.TriggerType)

	exists, err := d.logs.ExistsActive(ctx, rule.ID, tc.RecipientID, tc.ContextKey)
	if err != nil {
		d.logger.ErrorContext(ctx, "Dedup check failed", "automation_id", rule.ID, "error", err)
		ruleOutcomesCounter.WithLabelValues(triggerType, outcomeSkipped).Inc()
		return
	}
	if exists {
		d.logger.DebugContext(ctx, "Automation already triggered, skipping",
			"automation_id", rule.ID, "recipient_id", tc.RecipientID, "context_key", tc.ContextKey)
		ruleOutcomesCounter.WithLabelValues(triggerType, outcomeDeduplicated).Inc()
		return
	}

	log, err := domain.NewDeliveryLog(rule, &tc, now)
	if err != nil {
		d.logger.ErrorContext(ctx, "Failed to serialize trigger context", "automation_id", rule.ID, "error", err)
		ruleOutcomesCounter.WithLabelValues(triggerType, outcomeSkipped).Inc()
		return
	}

	if err := d.logs.Create(ctx, log); err != nil {
		if errors.Is(err, domain.ErrAlreadyTriggered) {
			// The read-side check raced with a concurrent event; the unique
			// index made the insert the losing side. Same outcome as the
			// fast path above.
			ruleOutcomesCounter.WithLabelValues(triggerType, outcomeDeduplicated).Inc()
			return
		}
		d.logger.ErrorContext(ctx, "Failed to create delivery log", "automation_id", rule.ID, "error", err)
		ruleOutcomesCounter.WithLabelValues(triggerType, outcomeSkipped).Inc()
		return
	}

	if rule.DelayMinutes > 0 {
		d.logger.InfoContext(ctx, "Delivery scheduled",
			"automation_id", rule.ID, "delivery_log_id", log.ID, "scheduled_for", log.ScheduledFor)
		ruleOutcomesCounter.WithLabelValues(triggerType, outcomeScheduled).Inc()
		return
	}

	claimed, err := d.logs.Claim(ctx, log.ID)
	if err != nil {
		d.logger.ErrorContext(ctx, "Failed to claim delivery for immediate send",
			"delivery_log_id", log.ID, "error", err)
		return
	}
	if !claimed {
		// A worker tick picked the row up between insert and claim; it owns
		// the send now.
		return
	}

	sent, err := d.sender.Deliver(ctx, rule, log, &tc)
	if err != nil {
		d.logger.ErrorContext(ctx, "Failed to finalize delivery log",
			"delivery_log_id", log.ID, "error", err)
	}
	if sent {
		ruleOutcomesCounter.WithLabelValues(triggerType, outcomeSent).Inc()
	} else {
		ruleOutcomesCounter.WithLabelValues(triggerType, outcomeFailed).Inc()
	}
}
