package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/toddhamam/members-automation/internal/automation/domain"
)

// WorkerConfig holds configuration specific to the delivery worker.
type WorkerConfig struct {
	PollingInterval time.Duration `mapstructure:"WORKER_POLLING_INTERVAL"`
	BatchSize       int           `mapstructure:"WORKER_BATCH_SIZE"`
}

// Worker drains due deferred deliveries. Each ProcessPendingAutomations call
// claims one batch of pending rows whose scheduled time has passed, runs the
// send operation for each and finalizes the row. Rows are claimed atomically
// (pending -> sending), so concurrent worker instances never double-send.
type Worker struct {
	logs   domain.DeliveryLogRepository
	rules  domain.RuleRepository
	sender *MessageSender
	logger *slog.Logger
	config WorkerConfig
}

// NewWorker creates a Worker.
func NewWorker(
	logs domain.DeliveryLogRepository,
	rules domain.RuleRepository,
	sender *MessageSender,
	logger *slog.Logger,
	cfg WorkerConfig,
) *Worker {
	return &Worker{
		logs:   logs,
		rules:  rules,
		sender: sender,
		logger: logger.With("component", "delivery_worker"),
		config: cfg,
	}
}

// ProcessPendingAutomations claims and processes one batch of due
// deliveries, returning the number of rows processed. Send failures land on
// the rows, not in the return value; only a failure to acquire the batch is
// reported as an error.
func (w *Worker) ProcessPendingAutomations(ctx context.Context) (int, error) {
	due, err := w.logs.AcquireDue(ctx, time.Now().UTC(), w.config.BatchSize)
	if err != nil {
		if errors.Is(err, domain.ErrNoDueDeliveries) {
			return 0, nil
		}
		return 0, fmt.Errorf("acquire due deliveries: %w", err)
	}

	w.logger.InfoContext(ctx, "Acquired due deliveries", "count", len(due))

	processed := 0
	for _, log := range due {
		processed++
		w.processDelivery(ctx, log)
	}
	return processed, nil
}

func (w *Worker) processDelivery(ctx context.Context, log *domain.DeliveryLog) {
	rule, err := w.rules.GetByID(ctx, log.AutomationID)
	if err != nil {
		// The rule was deleted after the delivery was scheduled; without its
		// template and sender there is nothing to send.
		w.logger.WarnContext(ctx, "Automation rule behind delivery no longer exists",
			"delivery_log_id", log.ID, "automation_id", log.AutomationID, "error", err)
		w.finalizeFailed(ctx, log, fmt.Sprintf("automation rule %s not found", log.AutomationID))
		return
	}

	tc, err := log.Context()
	if err != nil {
		w.logger.ErrorContext(ctx, "Delivery carries unreadable trigger data",
			"delivery_log_id", log.ID, "error", err)
		w.finalizeFailed(ctx, log, "trigger data deserialization failed: "+err.Error())
		return
	}

	sent, err := w.sender.Deliver(ctx, rule, log, tc)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to finalize delivery log", "delivery_log_id", log.ID, "error", err)
	}
	if sent {
		deliveriesProcessedCounter.WithLabelValues(outcomeSent).Inc()
	} else {
		deliveriesProcessedCounter.WithLabelValues(outcomeFailed).Inc()
	}
}

func (w *Worker) finalizeFailed(ctx context.Context, log *domain.DeliveryLog, reason string) {
	if err := w.logs.MarkFailed(ctx, log.ID, reason); err != nil {
		w.logger.ErrorContext(ctx, "Failed to mark delivery as failed", "delivery_log_id", log.ID, "error", err)
	}
	deliveriesProcessedCounter.WithLabelValues(outcomeFailed).Inc()
}
