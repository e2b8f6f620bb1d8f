package postgres

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/toddhamam/members-automation/internal/automation/domain"
)

// PgDeliveryLogRepository manages delivery-log rows. The dedup invariant is
// enforced by the database: a partial unique index over
// (automation_id, recipient_id, context_key) WHERE status <> 'failed'
// (see migrations), so the conflict-ignore insert below is atomic no matter
// how many processes race the same event.
type PgDeliveryLogRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

func NewPgDeliveryLogRepository(db *pgxpool.Pool, logger *slog.Logger) *PgDeliveryLogRepository {
	return &PgDeliveryLogRepository{db: db, logger: logger}
}

func (r *PgDeliveryLogRepository) Create(ctx context.Context, log *domain.DeliveryLog) error {
	query := `
		INSERT INTO delivery_logs
			(id, automation_id, recipient_id, context_key, trigger_data, status, scheduled_for, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (automation_id, recipient_id, context_key) WHERE status <> 'failed'
		DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query,
		log.ID, log.AutomationID, log.RecipientID, log.ContextKey, log.TriggerData,
		log.Status, log.ScheduledFor, log.CreatedAt, log.UpdatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error creating delivery log", "error", err, "automation_id", log.AutomationID)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyTriggered
	}
	return nil
}

func (r *PgDeliveryLogRepository) ExistsActive(ctx context.Context, automationID, recipientID uuid.UUID, contextKey string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM delivery_logs
			WHERE automation_id = $1 AND recipient_id = $2 AND context_key = $3 AND status <> 'failed'
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, automationID, recipientID, contextKey).Scan(&exists); err != nil {
		r.logger.ErrorContext(ctx, "Error checking delivery log existence", "error", err, "automation_id", automationID)
		return false, err
	}
	return exists, nil
}

func (r *PgDeliveryLogRepository) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE delivery_logs
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	tag, err := r.db.Exec(ctx, query, domain.DeliverySending, time.Now().UTC(), id, domain.DeliveryPending)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error claiming delivery log", "error", err, "delivery_log_id", id)
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgDeliveryLogRepository) AcquireDue(ctx context.Context, dueTime time.Time, limit int) ([]*domain.DeliveryLog, error) {
	query := `
		WITH due AS (
			SELECT id
			FROM delivery_logs
			WHERE status = $1 AND scheduled_for <= $2
			ORDER BY scheduled_for ASC
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		UPDATE delivery_logs dl
		SET status = $4, updated_at = $5
		FROM due
		WHERE dl.id = due.id
		RETURNING dl.id, dl.automation_id, dl.recipient_id, dl.context_key, dl.trigger_data,
			dl.status, dl.scheduled_for, dl.sent_at, dl.conversation_id, dl.message_id,
			dl.error_message, dl.created_at, dl.updated_at
	`
	now := time.Now().UTC()
	rows, err := r.db.Query(ctx, query, domain.DeliveryPending, dueTime, limit, domain.DeliverySending, now)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error acquiring due deliveries", "error", err)
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.DeliveryLog
	for rows.Next() {
		log := &domain.DeliveryLog{}
		if err := rows.Scan(
			&log.ID, &log.AutomationID, &log.RecipientID, &log.ContextKey, &log.TriggerData,
			&log.Status, &log.ScheduledFor, &log.SentAt, &log.ConversationID, &log.MessageID,
			&log.ErrorMessage, &log.CreatedAt, &log.UpdatedAt,
		); err != nil {
			r.logger.ErrorContext(ctx, "Error scanning acquired delivery row", "error", err)
			return nil, err
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating acquired delivery rows", "error", err)
		return nil, err
	}

	if len(logs) == 0 {
		return nil, domain.ErrNoDueDeliveries
	}

	// UPDATE ... FROM does not preserve the CTE's ordering.
	sort.Slice(logs, func(i, j int) bool { return logs[i].ScheduledFor.Before(logs[j].ScheduledFor) })
	return logs, nil
}

func (r *PgDeliveryLogRepository) MarkSent(ctx context.Context, id, conversationID, messageID uuid.UUID, sentAt time.Time) error {
	query := `
		UPDATE delivery_logs
		SET status = $1, sent_at = $2, conversation_id = $3, message_id = $4, error_message = NULL, updated_at = $5
		WHERE id = $6
	`
	tag, err := r.db.Exec(ctx, query, domain.DeliverySent, sentAt, conversationID, messageID, time.Now().UTC(), id)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error marking delivery as sent", "error", err, "delivery_log_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PgDeliveryLogRepository) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error {
	query := `
		UPDATE delivery_logs
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`
	tag, err := r.db.Exec(ctx, query, domain.DeliveryFailed, errorMessage, time.Now().UTC(), id)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error marking delivery as failed", "error", err, "delivery_log_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
