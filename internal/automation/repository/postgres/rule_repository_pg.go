package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/toddhamam/members-automation/internal/automation/domain"
)

// PgRuleRepository reads automation rules from the portal database.
type PgRuleRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

func NewPgRuleRepository(db *pgxpool.Pool, logger *slog.Logger) *PgRuleRepository {
	return &PgRuleRepository{db: db, logger: logger}
}

const ruleColumns = `id, name, trigger_type, trigger_config, message_template, sender_id, delay_minutes, is_enabled, created_at, updated_at`

func (r *PgRuleRepository) ListEnabledByTriggerType(ctx context.Context, t domain.TriggerType) ([]*domain.AutomationRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM automation_rules
		WHERE trigger_type = $1 AND is_enabled
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, t)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error listing automation rules", "error", err, "trigger_type", t)
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.AutomationRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			r.logger.ErrorContext(ctx, "Error scanning automation rule row", "error", err)
			return nil, err
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating automation rule rows", "error", err)
		return nil, err
	}
	return rules, nil
}

func (r *PgRuleRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.AutomationRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM automation_rules WHERE id = $1`
	rule, err := scanRule(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Error getting automation rule by ID", "error", err, "rule_id", id)
		return nil, err
	}
	return rule, nil
}

func scanRule(row pgx.Row) (*domain.AutomationRule, error) {
	rule := &domain.AutomationRule{}
	var configJSON []byte
	var senderID uuid.NullUUID
	if err := row.Scan(
		&rule.ID, &rule.Name, &rule.TriggerType, &configJSON, &rule.MessageTemplate,
		&senderID, &rule.DelayMinutes, &rule.IsEnabled, &rule.CreatedAt, &rule.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if senderID.Valid {
		id := senderID.UUID
		rule.SenderID = &id
	}
	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &rule.TriggerConfig); err != nil {
			return nil, fmt.Errorf("decode trigger_config: %w", err)
		}
	}
	return rule, nil
}
