package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/toddhamam/members-automation/internal/automation/domain"
)

// PgSenderResolver picks the identity a rule's message is sent as: the
// rule's fixed sender when configured, otherwise the longest-standing active
// administrator. The policy is deterministic so replies keep landing in the
// same thread.
type PgSenderResolver struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

func NewPgSenderResolver(db *pgxpool.Pool, logger *slog.Logger) *PgSenderResolver {
	return &PgSenderResolver{db: db, logger: logger}
}

func (r *PgSenderResolver) ResolveSender(ctx context.Context, rule *domain.AutomationRule) (uuid.UUID, error) {
	if rule.SenderID != nil {
		return *rule.SenderID, nil
	}

	query := `
		SELECT id
		FROM members
		WHERE is_admin AND is_active
		ORDER BY created_at ASC
		LIMIT 1
	`
	var id uuid.UUID
	if err := r.db.QueryRow(ctx, query).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, domain.ErrNoSenderAvailable
		}
		r.logger.ErrorContext(ctx, "Error resolving administrator sender", "error", err)
		return uuid.Nil, err
	}
	return id, nil
}
