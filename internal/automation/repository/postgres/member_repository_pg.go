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

// PgMemberRepository reads member profiles from the portal database.
type PgMemberRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

func NewPgMemberRepository(db *pgxpool.Pool, logger *slog.Logger) *PgMemberRepository {
	return &PgMemberRepository{db: db, logger: logger}
}

func (r *PgMemberRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Member, error) {
	query := `
		SELECT id, first_name, last_name, email, is_admin, is_active, created_at
		FROM members
		WHERE id = $1
	`
	m := &domain.Member{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&m.ID, &m.FirstName, &m.LastName, &m.Email, &m.IsAdmin, &m.IsActive, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecipientNotFound
		}
		r.logger.ErrorContext(ctx, "Error getting member by ID", "error", err, "member_id", id)
		return nil, err
	}
	return m, nil
}
