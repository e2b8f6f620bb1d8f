package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/toddhamam/members-automation/internal/automation/domain"
)

// PgConversationRepository finds and creates direct-message threads in the
// portal's conversation store. The strategy decides which existing thread
// counts as a match; creation always inserts the conversation and both
// participants in one transaction so a half-created thread never survives.
type PgConversationRepository struct {
	db       *pgxpool.Pool
	logger   *slog.Logger
	strategy domain.ConversationStrategy
}

func NewPgConversationRepository(db *pgxpool.Pool, logger *slog.Logger, strategy domain.ConversationStrategy) *PgConversationRepository {
	return &PgConversationRepository{db: db, logger: logger, strategy: strategy}
}

func (r *PgConversationRepository) Resolve(ctx context.Context, senderID, recipientID uuid.UUID) (uuid.UUID, error) {
	var (
		conversationID uuid.UUID
		err            error
	)
	switch r.strategy {
	case domain.StrategyPerSender:
		conversationID, err = r.findPairThread(ctx, senderID, recipientID)
	default:
		conversationID, err = r.findAdminThread(ctx, senderID, recipientID)
	}
	if err == nil {
		return conversationID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.logger.ErrorContext(ctx, "Error looking up conversation", "error", err, "recipient_id", recipientID)
		return uuid.Nil, err
	}

	return r.create(ctx, senderID, recipientID)
}

// findPairThread matches a thread containing exactly this sender/recipient
// pair.
func (r *PgConversationRepository) findPairThread(ctx context.Context, senderID, recipientID uuid.UUID) (uuid.UUID, error) {
	query := `
		SELECT p1.conversation_id
		FROM participants p1
		JOIN participants p2 ON p2.conversation_id = p1.conversation_id
		WHERE p1.member_id = $1 AND p2.member_id = $2
		ORDER BY p1.joined_at ASC
		LIMIT 1
	`
	var id uuid.UUID
	err := r.db.QueryRow(ctx, query, senderID, recipientID).Scan(&id)
	return id, err
}

// findAdminThread matches the recipient's existing admin thread regardless
// of which administrator opened it, adding the sender as a participant when
// missing so the message lands in the member's one thread instead of forking
// a second one.
func (r *PgConversationRepository) findAdminThread(ctx context.Context, senderID, recipientID uuid.UUID) (uuid.UUID, error) {
	query := `
		SELECT p.conversation_id
		FROM participants p
		JOIN participants a ON a.conversation_id = p.conversation_id AND a.is_admin
		WHERE p.member_id = $1
		ORDER BY p.joined_at ASC
		LIMIT 1
	`
	var id uuid.UUID
	if err := r.db.QueryRow(ctx, query, recipientID).Scan(&id); err != nil {
		return uuid.Nil, err
	}

	insert := `
		INSERT INTO participants (conversation_id, member_id, is_admin, joined_at)
		VALUES ($1, $2, TRUE, $3)
		ON CONFLICT (conversation_id, member_id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, insert, id, senderID, time.Now().UTC()); err != nil {
		return uuid.Nil, fmt.Errorf("add sender to thread: %w", err)
	}
	return id, nil
}

func (r *PgConversationRepository) create(ctx context.Context, senderID, recipientID uuid.UUID) (uuid.UUID, error) {
	conversationID := uuid.New()
	now := time.Now().UTC()

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO conversations (id, created_at) VALUES ($1, $2)`,
			conversationID, now,
		); err != nil {
			return fmt.Errorf("insert conversation: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO participants (conversation_id, member_id, is_admin, joined_at) VALUES ($1, $2, TRUE, $3), ($1, $4, FALSE, $3)`,
			conversationID, senderID, now, recipientID,
		); err != nil {
			return fmt.Errorf("insert participants: %w", err)
		}
		return nil
	})
	if err != nil {
		r.logger.ErrorContext(ctx, "Error creating conversation", "error", err,
			"sender_id", senderID, "recipient_id", recipientID)
		return uuid.Nil, fmt.Errorf("%w: %w", domain.ErrConversationCreation, err)
	}

	r.logger.InfoContext(ctx, "Conversation created", "conversation_id", conversationID,
		"sender_id", senderID, "recipient_id", recipientID)
	return conversationID, nil
}

func (r *PgConversationRepository) AppendMessage(ctx context.Context, conversationID, senderID uuid.UUID, body string) (uuid.UUID, error) {
	messageID := uuid.New()
	query := `
		INSERT INTO messages (id, conversation_id, sender_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.Exec(ctx, query, messageID, conversationID, senderID, body, time.Now().UTC()); err != nil {
		r.logger.ErrorContext(ctx, "Error appending message", "error", err, "conversation_id", conversationID)
		return uuid.Nil, err
	}
	return messageID, nil
}
