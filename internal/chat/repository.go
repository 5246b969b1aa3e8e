package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"go-dm/internal/apperr"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Append durably persists a message before returning; the id and created_at
// come back from the database so persisted order is the source of truth,
// not arrival order at the delivery layer.
func (r *Repository) Append(ctx context.Context, from, to int, text string) (*Message, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: message text is empty", apperr.ErrInvalidArgument)
	}

	msg := &Message{From: from, To: to, Text: text}
	query := `INSERT INTO messages (from_id, to_id, text) VALUES ($1, $2, $3) RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, from, to, text).Scan(&msg.ID, &msg.Timestamp)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, fmt.Errorf("%w: no such user", apperr.ErrInvalidArgument)
		}
		return nil, fmt.Errorf("%w: %v", apperr.ErrStore, err)
	}
	return msg, nil
}

// Between returns the full history for a pair, both directions, oldest first.
// No pagination; fine at this scale, a known limitation beyond it.
func (r *Repository) Between(ctx context.Context, a, b int) ([]Message, error) {
	query := `
		SELECT m.id, m.from_id, m.to_id, m.text, m.read, m.created_at, u.username
		FROM messages m
		JOIN users u ON u.id = m.from_id
		WHERE (m.from_id = $1 AND m.to_id = $2) OR (m.from_id = $2 AND m.to_id = $1)
		ORDER BY m.created_at ASC, m.id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, a, b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrStore, err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// MarkRead flips every unread message from counterpart to user. Idempotent;
// the returned count may be 0.
func (r *Repository) MarkRead(ctx context.Context, user, counterpart int) (int64, error) {
	query := `UPDATE messages SET read = TRUE WHERE from_id = $1 AND to_id = $2 AND NOT read`
	res, err := r.db.ExecContext(ctx, query, counterpart, user)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", apperr.ErrStore, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", apperr.ErrStore, err)
	}
	return n, nil
}

// ListConversations loads everything touching the user newest-first and runs
// the grouping pipeline over it, then resolves counterpart names.
func (r *Repository) ListConversations(ctx context.Context, user int) ([]Conversation, error) {
	msgs, err := r.allTouching(ctx, user)
	if err != nil {
		return nil, err
	}

	convs := buildConversations(user, msgs)

	for i := range convs {
		query := `SELECT username, email FROM users WHERE id = $1`
		err := r.db.QueryRowContext(ctx, query, convs[i].FriendID).
			Scan(&convs[i].Name, &convs[i].Email)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %v", apperr.ErrStore, err)
		}
	}
	return convs, nil
}

func (r *Repository) allTouching(ctx context.Context, user int) ([]Message, error) {
	// Newest first; buildConversations depends on this ordering.
	query := `
		SELECT m.id, m.from_id, m.to_id, m.text, m.read, m.created_at, u.username
		FROM messages m
		JOIN users u ON u.id = m.from_id
		WHERE m.from_id = $1 OR m.to_id = $1
		ORDER BY m.created_at DESC, m.id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, user)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrStore, err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]Message, error) {
	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.From, &m.To, &m.Text, &m.Read, &m.Timestamp, &m.SenderName); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
