package friend

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

func (r *Repository) AreFriends(ctx context.Context, a, b int) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM friendships WHERE user_id = $1 AND friend_id = $2)`
	if err := r.db.QueryRowContext(ctx, query, a, b).Scan(&exists); err != nil {
		return false, fmt.Errorf("%w: %v", apperr.ErrStore, err)
	}
	return exists, nil
}

func (r *Repository) HasPending(ctx context.Context, from, to int) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM friend_requests WHERE from_id = $1 AND to_id = $2)`
	if err := r.db.QueryRowContext(ctx, query, from, to).Scan(&exists); err != nil {
		return false, fmt.Errorf("%w: %v", apperr.ErrStore, err)
	}
	return exists, nil
}

func (r *Repository) CreatePending(ctx context.Context, from, to int) error {
	query := `INSERT INTO friend_requests (from_id, to_id) VALUES ($1, $2)`
	_, err := r.db.ExecContext(ctx, query, from, to)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505": // unique_violation
				return apperr.ErrDuplicateRequest
			case "23503": // foreign_key_violation
				return fmt.Errorf("%w: no such user", apperr.ErrInvalidArgument)
			}
		}
		return fmt.Errorf("%w: %v", apperr.ErrStore, err)
	}
	return nil
}

// Accept runs the whole transition in one transaction so a concurrent accept
// or reject of the same request resolves with exactly one winner: the DELETE
// rowcount arbitrates, the loser sees ErrNotFound.
func (r *Repository) Accept(ctx context.Context, user, from int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrStore, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM friend_requests WHERE from_id = $1 AND to_id = $2`, from, user)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrStore, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrStore, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: no pending request", apperr.ErrNotFound)
	}

	// A simultaneous reverse request would leave a pending row between two
	// users that are already friends; accepting cancels it as well.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM friend_requests WHERE from_id = $1 AND to_id = $2`, user, from); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrStore, err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO friendships (user_id, friend_id) VALUES ($1, $2), ($2, $1)
		 ON CONFLICT DO NOTHING`, user, from); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrStore, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrStore, err)
	}
	return nil
}

func (r *Repository) Reject(ctx context.Context, user, from int) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM friend_requests WHERE from_id = $1 AND to_id = $2`, from, user)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrStore, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrStore, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: no pending request", apperr.ErrNotFound)
	}
	return nil
}

func (r *Repository) Incoming(ctx context.Context, user int) ([]Request, error) {
	query := `
		SELECT fr.from_id, u.username, u.email, fr.created_at
		FROM friend_requests fr
		JOIN users u ON u.id = fr.from_id
		WHERE fr.to_id = $1
		ORDER BY fr.created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, user)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrStore, err)
	}
	defer rows.Close()

	var requests []Request
	for rows.Next() {
		var req Request
		if err := rows.Scan(&req.FromID, &req.Username, &req.Email, &req.CreatedAt); err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}
