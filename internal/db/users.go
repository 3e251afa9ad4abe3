package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jonathan/interview-coach/internal/types"
)

const userColumns = `id, name, email, bio, created_at, updated_at`

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func scanUser(row pgx.Row) (*types.User, error) {
	var u types.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Bio, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new user
func (db *DB) CreateUser(ctx context.Context, req types.CreateUserRequest) (*types.User, error) {
	u, err := scanUser(db.pool.QueryRow(ctx,
		`INSERT INTO users (name, email, bio) VALUES ($1, $2, $3)
		 RETURNING `+userColumns,
		req.Name, req.Email, req.Bio,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, types.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

// GetUser retrieves a user by ID. Returns nil, nil when the user does not exist.
func (db *DB) GetUser(ctx context.Context, id uuid.UUID) (*types.User, error) {
	u, err := scanUser(db.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// UpdateUser applies the non-nil profile fields. Returns nil, nil when the user does not exist.
func (db *DB) UpdateUser(ctx context.Context, id uuid.UUID, req types.UpdateProfileRequest) (*types.User, error) {
	u, err := scanUser(db.pool.QueryRow(ctx,
		`UPDATE users SET
		    name = COALESCE($2, name),
		    email = COALESCE($3, email),
		    bio = COALESCE($4, bio),
		    updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+userColumns,
		id, req.Name, req.Email, req.Bio,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		if isUniqueViolation(err) {
			return nil, types.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return u, nil
}

// DeleteUser deletes a user together with every interview, turn, report,
// breakdown and lease it owns. Reports whether the user existed.
func (db *DB) DeleteUser(ctx context.Context, id uuid.UUID) (bool, error) {
	var deleted bool
	err := db.withTx(ctx, func(tx pgx.Tx) error {
		for _, stmt := range []string{
			`DELETE FROM interview_leases WHERE interview_id IN (SELECT id FROM interviews WHERE user_id = $1)`,
			`DELETE FROM detailed_breakdowns WHERE interview_id IN (SELECT id FROM interviews WHERE user_id = $1)`,
			`DELETE FROM interview_reports WHERE interview_id IN (SELECT id FROM interviews WHERE user_id = $1)`,
			`DELETE FROM conversation_turns WHERE interview_id IN (SELECT id FROM interviews WHERE user_id = $1)`,
			`DELETE FROM interviews WHERE user_id = $1`,
		} {
			if _, err := tx.Exec(ctx, stmt, id); err != nil {
				return fmt.Errorf("failed to delete user data: %w", err)
			}
		}
		result, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		deleted = result.RowsAffected() > 0
		return nil
	})
	return deleted, err
}
