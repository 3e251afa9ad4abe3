package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/interview-coach/internal/types"
)

const breakdownColumns = `id, interview_id, user_id, breakdown, duration, created_at`

func scanBreakdown(row pgx.Row) (*types.StoredBreakdown, error) {
	var b types.StoredBreakdown
	var body []byte
	if err := row.Scan(&b.ID, &b.InterviewID, &b.UserID, &body, &b.Duration, &b.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, &b.Entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal breakdown: %w", err)
	}
	return &b, nil
}

// InsertBreakdown appends a detailed breakdown.
func (db *DB) InsertBreakdown(ctx context.Context, b types.StoredBreakdown) (*types.StoredBreakdown, error) {
	body, err := json.Marshal(b.Entries)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal breakdown: %w", err)
	}
	stored, err := scanBreakdown(db.pool.QueryRow(ctx,
		`INSERT INTO detailed_breakdowns (interview_id, user_id, breakdown, duration)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+breakdownColumns,
		b.InterviewID, b.UserID, body, b.Duration,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to insert breakdown: %w", err)
	}
	return stored, nil
}

// LatestBreakdown returns the newest breakdown for an interview, or nil, nil.
func (db *DB) LatestBreakdown(ctx context.Context, interviewID uuid.UUID) (*types.StoredBreakdown, error) {
	b, err := scanBreakdown(db.pool.QueryRow(ctx,
		`SELECT `+breakdownColumns+` FROM detailed_breakdowns WHERE interview_id = $1
		 ORDER BY created_at DESC, id DESC LIMIT 1`,
		interviewID,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest breakdown: %w", err)
	}
	return b, nil
}

// ListBreakdownsByUser returns every stored breakdown for a user, oldest first.
func (db *DB) ListBreakdownsByUser(ctx context.Context, userID uuid.UUID) ([]types.StoredBreakdown, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+breakdownColumns+` FROM detailed_breakdowns WHERE user_id = $1
		 ORDER BY created_at, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list breakdowns: %w", err)
	}
	defer rows.Close()

	var breakdowns []types.StoredBreakdown
	for rows.Next() {
		b, err := scanBreakdown(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan breakdown: %w", err)
		}
		breakdowns = append(breakdowns, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list breakdowns: %w", err)
	}
	return breakdowns, nil
}
