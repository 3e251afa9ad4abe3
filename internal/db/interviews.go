package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/interview-coach/internal/types"
)

const interviewColumns = `id, user_id, domain, experience, interview_type, mode, difficulty,
	completion, elapsed_seconds, created_at, updated_at`

func scanInterview(row pgx.Row) (*types.Interview, error) {
	var in types.Interview
	var completion string
	err := row.Scan(&in.ID, &in.UserID, &in.Domain, &in.Experience, &in.InterviewType,
		&in.Mode, &in.Difficulty, &completion, &in.ElapsedSeconds, &in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		return nil, err
	}
	in.Completion = types.Completion(completion)
	return &in, nil
}

// CreateInterview inserts a pending interview and returns the stored record.
func (db *DB) CreateInterview(ctx context.Context, in types.Interview) (*types.Interview, error) {
	stored, err := scanInterview(db.pool.QueryRow(ctx,
		`INSERT INTO interviews (user_id, domain, experience, interview_type, mode, difficulty, completion)
		 VALUES ($1, $2, $3, $4, $5, $6, 'pending')
		 RETURNING `+interviewColumns,
		in.UserID, in.Domain, in.Experience, in.InterviewType, in.Mode, in.Difficulty,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create interview: %w", err)
	}
	return stored, nil
}

// GetInterview retrieves an interview by ID. Returns nil, nil when it does not exist.
func (db *DB) GetInterview(ctx context.Context, id uuid.UUID) (*types.Interview, error) {
	in, err := scanInterview(db.pool.QueryRow(ctx,
		`SELECT `+interviewColumns+` FROM interviews WHERE id = $1`, id,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get interview: %w", err)
	}
	return in, nil
}

// ListInterviewsByUser returns a user's interviews, newest first.
func (db *DB) ListInterviewsByUser(ctx context.Context, userID uuid.UUID) ([]types.Interview, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+interviewColumns+` FROM interviews WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list interviews: %w", err)
	}
	defer rows.Close()

	var interviews []types.Interview
	for rows.Next() {
		in, err := scanInterview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan interview: %w", err)
		}
		interviews = append(interviews, *in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list interviews: %w", err)
	}
	return interviews, nil
}

// UpdateInterviewTimer overwrites the elapsed-time counter and, when completion
// is non-nil, the completion status. Returns nil, nil when the interview does not exist.
func (db *DB) UpdateInterviewTimer(ctx context.Context, id uuid.UUID, elapsedSeconds int, completion *types.Completion) (*types.Interview, error) {
	var status *string
	if completion != nil {
		s := string(*completion)
		status = &s
	}
	in, err := scanInterview(db.pool.QueryRow(ctx,
		`UPDATE interviews SET
		    elapsed_seconds = $2,
		    completion = COALESCE($3, completion),
		    updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+interviewColumns,
		id, elapsedSeconds, status,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update interview timer: %w", err)
	}
	return in, nil
}

// SetInterviewCompletion sets the completion status.
func (db *DB) SetInterviewCompletion(ctx context.Context, id uuid.UUID, completion types.Completion) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE interviews SET completion = $2, updated_at = NOW() WHERE id = $1`,
		id, string(completion),
	)
	if err != nil {
		return fmt.Errorf("failed to set interview completion: %w", err)
	}
	return nil
}

// DeleteInterview deletes an interview with its turns, reports, breakdowns and
// leases. Reports whether the interview existed.
func (db *DB) DeleteInterview(ctx context.Context, id uuid.UUID) (bool, error) {
	var deleted bool
	err := db.withTx(ctx, func(tx pgx.Tx) error {
		for _, stmt := range []string{
			`DELETE FROM interview_leases WHERE interview_id = $1`,
			`DELETE FROM detailed_breakdowns WHERE interview_id = $1`,
			`DELETE FROM interview_reports WHERE interview_id = $1`,
			`DELETE FROM conversation_turns WHERE interview_id = $1`,
		} {
			if _, err := tx.Exec(ctx, stmt, id); err != nil {
				return fmt.Errorf("failed to delete interview data: %w", err)
			}
		}
		result, err := tx.Exec(ctx, `DELETE FROM interviews WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete interview: %w", err)
		}
		deleted = result.RowsAffected() > 0
		return nil
	})
	return deleted, err
}
