package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/interview-coach/internal/types"
)

const reportColumns = `id, interview_id, user_id, report, raw_text, elapsed_seconds, created_at`

func scanReport(row pgx.Row) (*types.StoredReport, error) {
	var r types.StoredReport
	var body []byte
	if err := row.Scan(&r.ID, &r.InterviewID, &r.UserID, &body, &r.RawText, &r.ElapsedSeconds, &r.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, &r.Report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &r, nil
}

// InsertReport appends a structured report. Earlier reports are kept.
func (db *DB) InsertReport(ctx context.Context, r types.StoredReport) (*types.StoredReport, error) {
	body, err := json.Marshal(r.Report)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	stored, err := scanReport(db.pool.QueryRow(ctx,
		`INSERT INTO interview_reports (interview_id, user_id, report, raw_text, elapsed_seconds)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+reportColumns,
		r.InterviewID, r.UserID, body, r.RawText, r.ElapsedSeconds,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to insert report: %w", err)
	}
	return stored, nil
}

// LatestReport returns the newest report for an interview, or nil, nil.
func (db *DB) LatestReport(ctx context.Context, interviewID uuid.UUID) (*types.StoredReport, error) {
	r, err := scanReport(db.pool.QueryRow(ctx,
		`SELECT `+reportColumns+` FROM interview_reports WHERE interview_id = $1
		 ORDER BY created_at DESC, id DESC LIMIT 1`,
		interviewID,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest report: %w", err)
	}
	return r, nil
}

// ListReportsByUser returns every stored report for a user, oldest first.
func (db *DB) ListReportsByUser(ctx context.Context, userID uuid.UUID) ([]types.StoredReport, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+reportColumns+` FROM interview_reports WHERE user_id = $1
		 ORDER BY created_at, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var reports []types.StoredReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, nil
}
