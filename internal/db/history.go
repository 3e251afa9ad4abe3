package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/interview-coach/internal/types"
)

// InterviewHistory returns every interview of a user, newest first, each with
// its latest report and breakdown.
func (db *DB) InterviewHistory(ctx context.Context, userID uuid.UUID) ([]types.HistoryEntry, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT i.id, i.user_id, i.domain, i.experience, i.interview_type, i.mode, i.difficulty,
		        i.completion, i.elapsed_seconds, i.created_at, i.updated_at,
		        r.id, r.report, r.elapsed_seconds, r.created_at,
		        b.id, b.breakdown, b.duration, b.created_at
		 FROM interviews i
		 LEFT JOIN LATERAL (
		    SELECT id, report, elapsed_seconds, created_at FROM interview_reports
		    WHERE interview_id = i.id ORDER BY created_at DESC, id DESC LIMIT 1
		 ) r ON TRUE
		 LEFT JOIN LATERAL (
		    SELECT id, breakdown, duration, created_at FROM detailed_breakdowns
		    WHERE interview_id = i.id ORDER BY created_at DESC, id DESC LIMIT 1
		 ) b ON TRUE
		 WHERE i.user_id = $1
		 ORDER BY i.created_at DESC, i.id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []types.HistoryEntry
	for rows.Next() {
		var (
			e          types.HistoryEntry
			completion string
			reportID   *uuid.UUID
			reportBody []byte
			elapsed    *int
			reportAt   *time.Time
			bdID       *uuid.UUID
			bdBody     []byte
			duration   *int
			bdAt       *time.Time
		)
		in := &e.Interview
		if err := rows.Scan(&in.ID, &in.UserID, &in.Domain, &in.Experience, &in.InterviewType,
			&in.Mode, &in.Difficulty, &completion, &in.ElapsedSeconds, &in.CreatedAt, &in.UpdatedAt,
			&reportID, &reportBody, &elapsed, &reportAt,
			&bdID, &bdBody, &duration, &bdAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		in.Completion = types.Completion(completion)

		if reportID != nil {
			r := &types.StoredReport{ID: *reportID, InterviewID: in.ID, UserID: in.UserID, ElapsedSeconds: *elapsed, CreatedAt: *reportAt}
			if err := json.Unmarshal(reportBody, &r.Report); err != nil {
				return nil, fmt.Errorf("failed to unmarshal report: %w", err)
			}
			e.Report = r
		}
		if bdID != nil {
			b := &types.StoredBreakdown{ID: *bdID, InterviewID: in.ID, UserID: in.UserID, Duration: *duration, CreatedAt: *bdAt}
			if err := json.Unmarshal(bdBody, &b.Entries); err != nil {
				return nil, fmt.Errorf("failed to unmarshal breakdown: %w", err)
			}
			e.Breakdown = b
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	return entries, nil
}
