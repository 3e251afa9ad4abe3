package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/interview-coach/internal/types"
)

const turnColumns = `id, interview_id, sender, text, is_first_message, audio, audio_format, created_at, updated_at`

func scanTurn(row pgx.Row) (*types.Turn, error) {
	var t types.Turn
	var sender string
	var audio []byte
	var format *string
	err := row.Scan(&t.ID, &t.InterviewID, &sender, &t.Text, &t.IsFirstMessage,
		&audio, &format, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Sender = types.Sender(sender)
	if len(audio) > 0 {
		t.Audio = &types.Audio{Data: audio}
		if format != nil {
			t.Audio.Format = *format
		}
	}
	return &t, nil
}

func audioColumns(a *types.Audio) ([]byte, *string) {
	if a == nil || len(a.Data) == 0 {
		return nil, nil
	}
	format := a.Format
	return a.Data, &format
}

// UpsertGreeting stores the interview's single greeting turn, replacing the
// text and audio of an existing greeting in place.
func (db *DB) UpsertGreeting(ctx context.Context, interviewID uuid.UUID, text string, audio *types.Audio) (*types.Turn, error) {
	data, format := audioColumns(audio)
	t, err := scanTurn(db.pool.QueryRow(ctx,
		`INSERT INTO conversation_turns (interview_id, sender, text, is_first_message, audio, audio_format)
		 VALUES ($1, 'ai', $2, TRUE, $3, $4)
		 ON CONFLICT (interview_id) WHERE is_first_message
		 DO UPDATE SET text = EXCLUDED.text, audio = EXCLUDED.audio,
		    audio_format = EXCLUDED.audio_format, updated_at = clock_timestamp()
		 RETURNING `+turnColumns,
		interviewID, text, data, format,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert greeting: %w", err)
	}
	return t, nil
}

// AppendTurn appends a non-greeting turn.
func (db *DB) AppendTurn(ctx context.Context, interviewID uuid.UUID, sender types.Sender, text string, audio *types.Audio) (*types.Turn, error) {
	data, format := audioColumns(audio)
	t, err := scanTurn(db.pool.QueryRow(ctx,
		`INSERT INTO conversation_turns (interview_id, sender, text, is_first_message, audio, audio_format)
		 VALUES ($1, $2, $3, FALSE, $4, $5)
		 RETURNING `+turnColumns,
		interviewID, string(sender), text, data, format,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to append turn: %w", err)
	}
	return t, nil
}

// ListTurns returns an interview's turns in creation order.
func (db *DB) ListTurns(ctx context.Context, interviewID uuid.UUID) ([]types.Turn, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+turnColumns+` FROM conversation_turns WHERE interview_id = $1
		 ORDER BY created_at, seq`,
		interviewID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}
	defer rows.Close()

	var turns []types.Turn
	for rows.Next() {
		t, err := scanTurn(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turns = append(turns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}
	return turns, nil
}
