package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AcquireLease takes the (interview, scope) lease for holder if it is free or
// expired. Reports false when another holder has a live lease.
func (db *DB) AcquireLease(ctx context.Context, interviewID uuid.UUID, scope, holder string, ttl time.Duration) (bool, error) {
	var got string
	err := db.pool.QueryRow(ctx,
		`INSERT INTO interview_leases (interview_id, scope, holder, expires_at)
		 VALUES ($1, $2, $3, NOW() + make_interval(secs => $4))
		 ON CONFLICT (interview_id, scope) DO UPDATE
		    SET holder = EXCLUDED.holder, expires_at = EXCLUDED.expires_at
		    WHERE interview_leases.expires_at < NOW() OR interview_leases.holder = EXCLUDED.holder
		 RETURNING holder`,
		interviewID, scope, holder, ttl.Seconds(),
	).Scan(&got)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to acquire lease: %w", err)
	}
	return got == holder, nil
}

// ReleaseLease drops the lease if holder still owns it.
func (db *DB) ReleaseLease(ctx context.Context, interviewID uuid.UUID, scope, holder string) error {
	_, err := db.pool.Exec(ctx,
		`DELETE FROM interview_leases WHERE interview_id = $1 AND scope = $2 AND holder = $3`,
		interviewID, scope, holder,
	)
	if err != nil {
		return fmt.Errorf("failed to release lease: %w", err)
	}
	return nil
}
