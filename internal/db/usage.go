package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UsageDay returns the UTC calendar day t falls in, as midnight UTC.
func UsageDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NextReset returns the UTC midnight after t.
func NextReset(t time.Time) time.Time {
	return UsageDay(t).AddDate(0, 0, 1)
}

// ChargeAction counts one AI action against the user's daily limit. A non-empty actionID that
// was already charged on the same UTC day is allowed again without a new charge, so the several
// model calls of one user action cost one unit.
func (db *DB) ChargeAction(ctx context.Context, userID uuid.UUID, actionType, actionID string, limit int, now time.Time) (*Charge, error) {
	day := UsageDay(now)
	charge := &Charge{Limit: limit, ResetsAt: NextReset(now)}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin usage transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// serializes concurrent charges of one user
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, userID.String()); err != nil {
		return nil, fmt.Errorf("failed to lock usage: %w", err)
	}

	var seen bool
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(BOOL_OR(action_id = $3), FALSE)
		   FROM usage_actions WHERE user_id = $1 AND day = $2`,
		userID, day, actionID,
	).Scan(&charge.Used, &seen)
	if err != nil {
		return nil, fmt.Errorf("failed to count usage: %w", err)
	}

	switch {
	case actionID != "" && seen:
		charge.Allowed = true
		return charge, nil
	case charge.Used >= limit:
		return charge, nil
	}

	var id any
	if actionID != "" {
		id = actionID
	}
	if actionType == "" {
		actionType = "default"
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO usage_actions (user_id, day, action_type, action_id, created_at) VALUES ($1, $2, $3, $4, $5)`,
		userID, day, actionType, id, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record usage: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit usage: %w", err)
	}
	charge.Allowed, charge.Charged = true, true
	charge.Used++
	return charge, nil
}

// UsageStatus reports the user's allowance for the UTC day containing now.
func (db *DB) UsageStatus(ctx context.Context, userID uuid.UUID, limit int, now time.Time) (*Charge, error) {
	charge := &Charge{Limit: limit, ResetsAt: NextReset(now)}
	err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM usage_actions WHERE user_id = $1 AND day = $2`,
		userID, UsageDay(now),
	).Scan(&charge.Used)
	if err != nil {
		return nil, fmt.Errorf("failed to count usage: %w", err)
	}
	charge.Allowed = charge.Used < limit
	return charge, nil
}
