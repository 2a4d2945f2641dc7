package db

import (
	"context"
	"encoding/json"
	"fmt"
)

// InsertFeedback stores a client rating.
func (db *DB) InsertFeedback(ctx context.Context, f Feedback) error {
	meta, err := json.Marshal(nonNilMap(f.Metadata))
	if err != nil {
		return err
	}
	var comment any
	if f.Comment != "" {
		comment = f.Comment
	}
	_, err = db.pool.Exec(ctx,
		`INSERT INTO feedback (user_hash, rating, comment, metadata) VALUES ($1, $2, $3, $4)`,
		f.UserHash, f.Rating, comment, meta,
	)
	if err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}
	return nil
}

// InsertClientLog stores a client error report.
func (db *DB) InsertClientLog(ctx context.Context, l ClientLog) error {
	meta, err := json.Marshal(nonNilMap(l.Metadata))
	if err != nil {
		return err
	}
	var version any
	if l.AppVersion != "" {
		version = l.AppVersion
	}
	_, err = db.pool.Exec(ctx,
		`INSERT INTO client_logs (user_hash, level, event, message, metadata, app_version) VALUES ($1, $2, $3, $4, $5, $6)`,
		l.UserHash, l.Level, l.Event, l.Message, meta, version,
	)
	if err != nil {
		return fmt.Errorf("failed to save client log: %w", err)
	}
	return nil
}

func nonNilMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
