package database

import (
	"context"
	"fmt"
)

// IsEventSent reports whether a delivery record exists for the pair
func (db *DB) IsEventSent(ctx context.Context, accountID int64, eventUID string) (bool, error) {
	var sent bool
	query := `SELECT EXISTS (SELECT 1 FROM sent_events WHERE account_id = $1 AND event_uid = $2)`
	if err := db.GetContext(ctx, &sent, query, accountID, eventUID); err != nil {
		return false, fmt.Errorf("failed to check sent event: %w", err)
	}
	return sent, nil
}

// MarkEventSent records a delivery. The unique constraint on
// (account_id, event_uid) makes concurrent writers converge on a single
// record; a duplicate insert is a no-op.
func (db *DB) MarkEventSent(ctx context.Context, accountID int64, eventUID string) error {
	query := `
		INSERT INTO sent_events (account_id, event_uid)
		VALUES ($1, $2)
		ON CONFLICT (account_id, event_uid) DO NOTHING
	`
	if _, err := db.ExecContext(ctx, query, accountID, eventUID); err != nil {
		return fmt.Errorf("failed to mark event sent: %w", err)
	}
	return nil
}
