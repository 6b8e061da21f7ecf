package models

import "time"

// SentEvent is a delivery-ledger record: the event identified by EventUID
// has already been delivered to the account. At most one record exists per
// (account, event uid) pair; the record is never mutated or deleted.
type SentEvent struct {
	ID        int64     `db:"id"`
	AccountID int64     `db:"account_id"` // FK to Account
	EventUID  string    `db:"event_uid"`  // Derived calendar event identifier
	SentAt    time.Time `db:"sent_at"`
}
