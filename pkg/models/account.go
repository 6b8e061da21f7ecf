package models

import (
	"database/sql"
	"time"
)

// Account represents one Telegram user's calendar enrollment
type Account struct {
	ID                   int64          `db:"id"`
	ChatID               int64          `db:"chat_id"`                // Telegram chat ID
	CalDAVUsername       sql.NullString `db:"caldav_username"`        // Apple ID (null until enrolled)
	CalDAVPassword       sql.NullString `db:"caldav_password"`        // App-specific password (null until enrolled)
	CalDAVURL            string         `db:"caldav_url"`             // CalDAV endpoint
	CheckIntervalMinutes int            `db:"check_interval_minutes"` // Per-account polling interval
	IsActive             bool           `db:"is_active"`
	CreatedAt            time.Time      `db:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at"`
}

// Enrolled reports whether the account has a complete set of credentials.
// Only active enrolled accounts are eligible for sync.
func (a *Account) Enrolled() bool {
	return a.CalDAVUsername.Valid && a.CalDAVUsername.String != "" &&
		a.CalDAVPassword.Valid && a.CalDAVPassword.String != ""
}
