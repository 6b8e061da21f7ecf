package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"calbot/pkg/models"
)

// ErrNotFound is returned when a record is not found
var ErrNotFound = errors.New("record not found")

// CreateAccount creates a new account for a chat. A concurrent create for
// the same chat is folded into the existing row.
func (db *DB) CreateAccount(ctx context.Context, chatID int64) (*models.Account, error) {
	query := `
		INSERT INTO accounts (chat_id)
		VALUES ($1)
		ON CONFLICT (chat_id) DO UPDATE SET updated_at = now()
		RETURNING *
	`
	var account models.Account
	if err := db.GetContext(ctx, &account, query, chatID); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return &account, nil
}

// GetAccountByChatID returns an account by Telegram chat ID
func (db *DB) GetAccountByChatID(ctx context.Context, chatID int64) (*models.Account, error) {
	var account models.Account
	query := `SELECT * FROM accounts WHERE chat_id = $1`
	err := db.GetContext(ctx, &account, query, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

// UpsertCredentials writes verified calendar credentials for a chat,
// creating the account row if it does not exist yet.
func (db *DB) UpsertCredentials(ctx context.Context, chatID int64, username, password, caldavURL string) error {
	query := `
		INSERT INTO accounts (chat_id, caldav_username, caldav_password, caldav_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (chat_id) DO UPDATE SET
			caldav_username = EXCLUDED.caldav_username,
			caldav_password = EXCLUDED.caldav_password,
			caldav_url = EXCLUDED.caldav_url,
			updated_at = now()
	`
	if _, err := db.ExecContext(ctx, query, chatID, username, password, caldavURL); err != nil {
		return fmt.Errorf("failed to upsert credentials: %w", err)
	}
	return nil
}

// GetActiveAccounts returns accounts eligible for sync: active with a
// complete set of credentials.
func (db *DB) GetActiveAccounts(ctx context.Context) ([]*models.Account, error) {
	var accounts []*models.Account
	query := `
		SELECT * FROM accounts
		WHERE is_active = true
		  AND caldav_username IS NOT NULL
		  AND caldav_password IS NOT NULL
	`
	if err := db.SelectContext(ctx, &accounts, query); err != nil {
		return nil, fmt.Errorf("failed to get active accounts: %w", err)
	}
	return accounts, nil
}

// SetAccountActive sets the active status of an account
func (db *DB) SetAccountActive(ctx context.Context, id int64, active bool) error {
	query := `UPDATE accounts SET is_active = $1, updated_at = now() WHERE id = $2`
	if _, err := db.ExecContext(ctx, query, active, id); err != nil {
		return fmt.Errorf("failed to set account active: %w", err)
	}
	return nil
}
