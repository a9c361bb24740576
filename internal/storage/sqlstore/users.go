package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/billo/billo/internal/models"
	"github.com/billo/billo/internal/storage"
)

const userColumns = `id, name, email, image_url,
	notify_settlement_created, notify_payment_confirmed, notify_payment_unmarked,
	created_at, updated_at`

// UpsertUser inserts a user, or refreshes the profile fields of an existing
// one. Notification preferences of existing users are left untouched.
func (s *Store) UpsertUser(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			image_url = excluded.image_url,
			updated_at = excluded.updated_at
	`
	_, err := s.exec(ctx, s.db, query,
		user.ID,
		user.Name,
		user.Email,
		user.ImageURL,
		user.Preferences.SettlementCreated,
		user.Preferences.PaymentConfirmed,
		user.Preferences.PaymentUnmarked,
		toMillis(user.CreatedAt),
		toMillis(user.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	return nil
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, userID string) (*models.User, error) {
	row := s.queryRow(ctx, s.db, "SELECT "+userColumns+" FROM users WHERE id = ?", userID)

	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %s: %w", userID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetUsersByIDs retrieves multiple users by their IDs.
// Returns a map of user ID to User object.
// Users that don't exist are omitted from the result.
func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error) {
	users := make(map[string]*models.User)
	if len(ids) == 0 {
		return users, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.query(ctx, s.db,
		"SELECT "+userColumns+" FROM users WHERE id IN ("+placeholders(len(ids))+")",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get users by IDs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users[user.ID] = user
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// UpdatePreferences replaces a user's notification preferences.
func (s *Store) UpdatePreferences(ctx context.Context, userID string, prefs models.NotificationPreferences) error {
	res, err := s.exec(ctx, s.db,
		`UPDATE users
		 SET notify_settlement_created = ?, notify_payment_confirmed = ?, notify_payment_unmarked = ?, updated_at = ?
		 WHERE id = ?`,
		prefs.SettlementCreated, prefs.PaymentConfirmed, prefs.PaymentUnmarked,
		toMillis(time.Now().UTC()), userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update preferences: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %s: %w", userID, storage.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var createdAt, updatedAt int64
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.ImageURL,
		&user.Preferences.SettlementCreated,
		&user.Preferences.PaymentConfirmed,
		&user.Preferences.PaymentUnmarked,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.CreatedAt = fromMillis(createdAt)
	user.UpdatedAt = fromMillis(updatedAt)
	return user, nil
}
