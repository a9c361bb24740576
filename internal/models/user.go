package models

import "time"

// User is a profile mirrored from the external auth provider.
type User struct {
	ID       string
	Name     string
	Email    string
	ImageURL string

	Preferences NotificationPreferences

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NotificationPreferences holds one opt-in flag per notification category.
// A disabled category makes delivery a no-op for that user.
type NotificationPreferences struct {
	SettlementCreated bool
	PaymentConfirmed  bool
	PaymentUnmarked   bool
}

// DefaultPreferences enables every category.
func DefaultPreferences() NotificationPreferences {
	return NotificationPreferences{
		SettlementCreated: true,
		PaymentConfirmed:  true,
		PaymentUnmarked:   true,
	}
}

// NewUser creates a user with default preferences and timestamps set.
func NewUser(id, name, email, imageURL string) *User {
	now := time.Now().UTC()
	return &User{
		ID:          id,
		Name:        name,
		Email:       email,
		ImageURL:    imageURL,
		Preferences: DefaultPreferences(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
