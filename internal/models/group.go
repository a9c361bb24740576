package models

import "time"

// Role is a member's role inside a group.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Group is a set of users who split receipts together.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Roommates", "Work Lunch").
	Name string

	CreatedBy string

	// Members is populated on reads with the joined user profile.
	Members []GroupMember

	CreatedAt time.Time
}

// GroupMember is a user's membership in a group, joined with their profile.
type GroupMember struct {
	UserID   string
	Name     string
	Email    string
	ImageURL string
	Role     Role
}

// HasMember reports whether userID belongs to the group.
func (g *Group) HasMember(userID string) bool {
	for _, m := range g.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// MemberIDs returns the member user ids in order.
func (g *Group) MemberIDs() []string {
	ids := make([]string, len(g.Members))
	for i, m := range g.Members {
		ids[i] = m.UserID
	}
	return ids
}
