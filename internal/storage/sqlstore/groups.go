package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/billo/billo/internal/models"
	"github.com/billo/billo/internal/storage"
)

// CreateGroup persists a new group and its members in one transaction.
func (s *Store) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now().UTC()
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := s.exec(ctx, tx,
			"INSERT INTO groups (id, name, created_by, created_at) VALUES (?, ?, ?, ?)",
			group.ID, group.Name, group.CreatedBy, toMillis(group.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert group: %w", err)
		}

		for _, m := range group.Members {
			role := m.Role
			if role == "" {
				role = models.RoleMember
			}
			_, err = s.exec(ctx, tx,
				"INSERT INTO group_members (group_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)",
				group.ID, m.UserID, string(role), toMillis(group.CreatedAt),
			)
			if err != nil {
				return fmt.Errorf("failed to insert group member: %w", err)
			}
		}
		return nil
	})
}

// GetGroup retrieves a group with its members joined to their profiles.
// Members without a profile row keep empty name/email.
func (s *Store) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group := &models.Group{}
	var createdAt int64
	err := s.queryRow(ctx, s.db,
		"SELECT id, name, created_by, created_at FROM groups WHERE id = ?",
		groupID,
	).Scan(&group.ID, &group.Name, &group.CreatedBy, &createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	group.CreatedAt = fromMillis(createdAt)

	rows, err := s.query(ctx, s.db,
		`SELECT gm.user_id, COALESCE(u.name, ''), COALESCE(u.email, ''), COALESCE(u.image_url, ''), gm.role
		 FROM group_members gm
		 LEFT JOIN users u ON u.id = gm.user_id
		 WHERE gm.group_id = ?
		 ORDER BY gm.joined_at, gm.user_id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get group members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m models.GroupMember
		var role string
		if err := rows.Scan(&m.UserID, &m.Name, &m.Email, &m.ImageURL, &role); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		m.Role = models.Role(role)
		group.Members = append(group.Members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group members: %w", err)
	}

	return group, nil
}

// AddGroupMember adds a user to a group. Adding an existing member is a no-op.
func (s *Store) AddGroupMember(ctx context.Context, groupID, userID string, role models.Role) error {
	if role == "" {
		role = models.RoleMember
	}
	res, err := s.exec(ctx, s.db,
		`INSERT INTO group_members (group_id, user_id, role, joined_at)
		 SELECT id, ?, ?, ? FROM groups WHERE id = ?
		 ON CONFLICT (group_id, user_id) DO NOTHING`,
		userID, string(role), toMillis(time.Now().UTC()), groupID,
	)
	if err != nil {
		return fmt.Errorf("failed to add group member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.GetGroup(ctx, groupID); err != nil {
			return err
		}
	}
	return nil
}
