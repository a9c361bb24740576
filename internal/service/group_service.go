package service

import (
	"context"
	"fmt"
	"strings"

	"connectrpc.com/connect"

	"github.com/billo/billo/internal/models"
	"github.com/billo/billo/internal/storage"
)

// GroupService manages groups and their members.
type GroupService struct {
	store storage.Store
}

// NewGroupService creates a new GroupService with the given storage backend.
func NewGroupService(store storage.Store) *GroupService {
	return &GroupService{store: store}
}

// Create makes a group with the caller as admin plus memberIDs.
func (s *GroupService) Create(ctx context.Context, name string, memberIDs []string) (*models.Group, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidArgument("group name required")
	}

	group := &models.Group{
		Name:      name,
		CreatedBy: userID,
		Members:   []models.GroupMember{{UserID: userID, Role: models.RoleAdmin}},
	}
	seen := map[string]bool{userID: true}
	for _, id := range memberIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		group.Members = append(group.Members, models.GroupMember{UserID: id, Role: models.RoleMember})
	}

	if err := s.store.CreateGroup(ctx, group); err != nil {
		return nil, internalError("CreateGroup", err)
	}

	// Re-read to pick up member profiles.
	created, err := s.store.GetGroup(ctx, group.ID)
	if err != nil {
		return nil, storeError("GetGroup", "group", err)
	}
	return created, nil
}

// Get returns a group the caller belongs to.
func (s *GroupService) Get(ctx context.Context, groupID string) (*models.Group, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.loadMemberGroup(ctx, groupID, userID)
}

// AddMember adds userID to the group. Only admins may add members.
func (s *GroupService) AddMember(ctx context.Context, groupID, newUserID string, role models.Role) (*models.Group, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	group, err := s.loadMemberGroup(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if !isAdmin(group, userID) {
		return nil, connect.NewError(connect.CodePermissionDenied, fmt.Errorf("only group admins can add members"))
	}

	newUserID = strings.TrimSpace(newUserID)
	if newUserID == "" {
		return nil, invalidArgument("user_id required")
	}
	switch role {
	case "":
		role = models.RoleMember
	case models.RoleAdmin, models.RoleMember:
	default:
		return nil, invalidArgument("unsupported role %q", role)
	}

	if err := s.store.AddGroupMember(ctx, groupID, newUserID, role); err != nil {
		return nil, storeError("AddGroupMember", "group", err)
	}
	return s.loadMemberGroup(ctx, groupID, userID)
}

func (s *GroupService) loadMemberGroup(ctx context.Context, groupID, userID string) (*models.Group, error) {
	if err := requireUUID("group_id", groupID); err != nil {
		return nil, err
	}
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, storeError("GetGroup", "group", err)
	}
	if !group.HasMember(userID) {
		return nil, notFound("group")
	}
	return group, nil
}

func isAdmin(group *models.Group, userID string) bool {
	for _, m := range group.Members {
		if m.UserID == userID {
			return m.Role == models.RoleAdmin
		}
	}
	return false
}
