// Package service implements Billo's use cases on top of storage.Store.
//
// Every method reads the caller from the request context (see
// middleware.GetUserID) and returns errors classified with connect codes:
// InvalidArgument for bad input, NotFound for missing rows and for rows the
// caller may not see, FailedPrecondition for state conflicts and Internal
// for storage failures. Internal errors carry a generic message; the cause
// is logged.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/billo/billo/internal/middleware"
	"github.com/billo/billo/internal/models"
	"github.com/billo/billo/internal/settlement"
	"github.com/billo/billo/internal/storage"
)

var errSaveFailed = errors.New("failed to save")

func requireUser(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("authentication required"))
	}
	return userID, nil
}

func invalidArgument(format string, args ...any) error {
	return connect.NewError(connect.CodeInvalidArgument, fmt.Errorf(format, args...))
}

func notFound(what string) error {
	return connect.NewError(connect.CodeNotFound, fmt.Errorf("%s not found", what))
}

func failedPrecondition(err error) error {
	return connect.NewError(connect.CodeFailedPrecondition, err)
}

// internalError logs the cause and hides it from the caller.
func internalError(op string, err error) error {
	slog.Error(op+" failed", "error", err)
	return connect.NewError(connect.CodeInternal, errSaveFailed)
}

// storeError maps storage.ErrNotFound to NotFound(what) and anything else to
// Internal.
func storeError(op, what string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return notFound(what)
	}
	return internalError(op, err)
}

func requireUUID(field, value string) error {
	if value == "" {
		return invalidArgument("%s required", field)
	}
	if _, err := uuid.Parse(value); err != nil {
		return invalidArgument("%s must be a UUID", field)
	}
	return nil
}

// loadVisibleReceipt returns the receipt if userID owns it or belongs to its
// group. Anyone else gets NotFound.
func loadVisibleReceipt(ctx context.Context, store storage.Store, receiptID, userID string) (*models.Receipt, error) {
	if err := requireUUID("receipt_id", receiptID); err != nil {
		return nil, err
	}
	receipt, err := store.GetReceipt(ctx, receiptID)
	if err != nil {
		return nil, storeError("GetReceipt", "receipt", err)
	}
	if receipt.OwnerID == userID {
		return receipt, nil
	}
	if receipt.GroupID != "" {
		group, err := store.GetGroup(ctx, receipt.GroupID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, internalError("GetGroup", err)
		}
		if group != nil && group.HasMember(userID) {
			return receipt, nil
		}
	}
	return nil, notFound("receipt")
}

// loadOwnedReceipt returns the receipt only for its owner.
func loadOwnedReceipt(ctx context.Context, store storage.Store, receiptID, userID string) (*models.Receipt, error) {
	receipt, err := loadVisibleReceipt(ctx, store, receiptID, userID)
	if err != nil {
		return nil, err
	}
	if receipt.OwnerID != userID {
		return nil, notFound("receipt")
	}
	return receipt, nil
}

// ensureUnsettled refuses with FailedPrecondition once any of the receipt's
// settlements is completed.
func ensureUnsettled(ctx context.Context, store storage.Store, receiptID string) error {
	existing, err := store.ListSettlementsByReceipt(ctx, receiptID)
	if err != nil {
		return internalError("ListSettlementsByReceipt", err)
	}
	if settlement.Classify(existing).HasCompletedSettlements {
		return failedPrecondition(settlement.ErrResplitBlocked)
	}
	return nil
}

// splitMembers returns the people a receipt can be split between, with
// profiles: the receipt's group members if any, then the owner, then every
// extra user ID not already listed.
func splitMembers(ctx context.Context, store storage.Store, receipt *models.Receipt, extra []string) ([]models.GroupMember, error) {
	var members []models.GroupMember
	seen := make(map[string]bool)

	if receipt.GroupID != "" {
		group, err := store.GetGroup(ctx, receipt.GroupID)
		if err != nil {
			return nil, storeError("GetGroup", "group", err)
		}
		for _, m := range group.Members {
			seen[m.UserID] = true
			members = append(members, m)
		}
	}

	var missing []string
	for _, id := range append([]string{receipt.OwnerID}, extra...) {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return members, nil
	}

	users, err := store.GetUsersByIDs(ctx, missing)
	if err != nil {
		return nil, internalError("GetUsersByIDs", err)
	}
	for _, id := range missing {
		m := models.GroupMember{UserID: id, Role: models.RoleMember}
		if u, ok := users[id]; ok {
			m.Name, m.Email, m.ImageURL = u.Name, u.Email, u.ImageURL
		}
		members = append(members, m)
	}
	return members, nil
}
