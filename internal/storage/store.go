// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/billo/billo/internal/models"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a guarded write finds the row in an
	// unexpected state, e.g. a concurrent status change.
	ErrConflict = errors.New("row changed concurrently")
)

// Direction filters settlements relative to the caller.
type Direction string

const (
	DirectionAny Direction = ""
	// DirectionOwed selects rows where the caller is the creditor.
	DirectionOwed Direction = "owed"
	// DirectionOwing selects rows where the caller is the debtor.
	DirectionOwing Direction = "owing"
)

// SettlementFilter narrows ListSettlements. UserID is required; only rows
// where UserID is a party are ever returned.
type SettlementFilter struct {
	UserID    string
	GroupID   string
	Status    models.SettlementStatus
	Direction Direction
}

// Store defines the persistence operations used by the services.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL)
// without changing the service layer.
type Store interface {
	UpsertUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
	UpdatePreferences(ctx context.Context, userID string, prefs models.NotificationPreferences) error

	// CreateGroup persists the group and its members. The group.ID field will
	// be populated by the store.
	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)
	AddGroupMember(ctx context.Context, groupID, userID string, role models.Role) error

	// CreateReceipt persists a receipt and its items, assigning missing ids.
	CreateReceipt(ctx context.Context, receipt *models.Receipt) error
	GetReceipt(ctx context.Context, receiptID string) (*models.Receipt, error)

	// ReplaceAssignments deletes every assignment of the receipt's items,
	// inserts rows and marks the receipt completed, in one transaction.
	ReplaceAssignments(ctx context.Context, receiptID string, rows []models.ItemAssignment) error
	ListAssignments(ctx context.Context, receiptID string) ([]models.ItemAssignment, error)
	ClearAssignments(ctx context.Context, receiptID string) error

	// ReplaceReceiptSettlements deletes the receipt's settlements and inserts
	// rows in one transaction. It returns ErrConflict, changing nothing, when
	// any of the receipt's settlements is completed.
	ReplaceReceiptSettlements(ctx context.Context, receiptID string, rows []models.Settlement) error
	ListSettlementsByReceipt(ctx context.Context, receiptID string) ([]models.Settlement, error)
	CreateSettlement(ctx context.Context, settlement *models.Settlement) error
	GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error)
	ListSettlements(ctx context.Context, filter SettlementFilter) ([]models.Settlement, error)

	// UpdateSettlement writes status, settledAt and notes, provided the stored
	// status still equals prev. Otherwise it returns ErrConflict.
	UpdateSettlement(ctx context.Context, settlement *models.Settlement, prev models.SettlementStatus) error

	// DeletePendingSettlement removes a settlement only while it is pending.
	// A row in any other state yields ErrConflict.
	DeletePendingSettlement(ctx context.Context, settlementID string) error

	// Close releases any resources held by the store.
	Close() error
}
