package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettlementStatus is the lifecycle state of a settlement.
type SettlementStatus string

const (
	SettlementPending   SettlementStatus = "pending"
	SettlementCompleted SettlementStatus = "completed"
	SettlementCancelled SettlementStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s SettlementStatus) Valid() bool {
	switch s {
	case SettlementPending, SettlementCompleted, SettlementCancelled:
		return true
	}
	return false
}

// Settlement is a directed debt: FromUserID owes ToUserID.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string

	// ReceiptID is empty for manual settlements.
	ReceiptID string

	GroupID string

	// FromUserID is the debtor.
	FromUserID string

	// ToUserID is the creditor; for receipt-derived rows, the receipt owner.
	ToUserID string

	Amount   decimal.Decimal
	Currency string
	Status   SettlementStatus

	// SettledAt is non-nil iff Status is SettlementCompleted.
	SettledAt *time.Time

	Notes string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Involves reports whether userID is one of the two parties.
func (s *Settlement) Involves(userID string) bool {
	return userID != "" && (s.FromUserID == userID || s.ToUserID == userID)
}
