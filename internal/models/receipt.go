package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReceiptStatus tracks whether a receipt has been split.
type ReceiptStatus string

const (
	ReceiptStatusDraft     ReceiptStatus = "draft"
	ReceiptStatusCompleted ReceiptStatus = "completed"
)

// ReceiptSource records how the line items were captured.
type ReceiptSource string

const (
	ReceiptSourceManual  ReceiptSource = "manual"
	ReceiptSourceScanned ReceiptSource = "scanned"
)

// Receipt is a purchase paid by OwnerID and shared with a group.
type Receipt struct {
	// ID is the unique identifier for the receipt (UUID format).
	ID string

	// OwnerID is the user who paid. Every receipt-derived settlement is owed to them.
	OwnerID string

	// GroupID is optional; receipts without a group are shared ad hoc.
	GroupID string

	MerchantName string
	PurchaseDate *time.Time

	// Currency is a label only. No conversion ever happens.
	Currency string

	// Tax is the receipt-level tax, allocated proportionally to subtotals.
	Tax decimal.Decimal

	// Total is informational; the calculator works from item totals and Tax.
	Total decimal.Decimal

	Status ReceiptStatus
	Source ReceiptSource

	Items []ReceiptItem

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReceiptItem is a single line on a receipt.
// TotalPrice is authoritative; Quantity and UnitPrice are informational.
type ReceiptItem struct {
	ID         string
	ReceiptID  string
	Name       string
	Quantity   int
	UnitPrice  decimal.Decimal
	TotalPrice decimal.Decimal
}

// ItemIDs returns the ids of the receipt's items in order.
func (r *Receipt) ItemIDs() []string {
	ids := make([]string, len(r.Items))
	for i, item := range r.Items {
		ids[i] = item.ID
	}
	return ids
}

// HasItem reports whether itemID belongs to the receipt.
func (r *Receipt) HasItem(itemID string) bool {
	for _, item := range r.Items {
		if item.ID == itemID {
			return true
		}
	}
	return false
}
