package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// SplitType describes how an assignee's share of an item is derived.
type SplitType string

const (
	// SplitTypeFull divides the item total evenly among its assignees.
	SplitTypeFull SplitType = "full"
	// SplitTypePercentage and SplitTypeAmount are reserved in storage but
	// never computed.
	SplitTypePercentage SplitType = "percentage"
	SplitTypeAmount     SplitType = "amount"
)

var ErrUnsupportedSplitType = errors.New("unsupported split type")

// ParseSplitType parses a stored or submitted split type. An empty value
// means SplitTypeFull. Reserved variants are rejected.
func ParseSplitType(s string) (SplitType, error) {
	switch SplitType(s) {
	case "", SplitTypeFull:
		return SplitTypeFull, nil
	case SplitTypePercentage, SplitTypeAmount:
		return "", fmt.Errorf("%w: %q is not implemented", ErrUnsupportedSplitType, s)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedSplitType, s)
	}
}

// ItemAssignment is the persisted form of one (item, user) pair.
type ItemAssignment struct {
	ReceiptItemID string
	UserID        string
	SplitType     SplitType
	SplitValue    *decimal.Decimal

	// CalculatedAmount is the item total divided by the number of assignees,
	// stored so the ledger never recomputes from mutable item state.
	CalculatedAmount decimal.Decimal
}
