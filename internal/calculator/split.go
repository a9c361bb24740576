package calculator

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/billo/billo/internal/models"
)

// PersonTotal is one person's calculated share of a receipt.
type PersonTotal struct {
	UserID   string
	Name     string
	Email    string
	ImageURL string

	// Subtotal is the sum of this person's item shares (pre-tax).
	Subtotal decimal.Decimal

	// TaxShare is tax × (Subtotal / sum of all subtotals).
	TaxShare decimal.Decimal

	// Total is Subtotal + TaxShare.
	Total decimal.Decimal
}

// CalculatePersonTotals computes how much each member owes for a receipt.
//
// Each assigned item is divided evenly among its assignees. Tax is allocated
// in proportion to each member's subtotal, where the denominator only counts
// items that were assigned to someone: an unassigned item contributes nothing
// and its share of tax is not charged to anybody.
//
// Shares are computed independently at full precision. Nothing redistributes
// rounding remainders, so the 2-decimal totals may differ from the receipt
// total by a cent.
//
// Members with a zero total are dropped. The result is sorted by total,
// descending, with ties kept in member order.
func CalculatePersonTotals(items []models.ReceiptItem, assignment Assignment, members []models.GroupMember, tax string) []PersonTotal {
	taxAmount := ParseTax(tax)

	order := make([]models.GroupMember, 0, len(members))
	subtotals := make(map[string]decimal.Decimal, len(members))
	for _, m := range members {
		if _, seen := subtotals[m.UserID]; seen {
			continue
		}
		subtotals[m.UserID] = decimal.Zero
		order = append(order, m)
	}

	grandSubtotal := decimal.Zero
	for _, item := range items {
		assignees := assignment.Assignees(item.ID)
		if len(assignees) == 0 {
			continue
		}

		share := item.TotalPrice.Div(decimal.NewFromInt(int64(len(assignees))))
		for _, userID := range assignees {
			if sub, ok := subtotals[userID]; ok {
				subtotals[userID] = sub.Add(share)
			}
		}
		grandSubtotal = grandSubtotal.Add(item.TotalPrice)
	}

	totals := make([]PersonTotal, 0, len(order))
	for _, m := range order {
		subtotal := subtotals[m.UserID]
		taxShare := decimal.Zero
		if grandSubtotal.IsPositive() {
			taxShare = taxAmount.Mul(subtotal).Div(grandSubtotal)
		}
		total := subtotal.Add(taxShare)
		if !total.IsPositive() {
			continue
		}
		totals = append(totals, PersonTotal{
			UserID:   m.UserID,
			Name:     m.Name,
			Email:    m.Email,
			ImageURL: m.ImageURL,
			Subtotal: subtotal,
			TaxShare: taxShare,
			Total:    total,
		})
	}

	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].Total.GreaterThan(totals[j].Total)
	})

	return totals
}

// ParseTax parses a receipt tax string such as "5", "$5.00" or "1,024.50".
// Empty or unparseable input is zero.
func ParseTax(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// SumTotals adds up the Total of every person.
func SumTotals(totals []PersonTotal) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range totals {
		sum = sum.Add(t.Total)
	}
	return sum
}
