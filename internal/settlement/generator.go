package settlement

import (
	"time"

	"github.com/google/uuid"

	"github.com/billo/billo/internal/calculator"
	"github.com/billo/billo/internal/models"
)

// DefaultCurrency labels generated rows when the receipt has none.
const DefaultCurrency = "USD"

// Plan builds the settlement rows that replace a receipt's ledger.
//
// One pending row is produced per person with a positive total, owed to
// ownerID. The owner never owes themselves, so their entry is skipped even
// when present in totals. Amounts are rounded to 2 decimals, half away from
// zero. An empty result is valid: the receipt ends up with no settlements.
func Plan(receiptID, ownerID, groupID, currency string, totals []calculator.PersonTotal) []models.Settlement {
	if currency == "" {
		currency = DefaultCurrency
	}

	now := time.Now().UTC()
	var rows []models.Settlement
	for _, pt := range totals {
		if pt.UserID == ownerID || !pt.Total.IsPositive() {
			continue
		}
		rows = append(rows, models.Settlement{
			ID:         uuid.New().String(),
			ReceiptID:  receiptID,
			GroupID:    groupID,
			FromUserID: pt.UserID,
			ToUserID:   ownerID,
			Amount:     pt.Total.Round(2),
			Currency:   currency,
			Status:     models.SettlementPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}
	return rows
}
