package settlement

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/billo/billo/internal/calculator"
	"github.com/billo/billo/internal/models"
)

func total(userID, amount string) calculator.PersonTotal {
	d := decimal.RequireFromString(amount)
	return calculator.PersonTotal{UserID: userID, Subtotal: d, Total: d}
}

func TestPlan(t *testing.T) {
	totals := []calculator.PersonTotal{
		total("owner", "40"),
		total("U1", "15.555"),
		total("U2", "0"),
		total("U3", "7.1"),
	}

	rows := Plan("r1", "owner", "g1", "", totals)

	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	for _, row := range rows {
		if row.FromUserID == "owner" {
			t.Error("owner must never owe themselves")
		}
		if row.ToUserID != "owner" {
			t.Errorf("creditor = %s, want owner", row.ToUserID)
		}
		if row.Status != models.SettlementPending {
			t.Errorf("status = %s, want pending", row.Status)
		}
		if row.Currency != DefaultCurrency {
			t.Errorf("currency = %s, want %s", row.Currency, DefaultCurrency)
		}
		if row.SettledAt != nil {
			t.Error("pending rows must not carry settledAt")
		}
		if row.ID == "" || row.ReceiptID != "r1" || row.GroupID != "g1" {
			t.Errorf("unexpected identifiers: %+v", row)
		}
	}
	if got := rows[0].Amount.String(); got != "15.56" {
		t.Errorf("U1 amount = %s, want 15.56", got)
	}
	if got := rows[1].Amount.String(); got != "7.1" {
		t.Errorf("U3 amount = %s, want 7.1", got)
	}
}

func TestPlan_OwnerOnly(t *testing.T) {
	if rows := Plan("r1", "owner", "", "EUR", []calculator.PersonTotal{total("owner", "12")}); len(rows) != 0 {
		t.Errorf("expected no rows, got %d", len(rows))
	}
}

func TestPlan_Deterministic(t *testing.T) {
	totals := []calculator.PersonTotal{total("U1", "10"), total("U2", "5.005")}
	first := Plan("r1", "owner", "", "USD", totals)
	second := Plan("r1", "owner", "", "USD", totals)

	if len(first) != len(second) {
		t.Fatalf("row counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].FromUserID != second[i].FromUserID || !first[i].Amount.Equal(second[i].Amount) {
			t.Errorf("row %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}
