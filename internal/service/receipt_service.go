package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/billo/billo/internal/calculator"
	"github.com/billo/billo/internal/models"
	"github.com/billo/billo/internal/storage"
)

// ReceiptService creates and reads receipts.
type ReceiptService struct {
	store    storage.Store
	currency string
}

// NewReceiptService creates a ReceiptService. currency labels receipts
// submitted without one.
func NewReceiptService(store storage.Store, currency string) *ReceiptService {
	return &ReceiptService{store: store, currency: currency}
}

// ItemInput is one line of a new receipt. TotalPrice defaults to
// Quantity x UnitPrice.
type ItemInput struct {
	Name       string
	Quantity   int
	UnitPrice  *decimal.Decimal
	TotalPrice *decimal.Decimal
}

// CreateReceiptInput matches both manual entry and the shape returned by
// receipt extraction.
type CreateReceiptInput struct {
	GroupID      string
	MerchantName string
	PurchaseDate *time.Time
	Currency     string

	// Tax accepts "5", "$5.00" or "1,024.50".
	Tax    string
	Total  *decimal.Decimal
	Source string
	Items  []ItemInput
}

// Create stores a new receipt owned by the caller. Total defaults to the sum
// of item totals plus tax.
func (s *ReceiptService) Create(ctx context.Context, in CreateReceiptInput) (*models.Receipt, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	if in.GroupID != "" {
		if err := requireUUID("group_id", in.GroupID); err != nil {
			return nil, err
		}
		group, err := s.store.GetGroup(ctx, in.GroupID)
		if err != nil {
			return nil, storeError("GetGroup", "group", err)
		}
		if !group.HasMember(userID) {
			return nil, notFound("group")
		}
	}

	source := models.ReceiptSource(in.Source)
	switch source {
	case "":
		source = models.ReceiptSourceManual
	case models.ReceiptSourceManual, models.ReceiptSourceScanned:
	default:
		return nil, invalidArgument("unsupported source %q", in.Source)
	}

	if len(in.Items) == 0 {
		return nil, invalidArgument("at least one item is required")
	}

	tax := calculator.ParseTax(in.Tax)
	if tax.IsNegative() {
		return nil, invalidArgument("tax cannot be negative")
	}

	items := make([]models.ReceiptItem, len(in.Items))
	sum := decimal.Zero
	for i, it := range in.Items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			return nil, invalidArgument("item %d: name required", i+1)
		}
		qty := it.Quantity
		if qty <= 0 {
			qty = 1
		}
		unit := decimal.Zero
		if it.UnitPrice != nil {
			unit = *it.UnitPrice
		}
		total := unit.Mul(decimal.NewFromInt(int64(qty)))
		if it.TotalPrice != nil {
			total = *it.TotalPrice
		}
		if total.IsNegative() || unit.IsNegative() {
			return nil, invalidArgument("item %q: prices cannot be negative", name)
		}
		if it.UnitPrice == nil {
			unit = total.Div(decimal.NewFromInt(int64(qty)))
		}
		items[i] = models.ReceiptItem{
			Name:       name,
			Quantity:   qty,
			UnitPrice:  unit,
			TotalPrice: total,
		}
		sum = sum.Add(total)
	}

	receiptTotal := sum.Add(tax)
	if in.Total != nil {
		receiptTotal = *in.Total
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = s.currency
	}

	receipt := &models.Receipt{
		OwnerID:      userID,
		GroupID:      in.GroupID,
		MerchantName: strings.TrimSpace(in.MerchantName),
		PurchaseDate: in.PurchaseDate,
		Currency:     currency,
		Tax:          tax,
		Total:        receiptTotal,
		Status:       models.ReceiptStatusDraft,
		Source:       source,
		Items:        items,
	}
	if err := s.store.CreateReceipt(ctx, receipt); err != nil {
		return nil, internalError("CreateReceipt", err)
	}
	return receipt, nil
}

// Get returns a receipt visible to the caller.
func (s *ReceiptService) Get(ctx context.Context, receiptID string) (*models.Receipt, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	return loadVisibleReceipt(ctx, s.store, receiptID, userID)
}
