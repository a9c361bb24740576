package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/billo/billo/internal/models"
	"github.com/billo/billo/internal/storage"
)

// CreateReceipt persists a receipt and its items in one transaction.
// Missing ids, timestamps, status and source are filled in.
func (s *Store) CreateReceipt(ctx context.Context, receipt *models.Receipt) error {
	if receipt.ID == "" {
		receipt.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if receipt.CreatedAt.IsZero() {
		receipt.CreatedAt = now
	}
	receipt.UpdatedAt = now
	if receipt.Status == "" {
		receipt.Status = models.ReceiptStatusDraft
	}
	if receipt.Source == "" {
		receipt.Source = models.ReceiptSourceManual
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := s.exec(ctx, tx,
			`INSERT INTO receipts (id, owner_id, group_id, merchant_name, purchase_date, currency, tax, total, status, source, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			receipt.ID,
			receipt.OwnerID,
			nullString(receipt.GroupID),
			receipt.MerchantName,
			nullMillis(receipt.PurchaseDate),
			receipt.Currency,
			receipt.Tax.String(),
			receipt.Total.String(),
			string(receipt.Status),
			string(receipt.Source),
			toMillis(receipt.CreatedAt),
			toMillis(receipt.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert receipt: %w", err)
		}

		for i := range receipt.Items {
			item := &receipt.Items[i]
			if item.ID == "" {
				item.ID = uuid.New().String()
			}
			item.ReceiptID = receipt.ID
			if item.Quantity <= 0 {
				item.Quantity = 1
			}

			_, err := s.exec(ctx, tx,
				`INSERT INTO receipt_items (id, receipt_id, position, name, quantity, unit_price, total_price)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				item.ID, receipt.ID, i, item.Name, item.Quantity,
				item.UnitPrice.String(), item.TotalPrice.String(),
			)
			if err != nil {
				return fmt.Errorf("failed to insert item: %w", err)
			}
		}
		return nil
	})
}

// GetReceipt retrieves a receipt with its items in their original order.
func (s *Store) GetReceipt(ctx context.Context, receiptID string) (*models.Receipt, error) {
	r := &models.Receipt{}
	var (
		groupID              sql.NullString
		purchaseDate         sql.NullInt64
		status, source       string
		createdAt, updatedAt int64
	)

	err := s.queryRow(ctx, s.db,
		`SELECT id, owner_id, group_id, merchant_name, purchase_date, currency, tax, total, status, source, created_at, updated_at
		 FROM receipts WHERE id = ?`,
		receiptID,
	).Scan(
		&r.ID, &r.OwnerID, &groupID, &r.MerchantName, &purchaseDate, &r.Currency,
		&r.Tax, &r.Total, &status, &source, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("receipt %s: %w", receiptID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}

	r.GroupID = groupID.String
	r.PurchaseDate = timePtr(purchaseDate)
	r.Status = models.ReceiptStatus(status)
	r.Source = models.ReceiptSource(source)
	r.CreatedAt = fromMillis(createdAt)
	r.UpdatedAt = fromMillis(updatedAt)

	rows, err := s.query(ctx, s.db,
		`SELECT id, name, quantity, unit_price, total_price
		 FROM receipt_items WHERE receipt_id = ? ORDER BY position`,
		receiptID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item := models.ReceiptItem{ReceiptID: receiptID}
		if err := rows.Scan(&item.ID, &item.Name, &item.Quantity, &item.UnitPrice, &item.TotalPrice); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		r.Items = append(r.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}

	return r, nil
}
