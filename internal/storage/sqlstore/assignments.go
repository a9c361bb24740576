package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/billo/billo/internal/models"
)

// ReplaceAssignments swaps the whole assignment set of a receipt and marks
// the receipt completed. Readers never observe a partial set.
func (s *Store) ReplaceAssignments(ctx context.Context, receiptID string, rows []models.ItemAssignment) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.deleteAssignments(ctx, tx, receiptID); err != nil {
			return err
		}

		for _, row := range rows {
			splitType := row.SplitType
			if splitType == "" {
				splitType = models.SplitTypeFull
			}
			var splitValue decimal.NullDecimal
			if row.SplitValue != nil {
				splitValue = decimal.NewNullDecimal(*row.SplitValue)
			}

			_, err := s.exec(ctx, tx,
				`INSERT INTO item_assignments (receipt_item_id, user_id, split_type, split_value, calculated_amount)
				 VALUES (?, ?, ?, ?, ?)`,
				row.ReceiptItemID, row.UserID, string(splitType), splitValue, row.CalculatedAmount.String(),
			)
			if err != nil {
				return fmt.Errorf("failed to insert assignment: %w", err)
			}
		}

		_, err := s.exec(ctx, tx,
			"UPDATE receipts SET status = ?, updated_at = ? WHERE id = ?",
			string(models.ReceiptStatusCompleted), toMillis(time.Now().UTC()), receiptID,
		)
		if err != nil {
			return fmt.Errorf("failed to update receipt status: %w", err)
		}
		return nil
	})
}

// ListAssignments returns every assignment row of the receipt's items,
// ordered by item position then user id.
func (s *Store) ListAssignments(ctx context.Context, receiptID string) ([]models.ItemAssignment, error) {
	rows, err := s.query(ctx, s.db,
		`SELECT ia.receipt_item_id, ia.user_id, ia.split_type, ia.split_value, ia.calculated_amount
		 FROM item_assignments ia
		 JOIN receipt_items ri ON ri.id = ia.receipt_item_id
		 WHERE ri.receipt_id = ?
		 ORDER BY ri.position, ia.user_id`,
		receiptID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	var out []models.ItemAssignment
	for rows.Next() {
		var (
			a          models.ItemAssignment
			splitType  string
			splitValue decimal.NullDecimal
		)
		if err := rows.Scan(&a.ReceiptItemID, &a.UserID, &splitType, &splitValue, &a.CalculatedAmount); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		a.SplitType = models.SplitType(splitType)
		if splitValue.Valid {
			v := splitValue.Decimal
			a.SplitValue = &v
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assignments: %w", err)
	}

	return out, nil
}

// ClearAssignments deletes every assignment of the receipt's items.
// The receipt status is left as is.
func (s *Store) ClearAssignments(ctx context.Context, receiptID string) error {
	return s.deleteAssignments(ctx, s.db, receiptID)
}

func (s *Store) deleteAssignments(ctx context.Context, q queryer, receiptID string) error {
	_, err := s.exec(ctx, q,
		`DELETE FROM item_assignments
		 WHERE receipt_item_id IN (SELECT id FROM receipt_items WHERE receipt_id = ?)`,
		receiptID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete assignments: %w", err)
	}
	return nil
}
