package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/billo/billo/internal/models"
	"github.com/billo/billo/internal/storage"
)

const settlementColumns = `id, receipt_id, group_id, from_user_id, to_user_id, amount, currency,
	status, settled_at, notes, created_at, updated_at`

// ReplaceReceiptSettlements deletes every settlement of the receipt and
// inserts rows, in one transaction. It refuses with storage.ErrConflict
// when the receipt has a completed settlement.
func (s *Store) ReplaceReceiptSettlements(ctx context.Context, receiptID string, rows []models.Settlement) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var one int
		err := s.queryRow(ctx, tx,
			"SELECT 1 FROM settlements WHERE receipt_id = ? AND status = ? LIMIT 1",
			receiptID, string(models.SettlementCompleted),
		).Scan(&one)
		switch {
		case err == nil:
			return storage.ErrConflict
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("failed to check completed settlements: %w", err)
		}

		if _, err := s.exec(ctx, tx, "DELETE FROM settlements WHERE receipt_id = ?", receiptID); err != nil {
			return fmt.Errorf("failed to delete settlements: %w", err)
		}
		for i := range rows {
			rows[i].ReceiptID = receiptID
			if err := s.insertSettlement(ctx, tx, &rows[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListSettlementsByReceipt returns the receipt's settlements, oldest first.
func (s *Store) ListSettlementsByReceipt(ctx context.Context, receiptID string) ([]models.Settlement, error) {
	rows, err := s.query(ctx, s.db,
		"SELECT "+settlementColumns+" FROM settlements WHERE receipt_id = ? ORDER BY created_at, id",
		receiptID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements by receipt: %w", err)
	}
	return scanSettlements(rows)
}

// CreateSettlement persists a new settlement to the database.
func (s *Store) CreateSettlement(ctx context.Context, settlement *models.Settlement) error {
	return s.insertSettlement(ctx, s.db, settlement)
}

func (s *Store) insertSettlement(ctx context.Context, q queryer, settlement *models.Settlement) error {
	// Generate ID if not set
	if settlement.ID == "" {
		settlement.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if settlement.CreatedAt.IsZero() {
		settlement.CreatedAt = now
	}
	if settlement.UpdatedAt.IsZero() {
		settlement.UpdatedAt = settlement.CreatedAt
	}
	if settlement.Status == "" {
		settlement.Status = models.SettlementPending
	}

	_, err := s.exec(ctx, q,
		"INSERT INTO settlements ("+settlementColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		settlement.ID,
		nullString(settlement.ReceiptID),
		nullString(settlement.GroupID),
		settlement.FromUserID,
		settlement.ToUserID,
		settlement.Amount.String(),
		settlement.Currency,
		string(settlement.Status),
		nullMillis(settlement.SettledAt),
		settlement.Notes,
		toMillis(settlement.CreatedAt),
		toMillis(settlement.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert settlement: %w", err)
	}

	return nil
}

// GetSettlement retrieves a settlement by ID.
func (s *Store) GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error) {
	row := s.queryRow(ctx, s.db, "SELECT "+settlementColumns+" FROM settlements WHERE id = ?", settlementID)

	settlement, err := scanSettlement(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("settlement %s: %w", settlementID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}

	return settlement, nil
}

// ListSettlements returns the settlements the filter's user is a party to,
// newest first.
func (s *Store) ListSettlements(ctx context.Context, filter storage.SettlementFilter) ([]models.Settlement, error) {
	var (
		where []string
		args  []any
	)

	switch filter.Direction {
	case storage.DirectionOwed:
		where = append(where, "to_user_id = ?")
		args = append(args, filter.UserID)
	case storage.DirectionOwing:
		where = append(where, "from_user_id = ?")
		args = append(args, filter.UserID)
	default:
		where = append(where, "(from_user_id = ? OR to_user_id = ?)")
		args = append(args, filter.UserID, filter.UserID)
	}
	if filter.GroupID != "" {
		where = append(where, "group_id = ?")
		args = append(args, filter.GroupID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}

	rows, err := s.query(ctx, s.db,
		"SELECT "+settlementColumns+" FROM settlements WHERE "+strings.Join(where, " AND ")+" ORDER BY created_at DESC, id",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	return scanSettlements(rows)
}

// UpdateSettlement writes the mutable fields of a settlement, guarded on the
// status the caller read.
func (s *Store) UpdateSettlement(ctx context.Context, settlement *models.Settlement, prev models.SettlementStatus) error {
	settlement.UpdatedAt = time.Now().UTC()

	res, err := s.exec(ctx, s.db,
		`UPDATE settlements SET status = ?, settled_at = ?, notes = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(settlement.Status),
		nullMillis(settlement.SettledAt),
		settlement.Notes,
		toMillis(settlement.UpdatedAt),
		settlement.ID,
		string(prev),
	)
	if err != nil {
		return fmt.Errorf("failed to update settlement: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.GetSettlement(ctx, settlement.ID); err != nil {
			return err
		}
		return fmt.Errorf("settlement %s: %w", settlement.ID, storage.ErrConflict)
	}
	return nil
}

// DeletePendingSettlement removes a settlement that is still pending.
func (s *Store) DeletePendingSettlement(ctx context.Context, settlementID string) error {
	res, err := s.exec(ctx, s.db,
		"DELETE FROM settlements WHERE id = ? AND status = ?",
		settlementID, string(models.SettlementPending),
	)
	if err != nil {
		return fmt.Errorf("failed to delete settlement: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.GetSettlement(ctx, settlementID); err != nil {
			return err
		}
		return fmt.Errorf("settlement %s: %w", settlementID, storage.ErrConflict)
	}
	return nil
}

func scanSettlements(rows *sql.Rows) ([]models.Settlement, error) {
	defer rows.Close()

	var settlements []models.Settlement
	for rows.Next() {
		st, err := scanSettlement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		settlements = append(settlements, *st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating settlements: %w", err)
	}
	return settlements, nil
}

func scanSettlement(row rowScanner) (*models.Settlement, error) {
	st := &models.Settlement{}
	var (
		receiptID, groupID   sql.NullString
		status               string
		settledAt            sql.NullInt64
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&st.ID, &receiptID, &groupID, &st.FromUserID, &st.ToUserID,
		&st.Amount, &st.Currency, &status, &settledAt, &st.Notes,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	st.ReceiptID = receiptID.String
	st.GroupID = groupID.String
	st.Status = models.SettlementStatus(status)
	st.SettledAt = timePtr(settledAt)
	st.CreatedAt = fromMillis(createdAt)
	st.UpdatedAt = fromMillis(updatedAt)
	return st, nil
}
