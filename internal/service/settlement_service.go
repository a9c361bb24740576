package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/billo/billo/internal/calculator"
	"github.com/billo/billo/internal/metrics"
	"github.com/billo/billo/internal/models"
	"github.com/billo/billo/internal/notify"
	"github.com/billo/billo/internal/settlement"
	"github.com/billo/billo/internal/storage"
)

// Notifier queues settlement notifications. *notify.Dispatcher implements
// it; a nil dispatcher drops everything.
type Notifier interface {
	Enqueue(kind notify.Kind, s models.Settlement, recipients ...string)
}

type discardNotifier struct{}

func (discardNotifier) Enqueue(notify.Kind, models.Settlement, ...string) {}

// SettlementService generates, lists and updates settlements.
type SettlementService struct {
	store    storage.Store
	notifier Notifier
	metrics  *metrics.Metrics
	currency string
}

// NewSettlementService creates a SettlementService. currency labels
// settlements whose receipt or request has none.
func NewSettlementService(store storage.Store, notifier Notifier, m *metrics.Metrics, currency string) *SettlementService {
	if currency == "" {
		currency = settlement.DefaultCurrency
	}
	if notifier == nil {
		notifier = discardNotifier{}
	}
	return &SettlementService{
		store:    store,
		notifier: notifier,
		metrics:  m,
		currency: currency,
	}
}

// GenerateResult is the outcome of splitting a receipt into settlements.
type GenerateResult struct {
	// Previous classifies the rows that were replaced.
	Previous    settlement.ResplitStatus
	Settlements []models.Settlement
	Totals      []calculator.PersonTotal
}

// GenerateForReceipt replaces the receipt's settlements with one pending row
// per debtor, computed from the saved assignments. Existing completed
// settlements block it; existing pending ones require confirm.
func (s *SettlementService) GenerateForReceipt(ctx context.Context, receiptID string, confirm bool) (*GenerateResult, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	receipt, err := loadOwnedReceipt(ctx, s.store, receiptID, userID)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.ListSettlementsByReceipt(ctx, receipt.ID)
	if err != nil {
		return nil, internalError("ListSettlementsByReceipt", err)
	}
	previous := settlement.Classify(existing)
	if err := previous.Decide(confirm); err != nil {
		return nil, failedPrecondition(err)
	}

	a, assignees, err := assignmentFromStore(ctx, s.store, receipt.ID)
	if err != nil {
		return nil, err
	}
	members, err := splitMembers(ctx, s.store, receipt, assignees)
	if err != nil {
		return nil, err
	}

	totals := calculator.CalculatePersonTotals(receipt.Items, a, members, receipt.Tax.String())

	currency := receipt.Currency
	if currency == "" {
		currency = s.currency
	}
	rows := settlement.Plan(receipt.ID, receipt.OwnerID, receipt.GroupID, currency, totals)

	if err := s.store.ReplaceReceiptSettlements(ctx, receipt.ID, rows); err != nil {
		// A debtor paid after the check above.
		if errors.Is(err, storage.ErrConflict) {
			return nil, failedPrecondition(settlement.ErrResplitBlocked)
		}
		return nil, internalError("ReplaceReceiptSettlements", err)
	}
	s.metrics.SettlementsGenerated(len(rows))

	slog.Info("Settlements generated",
		"receipt_id", receipt.ID,
		"count", len(rows),
		"replaced", len(existing),
	)

	for _, row := range rows {
		s.notifier.Enqueue(notify.KindSettlementCreated, row, row.FromUserID)
	}

	return &GenerateResult{Previous: previous, Settlements: rows, Totals: totals}, nil
}

// ResplitStatus classifies the receipt's current settlements.
func (s *SettlementService) ResplitStatus(ctx context.Context, receiptID string) (settlement.ResplitStatus, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return settlement.ResplitStatus{}, err
	}

	receipt, err := loadVisibleReceipt(ctx, s.store, receiptID, userID)
	if err != nil {
		return settlement.ResplitStatus{}, err
	}

	rows, err := s.store.ListSettlementsByReceipt(ctx, receipt.ID)
	if err != nil {
		return settlement.ResplitStatus{}, internalError("ListSettlementsByReceipt", err)
	}
	return settlement.Classify(rows), nil
}

// CreateSettlementInput describes a manual settlement.
type CreateSettlementInput struct {
	ReceiptID  string
	GroupID    string
	FromUserID string
	ToUserID   string
	Amount     decimal.Decimal
	Currency   string
	Notes      string
}

// Create records a manual settlement. The caller must be one of the two
// parties. The amount is rounded to 2 decimals.
func (s *SettlementService) Create(ctx context.Context, in CreateSettlementInput) (*models.Settlement, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	if in.FromUserID == "" || in.ToUserID == "" {
		return nil, invalidArgument("fromUserId and toUserId required")
	}
	if in.FromUserID == in.ToUserID {
		return nil, invalidArgument("fromUserId and toUserId must differ")
	}
	if userID != in.FromUserID && userID != in.ToUserID {
		return nil, invalidArgument("you must be one of the settlement parties")
	}
	amount := in.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, invalidArgument("amount must be positive")
	}

	groupID := in.GroupID
	if in.ReceiptID != "" {
		receipt, err := loadVisibleReceipt(ctx, s.store, in.ReceiptID, userID)
		if err != nil {
			return nil, err
		}
		if groupID == "" {
			groupID = receipt.GroupID
		}
	}
	if groupID != "" {
		if err := requireUUID("group_id", groupID); err != nil {
			return nil, err
		}
		group, err := s.store.GetGroup(ctx, groupID)
		if err != nil {
			return nil, storeError("GetGroup", "group", err)
		}
		if !group.HasMember(userID) {
			return nil, notFound("group")
		}
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = s.currency
	}

	st := &models.Settlement{
		ReceiptID:  in.ReceiptID,
		GroupID:    groupID,
		FromUserID: in.FromUserID,
		ToUserID:   in.ToUserID,
		Amount:     amount,
		Currency:   currency,
		Status:     models.SettlementPending,
		Notes:      in.Notes,
	}
	if err := s.store.CreateSettlement(ctx, st); err != nil {
		return nil, internalError("CreateSettlement", err)
	}

	if st.FromUserID != userID {
		s.notifier.Enqueue(notify.KindSettlementCreated, *st, st.FromUserID)
	}
	return st, nil
}

// ListSettlementsInput filters List. Direction is "owed" (caller is the
// creditor) or "owing" (caller is the debtor).
type ListSettlementsInput struct {
	GroupID   string
	Status    string
	Direction string
}

// List returns the caller's settlements, newest first.
func (s *SettlementService) List(ctx context.Context, in ListSettlementsInput) ([]models.Settlement, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	filter := storage.SettlementFilter{UserID: userID}
	if in.GroupID != "" {
		if err := requireUUID("groupId", in.GroupID); err != nil {
			return nil, err
		}
		filter.GroupID = in.GroupID
	}
	if in.Status != "" {
		status := models.SettlementStatus(in.Status)
		if !status.Valid() {
			return nil, invalidArgument("unsupported status %q", in.Status)
		}
		filter.Status = status
	}
	switch storage.Direction(in.Direction) {
	case storage.DirectionAny, storage.DirectionOwed, storage.DirectionOwing:
		filter.Direction = storage.Direction(in.Direction)
	default:
		return nil, invalidArgument("direction must be owed or owing")
	}

	rows, err := s.store.ListSettlements(ctx, filter)
	if err != nil {
		return nil, internalError("ListSettlements", err)
	}
	if rows == nil {
		rows = []models.Settlement{}
	}
	return rows, nil
}

// Get returns a settlement the caller is a party to.
func (s *SettlementService) Get(ctx context.Context, settlementID string) (*models.Settlement, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.loadParty(ctx, settlementID, userID)
}

// UpdateSettlementInput drives the status machine. Notes, when set,
// replaces the stored notes.
type UpdateSettlementInput struct {
	Status string
	Notes  *string
}

// Update applies a status change and optional notes. Re-sending the current
// status changes nothing but the notes and sends nothing.
func (s *SettlementService) Update(ctx context.Context, settlementID string, in UpdateSettlementInput) (*models.Settlement, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	st, err := s.loadParty(ctx, settlementID, userID)
	if err != nil {
		return nil, err
	}

	if in.Status == "" {
		return nil, invalidArgument("status required")
	}
	prev := st.Status
	effect, err := settlement.Transition(prev, models.SettlementStatus(in.Status))
	switch {
	case errors.Is(err, settlement.ErrInvalidStatus):
		return nil, invalidArgument("%v", err)
	case err != nil:
		return nil, failedPrecondition(err)
	}

	if effect.NoOp && in.Notes == nil {
		return st, nil
	}

	if !effect.NoOp {
		st.Status = models.SettlementStatus(in.Status)
	}
	switch {
	case effect.StampSettledAt:
		now := time.Now().UTC()
		st.SettledAt = &now
	case effect.ClearSettledAt:
		st.SettledAt = nil
	}
	if in.Notes != nil {
		st.Notes = *in.Notes
	}

	if err := s.store.UpdateSettlement(ctx, st, prev); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, failedPrecondition(fmt.Errorf("settlement was changed by someone else; reload and try again"))
		}
		return nil, storeError("UpdateSettlement", "settlement", err)
	}

	if !effect.NoOp {
		s.metrics.SettlementTransition(string(prev), string(st.Status))
		slog.Info("Settlement status changed",
			"settlement_id", st.ID,
			"from", prev,
			"to", st.Status,
			"user_id", userID,
		)
	}
	if effect.Notify != settlement.NotifyNone {
		s.notifier.Enqueue(notify.Kind(effect.Notify), *st, st.FromUserID, st.ToUserID)
	}

	return st, nil
}

// Delete removes a pending settlement.
func (s *SettlementService) Delete(ctx context.Context, settlementID string) error {
	userID, err := requireUser(ctx)
	if err != nil {
		return err
	}

	st, err := s.loadParty(ctx, settlementID, userID)
	if err != nil {
		return err
	}
	if err := settlement.CanDelete(st.Status); err != nil {
		return failedPrecondition(err)
	}

	if err := s.store.DeletePendingSettlement(ctx, st.ID); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return failedPrecondition(settlement.ErrNotDeletable)
		}
		return storeError("DeletePendingSettlement", "settlement", err)
	}
	return nil
}

// loadParty returns the settlement only to its debtor or creditor.
func (s *SettlementService) loadParty(ctx context.Context, settlementID, userID string) (*models.Settlement, error) {
	if err := requireUUID("settlement_id", settlementID); err != nil {
		return nil, err
	}
	st, err := s.store.GetSettlement(ctx, settlementID)
	if err != nil {
		return nil, storeError("GetSettlement", "settlement", err)
	}
	if !st.Involves(userID) {
		return nil, notFound("settlement")
	}
	return st, nil
}
