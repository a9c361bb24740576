package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/billo/billo/internal/calculator"
	"github.com/billo/billo/internal/models"
	"github.com/billo/billo/internal/storage"
)

// AssignmentService saves and previews item assignments.
type AssignmentService struct {
	store storage.Store
}

func NewAssignmentService(store storage.Store) *AssignmentService {
	return &AssignmentService{store: store}
}

// AssignmentInput is one submitted (item, user) pair. CalculatedAmount is
// accepted for compatibility but always recomputed.
type AssignmentInput struct {
	ReceiptItemID    string
	UserID           string
	SplitType        string
	SplitValue       *decimal.Decimal
	CalculatedAmount *decimal.Decimal
}

// UserSummary is the joined profile returned with assignments.
type UserSummary struct {
	ID       string
	Name     string
	Email    string
	ImageURL string
}

// ItemSummary is the joined item returned with assignments.
type ItemSummary struct {
	ID         string
	Name       string
	TotalPrice decimal.Decimal
}

// AssignmentView is a persisted assignment with its user and item.
type AssignmentView struct {
	models.ItemAssignment
	User UserSummary
	Item ItemSummary
}

// Split modes accepted by Preview.
const (
	ModeManual = "manual"
	ModeEven   = "even"
)

// Preview is the calculator output for a not yet saved assignment.
type Preview struct {
	Totals     []calculator.PersonTotal
	Total      decimal.Decimal
	Validation calculator.ValidationResult
}

// buildAssignment checks every row against the receipt and folds the rows
// into an Assignment. For group receipts every assignee must be the owner or
// a group member.
func buildAssignment(receipt *models.Receipt, group *models.Group, in []AssignmentInput) (calculator.Assignment, error) {
	a := calculator.NewAssignment()
	for i, row := range in {
		if row.ReceiptItemID == "" {
			return nil, invalidArgument("assignment %d: receiptItemId required", i+1)
		}
		if !receipt.HasItem(row.ReceiptItemID) {
			return nil, invalidArgument("item %s does not belong to receipt %s", row.ReceiptItemID, receipt.ID)
		}
		userID := strings.TrimSpace(row.UserID)
		if userID == "" {
			return nil, invalidArgument("assignment %d: userId required", i+1)
		}
		if group != nil && userID != receipt.OwnerID && !group.HasMember(userID) {
			return nil, invalidArgument("user %s is not a member of the receipt's group", userID)
		}
		if _, err := models.ParseSplitType(row.SplitType); err != nil {
			return nil, invalidArgument("assignment %d: %v", i+1, err)
		}
		a.Set(row.ReceiptItemID, append(a.Assignees(row.ReceiptItemID), userID)...)
	}
	return a, nil
}

func (s *AssignmentService) receiptGroup(ctx context.Context, receipt *models.Receipt) (*models.Group, error) {
	if receipt.GroupID == "" {
		return nil, nil
	}
	group, err := s.store.GetGroup(ctx, receipt.GroupID)
	if err != nil {
		return nil, storeError("GetGroup", "group", err)
	}
	return group, nil
}

// SaveAssignments replaces the receipt's assignments and marks it completed.
// Only the owner may save, and not once a settlement of the receipt is
// completed. Every item must end up with at least one assignee. Returns the
// number of rows written.
func (s *AssignmentService) SaveAssignments(ctx context.Context, receiptID string, in []AssignmentInput) (int, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return 0, err
	}

	receipt, err := loadOwnedReceipt(ctx, s.store, receiptID, userID)
	if err != nil {
		return 0, err
	}
	if err := ensureUnsettled(ctx, s.store, receipt.ID); err != nil {
		return 0, err
	}
	group, err := s.receiptGroup(ctx, receipt)
	if err != nil {
		return 0, err
	}

	a, err := buildAssignment(receipt, group, in)
	if err != nil {
		return 0, err
	}

	if res := calculator.ValidateAssignments(receipt.Items, a); !res.Valid {
		return 0, invalidArgument("%s", strings.Join(res.Errors, "; "))
	}

	rows := calculator.ItemShares(receipt.Items, a)
	if err := s.store.ReplaceAssignments(ctx, receipt.ID, rows); err != nil {
		return 0, internalError("ReplaceAssignments", err)
	}

	return len(rows), nil
}

// GetAssignments returns the persisted assignments with user and item
// summaries.
func (s *AssignmentService) GetAssignments(ctx context.Context, receiptID string) ([]AssignmentView, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	receipt, err := loadVisibleReceipt(ctx, s.store, receiptID, userID)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.ListAssignments(ctx, receipt.ID)
	if err != nil {
		return nil, internalError("ListAssignments", err)
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.UserID)
	}
	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, internalError("GetUsersByIDs", err)
	}

	items := make(map[string]models.ReceiptItem, len(receipt.Items))
	for _, item := range receipt.Items {
		items[item.ID] = item
	}

	views := make([]AssignmentView, len(rows))
	for i, row := range rows {
		v := AssignmentView{ItemAssignment: row, User: UserSummary{ID: row.UserID}}
		if u, ok := users[row.UserID]; ok {
			v.User = UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, ImageURL: u.ImageURL}
		}
		if item, ok := items[row.ReceiptItemID]; ok {
			v.Item = ItemSummary{ID: item.ID, Name: item.Name, TotalPrice: item.TotalPrice}
		}
		views[i] = v
	}
	return views, nil
}

// ClearAssignments removes every assignment of the receipt. Settlements are
// left alone; a completed one blocks the clear.
func (s *AssignmentService) ClearAssignments(ctx context.Context, receiptID string) error {
	userID, err := requireUser(ctx)
	if err != nil {
		return err
	}

	receipt, err := loadOwnedReceipt(ctx, s.store, receiptID, userID)
	if err != nil {
		return err
	}
	if err := ensureUnsettled(ctx, s.store, receipt.ID); err != nil {
		return err
	}
	if err := s.store.ClearAssignments(ctx, receipt.ID); err != nil {
		return internalError("ClearAssignments", err)
	}
	return nil
}

// Preview computes per-person totals without saving anything. Mode even
// assigns every item to every split member and ignores in. The validation
// result is returned, not enforced.
func (s *AssignmentService) Preview(ctx context.Context, receiptID, mode string, in []AssignmentInput) (*Preview, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	receipt, err := loadVisibleReceipt(ctx, s.store, receiptID, userID)
	if err != nil {
		return nil, err
	}
	group, err := s.receiptGroup(ctx, receipt)
	if err != nil {
		return nil, err
	}

	var (
		a     calculator.Assignment
		extra []string
	)
	switch mode {
	case ModeEven:
		members, err := splitMembers(ctx, s.store, receipt, nil)
		if err != nil {
			return nil, err
		}
		ids := make([]string, len(members))
		for i, m := range members {
			ids[i] = m.UserID
		}
		a = calculator.CalculateEvenSplit(receipt.Items, ids)
	case ModeManual, "":
		a, err = buildAssignment(receipt, group, in)
		if err != nil {
			return nil, err
		}
		for _, row := range in {
			extra = append(extra, row.UserID)
		}
	default:
		return nil, invalidArgument("unsupported mode %q", mode)
	}

	members, err := splitMembers(ctx, s.store, receipt, extra)
	if err != nil {
		return nil, err
	}

	totals := calculator.CalculatePersonTotals(receipt.Items, a, members, receipt.Tax.String())
	return &Preview{
		Totals:     totals,
		Total:      calculator.SumTotals(totals),
		Validation: calculator.ValidateAssignments(receipt.Items, a),
	}, nil
}

// assignmentFromStore loads the saved assignment for settlement generation.
func assignmentFromStore(ctx context.Context, store storage.Store, receiptID string) (calculator.Assignment, []string, error) {
	rows, err := store.ListAssignments(ctx, receiptID)
	if err != nil {
		return nil, nil, internalError("ListAssignments", err)
	}
	if len(rows) == 0 {
		return nil, nil, failedPrecondition(errors.New("receipt has no saved assignments"))
	}

	a, err := calculator.AssignmentFromRows(rows)
	if err != nil {
		if errors.Is(err, models.ErrUnsupportedSplitType) {
			return nil, nil, failedPrecondition(err)
		}
		return nil, nil, internalError("AssignmentFromRows", err)
	}

	userIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		userIDs = append(userIDs, row.UserID)
	}
	return a, userIDs, nil
}
