package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/billo/billo/internal/models"
)

// Assignment maps an item id to the ordered set of user ids sharing it.
// It is built per request from client state and never shared.
type Assignment map[string][]string

// NewAssignment returns an empty assignment.
func NewAssignment() Assignment {
	return make(Assignment)
}

// Assignees returns the users assigned to itemID. A missing item has none.
func (a Assignment) Assignees(itemID string) []string {
	return a[itemID]
}

// Contains reports whether userID is assigned to itemID.
func (a Assignment) Contains(itemID, userID string) bool {
	for _, id := range a[itemID] {
		if id == userID {
			return true
		}
	}
	return false
}

// Set replaces the assignees of itemID, dropping duplicates.
func (a Assignment) Set(itemID string, userIDs ...string) {
	a[itemID] = dedupe(userIDs)
}

// CalculateEvenSplit assigns every item to every member. An empty member
// list yields items with no assignees, which ValidateAssignments rejects.
func CalculateEvenSplit(items []models.ReceiptItem, memberIDs []string) Assignment {
	members := dedupe(memberIDs)
	a := make(Assignment, len(items))
	for _, item := range items {
		a[item.ID] = append([]string{}, members...)
	}
	return a
}

// ValidationResult lists the items that cannot be saved as assigned.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// ValidateAssignments requires every item to have at least one assignee.
// It only reports; callers decide whether to block submission.
func ValidateAssignments(items []models.ReceiptItem, assignment Assignment) ValidationResult {
	var errs []string
	for _, item := range items {
		if len(assignment.Assignees(item.ID)) == 0 {
			errs = append(errs, fmt.Sprintf("item %q must be assigned to at least one person", item.Name))
		}
	}
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// ItemShares expands an assignment into persisted rows, one per (item, user),
// each carrying the item total divided by the item's assignee count.
// Items without assignees produce no rows.
func ItemShares(items []models.ReceiptItem, assignment Assignment) []models.ItemAssignment {
	var rows []models.ItemAssignment
	for _, item := range items {
		assignees := assignment.Assignees(item.ID)
		if len(assignees) == 0 {
			continue
		}
		share := item.TotalPrice.Div(decimal.NewFromInt(int64(len(assignees))))
		for _, userID := range assignees {
			rows = append(rows, models.ItemAssignment{
				ReceiptItemID:    item.ID,
				UserID:           userID,
				SplitType:        models.SplitTypeFull,
				CalculatedAmount: share,
			})
		}
	}
	return rows
}

// AssignmentFromRows rebuilds an assignment from persisted rows. Rows with a
// reserved split type are rejected instead of being treated as even splits.
func AssignmentFromRows(rows []models.ItemAssignment) (Assignment, error) {
	a := NewAssignment()
	for _, row := range rows {
		if _, err := models.ParseSplitType(string(row.SplitType)); err != nil {
			return nil, fmt.Errorf("item %s, user %s: %w", row.ReceiptItemID, row.UserID, err)
		}
		if !a.Contains(row.ReceiptItemID, row.UserID) {
			a[row.ReceiptItemID] = append(a[row.ReceiptItemID], row.UserID)
		}
	}
	return a, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
