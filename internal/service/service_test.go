package service

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/billo/billo/internal/middleware"
	"github.com/billo/billo/internal/models"
	"github.com/billo/billo/internal/notify"
	"github.com/billo/billo/internal/storage/sqlstore"
)

type sentNotification struct {
	kind       notify.Kind
	settlement models.Settlement
	recipients []string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (f *fakeNotifier) Enqueue(kind notify.Kind, s models.Settlement, recipients ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentNotification{kind: kind, settlement: s, recipients: recipients})
}

func (f *fakeNotifier) count(kind notify.Kind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.sent {
		if s.kind == kind {
			n++
		}
	}
	return n
}

// fixture is a group of alice (admin, owner of the receipt), bob and carol,
// plus dave who belongs to nothing.
type fixture struct {
	store       *sqlstore.Store
	notifier    *fakeNotifier
	receipts    *ReceiptService
	groups      *GroupService
	users       *UserService
	assignments *AssignmentService
	settlements *SettlementService

	group   *models.Group
	receipt *models.Receipt
}

func setup(t *testing.T) *fixture {
	t.Helper()

	// Create temp database
	tmpDir, err := os.MkdirTemp("", "billo-service-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	store, err := sqlstore.New(sqlstore.DriverSQLite, filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	f := &fixture{
		store:       store,
		notifier:    &fakeNotifier{},
		receipts:    NewReceiptService(store, "USD"),
		groups:      NewGroupService(store),
		users:       NewUserService(store),
		assignments: NewAssignmentService(store),
	}
	f.settlements = NewSettlementService(store, f.notifier, nil, "USD")

	for _, u := range []*models.User{
		models.NewUser("alice", "Alice", "alice@example.com", ""),
		models.NewUser("bob", "Bob", "bob@example.com", ""),
		models.NewUser("carol", "Carol", "carol@example.com", ""),
		models.NewUser("dave", "Dave", "dave@example.com", ""),
	} {
		if err := store.UpsertUser(context.Background(), u); err != nil {
			t.Fatalf("UpsertUser failed: %v", err)
		}
	}

	f.group, err = f.groups.Create(as("alice"), "Dinner Club", []string{"bob", "carol"})
	if err != nil {
		t.Fatalf("Create group failed: %v", err)
	}

	f.receipt, err = f.receipts.Create(as("alice"), CreateReceiptInput{
		GroupID:      f.group.ID,
		MerchantName: "Trattoria",
		Tax:          "$3.00",
		Items: []ItemInput{
			{Name: "Pizza", TotalPrice: decPtr("20")},
			{Name: "Beer", Quantity: 2, UnitPrice: decPtr("5")},
		},
	})
	if err != nil {
		t.Fatalf("Create receipt failed: %v", err)
	}
	return f
}

func as(userID string) context.Context {
	return middleware.WithUserID(context.Background(), userID)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func (f *fixture) pizza() string {
	return f.receipt.Items[0].ID
}

func (f *fixture) beer() string {
	return f.receipt.Items[1].ID
}

// defaultAssignments: Pizza -> alice, bob; Beer -> bob, carol.
// With $3 tax: alice 11.00, bob 16.50, carol 5.50.
func (f *fixture) defaultAssignments() []AssignmentInput {
	return []AssignmentInput{
		{ReceiptItemID: f.pizza(), UserID: "alice", SplitType: "full"},
		{ReceiptItemID: f.pizza(), UserID: "bob", SplitType: "full"},
		{ReceiptItemID: f.beer(), UserID: "bob"},
		{ReceiptItemID: f.beer(), UserID: "carol"},
	}
}

func (f *fixture) saveDefault(t *testing.T) {
	t.Helper()
	if _, err := f.assignments.SaveAssignments(as("alice"), f.receipt.ID, f.defaultAssignments()); err != nil {
		t.Fatalf("SaveAssignments failed: %v", err)
	}
}

func wantCode(t *testing.T, err error, code connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", code)
	}
	if got := connect.CodeOf(err); got != code {
		t.Fatalf("code = %v, want %v (err: %v)", got, code, err)
	}
}
