package service

import (
	"context"
	"testing"

	"connectrpc.com/connect"

	"github.com/billo/billo/internal/auth"
	"github.com/billo/billo/internal/middleware"
	"github.com/billo/billo/internal/models"
)

func TestCreateReceipt(t *testing.T) {
	f := setup(t)

	r := f.receipt
	if r.ID == "" || r.OwnerID != "alice" || r.GroupID != f.group.ID {
		t.Errorf("receipt = %+v", r)
	}
	if r.Status != models.ReceiptStatusDraft || r.Source != models.ReceiptSourceManual {
		t.Errorf("status/source = %s/%s", r.Status, r.Source)
	}
	if !r.Tax.Equal(dec("3")) {
		t.Errorf("tax = %s, want 3", r.Tax)
	}
	if !r.Total.Equal(dec("33")) {
		t.Errorf("total = %s, want 33", r.Total)
	}
	if r.Currency != "USD" {
		t.Errorf("currency = %s, want USD", r.Currency)
	}
	if len(r.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(r.Items))
	}
	beer := r.Items[1]
	if beer.Quantity != 2 || !beer.TotalPrice.Equal(dec("10")) {
		t.Errorf("beer = %+v", beer)
	}
	pizza := r.Items[0]
	if pizza.Quantity != 1 || !pizza.UnitPrice.Equal(dec("20")) {
		t.Errorf("pizza = %+v", pizza)
	}

	got, err := f.receipts.Get(as("carol"), r.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got.Items) != 2 || got.Items[0].Name != "Pizza" {
		t.Errorf("items not in position order: %+v", got.Items)
	}
}

func TestCreateReceiptExplicitTotal(t *testing.T) {
	f := setup(t)

	r, err := f.receipts.Create(as("dave"), CreateReceiptInput{
		Currency: "eur",
		Source:   "scanned",
		Total:    decPtr("12.34"),
		Items:    []ItemInput{{Name: " Coffee ", UnitPrice: decPtr("3")}},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !r.Total.Equal(dec("12.34")) || r.Currency != "EUR" || r.Source != models.ReceiptSourceScanned {
		t.Errorf("receipt = %+v", r)
	}
	if r.Items[0].Name != "Coffee" || !r.Items[0].TotalPrice.Equal(dec("3")) {
		t.Errorf("item = %+v", r.Items[0])
	}

	// An ungrouped receipt is visible to its owner only.
	_, err = f.receipts.Get(as("alice"), r.ID)
	wantCode(t, err, connect.CodeNotFound)
}

func TestCreateReceiptRejects(t *testing.T) {
	f := setup(t)
	item := []ItemInput{{Name: "Tea", TotalPrice: decPtr("2")}}

	tests := []struct {
		name string
		user string
		in   CreateReceiptInput
		code connect.Code
	}{
		{"no items", "alice", CreateReceiptInput{}, connect.CodeInvalidArgument},
		{"blank item name", "alice", CreateReceiptInput{Items: []ItemInput{{Name: " "}}}, connect.CodeInvalidArgument},
		{"negative price", "alice", CreateReceiptInput{Items: []ItemInput{{Name: "Refund", TotalPrice: decPtr("-1")}}}, connect.CodeInvalidArgument},
		{"negative tax", "alice", CreateReceiptInput{Tax: "-2", Items: item}, connect.CodeInvalidArgument},
		{"unknown source", "alice", CreateReceiptInput{Source: "fax", Items: item}, connect.CodeInvalidArgument},
		{"bad group id", "alice", CreateReceiptInput{GroupID: "dinner", Items: item}, connect.CodeInvalidArgument},
		{"foreign group", "dave", CreateReceiptInput{GroupID: f.group.ID, Items: item}, connect.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.receipts.Create(as(tt.user), tt.in)
			wantCode(t, err, tt.code)
		})
	}

	_, err := f.receipts.Create(context.Background(), CreateReceiptInput{Items: item})
	wantCode(t, err, connect.CodeUnauthenticated)
}

func TestGetReceiptHidden(t *testing.T) {
	f := setup(t)

	_, err := f.receipts.Get(as("dave"), f.receipt.ID)
	wantCode(t, err, connect.CodeNotFound)

	_, err = f.receipts.Get(as("alice"), "6a1f5c2e-0000-4000-8000-000000000000")
	wantCode(t, err, connect.CodeNotFound)
}

func TestGroupService(t *testing.T) {
	f := setup(t)

	g := f.group
	if len(g.Members) != 3 {
		t.Fatalf("expected 3 members, got %d", len(g.Members))
	}
	if !isAdmin(g, "alice") || isAdmin(g, "bob") {
		t.Errorf("roles = %+v", g.Members)
	}
	for _, m := range g.Members {
		if m.Name == "" {
			t.Errorf("member %s has no profile", m.UserID)
		}
	}

	_, err := f.groups.Get(as("dave"), g.ID)
	wantCode(t, err, connect.CodeNotFound)

	_, err = f.groups.AddMember(as("bob"), g.ID, "dave", "")
	wantCode(t, err, connect.CodePermissionDenied)

	_, err = f.groups.AddMember(as("alice"), g.ID, "dave", "owner")
	wantCode(t, err, connect.CodeInvalidArgument)

	updated, err := f.groups.AddMember(as("alice"), g.ID, "dave", "")
	if err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}
	if !updated.HasMember("dave") || isAdmin(updated, "dave") {
		t.Errorf("members = %+v", updated.Members)
	}

	// Adding twice is harmless.
	again, err := f.groups.AddMember(as("alice"), g.ID, "dave", models.RoleMember)
	if err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}
	if len(again.Members) != 4 {
		t.Errorf("expected 4 members, got %d", len(again.Members))
	}

	// dave can now see the receipt and be assigned.
	if _, err := f.receipts.Get(as("dave"), f.receipt.ID); err != nil {
		t.Errorf("Get receipt as new member failed: %v", err)
	}

	_, err = f.groups.Create(as("alice"), "  ", nil)
	wantCode(t, err, connect.CodeInvalidArgument)
}

func TestUserService(t *testing.T) {
	f := setup(t)

	ctx := middleware.WithClaims(context.Background(), &auth.Claims{
		UserID: "erin",
		Email:  "erin@example.com",
	})
	u, err := f.users.SyncMe(ctx)
	if err != nil {
		t.Fatalf("SyncMe failed: %v", err)
	}
	if u.Name != "erin@example.com" {
		t.Errorf("name = %q, want email fallback", u.Name)
	}
	if u.Preferences != models.DefaultPreferences() {
		t.Errorf("preferences = %+v, want defaults", u.Preferences)
	}

	off := false
	u, err = f.users.UpdatePreferences(ctx, PreferencesInput{PaymentUnmarked: &off})
	if err != nil {
		t.Fatalf("UpdatePreferences failed: %v", err)
	}
	want := models.NotificationPreferences{SettlementCreated: true, PaymentConfirmed: true}
	if u.Preferences != want {
		t.Errorf("preferences = %+v, want %+v", u.Preferences, want)
	}

	// A later sync refreshes the profile but keeps preferences.
	ctx = middleware.WithClaims(context.Background(), &auth.Claims{
		UserID: "erin",
		Email:  "erin@example.com",
		Name:   "Erin",
	})
	u, err = f.users.SyncMe(ctx)
	if err != nil {
		t.Fatalf("SyncMe failed: %v", err)
	}
	if u.Name != "Erin" || u.Preferences != want {
		t.Errorf("user = %+v", u)
	}

	_, err = f.users.UpdatePreferences(as("nobody"), PreferencesInput{})
	wantCode(t, err, connect.CodeNotFound)
}
