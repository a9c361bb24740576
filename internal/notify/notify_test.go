package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/billo/billo/internal/metrics"
	"github.com/billo/billo/internal/models"
)

type fakeSender struct {
	mu     sync.Mutex
	sent   []Email
	failTo string
}

func (f *fakeSender) Send(_ context.Context, email Email) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if email.To == f.failTo {
		return errors.New("smtp down")
	}
	f.sent = append(f.sent, email)
	return nil
}

func (f *fakeSender) recipients() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.sent {
		out = append(out, e.To)
	}
	return out
}

type fakeUsers map[string]*models.User

func (f fakeUsers) GetUsersByIDs(_ context.Context, ids []string) (map[string]*models.User, error) {
	out := make(map[string]*models.User)
	for _, id := range ids {
		if u, ok := f[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func testUsers() fakeUsers {
	alice := models.NewUser("alice", "Alice", "alice@example.com", "")
	bob := models.NewUser("bob", "Bob", "bob@example.com", "")
	carol := models.NewUser("carol", "Carol", "carol@example.com", "")
	carol.Preferences.PaymentConfirmed = false
	return fakeUsers{"alice": alice, "bob": bob, "carol": carol}
}

func testSettlement(from, to string) models.Settlement {
	return models.Settlement{
		ID:         "s1",
		FromUserID: from,
		ToUserID:   to,
		Amount:     decimal.RequireFromString("12.5"),
		Currency:   "USD",
		Status:     models.SettlementCompleted,
	}
}

func TestDispatcherDelivers(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(testUsers(), sender, metrics.New(prometheus.NewRegistry()), Options{AppURL: "https://billo.app"})
	d.Start()

	d.Enqueue(KindPaymentConfirmed, testSettlement("bob", "alice"), "bob", "alice")
	d.Shutdown()

	got := sender.recipients()
	if len(got) != 2 {
		t.Fatalf("expected 2 emails, got %v", got)
	}
	for _, e := range sender.sent {
		if !strings.Contains(e.Subject, "$12.50") {
			t.Errorf("subject %q should contain formatted amount", e.Subject)
		}
		if !strings.Contains(e.Text, "https://billo.app/settlements/s1") {
			t.Errorf("text should link to the settlement: %q", e.Text)
		}
	}
}

func TestDispatcherHonoursPreferences(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(testUsers(), sender, nil, Options{})
	d.Start()

	// Carol opted out of payment confirmations; "ghost" has no profile.
	d.Enqueue(KindPaymentConfirmed, testSettlement("carol", "alice"), "carol", "alice", "ghost")
	d.Shutdown()

	got := sender.recipients()
	if len(got) != 1 || got[0] != "alice@example.com" {
		t.Errorf("recipients = %v, want [alice@example.com]", got)
	}
}

func TestDispatcherSwallowsSendErrors(t *testing.T) {
	sender := &fakeSender{failTo: "bob@example.com"}
	d := NewDispatcher(testUsers(), sender, nil, Options{})
	d.Start()

	d.Enqueue(KindPaymentUnmarked, testSettlement("bob", "alice"), "bob", "alice")
	d.Shutdown()

	got := sender.recipients()
	if len(got) != 1 || got[0] != "alice@example.com" {
		t.Errorf("recipients = %v, want [alice@example.com]", got)
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(testUsers(), sender, nil, Options{BufferSize: 1})

	// Not started yet, so the second event does not fit.
	d.Enqueue(KindSettlementCreated, testSettlement("bob", "alice"), "bob")
	d.Enqueue(KindSettlementCreated, testSettlement("carol", "alice"), "carol")

	d.Start()
	d.Shutdown()

	got := sender.recipients()
	if len(got) != 1 || got[0] != "bob@example.com" {
		t.Errorf("recipients = %v, want [bob@example.com]", got)
	}

	// Events after shutdown are dropped.
	d.Enqueue(KindSettlementCreated, testSettlement("bob", "alice"), "bob")
	if n := len(sender.recipients()); n != 1 {
		t.Errorf("expected no new emails after shutdown, got %d", n)
	}
}

func TestNilDispatcher(t *testing.T) {
	var d *Dispatcher
	d.Enqueue(KindSettlementCreated, testSettlement("bob", "alice"), "bob")
	d.Shutdown()
}

func TestKindEnabled(t *testing.T) {
	prefs := models.NotificationPreferences{SettlementCreated: true}
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindSettlementCreated, true},
		{KindPaymentConfirmed, false},
		{KindPaymentUnmarked, false},
		{Kind("other"), false},
	}
	for _, tt := range tests {
		if got := tt.kind.Enabled(prefs); got != tt.want {
			t.Errorf("%s.Enabled = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

func TestRender(t *testing.T) {
	users := testUsers()
	s := testSettlement("bob", "alice")
	s.Notes = "<b>dinner</b>"

	t.Run("created goes to the debtor", func(t *testing.T) {
		e := render(KindSettlementCreated, s, users["bob"], users, "")
		if e.To != "bob@example.com" {
			t.Errorf("To = %q", e.To)
		}
		if e.Subject != "You owe Alice $12.50" {
			t.Errorf("Subject = %q", e.Subject)
		}
		if strings.Contains(e.HTML, "<b>dinner</b>") {
			t.Error("notes must be escaped in HTML")
		}
	})

	t.Run("confirmed wording depends on the side", func(t *testing.T) {
		debtor := render(KindPaymentConfirmed, s, users["bob"], users, "")
		creditor := render(KindPaymentConfirmed, s, users["alice"], users, "")
		if !strings.Contains(debtor.Text, "Your payment of $12.50 to Alice") {
			t.Errorf("debtor text = %q", debtor.Text)
		}
		if !strings.Contains(creditor.Text, "Bob's payment of $12.50 to you") {
			t.Errorf("creditor text = %q", creditor.Text)
		}
	})

	t.Run("unmarked", func(t *testing.T) {
		e := render(KindPaymentUnmarked, s, users["alice"], users, "")
		if !strings.Contains(e.Subject, "unpaid") {
			t.Errorf("Subject = %q", e.Subject)
		}
	})
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		want     string
	}{
		{"12.5", "USD", "$12.50"},
		{"1234.567", "usd", "$1,234.57"},
		{"7", "", "$7.00"},
		{"10", "EUR", "€10.00"},
		{"1500", "JPY", "¥1,500"},
		{"3.1", "XYZ", "3.10 XYZ"},
	}
	for _, tt := range tests {
		t.Run(tt.currency+tt.amount, func(t *testing.T) {
			if got := FormatAmount(decimal.RequireFromString(tt.amount), tt.currency); got != tt.want {
				t.Errorf("FormatAmount(%s, %q) = %q, want %q", tt.amount, tt.currency, got, tt.want)
			}
		})
	}
}
