// Package notify delivers settlement emails in the background. Delivery is
// best effort: failures are logged and counted, never returned to the
// request that triggered them.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/resend/resend-go/v2"
	"github.com/shopspring/decimal"

	"github.com/billo/billo/internal/models"
)

// Kind is a notification category. Each one maps to a user preference.
type Kind string

const (
	KindSettlementCreated Kind = "settlement_created"
	KindPaymentConfirmed  Kind = "payment_confirmed"
	KindPaymentUnmarked   Kind = "payment_unmarked"
)

// Enabled reports whether prefs opt in to k. Unknown kinds are never sent.
func (k Kind) Enabled(prefs models.NotificationPreferences) bool {
	switch k {
	case KindSettlementCreated:
		return prefs.SettlementCreated
	case KindPaymentConfirmed:
		return prefs.PaymentConfirmed
	case KindPaymentUnmarked:
		return prefs.PaymentUnmarked
	}
	return false
}

// Email is a rendered message.
type Email struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers one email.
type Sender interface {
	Send(ctx context.Context, email Email) error
}

// ResendSender sends through the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

func (s *ResendSender) Send(ctx context.Context, email Email) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{email.To},
		Subject: email.Subject,
		Html:    email.HTML,
		Text:    email.Text,
	}

	res, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	slog.Debug("Email sent", "to", email.To, "message_id", res.Id)
	return nil
}

// LogSender only logs. It is used when no API key is configured.
type LogSender struct{}

func (LogSender) Send(_ context.Context, email Email) error {
	slog.Info("Email (not sent)", "to", email.To, "subject", email.Subject)
	return nil
}

// FormatAmount renders amount in currency, e.g. "$12.50". Unknown currency
// codes fall back to "12.50 XYZ".
func FormatAmount(amount decimal.Decimal, currency string) string {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		code = money.USD
	}
	c := money.GetCurrency(code)
	if c == nil {
		return amount.StringFixed(2) + " " + code
	}
	minor := amount.Shift(int32(c.Fraction)).Round(0).IntPart()
	return money.New(minor, code).Display()
}
