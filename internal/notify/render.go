package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/billo/billo/internal/models"
)

// render builds the email for one recipient. users holds both parties;
// a missing profile falls back to "Someone".
func render(kind Kind, s models.Settlement, recipient *models.User, users map[string]*models.User, appURL string) Email {
	amount := FormatAmount(s.Amount, s.Currency)
	debtor := displayName(users[s.FromUserID])
	creditor := displayName(users[s.ToUserID])
	youOwe := recipient.ID == s.FromUserID

	var subject, line string
	switch kind {
	case KindSettlementCreated:
		subject = fmt.Sprintf("You owe %s %s", creditor, amount)
		line = fmt.Sprintf("A new settlement was recorded: you owe %s %s.", creditor, amount)
	case KindPaymentConfirmed:
		subject = fmt.Sprintf("Payment of %s confirmed", amount)
		if youOwe {
			line = fmt.Sprintf("Your payment of %s to %s was marked as paid.", amount, creditor)
		} else {
			line = fmt.Sprintf("%s's payment of %s to you was marked as paid.", debtor, amount)
		}
	case KindPaymentUnmarked:
		subject = fmt.Sprintf("Payment of %s marked as unpaid", amount)
		if youOwe {
			line = fmt.Sprintf("Your payment of %s to %s was marked as unpaid.", amount, creditor)
		} else {
			line = fmt.Sprintf("%s's payment of %s to you was marked as unpaid.", debtor, amount)
		}
	}

	link := ""
	if appURL != "" {
		link = strings.TrimRight(appURL, "/") + "/settlements/" + s.ID
	}

	text := fmt.Sprintf("Hi %s,\n\n%s\n", displayName(recipient), line)
	if s.Notes != "" {
		text += "\nNotes: " + s.Notes + "\n"
	}
	if link != "" {
		text += "\n" + link + "\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<p>Hi %s,</p>\n<p>%s</p>\n", html.EscapeString(displayName(recipient)), html.EscapeString(line))
	if s.Notes != "" {
		fmt.Fprintf(&b, "<p>Notes: %s</p>\n", html.EscapeString(s.Notes))
	}
	if link != "" {
		fmt.Fprintf(&b, "<p><a href=\"%s\">View settlement</a></p>\n", html.EscapeString(link))
	}

	return Email{
		To:      recipient.Email,
		Subject: subject,
		HTML:    b.String(),
		Text:    text,
	}
}

func displayName(u *models.User) string {
	if u == nil {
		return "Someone"
	}
	if u.Name != "" {
		return u.Name
	}
	if u.Email != "" {
		return u.Email
	}
	return "Someone"
}
