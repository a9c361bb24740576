package settlement

import (
	"errors"
	"fmt"

	"github.com/billo/billo/internal/models"
)

var (
	ErrInvalidStatus     = errors.New("invalid settlement status")
	ErrInvalidTransition = errors.New("invalid settlement status transition")
	ErrNotDeletable      = errors.New("only pending settlements can be deleted")
)

// NotificationKind names the notification a transition should send.
type NotificationKind string

const (
	NotifyNone             NotificationKind = ""
	NotifyCreated          NotificationKind = "settlement_created"
	NotifyPaymentConfirmed NotificationKind = "payment_confirmed"
	NotifyPaymentUnmarked  NotificationKind = "payment_unmarked"
)

// Effect is what the caller must do after an accepted transition.
type Effect struct {
	// NoOp is set when the status does not change. SettledAt is left alone
	// and nothing is sent.
	NoOp bool

	StampSettledAt bool
	ClearSettledAt bool

	Notify NotificationKind
}

// validTransitions lists the accepted next states. Same-state requests are
// handled before the lookup.
var validTransitions = map[models.SettlementStatus][]models.SettlementStatus{
	models.SettlementPending:   {models.SettlementCompleted, models.SettlementCancelled},
	models.SettlementCompleted: {models.SettlementPending, models.SettlementCancelled},
	// Reopening is allowed; a cancelled debt must be reopened before it can
	// be marked paid.
	models.SettlementCancelled: {models.SettlementPending},
}

// Transition validates current -> next and returns its side effects.
func Transition(current, next models.SettlementStatus) (Effect, error) {
	if !next.Valid() {
		return Effect{}, fmt.Errorf("%w: %q", ErrInvalidStatus, next)
	}
	if !current.Valid() {
		return Effect{}, fmt.Errorf("%w: %q", ErrInvalidStatus, current)
	}
	if current == next {
		return Effect{NoOp: true}, nil
	}

	allowed := false
	for _, s := range validTransitions[current] {
		if s == next {
			allowed = true
			break
		}
	}
	if !allowed {
		return Effect{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
	}

	var eff Effect
	switch {
	case next == models.SettlementCompleted:
		eff.StampSettledAt = true
		eff.Notify = NotifyPaymentConfirmed
	case current == models.SettlementCompleted && next == models.SettlementPending:
		eff.ClearSettledAt = true
		eff.Notify = NotifyPaymentUnmarked
	case current == models.SettlementCompleted:
		eff.ClearSettledAt = true
	}
	return eff, nil
}

// CanDelete returns ErrNotDeletable unless status is pending.
func CanDelete(status models.SettlementStatus) error {
	if status != models.SettlementPending {
		return fmt.Errorf("%w: settlement is %s", ErrNotDeletable, status)
	}
	return nil
}
