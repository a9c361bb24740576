package settlement

import (
	"errors"
	"testing"

	"github.com/billo/billo/internal/models"
)

func TestTransition(t *testing.T) {
	const (
		pending   = models.SettlementPending
		completed = models.SettlementCompleted
		cancelled = models.SettlementCancelled
	)

	tests := []struct {
		name    string
		from    models.SettlementStatus
		to      models.SettlementStatus
		want    Effect
		wantErr error
	}{
		{"mark paid", pending, completed, Effect{StampSettledAt: true, Notify: NotifyPaymentConfirmed}, nil},
		{"unmark", completed, pending, Effect{ClearSettledAt: true, Notify: NotifyPaymentUnmarked}, nil},
		{"cancel pending", pending, cancelled, Effect{}, nil},
		{"cancel completed", completed, cancelled, Effect{ClearSettledAt: true}, nil},
		{"reopen cancelled", cancelled, pending, Effect{}, nil},
		{"re-submit completed", completed, completed, Effect{NoOp: true}, nil},
		{"re-submit pending", pending, pending, Effect{NoOp: true}, nil},
		{"cancelled cannot be paid directly", cancelled, completed, Effect{}, ErrInvalidTransition},
		{"unknown target", pending, "refunded", Effect{}, ErrInvalidStatus},
		{"unknown source", "", pending, Effect{}, ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transition(tt.from, tt.to)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("effect = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCanDelete(t *testing.T) {
	if err := CanDelete(models.SettlementPending); err != nil {
		t.Errorf("pending should be deletable: %v", err)
	}
	for _, s := range []models.SettlementStatus{models.SettlementCompleted, models.SettlementCancelled} {
		if err := CanDelete(s); !errors.Is(err, ErrNotDeletable) {
			t.Errorf("CanDelete(%s) = %v, want ErrNotDeletable", s, err)
		}
	}
}
