package settlement

import (
	"errors"

	"github.com/billo/billo/internal/models"
)

var (
	ErrResplitBlocked           = errors.New("receipt has completed settlements; mark them unpaid or cancel them before splitting again")
	ErrResplitNeedsConfirmation = errors.New("receipt already has pending settlements; confirm to replace them")
)

// ResplitStatus classifies the settlements already generated for a receipt.
type ResplitStatus struct {
	HasSettlements          bool
	HasCompletedSettlements bool
	HasPendingSettlements   bool
}

// Classify inspects existing rows.
func Classify(rows []models.Settlement) ResplitStatus {
	var st ResplitStatus
	for _, s := range rows {
		st.HasSettlements = true
		switch s.Status {
		case models.SettlementCompleted:
			st.HasCompletedSettlements = true
		case models.SettlementPending:
			st.HasPendingSettlements = true
		}
	}
	return st
}

// NeedsConfirmation reports whether the user must confirm before rows are replaced.
func (st ResplitStatus) NeedsConfirmation() bool {
	return st.HasSettlements && !st.HasCompletedSettlements
}

// Decide applies the re-split policy. With no settlements the split proceeds.
// Any completed settlement blocks it. Otherwise explicit confirmation is
// required because pending rows will be destroyed.
func (st ResplitStatus) Decide(confirmed bool) error {
	switch {
	case !st.HasSettlements:
		return nil
	case st.HasCompletedSettlements:
		return ErrResplitBlocked
	case !confirmed:
		return ErrResplitNeedsConfirmation
	}
	return nil
}
