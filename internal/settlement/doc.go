// Package settlement holds the ledger rules for receipt settlements: turning
// per-person totals into debts owed to the payer, the status lifecycle, and
// the policy deciding whether a receipt may be split again.
//
// Everything here is pure. Persistence and notification delivery belong to
// the service layer, which applies the Effects returned by Transition.
package settlement
