// Package models defines the core domain models for Billo.
//
// # Receipts and assignments
//
// A Receipt owns its ReceiptItems. Splitting a receipt means assigning each
// item to one or more users; the persisted form of that mapping is a set of
// ItemAssignment rows, one per (item, user) pair.
//
// # Settlements
//
// A Settlement is a directed debt from a debtor to the receipt owner. Rows
// derived from assignment math are always written as a batch for one receipt
// and replaced as a batch; nothing updates the amount of a single row.
//
// # Design Principles
//
//  1. Money is decimal.Decimal, never float64.
//  2. Relationships are ID strings, not pointers.
//  3. Only the receipt owner is ever a creditor for receipt-derived rows
//     (star topology).
package models
