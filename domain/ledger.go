// SPDX-License-Identifier: GPL-3.0-or-later
package domain

//go:generate mockgen -destination=mocks/ledger.go -package=mocks . Ledger

// Ledger remembers which uids have already been processed. Entries only
// accumulate; the set empties when the process restarts.
type Ledger interface {
	Has(uid uint32) bool
	Add(uid uint32)
	Len() int
}
