// SPDX-License-Identifier: GPL-3.0-or-later
package domain

//go:generate mockgen -destination=mocks/notifier.go -package=mocks . Notifier

// Notifier announces a discovery. Alert returns immediately, the
// announcement itself runs in the background.
type Notifier interface {
	Alert()
}
