// SPDX-License-Identifier: GPL-3.0-or-later
package domain

import "errors"

// Failure categories of the pipeline. Adapters wrap the underlying cause
// together with one of these so callers can sort failures with errors.Is.
var (
	// Connection-level failures abort the running poll cycle.
	ErrAuthentication = errors.New("authentication rejected")
	ErrConnectivity   = errors.New("server unreachable")
	ErrProtocol       = errors.New("protocol failure")
	ErrMailbox        = errors.New("mailbox unavailable")
	ErrFetch          = errors.New("fetch aborted")

	// Message-level failures skip the affected message, the cycle continues.
	ErrParse                 = errors.New("unreadable message")
	ErrClassifierUnavailable = errors.New("classifier unavailable")
	ErrMalformedResponse     = errors.New("malformed classifier verdict")
)
