// SPDX-License-Identifier: GPL-3.0-or-later
package domain

//go:generate mockgen -destination=mocks/imap.go -package=mocks . MailConnector
type SearchCriterion struct {
	UnseenOnly bool
	Subject    string
}

type RawMessage struct {
	Uid uint32
	Raw []byte
}

type MailboxInfo struct {
	Name     string
	Messages uint32
}

// A MailConnector is one live imap session. Sessions last a single poll
// cycle: connect, use, close.
type MailConnector interface {
	Select(mailbox string, readOnly bool) (*MailboxInfo, error)
	SearchUids(criterion SearchCriterion) ([]uint32, error)
	FetchEach(uids []uint32, fn func(*RawMessage)) error
	AddSeenFlag(uids []uint32) error

	Close() error
}

// ConnectFunc opens a fresh imap session.
type ConnectFunc func() (MailConnector, error)
