// SPDX-License-Identifier: GPL-3.0-or-later
package imapconnection

//go:generate mockgen -destination=imap_mocks_test.go -package=imapconnection -source imap.go
import (
	"fmt"
	"io"

	"github.com/mailwatch/mailwatch/domain"
	"github.com/mailwatch/mailwatch/log"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/sirupsen/logrus"
)

// mailboxClient is the slice of the go-imap client this adapter relies on.
type mailboxClient interface {
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)
	UidSearch(criteria *imap.SearchCriteria) (uids []uint32, err error)
	UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error
	UidStore(seqset *imap.SeqSet, item imap.StoreItem, value interface{}, ch chan *imap.Message) error
	Logout() error
}

type ImapConnection struct {
	connection mailboxClient

	server, user string

	selectedMailbox string
	closed          bool

	l *logrus.Logger
}

// Connect dials the server and logs in. The returned connection serves
// exactly one poll cycle: connect, use, close.
func Connect(server string, useTLS bool, user string, password string) (*ImapConnection, error) {
	var imapClient *client.Client
	var err error
	if useTLS {
		imapClient, err = client.DialTLS(server, nil)
	} else {
		imapClient, err = client.Dial(server)
	}
	if err != nil {
		return nil, fmt.Errorf("could not dial %s: %w: %w", server, domain.ErrConnectivity, err)
	}

	err = imapClient.Login(user, password)
	if err != nil {
		_ = imapClient.Logout()
		return nil, fmt.Errorf("could not login as %s: %w: %w", user, domain.ErrAuthentication, err)
	}

	conn := &ImapConnection{
		connection: imapClient,
		server:     server,
		user:       user,
		l:          log.Logger(log.LOG_IMAP),
	}

	conn.l.WithFields(logrus.Fields{"server": server, "user": user}).Debug("Logged in to server")

	return conn, nil
}

func (ic *ImapConnection) Select(mailbox string, readOnly bool) (*domain.MailboxInfo, error) {
	m, err := ic.connection.Select(mailbox, readOnly)
	if err != nil {
		return nil, fmt.Errorf("could not select mailbox %s: %w: %w", mailbox, domain.ErrMailbox, err)
	}

	ic.selectedMailbox = mailbox
	return &domain.MailboxInfo{Name: mailbox, Messages: m.Messages}, nil
}

func (ic *ImapConnection) SearchUids(criterion domain.SearchCriterion) ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	if criterion.UnseenOnly {
		criteria.WithoutFlags = []string{imap.SeenFlag}
	}
	if criterion.Subject != "" {
		criteria.Header.Add("Subject", criterion.Subject)
	}

	ids, err := ic.connection.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("could not search mailbox %s: %w: %w", ic.selectedMailbox, domain.ErrProtocol, err)
	}

	return ids, nil
}

// FetchEach streams the full bodies of the given uids and hands each one to
// fn as it arrives, in the order the server yields them. Messages are peeked,
// fetching does not set the seen flag. When the stream breaks mid-way, fn is
// not called for the remaining messages and the error reports the abort;
// messages handed out before the break stand.
func (ic *ImapConnection) FetchEach(uids []uint32, fn func(message *domain.RawMessage)) error {
	seqset := &imap.SeqSet{}
	seqset.AddNum(uids...)

	fullBodySection := &imap.BodySectionName{
		Peek: true,
	}
	fetchItems := []imap.FetchItem{imap.FetchUid, fullBodySection.FetchItem()}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- ic.connection.UidFetch(seqset, fetchItems, messages)
	}()

	var readErr error
	for msg := range messages {
		if readErr != nil {
			// Drain so the fetch goroutine can finish.
			continue
		}

		r := msg.GetBody(fullBodySection)
		if r == nil {
			readErr = fmt.Errorf("server returned no body for uid %d", msg.Uid)
			continue
		}

		rawBody, err := io.ReadAll(r)
		if err != nil {
			readErr = fmt.Errorf("could not read mail body of uid %d: %w", msg.Uid, err)
			continue
		}

		fn(&domain.RawMessage{Uid: msg.Uid, Raw: rawBody})
	}

	err := <-done
	if err == nil {
		err = readErr
	}
	if err != nil {
		return fmt.Errorf("could not fetch mails: %w: %w", domain.ErrFetch, err)
	}

	return nil
}

func (ic *ImapConnection) AddSeenFlag(uids []uint32) error {
	seqset := &imap.SeqSet{}
	seqset.AddNum(uids...)
	err := ic.connection.UidStore(seqset, imap.FormatFlagsOp(imap.AddFlags, true), []interface{}{imap.SeenFlag}, nil)
	if err != nil {
		return fmt.Errorf("could not set seen flag: %w: %w", domain.ErrProtocol, err)
	}

	return nil
}

// Close logs out. Safe to call more than once, every call after the first
// is a no-op.
func (ic *ImapConnection) Close() error {
	if ic.closed {
		return nil
	}
	ic.closed = true

	err := ic.connection.Logout()
	if err != nil {
		return fmt.Errorf("could not logout: %w", err)
	}

	return nil
}
