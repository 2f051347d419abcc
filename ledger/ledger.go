// SPDX-License-Identifier: GPL-3.0-or-later

// Package ledger keeps the process-lifetime record of already-processed
// mails. The record lives in memory only, a restart starts over and any
// still-unseen matching mail gets processed again.
package ledger

import (
	"sync"

	"github.com/mailwatch/mailwatch/log"

	"github.com/sirupsen/logrus"
)

type Ledger struct {
	mu   sync.Mutex
	uids map[uint32]struct{}

	l *logrus.Logger
}

func New() *Ledger {
	return &Ledger{
		uids: map[uint32]struct{}{},
		l:    log.Logger(log.LOG_LEDGER),
	}
}

func (le *Ledger) Has(uid uint32) bool {
	le.mu.Lock()
	defer le.mu.Unlock()

	_, ok := le.uids[uid]
	return ok
}

// Add records a uid. Recording the same uid again is a no-op.
func (le *Ledger) Add(uid uint32) {
	le.mu.Lock()
	defer le.mu.Unlock()

	if _, ok := le.uids[uid]; ok {
		return
	}

	le.uids[uid] = struct{}{}
	le.l.WithFields(logrus.Fields{"uid": uid, "total": len(le.uids)}).Debug("Recorded mail as processed")
}

func (le *Ledger) Len() int {
	le.mu.Lock()
	defer le.mu.Unlock()

	return len(le.uids)
}
