// SPDX-License-Identifier: GPL-3.0-or-later

// Package monitor drives the poll loop over the watched mailbox: connect,
// search, alert, fetch, parse, classify, render, record, disconnect. One
// Monitor owns the scheduling state, the control surface only pokes it.
package monitor

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mailwatch/mailwatch/domain"
	"github.com/mailwatch/mailwatch/log"
	"github.com/mailwatch/mailwatch/mail"
	"github.com/mailwatch/mailwatch/report"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// State describes what the scheduler is up to.
type State string

const (
	StateIdle         = State("idle")
	StateScheduled    = State("scheduled")
	StateCycleRunning = State("cycle-running")
)

// ErrCycleInFlight reports that a poll cycle was not started because the
// previous one has not finished. Nothing is rescheduled, the next tick or
// manual check covers the skipped work.
var ErrCycleInFlight = errors.New("a poll cycle is already in flight")

// CycleStats counts what one poll cycle saw and did.
type CycleStats struct {
	// Matched is the number of unseen mails carrying the watched subject.
	Matched int
	// New is how many of those the ledger had not recorded yet.
	New int
	// Processed counts mails fetched and recorded this cycle.
	Processed int
	// Classified counts mails that received a verdict.
	Classified int
}

type Monitor struct {
	connect    domain.ConnectFunc
	classifier domain.Classifier
	notifier   domain.Notifier
	ledger     domain.Ledger

	configuration *configuration

	mu      sync.Mutex
	running bool
	stop    chan struct{}

	inFlight atomic.Bool

	l *logrus.Logger
}

func New(connect domain.ConnectFunc, classifier domain.Classifier, notifier domain.Notifier, ledger domain.Ledger, configFunc ...ConfigFunc) (*Monitor, error) {
	config := &configuration{
		Interval: DefaultInterval,
		Mailbox:  DefaultMailbox,
		Output:   os.Stdout,
	}
	for _, f := range configFunc {
		err := f(config)
		if err != nil {
			return nil, fmt.Errorf("error applying configuration: %w", err)
		}
	}

	if len(config.Subject) == 0 {
		return nil, fmt.Errorf("a watched subject is required, apply the Subject option")
	}

	return &Monitor{
		connect:       connect,
		classifier:    classifier,
		notifier:      notifier,
		ledger:        ledger,
		configuration: config,
		l:             log.Logger(log.LOG_MONITOR),
	}, nil
}

// Start arms the scheduler. It reports false when monitoring is already
// running. The first cycle runs right away, the ticker covers the rest.
func (m *Monitor) Start() bool {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return false
	}
	m.running = true
	stop := make(chan struct{})
	m.stop = stop
	m.mu.Unlock()

	m.l.WithFields(logrus.Fields{
		"interval": m.configuration.Interval,
		"mailbox":  m.configuration.Mailbox,
		"subject":  m.configuration.Subject,
	}).Info("Monitoring started")

	go m.loop(stop)
	return true
}

// Stop disarms the scheduler. It reports false when monitoring is not
// running. A cycle already in flight is not interrupted, it finishes and
// the idle state then keeps the loop from re-arming.
func (m *Monitor) Stop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return false
	}

	m.running = false
	close(m.stop)
	m.stop = nil

	m.l.Info("Monitoring stopped")
	return true
}

func (m *Monitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.running
}

// State reports idle while the scheduler is disarmed, cycle-running while
// a cycle executes and scheduled in between.
func (m *Monitor) State() State {
	if !m.IsRunning() {
		return StateIdle
	}
	if m.inFlight.Load() {
		return StateCycleRunning
	}

	return StateScheduled
}

func (m *Monitor) loop(stop chan struct{}) {
	go m.runScheduled()

	ticker := time.NewTicker(m.configuration.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			// The period is wall-clock fixed, not compensated for cycle
			// duration. A cycle outlasting it is caught by the in-flight
			// guard below, the tick after that tries again.
			go m.runScheduled()
		}
	}
}

func (m *Monitor) runScheduled() {
	_, err := m.RunOnce(false)
	switch {
	case errors.Is(err, ErrCycleInFlight):
		m.l.Info("Skipping poll cycle, previous cycle still in flight")
	case err != nil:
		m.l.WithField("error", err).Error("Poll cycle failed")
	}
}

// RunOnce executes exactly one poll cycle. It never touches the
// scheduler's running state, manual checks work whether the scheduler is
// armed or idle. Only one cycle runs at a time, a second caller gets
// ErrCycleInFlight.
func (m *Monitor) RunOnce(manual bool) (*CycleStats, error) {
	if !m.inFlight.CompareAndSwap(false, true) {
		return nil, ErrCycleInFlight
	}
	defer m.inFlight.Store(false)

	return m.cycle(manual)
}

func (m *Monitor) cycle(manual bool) (*CycleStats, error) {
	start := time.Now()
	cl := m.l.WithFields(logrus.Fields{"cycle": uuid.New().String(), "manual": manual})
	cl.Debug("Poll cycle starting")

	conn, err := m.connect()
	if err != nil {
		return nil, fmt.Errorf("could not connect: %w", err)
	}
	// The session never outlives the cycle, whatever happens below.
	defer func() {
		if err := conn.Close(); err != nil {
			cl.WithField("error", err).Warn("Could not close imap session")
		}
	}()

	// Read-write select so the seen flag can be stored when configured.
	mailbox, err := conn.Select(m.configuration.Mailbox, false)
	if err != nil {
		return nil, fmt.Errorf("could not select mailbox: %w", err)
	}

	uids, err := conn.SearchUids(domain.SearchCriterion{UnseenOnly: true, Subject: m.configuration.Subject})
	if err != nil {
		return nil, fmt.Errorf("could not search for matching mails: %w", err)
	}

	newUids := []uint32{}
	for _, uid := range uids {
		if !m.ledger.Has(uid) {
			newUids = append(newUids, uid)
		}
	}

	stats := &CycleStats{Matched: len(uids), New: len(newUids)}
	cl.WithFields(logrus.Fields{"total": mailbox.Messages, "matched": stats.Matched, "new": stats.New}).Debug("Searched mailbox")

	if len(newUids) == 0 {
		if manual {
			// A manual check with nothing new still alerts once so the
			// sound path can be verified end to end.
			m.notifier.Alert()
		}
		cl.WithField("duration", time.Since(start)).Info("No new mails")
		return stats, nil
	}

	// One alert per new mail, all fired before the first fetch.
	for range newUids {
		m.notifier.Alert()
	}

	processed := []uint32{}
	fetchErr := conn.FetchEach(newUids, func(raw *domain.RawMessage) {
		m.process(cl, raw, stats)
		processed = append(processed, raw.Uid)
	})
	if fetchErr != nil {
		// Mails handed out before the break are processed and recorded,
		// the rest stays unseen for a later cycle.
		return stats, fmt.Errorf("could not fetch new mails: %w", fetchErr)
	}

	if m.configuration.MarkSeen && len(processed) > 0 {
		if err := conn.AddSeenFlag(processed); err != nil {
			cl.WithField("error", err).Warn("Could not mark mails as seen")
		}
	}

	cl.WithFields(logrus.Fields{"duration": time.Since(start), "processed": stats.Processed, "classified": stats.Classified}).Info("Poll cycle complete")
	return stats, nil
}

// process handles one fetched mail. The uid is recorded whatever happens
// here, a mail the system cannot parse or classify must not come back on
// the next cycle.
func (m *Monitor) process(cl *logrus.Entry, raw *domain.RawMessage, stats *CycleStats) {
	defer func() {
		m.ledger.Add(raw.Uid)
		stats.Processed++
	}()

	parsed, err := mail.Parse(raw.Raw)
	if err != nil {
		cl.WithFields(logrus.Fields{"uid": raw.Uid, "error": err}).Error("Could not parse mail")
		return
	}

	fmt.Fprint(m.configuration.Output, report.RenderMessage(parsed))

	classification, err := m.classifier.Classify(parsed.From, parsed.Subject, parsed.Body)
	if err != nil {
		cl.WithFields(logrus.Fields{"uid": raw.Uid, "subject": mail.ShortSubject(parsed.Subject), "error": err}).Error("Could not classify mail")
		fmt.Fprint(m.configuration.Output, report.RenderClassificationError(err))
		return
	}

	stats.Classified++
	cl.WithFields(logrus.Fields{
		"uid":        raw.Uid,
		"subject":    mail.ShortSubject(parsed.Subject),
		"label":      classification.Label,
		"confidence": classification.Confidence,
	}).Info("Classified mail")
	fmt.Fprint(m.configuration.Output, report.RenderClassification(classification))
}
