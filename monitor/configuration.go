// SPDX-License-Identifier: GPL-3.0-or-later
package monitor

import (
	"fmt"
	"io"
	"time"
)

const (
	DefaultInterval = 10 * time.Second
	DefaultMailbox  = "INBOX"
)

type ConfigFunc func(c *configuration) error

// Interval sets the wall-clock period between scheduled poll cycles.
func Interval(interval time.Duration) ConfigFunc {
	return func(c *configuration) error {
		if interval <= 0 {
			return fmt.Errorf("Interval must be positive")
		}

		c.Interval = interval
		return nil
	}
}

// Subject sets the subject line the monitor watches for.
func Subject(subject string) ConfigFunc {
	return func(c *configuration) error {
		if len(subject) == 0 {
			return fmt.Errorf("Subject cannot be empty")
		}

		c.Subject = subject
		return nil
	}
}

// Mailbox sets the watched mailbox.
func Mailbox(mailbox string) ConfigFunc {
	return func(c *configuration) error {
		if len(mailbox) == 0 {
			return fmt.Errorf("Mailbox cannot be empty")
		}

		c.Mailbox = mailbox
		return nil
	}
}

// MarkSeen makes the monitor store the seen flag on processed mails.
func MarkSeen() ConfigFunc {
	return func(c *configuration) error {
		c.MarkSeen = true
		return nil
	}
}

// Output redirects the rendered reports, default is standard out.
func Output(w io.Writer) ConfigFunc {
	return func(c *configuration) error {
		if w == nil {
			return fmt.Errorf("Output cannot be nil")
		}

		c.Output = w
		return nil
	}
}

type configuration struct {
	Interval time.Duration
	Subject  string
	Mailbox  string
	MarkSeen bool
	Output   io.Writer
}
