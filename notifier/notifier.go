// SPDX-License-Identifier: GPL-3.0-or-later

// Package notifier raises audible alerts for newly discovered mails. An
// alert is a fixed train of pulses emitted in the background, the caller
// never waits for it.
package notifier

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/mailwatch/mailwatch/log"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	Pulses       = 10
	PulseSpacing = 2 * time.Second
)

// Marker is written to the output when no sound mechanism works. The
// leading BEL still nudges terminals that beep on it.
const Marker = "\a*** NEW EMAIL ALERT ***"

type Notifier struct {
	pulses   int
	spacing  time.Duration
	commands [][]string
	out      io.Writer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	l *logrus.Logger
}

func NewNotifier(out io.Writer) *Notifier {
	ctx, cancel := context.WithCancel(context.Background())
	return &Notifier{
		pulses:   Pulses,
		spacing:  PulseSpacing,
		commands: soundCommands(runtime.GOOS),
		out:      out,
		ctx:      ctx,
		cancel:   cancel,
		l:        log.Logger(log.LOG_NOTIFIER),
	}
}

// Alert schedules one alert run and returns immediately. Each run pulses
// on its own schedule, observable only through its completion log line.
func (n *Notifier) Alert() {
	id := uuid.New().String()
	n.l.WithField("alert", id).Info("Alerting")

	n.wg.Add(1)
	go n.run(id)
}

func (n *Notifier) run(id string) {
	defer n.wg.Done()

	for i := 0; i < n.pulses; i++ {
		if n.ctx.Err() != nil {
			n.l.WithFields(logrus.Fields{"alert": id, "pulses": i}).Debug("Alert cancelled")
			return
		}

		n.pulse()

		if i < n.pulses-1 {
			select {
			case <-n.ctx.Done():
				n.l.WithFields(logrus.Fields{"alert": id, "pulses": i + 1}).Debug("Alert cancelled")
				return
			case <-time.After(n.spacing):
			}
		}
	}

	n.l.WithField("alert", id).Debug("Alert complete")
}

// pulse tries the platform sound commands in order and stops at the first
// one that works. When none does, a visible marker goes to the output.
func (n *Notifier) pulse() {
	for _, command := range n.commands {
		cmd := exec.CommandContext(n.ctx, command[0], command[1:]...)
		if err := cmd.Run(); err != nil {
			n.l.WithFields(logrus.Fields{"command": command[0], "error": err}).Debug("Sound command failed")
			continue
		}
		return
	}

	fmt.Fprintln(n.out, Marker)
}

// Close cancels outstanding alert runs and waits for them to wind down.
// Meant for process shutdown, stopping the monitor leaves alerts running.
func (n *Notifier) Close() {
	n.cancel()
	n.wg.Wait()
}

func soundCommands(goos string) [][]string {
	switch goos {
	case "darwin":
		return [][]string{
			{"afplay", "/System/Library/Sounds/Glass.aiff"},
		}
	case "linux":
		return [][]string{
			{"paplay", "/usr/share/sounds/freedesktop/stereo/complete.oga"},
			{"aplay", "-q", "/usr/share/sounds/alsa/Front_Center.wav"},
		}
	case "windows":
		return [][]string{
			{"powershell", "-NoProfile", "-Command", "[console]::beep(800,300)"},
		}
	}

	return nil
}
