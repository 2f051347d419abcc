// SPDX-License-Identifier: GPL-3.0-or-later
package notifier

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

// syncBuffer guards a bytes.Buffer against the alert goroutines writing
// while the test reads.
type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func testNotifier(out io.Writer, pulses int, spacing time.Duration, commands [][]string) *Notifier {
	ctx, cancel := context.WithCancel(context.Background())
	return &Notifier{
		pulses:   pulses,
		spacing:  spacing,
		commands: commands,
		out:      out,
		ctx:      ctx,
		cancel:   cancel,
		l:        nullLogger(),
	}
}

func markerCount(s string) int {
	return strings.Count(s, Marker)
}

func TestAlertEmitsFixedPulseCount(t *testing.T) {
	out := &syncBuffer{}
	n := testNotifier(out, 3, time.Millisecond, nil)

	n.Alert()
	n.wg.Wait()

	assert.Equal(t, 3, markerCount(out.String()))
}

func TestAlertIsNonBlocking(t *testing.T) {
	out := &syncBuffer{}
	n := testNotifier(out, 5, time.Minute, nil)

	start := time.Now()
	n.Alert()
	assert.Less(t, time.Since(start), time.Second)

	// The first pulse fires right away, the rest would take minutes.
	assert.Eventually(t, func() bool { return markerCount(out.String()) == 1 }, 2*time.Second, time.Millisecond)

	n.Close()
	assert.Equal(t, 1, markerCount(out.String()))
}

func TestCloseCancelsOutstandingAlerts(t *testing.T) {
	out := &syncBuffer{}
	n := testNotifier(out, 10, time.Minute, nil)

	n.Alert()
	n.Alert()
	assert.Eventually(t, func() bool { return markerCount(out.String()) == 2 }, 2*time.Second, time.Millisecond)

	n.Close()

	// One pulse per alert, the remaining ones were cancelled.
	assert.Equal(t, 2, markerCount(out.String()))
}

func TestAlertAfterCloseEmitsNothing(t *testing.T) {
	out := &syncBuffer{}
	n := testNotifier(out, 3, time.Millisecond, nil)

	n.Close()
	n.Alert()
	n.wg.Wait()

	assert.Equal(t, 0, markerCount(out.String()))
}

func TestPulseFallsThroughFailedCommands(t *testing.T) {
	out := &syncBuffer{}
	n := testNotifier(out, 1, time.Millisecond, [][]string{
		{"/nonexistent/sound-player", "beep.wav"},
		{"/also/nonexistent"},
	})

	n.Alert()
	n.wg.Wait()

	assert.Equal(t, 1, markerCount(out.String()))
}

func TestSoundCommands(t *testing.T) {
	tests := []struct {
		goos     string
		expected []string
	}{
		{"darwin", []string{"afplay"}},
		{"linux", []string{"paplay", "aplay"}},
		{"windows", []string{"powershell"}},
		{"plan9", nil},
	}
	for _, tc := range tests {
		t.Run(tc.goos, func(t *testing.T) {
			commands := soundCommands(tc.goos)
			assert.Len(t, commands, len(tc.expected))
			for i, command := range commands {
				assert.Equal(t, tc.expected[i], command[0])
			}
		})
	}
}

func nullLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
