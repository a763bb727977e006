// Package gate decides whether a due break shows immediately or is deferred
// until a detected meeting ends. It owns the single pending-break slot.
package gate

import (
	"sync"
	"time"

	"github.com/bryanchriswhite/breakwall/internal/logger"
	"github.com/bryanchriswhite/breakwall/internal/meeting"
)

// Detector reports the current meeting status.
type Detector interface {
	Detect() meeting.Status
}

// Presenter shows the break overlays.
type Presenter interface {
	ShowBreak(duration time.Duration) error
}

// Notifier delivers a fire-and-forget desktop notification.
type Notifier interface {
	Notify(title, body string)
}

// Options contains runtime tunables for the gate.
type Options struct {
	// RecheckInterval is how long to wait before re-testing a meeting
	// that deferred a break. Defaults to 30s. Rechecks repeat unbounded
	// until the meeting ends or a new break supersedes the pending one.
	RecheckInterval time.Duration
}

// Gate routes due breaks either to the presenter or into the pending slot.
type Gate struct {
	detector  Detector
	presenter Presenter
	notifier  Notifier
	options   Options

	mu                 sync.Mutex
	skipDuringMeetings bool
	pending            *time.Duration
	recheckTimer       *time.Timer
	closed             bool
}

// New creates a gate.
func New(detector Detector, presenter Presenter, notifier Notifier, skipDuringMeetings bool, options Options) *Gate {
	if options.RecheckInterval <= 0 {
		options.RecheckInterval = 30 * time.Second
	}
	return &Gate{
		detector:           detector,
		presenter:          presenter,
		notifier:           notifier,
		options:            options,
		skipDuringMeetings: skipDuringMeetings,
	}
}

// SetSkipDuringMeetings toggles meeting deferral after a settings edit.
func (g *Gate) SetSkipDuringMeetings(enabled bool) {
	g.mu.Lock()
	g.skipDuringMeetings = enabled
	g.mu.Unlock()
}

// HasPending reports whether a deferred break is waiting for a meeting to
// end.
func (g *Gate) HasPending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending != nil
}

// RequestBreak shows the break now unless the user is in a meeting, in which
// case it parks the break in the pending slot and schedules a recheck. A new
// request always supersedes a previously pending break.
func (g *Gate) RequestBreak(duration time.Duration) {
	log := logger.WithComponent("gate")

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}

	if g.skipDuringMeetings && g.detector.Detect() == meeting.InMeeting {
		g.pending = &duration
		g.scheduleRecheckLocked()
		g.mu.Unlock()

		log.Info().Dur("duration", duration).Msg("Break postponed, meeting in progress")
		if g.notifier != nil {
			g.notifier.Notify("Break postponed",
				"You seem to be in a meeting. Your break will start once it ends.")
		}
		return
	}

	g.clearPendingLocked()
	g.mu.Unlock()

	g.show(duration)
}

// RecheckPending re-tests the meeting status for a deferred break. No-op
// when nothing is pending (the break may have started through another path).
func (g *Gate) RecheckPending() {
	g.mu.Lock()
	if g.closed || g.pending == nil {
		g.mu.Unlock()
		return
	}

	if g.detector.Detect() == meeting.InMeeting {
		g.scheduleRecheckLocked()
		g.mu.Unlock()
		logger.WithComponent("gate").Debug().Msg("Meeting still in progress, break stays pending")
		return
	}

	duration := *g.pending
	g.clearPendingLocked()
	g.mu.Unlock()

	logger.WithComponent("gate").Info().Dur("duration", duration).Msg("Meeting ended, showing deferred break")
	g.show(duration)
}

// Shutdown cancels any scheduled recheck.
func (g *Gate) Shutdown() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	g.clearPendingLocked()
}

func (g *Gate) show(duration time.Duration) {
	if err := g.presenter.ShowBreak(duration); err != nil {
		logger.WithComponent("gate").Warn().Err(err).Msg("Failed to show break")
	}
}

func (g *Gate) scheduleRecheckLocked() {
	if g.recheckTimer != nil {
		g.recheckTimer.Stop()
	}
	g.recheckTimer = time.AfterFunc(g.options.RecheckInterval, g.RecheckPending)
}

func (g *Gate) clearPendingLocked() {
	g.pending = nil
	if g.recheckTimer != nil {
		g.recheckTimer.Stop()
		g.recheckTimer = nil
	}
}
