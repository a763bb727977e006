// Package timer implements the work/break cycle state machine. A single
// authority goroutine mutates the state; overlay surfaces and API clients
// only observe it through subscriber channels.
package timer

import (
	"sync"
	"time"

	"github.com/bryanchriswhite/breakwall/internal/config"
	"github.com/bryanchriswhite/breakwall/internal/logger"
)

// State is a snapshot of the machine, safe to hand to observers.
type State struct {
	Running          bool `json:"running"`
	OnBreak          bool `json:"on_break"`
	RemainingSeconds int  `json:"remaining_seconds"`
	CycleCount       int  `json:"cycle_count"`
	TotalBreaksTaken int  `json:"total_breaks_taken"`
}

// Options contains runtime tunables for the machine.
type Options struct {
	// TickInterval is the countdown granularity. Defaults to one second.
	TickInterval time.Duration
	// RestartDelay is the pause before the work countdown auto-restarts
	// after a break ends (or is skipped/snoozed). Defaults to 500ms.
	RestartDelay time.Duration
}

// Machine owns the work/break cycle state.
type Machine struct {
	mu       sync.Mutex
	settings config.TimerSettings
	options  Options
	state    State

	stopCh       chan struct{}
	restartTimer *time.Timer
	listeners    []chan Event
	closed       bool
}

// New creates a stopped machine in the work phase.
func New(settings config.TimerSettings, options Options) *Machine {
	if options.TickInterval <= 0 {
		options.TickInterval = time.Second
	}
	if options.RestartDelay <= 0 {
		options.RestartDelay = 500 * time.Millisecond
	}

	return &Machine{
		settings: settings,
		options:  options,
		state: State{
			RemainingSeconds: settings.WorkDurationMinutes * 60,
		},
	}
}

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers a new observer channel.
func (m *Machine) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	m.mu.Lock()
	m.listeners = append(m.listeners, ch)
	m.mu.Unlock()
	return ch
}

// Start begins the countdown for the current phase. No-op if already running.
func (m *Machine) Start() {
	m.mu.Lock()
	if m.state.Running || m.closed {
		m.mu.Unlock()
		return
	}
	m.state.Running = true
	m.cancelRestartLocked()
	stopCh := make(chan struct{})
	m.stopCh = stopCh
	snapshot := m.state
	m.mu.Unlock()

	m.emit(Event{Type: EventStarted, State: snapshot, At: time.Now()})
	go m.run(stopCh)
}

// Pause freezes the countdown and cancels any pending auto-restart.
// Idempotent.
func (m *Machine) Pause() {
	m.mu.Lock()
	m.cancelRestartLocked()
	if !m.state.Running {
		m.mu.Unlock()
		return
	}
	m.pauseLocked()
	snapshot := m.state
	m.mu.Unlock()

	m.emit(Event{Type: EventPaused, State: snapshot, At: time.Now()})
}

// Reset pauses the machine and restores the full duration of the current
// phase. The machine is left stopped.
func (m *Machine) Reset() {
	m.mu.Lock()
	m.cancelRestartLocked()
	m.pauseLocked()
	m.state.RemainingSeconds = m.phaseDurationSecondsLocked()
	snapshot := m.state
	m.mu.Unlock()

	m.emit(Event{Type: EventReset, State: snapshot, At: time.Now()})
}

// SkipBreak force-transitions to the work phase, counting the break as
// taken. No-op outside a break.
func (m *Machine) SkipBreak() {
	m.endBreak(ReasonSkipped)
}

// SnoozeBreak force-transitions to the work phase without counting a break
// taken. Timer-wise identical to SkipBreak.
func (m *Machine) SnoozeBreak() {
	m.endBreak(ReasonSnoozed)
}

// UpdateSettings applies edited durations. A stopped machine sitting at the
// full duration of its phase picks up the new duration immediately; a
// running countdown keeps its remaining time and the new settings apply
// from the next phase.
func (m *Machine) UpdateSettings(settings config.TimerSettings) {
	m.mu.Lock()
	atFull := !m.state.Running && m.state.RemainingSeconds == m.phaseDurationSecondsLocked()
	m.settings = settings
	if atFull {
		m.state.RemainingSeconds = m.phaseDurationSecondsLocked()
	}
	m.mu.Unlock()
}

// Stop halts the machine and closes all subscriber channels. The machine
// cannot be restarted afterwards.
func (m *Machine) Stop() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.cancelRestartLocked()
	m.pauseLocked()
	// Close under the lock: emit also sends under it, so no send can race
	// the close.
	for _, ch := range m.listeners {
		close(ch)
	}
	m.listeners = nil
	m.mu.Unlock()
}

func (m *Machine) run(stopCh chan struct{}) {
	ticker := time.NewTicker(m.options.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if done := m.tick(); done {
				return
			}
		}
	}
}

// tick advances the countdown by one interval. Returns true when the
// countdown finished and the loop should exit.
func (m *Machine) tick() bool {
	m.mu.Lock()
	if !m.state.Running {
		m.mu.Unlock()
		return true
	}

	if m.state.RemainingSeconds > 0 {
		m.state.RemainingSeconds--
	}
	if m.state.RemainingSeconds > 0 {
		snapshot := m.state
		m.mu.Unlock()
		m.emit(Event{Type: EventTick, State: snapshot, At: time.Now()})
		return false
	}

	// Countdown reached zero: transition phases.
	m.pauseLocked()
	event := m.transitionLocked(ReasonCompleted)
	m.mu.Unlock()

	m.emit(event)
	return true
}

// transitionLocked toggles the phase, updates counters, and arms the
// auto-restart when entering the work phase. Returns the phase-change event
// to emit after unlocking.
func (m *Machine) transitionLocked(reason Reason) Event {
	wasOnBreak := m.state.OnBreak
	m.state.OnBreak = !wasOnBreak && reason == ReasonCompleted

	event := Event{Type: EventPhaseChange, Reason: reason, At: time.Now()}

	if m.state.OnBreak {
		// work -> break
		m.state.CycleCount++
		duration := m.breakDurationLocked()
		m.state.RemainingSeconds = int(duration / time.Second)
		event.BreakDuration = duration
	} else {
		// break -> work (completion, skip or snooze)
		if reason != ReasonSnoozed {
			m.state.TotalBreaksTaken++
		}
		m.state.RemainingSeconds = m.settings.WorkDurationMinutes * 60
		m.armRestartLocked()
	}

	event.State = m.state
	logger.WithComponent("timer").Debug().
		Bool("on_break", m.state.OnBreak).
		Str("reason", string(reason)).
		Int("cycle_count", m.state.CycleCount).
		Msg("Phase change")
	return event
}

func (m *Machine) endBreak(reason Reason) {
	m.mu.Lock()
	if !m.state.OnBreak {
		m.mu.Unlock()
		return
	}
	m.cancelRestartLocked()
	m.pauseLocked()
	event := m.transitionLocked(reason)
	m.mu.Unlock()

	m.emit(event)
}

// breakDurationLocked picks the long break every Nth completed cycle.
func (m *Machine) breakDurationLocked() time.Duration {
	interval := m.settings.LongBreakIntervalCycles
	if interval > 0 && m.state.CycleCount%interval == 0 {
		return m.settings.LongBreakDuration()
	}
	return m.settings.BreakDuration()
}

func (m *Machine) phaseDurationSecondsLocked() int {
	if m.state.OnBreak {
		return m.settings.BreakDurationSeconds
	}
	return m.settings.WorkDurationMinutes * 60
}

// pauseLocked stops the countdown goroutine without emitting events.
func (m *Machine) pauseLocked() {
	m.state.Running = false
	if m.stopCh != nil {
		close(m.stopCh)
		m.stopCh = nil
	}
}

func (m *Machine) armRestartLocked() {
	if m.closed {
		return
	}
	m.cancelRestartLocked()
	m.restartTimer = time.AfterFunc(m.options.RestartDelay, m.Start)
}

func (m *Machine) cancelRestartLocked() {
	if m.restartTimer != nil {
		m.restartTimer.Stop()
		m.restartTimer = nil
	}
}

func (m *Machine) emit(event Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ch := range m.listeners {
		select {
		case ch <- event:
		default:
			// Skip slow observers rather than block the authority
		}
	}
}
