package timer

import "time"

// EventType defines the kind of machine event delivered to subscribers.
type EventType string

const (
	// EventStarted fires when the countdown begins or resumes.
	EventStarted EventType = "started"
	// EventPaused fires when the countdown is frozen.
	EventPaused EventType = "paused"
	// EventReset fires when remaining time is reset to the phase duration.
	EventReset EventType = "reset"
	// EventTick fires once per countdown tick with the updated snapshot.
	EventTick EventType = "tick"
	// EventPhaseChange fires on every work/break transition, including
	// skip and snooze. State.OnBreak carries the NEW phase.
	EventPhaseChange EventType = "phase_change"
)

// Reason distinguishes how a phase change came about.
type Reason string

const (
	ReasonCompleted Reason = "completed"
	ReasonSkipped   Reason = "skipped"
	ReasonSnoozed   Reason = "snoozed"
)

// Event is a machine update delivered to subscribers.
type Event struct {
	Type   EventType
	State  State
	Reason Reason
	// BreakDuration is set on a work->break phase change: the length the
	// upcoming break should run for (long or short).
	BreakDuration time.Duration
	At            time.Time
}
