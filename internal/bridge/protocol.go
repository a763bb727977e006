// Package bridge carries the message-passing contract between the timer
// authority and out-of-process overlay surfaces. State queries are explicit
// typed request/response pairs; no remote code evaluation.
package bridge

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message is the envelope for all bridge messages.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates an authority-originated message with the current
// timestamp.
func NewMessage(msgType string, payload interface{}) (*Message, error) {
	var data json.RawMessage
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		data = encoded
	}
	return &Message{
		Type:      msgType,
		Payload:   data,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Authority → overlay message types.
const (
	TypeBreakStart    = "break:start"
	TypeTimerUpdate   = "break:timer-update"
	TypeBreakEnd      = "break:end"
	TypeStateResponse = "state:response"
	TypeError         = "error"
)

// Overlay → authority message types.
const (
	TypeHello        = "overlay:hello"
	TypeBreakSkip    = "break:skip"
	TypeBreakSnooze  = "break:snooze"
	TypeStateRequest = "state:request"
)

// Error codes.
const (
	ErrInvalidMessage = "INVALID_MESSAGE"
	ErrUnknownType    = "UNKNOWN_TYPE"
)

// BreakStartPayload announces an active break to a surface that just
// finished loading. Remaining may be lower than Duration when the surface
// attached mid-break.
type BreakStartPayload struct {
	DurationSeconds  int `json:"durationSeconds"`
	RemainingSeconds int `json:"remainingSeconds"`
}

// TimerUpdatePayload is the broadcast countdown tick.
type TimerUpdatePayload struct {
	RemainingSeconds int `json:"remainingSeconds"`
}

// StateRequestPayload asks for a timer state snapshot. The ID is echoed in
// the response so callers can match replies and time out unanswered
// requests.
type StateRequestPayload struct {
	ID string `json:"id"`
}

// StateResponsePayload carries the authoritative timer snapshot.
type StateResponsePayload struct {
	ID               string `json:"id"`
	Running          bool   `json:"running"`
	OnBreak          bool   `json:"onBreak"`
	RemainingSeconds int    `json:"remainingSeconds"`
	CycleCount       int    `json:"cycleCount"`
	TotalBreaksTaken int    `json:"totalBreaksTaken"`
}

// ErrorPayload reports a rejected message.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
