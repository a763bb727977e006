// Package meeting classifies the foreground window as a meeting or not, so
// breaks can be postponed instead of interrupting a call.
package meeting

import (
	"errors"
	"strings"
	"sync"

	"github.com/bryanchriswhite/breakwall/internal/config"
	"github.com/bryanchriswhite/breakwall/internal/foreground"
	"github.com/bryanchriswhite/breakwall/internal/logger"
)

// Status is the outcome of a meeting check.
type Status string

const (
	// NotInMeeting means the foreground window is not a known meeting.
	NotInMeeting Status = "not_in_meeting"
	// InMeeting means a meeting app or meeting URL is in the foreground.
	InMeeting Status = "in_meeting"
	// Unavailable means foreground inspection is impossible on this
	// session; callers must not postpone breaks on its account.
	Unavailable Status = "unavailable"
)

// Detector queries the foreground backend and classifies the result.
type Detector struct {
	backend foreground.Backend

	mu       sync.RWMutex
	settings config.MeetingSettings

	unavailableLogged bool
}

// NewDetector creates a detector over the given backend. A nil backend is
// allowed and yields Unavailable on every check.
func NewDetector(backend foreground.Backend, settings config.MeetingSettings) *Detector {
	return &Detector{backend: backend, settings: settings}
}

// UpdateSettings swaps the allow-lists after a settings edit.
func (d *Detector) UpdateSettings(settings config.MeetingSettings) {
	d.mu.Lock()
	d.settings = settings
	d.mu.Unlock()
}

// Detect reports whether the user currently appears to be in a meeting.
// Transient query failures classify as NotInMeeting; a missing capability
// classifies as Unavailable.
func (d *Detector) Detect() Status {
	log := logger.WithComponent("meeting")

	if d.backend == nil {
		d.logUnavailableOnce()
		return Unavailable
	}

	info, err := d.backend.ActiveWindow()
	if err != nil {
		if errors.Is(err, foreground.ErrUnavailable) {
			d.logUnavailableOnce()
			return Unavailable
		}
		log.Debug().Err(err).Msg("Foreground query failed, assuming no meeting")
		return NotInMeeting
	}

	d.mu.RLock()
	settings := d.settings
	d.mu.RUnlock()

	status := Classify(info, settings)
	log.Debug().
		Str("class", info.Class).
		Str("status", string(status)).
		Msg("Foreground window classified")
	return status
}

func (d *Detector) logUnavailableOnce() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.unavailableLogged {
		return
	}
	d.unavailableLogged = true
	logger.WithComponent("meeting").Warn().
		Msg("Foreground inspection unavailable; meeting detection disabled")
}

// Classify applies the allow-lists to a foreground window. Dedicated
// meeting clients match on window class; browsers match the window title
// against known meeting URL fragments, and an unreadable browser title is
// treated as a meeting (fail-safe toward not interrupting a possible call).
func Classify(info *foreground.WindowInfo, settings config.MeetingSettings) Status {
	if info == nil {
		return NotInMeeting
	}

	for _, app := range settings.MeetingApps {
		if containsFold(info.Class, app) || containsFold(info.Title, app) {
			return InMeeting
		}
	}

	for _, browser := range settings.BrowserClasses {
		if !strings.EqualFold(info.Class, browser) {
			continue
		}
		if info.Title == "" {
			return InMeeting
		}
		for _, fragment := range settings.URLSubstrings {
			if containsFold(info.Title, fragment) {
				return InMeeting
			}
		}
		return NotInMeeting
	}

	return NotInMeeting
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
