// Package foreground inspects the currently focused window. This requires
// display-server access; on sessions where that is unavailable the backends
// report ErrUnavailable and callers degrade gracefully.
package foreground

import (
	"errors"
	"os"

	"github.com/bryanchriswhite/breakwall/internal/logger"
)

// ErrUnavailable indicates foreground inspection is not possible on this
// session (no display server connection, missing permission or tooling).
var ErrUnavailable = errors.New("foreground window inspection unavailable")

// WindowInfo describes the focused window.
type WindowInfo struct {
	ID    uint32 `json:"id"`
	Title string `json:"title"`
	Class string `json:"class"`
}

// Backend defines the interface for foreground-window inspection backends
// (X11, KWin, etc.)
type Backend interface {
	// ActiveWindow returns the currently focused window. Implementations
	// return an error wrapping ErrUnavailable when the capability is
	// missing rather than when a single query transiently fails.
	ActiveWindow() (*WindowInfo, error)

	// Close releases the display-server connection
	Close() error

	// Name returns the backend name (e.g., "x11", "kwin")
	Name() string
}

// NewBackend picks the best backend for the current session: KWin on
// Plasma/Wayland, X11 otherwise. Returns ErrUnavailable when neither works.
func NewBackend() (Backend, error) {
	log := logger.WithComponent("foreground")

	if os.Getenv("WAYLAND_DISPLAY") != "" {
		if backend, err := NewKWinBackend(); err == nil {
			log.Info().Str("backend", backend.Name()).Msg("Foreground backend selected")
			return backend, nil
		} else {
			log.Debug().Err(err).Msg("KWin backend unavailable, trying X11")
		}
	}

	backend, err := NewX11Backend()
	if err != nil {
		return nil, err
	}
	log.Info().Str("backend", backend.Name()).Msg("Foreground backend selected")
	return backend, nil
}
