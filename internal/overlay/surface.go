// Package overlay manages the fleet of full-screen break surfaces, one per
// connected display. The fleet is the single source of truth for remaining
// break time; surfaces are pure display sinks and never run their own
// countdown, so all displays converge on the same value every broadcast.
package overlay

import "github.com/bryanchriswhite/breakwall/internal/displays"

// Surface is one full-screen break overlay on a single display.
type Surface interface {
	// Display returns the display this surface covers.
	Display() displays.Display

	// Ready reports whether the surface has finished loading its content
	// and may receive remaining-time updates.
	Ready() bool

	// Show renders the initial content and makes the surface visible,
	// fullscreen and above all other windows.
	Show() error

	// SetRemaining pushes an updated remaining-time value. Safe to call
	// on a surface that is not ready or already closed; such calls are
	// dropped.
	SetRemaining(seconds int)

	// Close hides and destroys the surface. Idempotent.
	Close()
}

// Factory creates a surface for a display, seeded with the break length so
// the first visible frame already shows a countdown.
type Factory func(display displays.Display, totalSeconds int) (Surface, error)
