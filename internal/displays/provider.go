// Package displays enumerates connected monitors and reports topology
// changes. Displays carry a stable platform identifier so the overlay fleet
// can diff by identity instead of bounds proximity.
package displays

// Display describes one connected monitor.
type Display struct {
	// ID is the platform's stable identifier for the display (the RandR
	// CRTC on X11). It survives topology changes on other displays.
	ID     uint32 `json:"id"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Provider enumerates connected displays and notifies on topology changes.
type Provider interface {
	// Displays returns the currently connected displays.
	Displays() ([]Display, error)

	// Subscribe returns a channel receiving the full new topology
	// whenever it changes.
	Subscribe() chan []Display

	// Unsubscribe removes a listener channel.
	Unsubscribe(ch chan []Display)

	// Stop halts change monitoring and releases resources.
	Stop()
}
