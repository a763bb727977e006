package foreground

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/godbus/dbus/v5"
)

const kwinService = "org.kde.KWin"

// KWinBackend reads the active window on KDE Plasma Wayland sessions, where
// X11 properties only cover XWayland clients. KWin itself is probed over
// D-Bus; window queries go through kdotool, which drives the KWin scripting
// API.
type KWinBackend struct {
	conn *dbus.Conn
}

// NewKWinBackend verifies a KWin session bus presence and kdotool
// availability.
func NewKWinBackend() (*KWinBackend, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("%w: session bus: %v", ErrUnavailable, err)
	}

	var hasOwner bool
	err = conn.BusObject().
		Call("org.freedesktop.DBus.NameHasOwner", 0, kwinService).
		Store(&hasOwner)
	if err != nil || !hasOwner {
		conn.Close()
		return nil, fmt.Errorf("%w: KWin not present on session bus", ErrUnavailable)
	}

	if _, err := exec.LookPath("kdotool"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: kdotool not found", ErrUnavailable)
	}

	return &KWinBackend{conn: conn}, nil
}

// Name returns the backend name
func (b *KWinBackend) Name() string { return "kwin" }

// Close closes the session bus connection
func (b *KWinBackend) Close() error {
	return b.conn.Close()
}

// ActiveWindow queries the active window through kdotool.
func (b *KWinBackend) ActiveWindow() (*WindowInfo, error) {
	id, err := kdotool("getactivewindow")
	if err != nil {
		return nil, fmt.Errorf("failed to query active window: %w", err)
	}
	if id == "" {
		return nil, fmt.Errorf("no active window")
	}

	info := &WindowInfo{}

	// Title and class lookups may individually fail on short-lived
	// windows; report what was readable.
	if title, err := kdotool("getwindowname", id); err == nil {
		info.Title = title
	}
	if class, err := kdotool("getwindowclassname", id); err == nil {
		info.Class = class
	}

	return info, nil
}

func kdotool(args ...string) (string, error) {
	out, err := exec.Command("kdotool", args...).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
