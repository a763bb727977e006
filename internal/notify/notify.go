// Package notify delivers desktop notifications over the
// org.freedesktop.Notifications D-Bus interface. Notifications are
// fire-and-forget; delivery failures are logged and otherwise ignored.
package notify

import (
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/bryanchriswhite/breakwall/internal/logger"
)

const (
	notifyService   = "org.freedesktop.Notifications"
	notifyPath      = "/org/freedesktop/Notifications"
	notifyMethod    = "org.freedesktop.Notifications.Notify"
	notifyTimeoutMs = 5000
)

// DBusNotifier sends notifications through the session bus.
type DBusNotifier struct {
	conn *dbus.Conn
}

// NewDBusNotifier connects to the session bus.
func NewDBusNotifier() (*DBusNotifier, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &DBusNotifier{conn: conn}, nil
}

// Notify delivers a notification. Errors are logged, never returned.
func (n *DBusNotifier) Notify(title, body string) {
	obj := n.conn.Object(notifyService, notifyPath)
	// Argument order: app_name, replaces_id, app_icon, summary, body,
	// actions, hints, expire_timeout.
	call := obj.Call(notifyMethod, 0,
		"breakwall",
		uint32(0),
		"",
		title,
		body,
		[]string{},
		map[string]dbus.Variant{},
		int32(notifyTimeoutMs),
	)
	if call.Err != nil {
		logger.WithComponent("notify").Debug().Err(call.Err).Msg("Notification delivery failed")
	}
}

// Close releases the session bus connection.
func (n *DBusNotifier) Close() error {
	return n.conn.Close()
}

// Nop is a notifier that discards everything, used when no session bus is
// reachable.
type Nop struct{}

// Notify discards the notification.
func (Nop) Notify(title, body string) {}
