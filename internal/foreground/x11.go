package foreground

import (
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
)

// X11Backend reads the active window through standard EWMH properties.
type X11Backend struct {
	conn       *xgb.Conn
	root       xproto.Window
	activeAtom xproto.Atom
}

// NewX11Backend connects to the X server.
func NewX11Backend() (*X11Backend, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	setup := xproto.Setup(conn)
	root := setup.DefaultScreen(conn).Root

	b := &X11Backend{conn: conn, root: root}

	activeAtom, err := b.internAtom("_NET_ACTIVE_WINDOW")
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to intern _NET_ACTIVE_WINDOW: %w", err)
	}
	b.activeAtom = activeAtom

	return b, nil
}

// Name returns the backend name
func (b *X11Backend) Name() string { return "x11" }

// Close closes the X connection
func (b *X11Backend) Close() error {
	b.conn.Close()
	return nil
}

// ActiveWindow returns the currently focused window with its title and class.
func (b *X11Backend) ActiveWindow() (*WindowInfo, error) {
	reply, err := xproto.GetProperty(
		b.conn, false, b.root, b.activeAtom,
		xproto.AtomWindow, 0, 1,
	).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to read active window: %w", err)
	}
	if len(reply.Value) < 4 {
		return nil, fmt.Errorf("no active window")
	}

	win := xproto.Window(uint32(reply.Value[0]) |
		uint32(reply.Value[1])<<8 |
		uint32(reply.Value[2])<<16 |
		uint32(reply.Value[3])<<24)
	if win == 0 {
		return nil, fmt.Errorf("no active window")
	}

	info := &WindowInfo{ID: uint32(win)}

	// Title: prefer the UTF-8 EWMH property, fall back to WM_NAME. A
	// missing title is not an error; the meeting detector treats blank
	// browser titles conservatively.
	if title, err := b.stringProperty(win, "_NET_WM_NAME"); err == nil {
		info.Title = title
	} else if title, err := b.stringProperty(win, "WM_NAME"); err == nil {
		info.Title = title
	}

	// WM_CLASS is two NUL-terminated strings: instance, then class.
	if class, err := b.stringProperty(win, "WM_CLASS"); err == nil {
		info.Class = firstNulField(class)
	}

	return info, nil
}

func (b *X11Backend) internAtom(name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(b.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}
	return reply.Atom, nil
}

func (b *X11Backend) stringProperty(win xproto.Window, atomName string) (string, error) {
	atom, err := b.internAtom(atomName)
	if err != nil {
		return "", err
	}

	reply, err := xproto.GetProperty(
		b.conn, false, win, atom,
		xproto.GetPropertyTypeAny, 0, (1<<32)-1,
	).Reply()
	if err != nil {
		return "", err
	}
	if reply.ValueLen == 0 {
		return "", fmt.Errorf("empty property %s", atomName)
	}

	return string(reply.Value), nil
}

// firstNulField returns the text up to the first NUL byte.
func firstNulField(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			return s[:i]
		}
	}
	return s
}
