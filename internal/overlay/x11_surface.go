package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/bryanchriswhite/breakwall/internal/displays"
	"github.com/bryanchriswhite/breakwall/internal/logger"
)

const (
	surfaceBackground = 0x101218
	textScale         = 6
	caption           = "Look away from the screen"
)

// X11Surface is a full-screen override-redirect window covering one display.
// Override-redirect bypasses the window manager, which keeps the surface
// above fullscreen applications and present on every virtual desktop.
type X11Surface struct {
	conn    *xgb.Conn
	screen  *xproto.ScreenInfo
	window  xproto.Window
	gc      xproto.Gcontext
	display displays.Display

	mu        sync.Mutex
	ready     bool
	closed    bool
	lastLabel string
}

// X11Factory returns a Factory producing X11 surfaces.
func X11Factory() Factory {
	return func(d displays.Display, totalSeconds int) (Surface, error) {
		return NewX11Surface(d, totalSeconds)
	}
}

// NewX11Surface creates the overlay window on the given display, sized to
// its bounds. The window stays unmapped until Show.
func NewX11Surface(d displays.Display, totalSeconds int) (*X11Surface, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	s := &X11Surface{
		conn:    conn,
		screen:  screen,
		display: d,
	}

	windowID, err := xproto.NewWindowId(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create window ID: %w", err)
	}
	s.window = windowID

	mask := uint32(xproto.CwBackPixel | xproto.CwOverrideRedirect | xproto.CwEventMask)
	values := []uint32{
		surfaceBackground,
		1, // override-redirect
		xproto.EventMaskExposure,
	}

	err = xproto.CreateWindowChecked(
		conn,
		screen.RootDepth,
		s.window,
		screen.Root,
		int16(d.X), int16(d.Y),
		uint16(d.Width), uint16(d.Height),
		0,
		xproto.WindowClassInputOutput,
		screen.RootVisual,
		mask,
		values,
	).Check()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create overlay window: %w", err)
	}

	if err := s.setWindowClass("breakwall", "Breakwall"); err != nil {
		logger.WithComponent("overlay").Warn().Err(err).Msg("Failed to set window class")
	}

	gc, err := xproto.NewGcontextId(conn)
	if err != nil {
		s.destroy()
		return nil, fmt.Errorf("failed to create graphics context: %w", err)
	}
	s.gc = gc
	if err := xproto.CreateGCChecked(conn, gc, xproto.Drawable(s.window), 0, nil).Check(); err != nil {
		s.destroy()
		return nil, fmt.Errorf("failed to create GC: %w", err)
	}

	s.lastLabel = formatRemaining(totalSeconds)
	return s, nil
}

// Display returns the display this surface covers
func (s *X11Surface) Display() displays.Display { return s.display }

// Ready reports whether the surface is mapped and accepting updates
func (s *X11Surface) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready && !s.closed
}

// Show renders the first frame, then maps and raises the window. Rendering
// before mapping avoids a visible content pop-in.
func (s *X11Surface) Show() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("surface already closed")
	}

	if err := xproto.MapWindowChecked(s.conn, s.window).Check(); err != nil {
		return fmt.Errorf("failed to map overlay window: %w", err)
	}
	if err := xproto.ConfigureWindowChecked(
		s.conn, s.window,
		xproto.ConfigWindowStackMode,
		[]uint32{xproto.StackModeAbove},
	).Check(); err != nil {
		return fmt.Errorf("failed to raise overlay window: %w", err)
	}
	s.conn.Sync()

	if err := s.renderLocked(s.lastLabel); err != nil {
		return err
	}

	s.ready = true
	logger.WithComponent("overlay").Debug().
		Uint32("display", s.display.ID).
		Uint32("window_id", uint32(s.window)).
		Msg("Overlay surface shown")
	return nil
}

// SetRemaining redraws the countdown. Updates that do not change the
// displayed label are dropped, so the 100ms broadcast cadence costs one
// render per second.
func (s *X11Surface) SetRemaining(seconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready || s.closed {
		return
	}

	label := formatRemaining(seconds)
	if label == s.lastLabel {
		return
	}
	s.lastLabel = label

	if err := s.renderLocked(label); err != nil {
		logger.WithComponent("overlay").Debug().Err(err).Msg("Overlay render failed")
	}
}

// Close unmaps and destroys the surface. Idempotent.
func (s *X11Surface) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.ready = false

	xproto.UnmapWindow(s.conn, s.window)
	s.destroy()
}

func (s *X11Surface) destroy() {
	if s.gc != 0 {
		xproto.FreeGC(s.conn, s.gc)
		s.gc = 0
	}
	xproto.DestroyWindow(s.conn, s.window)
	s.conn.Sync()
	s.conn.Close()
}

// renderLocked draws the countdown banner centered on the display.
func (s *X11Surface) renderLocked(label string) error {
	banner := renderBanner(label)
	bounds := banner.Bounds()

	x := (s.display.Width - bounds.Dx()) / 2
	y := (s.display.Height - bounds.Dy()) / 2
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}

	return s.putImage(banner, x, y)
}

// putImage converts RGBA to the X11 pixel layout and uploads it in
// row strips that stay under the server's maximum request size.
func (s *X11Surface) putImage(img *image.RGBA, dstX, dstY int) error {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	depth := s.screen.RootDepth
	if depth != 24 && depth != 32 {
		return fmt.Errorf("unsupported root depth %d", depth)
	}

	// BGRx byte order matches the common X11 visual masks
	stride := width * 4
	data := make([]byte, stride*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			srcIdx := img.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
			dstIdx := y*stride + x*4
			data[dstIdx] = img.Pix[srcIdx+2]
			data[dstIdx+1] = img.Pix[srcIdx+1]
			data[dstIdx+2] = img.Pix[srcIdx]
			data[dstIdx+3] = 0
		}
	}

	// Keep each PutImage comfortably below the 256KiB baseline request
	// limit.
	maxRows := (200 * 1024) / stride
	if maxRows < 1 {
		maxRows = 1
	}

	for row := 0; row < height; row += maxRows {
		rows := maxRows
		if row+rows > height {
			rows = height - row
		}
		err := xproto.PutImageChecked(
			s.conn,
			xproto.ImageFormatZPixmap,
			xproto.Drawable(s.window),
			s.gc,
			uint16(width), uint16(rows),
			int16(dstX), int16(dstY+row),
			0,
			depth,
			data[row*stride:(row+rows)*stride],
		).Check()
		if err != nil {
			return fmt.Errorf("failed to put image: %w", err)
		}
	}

	s.conn.Sync()
	return nil
}

func (s *X11Surface) setWindowClass(instance, class string) error {
	classAtom, err := s.internAtom("WM_CLASS")
	if err != nil {
		return err
	}
	classStr := instance + "\x00" + class + "\x00"
	return xproto.ChangePropertyChecked(
		s.conn,
		xproto.PropModeReplace,
		s.window,
		classAtom,
		xproto.AtomString,
		8,
		uint32(len(classStr)),
		[]byte(classStr),
	).Check()
}

func (s *X11Surface) internAtom(name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(s.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}
	return reply.Atom, nil
}

// renderBanner draws the countdown and caption with the bitmap font, then
// scales the result up for readability at a distance.
func renderBanner(label string) *image.RGBA {
	face := basicfont.Face7x13

	lines := []string{label, caption}
	maxWidth := 0
	for _, line := range lines {
		if w := font.MeasureString(face, line).Ceil(); w > maxWidth {
			maxWidth = w
		}
	}

	const pad = 8
	lineHeight := face.Metrics().Height.Ceil() + 4
	small := image.NewRGBA(image.Rect(0, 0, maxWidth+pad*2, lineHeight*len(lines)+pad*2))
	bg := color.RGBA{0x10, 0x12, 0x18, 0xff}
	draw.Draw(small, small.Bounds(), &image.Uniform{bg}, image.Point{}, draw.Src)

	for i, line := range lines {
		textColor := color.RGBA{0xe8, 0xea, 0xf0, 0xff}
		if i > 0 {
			textColor = color.RGBA{0x8a, 0x90, 0xa0, 0xff}
		}
		width := font.MeasureString(face, line).Ceil()
		d := &font.Drawer{
			Dst:  small,
			Src:  image.NewUniform(textColor),
			Face: face,
			Dot: fixed.P(
				(small.Bounds().Dx()-width)/2,
				pad+face.Metrics().Ascent.Ceil()+i*lineHeight,
			),
		}
		d.DrawString(line)
	}

	scaled := image.NewRGBA(image.Rect(0, 0,
		small.Bounds().Dx()*textScale, small.Bounds().Dy()*textScale))
	xdraw.NearestNeighbor.Scale(scaled, scaled.Bounds(), small, small.Bounds(), xdraw.Src, nil)
	return scaled
}

// formatRemaining renders seconds as mm:ss.
func formatRemaining(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
