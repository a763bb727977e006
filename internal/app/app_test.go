package app

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanchriswhite/breakwall/internal/config"
	"github.com/bryanchriswhite/breakwall/internal/displays"
	"github.com/bryanchriswhite/breakwall/internal/foreground"
	"github.com/bryanchriswhite/breakwall/internal/overlay"
)

type fakeSurface struct {
	display displays.Display

	mu     sync.Mutex
	ready  bool
	closed bool
	last   int
}

func (s *fakeSurface) Display() displays.Display { return s.display }

func (s *fakeSurface) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready && !s.closed
}

func (s *fakeSurface) Show() error {
	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()
	return nil
}

func (s *fakeSurface) SetRemaining(seconds int) {
	s.mu.Lock()
	s.last = seconds
	s.mu.Unlock()
}

func (s *fakeSurface) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

type surfaceCounter struct {
	mu      sync.Mutex
	created int
}

func (c *surfaceCounter) factory() overlay.Factory {
	return func(display displays.Display, totalSeconds int) (overlay.Surface, error) {
		c.mu.Lock()
		c.created++
		c.mu.Unlock()
		return &fakeSurface{display: display, last: totalSeconds}, nil
	}
}

func (c *surfaceCounter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.created
}

type fakeBackend struct {
	mu   sync.Mutex
	info *foreground.WindowInfo
}

func (b *fakeBackend) ActiveWindow() (*foreground.WindowInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.info, nil
}

func (b *fakeBackend) Close() error { return nil }
func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) set(info *foreground.WindowInfo) {
	b.mu.Lock()
	b.info = info
	b.mu.Unlock()
}

type recordingNotifier struct {
	mu     sync.Mutex
	titles []string
}

func (n *recordingNotifier) Notify(title, body string) {
	n.mu.Lock()
	n.titles = append(n.titles, title)
	n.mu.Unlock()
}

func (n *recordingNotifier) has(title string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, got := range n.titles {
		if got == title {
			return true
		}
	}
	return false
}

// newTestApp builds a running app with fake platform collaborators and timing
// compressed so a full work/break cycle completes in under a second.
func newTestApp(t *testing.T, backend foreground.Backend, breakSeconds int) (*App, *recordingNotifier, *surfaceCounter) {
	t.Helper()

	mgr, err := config.NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	t.Cleanup(mgr.Stop)

	cfg := mgr.Get()
	cfg.Timer.WorkDurationMinutes = 1
	cfg.Timer.BreakDurationSeconds = breakSeconds
	cfg.Tunables.TickInterval = 10 * time.Millisecond
	cfg.Tunables.BroadcastInterval = 5 * time.Millisecond
	cfg.Tunables.RestartDelay = time.Hour
	cfg.Tunables.MeetingRecheckInterval = 20 * time.Millisecond
	cfg.Tunables.TeardownGrace = time.Millisecond
	require.NoError(t, mgr.Update(cfg))

	notifier := &recordingNotifier{}
	counter := &surfaceCounter{}
	provider := displays.NewStaticProvider([]displays.Display{
		{ID: 1, Width: 1920, Height: 1080},
		{ID: 2, X: 1920, Width: 1920, Height: 1080},
	})

	a, err := New(mgr, Deps{
		SurfaceFactory: counter.factory(),
		Provider:       provider,
		Backend:        backend,
		Notifier:       notifier,
	})
	require.NoError(t, err)

	go a.Run()
	t.Cleanup(a.Shutdown)

	return a, notifier, counter
}

func codeWindow() *foreground.WindowInfo {
	return &foreground.WindowInfo{ID: 1, Title: "main.go", Class: "code"}
}

func zoomWindow() *foreground.WindowInfo {
	return &foreground.WindowInfo{ID: 2, Title: "Zoom Meeting", Class: "zoom"}
}

func TestWorkBreakCycleShowsAndClearsOverlays(t *testing.T) {
	backend := &fakeBackend{info: codeWindow()}
	a, notifier, counter := newTestApp(t, backend, 30)

	// Work phase elapses, the break shows on every display.
	require.Eventually(t, a.BreakActive, 3*time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, counter.count())
	assert.True(t, notifier.has("Time for a break"))

	// The break countdown completes and the timer returns to work.
	require.Eventually(t, func() bool {
		state := a.TimerState()
		return !state.OnBreak && state.TotalBreaksTaken == 1
	}, 3*time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool { return !a.BreakActive() }, 3*time.Second, 5*time.Millisecond)
	assert.True(t, notifier.has("Break over"))
}

func TestMeetingDefersBreakUntilItEnds(t *testing.T) {
	backend := &fakeBackend{info: zoomWindow()}
	a, notifier, _ := newTestApp(t, backend, 30)

	require.Eventually(t, a.PendingBreak, 3*time.Second, 5*time.Millisecond)
	assert.False(t, a.BreakActive())
	assert.True(t, notifier.has("Break postponed"))

	// Meeting ends: the next scheduled recheck releases the deferred break.
	backend.set(codeWindow())
	require.Eventually(t, a.BreakActive, 3*time.Second, 5*time.Millisecond)
	assert.False(t, a.PendingBreak())
}

func TestSkipBreakClearsOverlaysAndCountsBreak(t *testing.T) {
	backend := &fakeBackend{info: codeWindow()}
	a, _, _ := newTestApp(t, backend, 120)

	require.Eventually(t, a.BreakActive, 3*time.Second, 5*time.Millisecond)

	a.SkipBreak()

	require.Eventually(t, func() bool {
		state := a.TimerState()
		return !state.OnBreak && !a.BreakActive() && state.TotalBreaksTaken == 1
	}, 3*time.Second, 5*time.Millisecond)
}
