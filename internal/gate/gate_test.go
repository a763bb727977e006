package gate

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanchriswhite/breakwall/internal/meeting"
)

type fakeDetector struct {
	mu     sync.Mutex
	status meeting.Status
}

func (d *fakeDetector) Detect() meeting.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

func (d *fakeDetector) set(status meeting.Status) {
	d.mu.Lock()
	d.status = status
	d.mu.Unlock()
}

type fakePresenter struct {
	mu    sync.Mutex
	shown []time.Duration
}

func (p *fakePresenter) ShowBreak(duration time.Duration) error {
	p.mu.Lock()
	p.shown = append(p.shown, duration)
	p.mu.Unlock()
	return nil
}

func (p *fakePresenter) shownCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.shown)
}

type fakeNotifier struct {
	mu     sync.Mutex
	titles []string
}

func (n *fakeNotifier) Notify(title, body string) {
	n.mu.Lock()
	n.titles = append(n.titles, title)
	n.mu.Unlock()
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.titles)
}

func newTestGate(t *testing.T, status meeting.Status) (*Gate, *fakeDetector, *fakePresenter, *fakeNotifier) {
	t.Helper()
	detector := &fakeDetector{status: status}
	presenter := &fakePresenter{}
	notifier := &fakeNotifier{}
	g := New(detector, presenter, notifier, true, Options{RecheckInterval: time.Hour})
	t.Cleanup(g.Shutdown)
	return g, detector, presenter, notifier
}

func TestGate_ShowsImmediatelyWhenNotInMeeting(t *testing.T) {
	g, _, presenter, notifier := newTestGate(t, meeting.NotInMeeting)

	g.RequestBreak(20 * time.Second)

	assert.Equal(t, 1, presenter.shownCount())
	assert.False(t, g.HasPending())
	assert.Equal(t, 0, notifier.count())
}

func TestGate_DefersDuringMeeting(t *testing.T) {
	g, _, presenter, notifier := newTestGate(t, meeting.InMeeting)

	g.RequestBreak(20 * time.Second)

	assert.Equal(t, 0, presenter.shownCount(), "no overlay while meeting is in progress")
	assert.True(t, g.HasPending())
	assert.Equal(t, 1, notifier.count(), "user must be told the break was postponed")
}

func TestGate_RecheckShowsAfterMeetingEnds(t *testing.T) {
	g, detector, presenter, _ := newTestGate(t, meeting.InMeeting)

	g.RequestBreak(20 * time.Second)
	require.True(t, g.HasPending())

	g.RecheckPending()
	assert.Equal(t, 0, presenter.shownCount(), "still in meeting, break stays pending")
	assert.True(t, g.HasPending())

	detector.set(meeting.NotInMeeting)
	g.RecheckPending()

	assert.Equal(t, 1, presenter.shownCount())
	assert.False(t, g.HasPending(), "pending break consumed once shown")
}

func TestGate_RecheckWithoutPendingIsNoop(t *testing.T) {
	g, _, presenter, _ := newTestGate(t, meeting.NotInMeeting)

	g.RecheckPending()
	assert.Equal(t, 0, presenter.shownCount())
}

func TestGate_NewRequestSupersedesPending(t *testing.T) {
	g, detector, presenter, _ := newTestGate(t, meeting.InMeeting)

	g.RequestBreak(20 * time.Second)
	g.RequestBreak(45 * time.Second)
	require.True(t, g.HasPending())

	detector.set(meeting.NotInMeeting)
	g.RecheckPending()

	presenter.mu.Lock()
	defer presenter.mu.Unlock()
	require.Len(t, presenter.shown, 1)
	assert.Equal(t, 45*time.Second, presenter.shown[0], "latest request wins the pending slot")
}

func TestGate_SkipDisabledShowsThroughMeeting(t *testing.T) {
	detector := &fakeDetector{status: meeting.InMeeting}
	presenter := &fakePresenter{}
	g := New(detector, presenter, nil, false, Options{RecheckInterval: time.Hour})
	t.Cleanup(g.Shutdown)

	g.RequestBreak(20 * time.Second)

	assert.Equal(t, 1, presenter.shownCount())
	assert.False(t, g.HasPending())
}

func TestGate_UnavailableDetectionShowsBreak(t *testing.T) {
	g, _, presenter, _ := newTestGate(t, meeting.Unavailable)

	g.RequestBreak(20 * time.Second)

	assert.Equal(t, 1, presenter.shownCount(), "missing capability must never block breaks")
	assert.False(t, g.HasPending())
}

func TestGate_ScheduledRecheckFires(t *testing.T) {
	detector := &fakeDetector{status: meeting.InMeeting}
	presenter := &fakePresenter{}
	g := New(detector, presenter, nil, true, Options{RecheckInterval: 10 * time.Millisecond})
	t.Cleanup(g.Shutdown)

	g.RequestBreak(20 * time.Second)
	detector.set(meeting.NotInMeeting)

	require.Eventually(t, func() bool {
		return presenter.shownCount() == 1
	}, 2*time.Second, 5*time.Millisecond, "scheduled recheck must show the break once the meeting ends")
}
