package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanchriswhite/breakwall/internal/bridge"
	"github.com/bryanchriswhite/breakwall/internal/config"
	"github.com/bryanchriswhite/breakwall/internal/displays"
	"github.com/bryanchriswhite/breakwall/internal/timer"
)

type fakeControls struct {
	mu      sync.Mutex
	actions []string
	state   timer.State
}

func (c *fakeControls) record(action string) {
	c.mu.Lock()
	c.actions = append(c.actions, action)
	c.mu.Unlock()
}

func (c *fakeControls) StartTimer()             { c.record("start") }
func (c *fakeControls) PauseTimer()             { c.record("pause") }
func (c *fakeControls) ResetTimer()             { c.record("reset") }
func (c *fakeControls) SkipBreak()              { c.record("skip") }
func (c *fakeControls) SnoozeBreak()            { c.record("snooze") }
func (c *fakeControls) TimerState() timer.State { return c.state }
func (c *fakeControls) BreakActive() bool       { return false }
func (c *fakeControls) BreakRemaining() int     { return 0 }
func (c *fakeControls) PendingBreak() bool      { return false }

func (c *fakeControls) recorded() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.actions...)
}

func newTestServer(t *testing.T) (*Server, *fakeControls, *config.Manager) {
	t.Helper()

	configMgr, err := config.NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	controls := &fakeControls{
		state: timer.State{Running: true, RemainingSeconds: 1500},
	}
	provider := displays.NewStaticProvider([]displays.Display{
		{ID: 7, Width: 1920, Height: 1080},
	})
	hub := bridge.NewHub(controls)

	return NewServer(configMgr, controls, provider, hub), controls, configMgr
}

func TestServer_GetTimer(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/timer", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var status TimerStatus
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	assert.True(t, status.Running)
	assert.Equal(t, 1500, status.RemainingSeconds)
	assert.False(t, status.BreakActive)
}

func TestServer_TimerActions(t *testing.T) {
	srv, controls, _ := newTestServer(t)

	for _, action := range []string{"start", "pause", "reset", "skip", "snooze"} {
		req := httptest.NewRequest("POST", "/api/timer/"+action, nil)
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, "action %s", action)
	}

	assert.Equal(t, []string{"start", "pause", "reset", "skip", "snooze"}, controls.recorded())
}

func TestServer_TimerActionRequiresPost(t *testing.T) {
	srv, controls, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/timer/start", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Empty(t, controls.recorded())
}

func TestServer_GetSettings(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/settings", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var cfg config.Config
	require.NoError(t, json.NewDecoder(w.Body).Decode(&cfg))
	assert.Equal(t, 25, cfg.Timer.WorkDurationMinutes)
	assert.True(t, cfg.SkipBreaksDuringMeetings)
}

func TestServer_UpdateSettings(t *testing.T) {
	srv, _, configMgr := newTestServer(t)

	cfg := configMgr.Get()
	cfg.Timer.WorkDurationMinutes = 50
	body, err := json.Marshal(cfg)
	require.NoError(t, err)

	req := httptest.NewRequest("PUT", "/api/settings", strings.NewReader(string(body)))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 50, configMgr.Get().Timer.WorkDurationMinutes)
}

func TestServer_UpdateSettingsRejectsInvalid(t *testing.T) {
	srv, _, configMgr := newTestServer(t)

	cfg := configMgr.Get()
	cfg.Timer.WorkDurationMinutes = 0
	body, err := json.Marshal(cfg)
	require.NoError(t, err)

	req := httptest.NewRequest("PUT", "/api/settings", strings.NewReader(string(body)))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 25, configMgr.Get().Timer.WorkDurationMinutes, "invalid update must not stick")
}

func TestServer_UpdateSettingsBadBody(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest("PUT", "/api/settings", strings.NewReader("not json"))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_GetDisplays(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/displays", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var connected []displays.Display
	require.NoError(t, json.NewDecoder(w.Body).Decode(&connected))
	require.Len(t, connected, 1)
	assert.Equal(t, uint32(7), connected[0].ID)
}

func TestServer_Health(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
