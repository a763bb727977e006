package bridge

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanchriswhite/breakwall/internal/timer"
)

type fakeAuthority struct {
	mu        sync.Mutex
	skips     int
	snoozes   int
	state     timer.State
	active    bool
	remaining int
}

func (a *fakeAuthority) SkipBreak() {
	a.mu.Lock()
	a.skips++
	a.mu.Unlock()
}

func (a *fakeAuthority) SnoozeBreak() {
	a.mu.Lock()
	a.snoozes++
	a.mu.Unlock()
}

func (a *fakeAuthority) TimerState() timer.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *fakeAuthority) BreakActive() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

func (a *fakeAuthority) BreakRemaining() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.remaining
}

func (a *fakeAuthority) skipCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.skips
}

func (a *fakeAuthority) snoozeCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snoozes
}

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(srv.Close)
	t.Cleanup(hub.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func writeMessage(t *testing.T, conn *websocket.Conn, msgType string, payload interface{}) {
	t.Helper()
	msg, err := NewMessage(msgType, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(msg))
}

func TestHub_HelloGatesTimerUpdates(t *testing.T) {
	authority := &fakeAuthority{}
	hub := NewHub(authority)
	conn := dialHub(t, hub)

	// Broadcast before hello must not reach the client.
	hub.BroadcastTick(42)

	writeMessage(t, conn, TypeHello, nil)
	// Round-trip a state request so the hello is definitely processed.
	writeMessage(t, conn, TypeStateRequest, StateRequestPayload{ID: "sync"})
	msg := readMessage(t, conn)
	require.Equal(t, TypeStateResponse, msg.Type)

	hub.BroadcastTick(17)
	msg = readMessage(t, conn)
	require.Equal(t, TypeTimerUpdate, msg.Type)

	var tick TimerUpdatePayload
	require.NoError(t, json.Unmarshal(msg.Payload, &tick))
	assert.Equal(t, 17, tick.RemainingSeconds, "pre-hello broadcast must have been dropped")
}

func TestHub_HelloDuringActiveBreakSendsStart(t *testing.T) {
	authority := &fakeAuthority{active: true, remaining: 12}
	hub := NewHub(authority)
	hub.BreakStarted(20)

	conn := dialHub(t, hub)
	writeMessage(t, conn, TypeHello, nil)

	msg := readMessage(t, conn)
	require.Equal(t, TypeBreakStart, msg.Type)

	var start BreakStartPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &start))
	assert.Equal(t, 20, start.DurationSeconds)
	assert.Equal(t, 12, start.RemainingSeconds)
}

func TestHub_MidBreakAttachNeverSeesUpdateBeforeStart(t *testing.T) {
	authority := &fakeAuthority{active: true, remaining: 12}
	hub := NewHub(authority)
	hub.BreakStarted(20)

	// Broadcast continuously while clients attach mid-break; the first
	// timer message each client sees must be break:start.
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				hub.BroadcastTick(11)
			}
		}
	}()
	defer wg.Wait()
	defer close(done)

	for i := 0; i < 8; i++ {
		conn := dialHub(t, hub)
		writeMessage(t, conn, TypeHello, nil)

		msg := readMessage(t, conn)
		require.Equal(t, TypeBreakStart, msg.Type,
			"break:start must precede every timer-update")
	}
}

func TestHub_SkipAndSnoozeForwarded(t *testing.T) {
	authority := &fakeAuthority{}
	hub := NewHub(authority)
	conn := dialHub(t, hub)

	writeMessage(t, conn, TypeBreakSkip, nil)
	writeMessage(t, conn, TypeBreakSnooze, nil)

	require.Eventually(t, func() bool {
		return authority.skipCount() == 1 && authority.snoozeCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHub_StateRequestResponse(t *testing.T) {
	authority := &fakeAuthority{
		state: timer.State{
			Running:          true,
			OnBreak:          true,
			RemainingSeconds: 9,
			CycleCount:       3,
			TotalBreaksTaken: 2,
		},
	}
	hub := NewHub(authority)
	conn := dialHub(t, hub)

	writeMessage(t, conn, TypeStateRequest, StateRequestPayload{ID: "req-1"})

	msg := readMessage(t, conn)
	require.Equal(t, TypeStateResponse, msg.Type)

	var resp StateResponsePayload
	require.NoError(t, json.Unmarshal(msg.Payload, &resp))
	assert.Equal(t, "req-1", resp.ID)
	assert.True(t, resp.Running)
	assert.True(t, resp.OnBreak)
	assert.Equal(t, 9, resp.RemainingSeconds)
	assert.Equal(t, 3, resp.CycleCount)
	assert.Equal(t, 2, resp.TotalBreaksTaken)
}

func TestHub_UnknownTypeReturnsError(t *testing.T) {
	hub := NewHub(&fakeAuthority{})
	conn := dialHub(t, hub)

	writeMessage(t, conn, "bogus:type", nil)

	msg := readMessage(t, conn)
	require.Equal(t, TypeError, msg.Type)

	var errPayload ErrorPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &errPayload))
	assert.Equal(t, ErrUnknownType, errPayload.Code)
}

func TestHub_MalformedMessageReturnsError(t *testing.T) {
	hub := NewHub(&fakeAuthority{})
	conn := dialHub(t, hub)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	msg := readMessage(t, conn)
	require.Equal(t, TypeError, msg.Type)
}
