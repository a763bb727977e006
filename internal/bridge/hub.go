package bridge

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bryanchriswhite/breakwall/internal/logger"
	"github.com/bryanchriswhite/breakwall/internal/timer"
)

const (
	writeDeadline = 10 * time.Second
	readDeadline  = 60 * time.Second
	pingInterval  = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Overlay clients connect from localhost
	},
}

// Authority is the timer-side surface the bridge forwards user actions to
// and reads authoritative state from.
type Authority interface {
	SkipBreak()
	SnoozeBreak()
	TimerState() timer.State
	BreakActive() bool
	BreakRemaining() int
}

// Hub manages websocket connections from out-of-process overlay surfaces.
// Surfaces receive no timer messages until they announce themselves with a
// hello, which guarantees break:start precedes every timer-update.
type Hub struct {
	authority Authority

	mu      sync.RWMutex
	clients map[*client]bool
	// break duration of the active break, for surfaces attaching mid-break
	breakDuration int
}

type client struct {
	conn  *websocket.Conn
	send  chan []byte
	hub   *Hub
	mu    sync.Mutex
	ready bool
}

// NewHub creates a hub forwarding to the given authority.
func NewHub(authority Authority) *Hub {
	return &Hub{
		authority: authority,
		clients:   make(map[*client]bool),
	}
}

// HandleWebSocket upgrades an HTTP connection and attaches it as an overlay
// client.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("bridge")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, 64),
		hub:  h,
	}

	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	log.Debug().Str("remote", r.RemoteAddr).Msg("Overlay client connected")

	go c.writePump()
	c.readPump()
}

// BreakStarted records the active break and announces it to ready clients.
func (h *Hub) BreakStarted(durationSeconds int) {
	h.mu.Lock()
	h.breakDuration = durationSeconds
	h.mu.Unlock()

	h.broadcast(TypeBreakStart, BreakStartPayload{
		DurationSeconds:  durationSeconds,
		RemainingSeconds: durationSeconds,
	}, true)
}

// BroadcastTick pushes a remaining-time update to every ready client.
func (h *Hub) BroadcastTick(remainingSeconds int) {
	h.broadcast(TypeTimerUpdate, TimerUpdatePayload{RemainingSeconds: remainingSeconds}, true)
}

// BreakEnded announces teardown to every ready client.
func (h *Hub) BreakEnded() {
	h.mu.Lock()
	h.breakDuration = 0
	h.mu.Unlock()

	h.broadcast(TypeBreakEnd, nil, true)
}

// Close disconnects all clients.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*client]bool)
	h.mu.Unlock()

	for _, c := range clients {
		c.conn.Close()
	}
}

// broadcast sends a message to clients; with readyOnly set, clients that
// have not said hello are skipped so they never see updates before start.
func (h *Hub) broadcast(msgType string, payload interface{}, readyOnly bool) {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		logger.WithComponent("bridge").Error().Err(err).Msg("Failed to build message")
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if readyOnly && !c.isReady() {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Drop rather than block the authority on a slow surface
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (c *client) isReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

func (c *client) markReady() {
	c.mu.Lock()
	c.ready = true
	c.mu.Unlock()
}

// sendMessage queues a message for this client only.
func (c *client) sendMessage(msgType string, payload interface{}) {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.handleMessage(data)
	}
}

func (c *client) handleMessage(data []byte) {
	log := logger.WithComponent("bridge")

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendMessage(TypeError, ErrorPayload{
			Code:    ErrInvalidMessage,
			Message: "malformed message envelope",
		})
		return
	}

	switch msg.Type {
	case TypeHello:
		// A surface attaching mid-break gets its start message first;
		// ready flips only afterwards so a concurrent broadcast cannot
		// queue a timer-update ahead of it. A tick dropped in that
		// window is recovered by the next broadcast.
		if c.hub.authority.BreakActive() {
			c.hub.mu.RLock()
			duration := c.hub.breakDuration
			c.hub.mu.RUnlock()
			c.sendMessage(TypeBreakStart, BreakStartPayload{
				DurationSeconds:  duration,
				RemainingSeconds: c.hub.authority.BreakRemaining(),
			})
		}
		c.markReady()
	case TypeBreakSkip:
		log.Info().Msg("Skip requested by overlay client")
		c.hub.authority.SkipBreak()
	case TypeBreakSnooze:
		log.Info().Msg("Snooze requested by overlay client")
		c.hub.authority.SnoozeBreak()
	case TypeStateRequest:
		var req StateRequestPayload
		if msg.Payload != nil {
			if err := json.Unmarshal(msg.Payload, &req); err != nil {
				c.sendMessage(TypeError, ErrorPayload{
					Code:    ErrInvalidMessage,
					Message: "malformed state request",
				})
				return
			}
		}
		state := c.hub.authority.TimerState()
		c.sendMessage(TypeStateResponse, StateResponsePayload{
			ID:               req.ID,
			Running:          state.Running,
			OnBreak:          state.OnBreak,
			RemainingSeconds: state.RemainingSeconds,
			CycleCount:       state.CycleCount,
			TotalBreaksTaken: state.TotalBreaksTaken,
		})
	default:
		c.sendMessage(TypeError, ErrorPayload{
			Code:    ErrUnknownType,
			Message: "unknown message type " + msg.Type,
		})
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
