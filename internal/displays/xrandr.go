package displays

import (
	"fmt"
	"sync"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/bryanchriswhite/breakwall/internal/logger"
)

// XRandRProvider enumerates displays through the RandR extension and polls
// for topology changes.
type XRandRProvider struct {
	conn *xgb.Conn
	root xproto.Window

	mu        sync.RWMutex
	current   []Display
	listeners []chan []Display
	stopChan  chan struct{}
	stopOnce  sync.Once
}

// NewXRandRProvider connects to the X server and initializes RandR.
func NewXRandRProvider() (*XRandRProvider, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	if err := randr.Init(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize RandR: %w", err)
	}

	setup := xproto.Setup(conn)
	root := setup.DefaultScreen(conn).Root

	p := &XRandRProvider{
		conn:     conn,
		root:     root,
		stopChan: make(chan struct{}),
	}

	current, err := p.enumerate()
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.current = current

	go p.watchTopology()
	return p, nil
}

// Displays returns the currently connected displays
func (p *XRandRProvider) Displays() ([]Display, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Display(nil), p.current...), nil
}

// Subscribe adds a listener for topology changes
func (p *XRandRProvider) Subscribe() chan []Display {
	ch := make(chan []Display, 4)
	p.mu.Lock()
	p.listeners = append(p.listeners, ch)
	p.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener
func (p *XRandRProvider) Unsubscribe(ch chan []Display) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, listener := range p.listeners {
		if listener == ch {
			p.listeners = append(p.listeners[:i], p.listeners[i+1:]...)
			close(ch)
			break
		}
	}
}

// Stop halts topology monitoring and closes the X connection
func (p *XRandRProvider) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopChan)
		p.conn.Close()
	})
}

// enumerate lists enabled CRTCs. The CRTC ID is the stable display identity.
func (p *XRandRProvider) enumerate() ([]Display, error) {
	resources, err := randr.GetScreenResources(p.conn, p.root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	displays := make([]Display, 0, len(resources.Crtcs))
	for _, crtc := range resources.Crtcs {
		info, err := randr.GetCrtcInfo(p.conn, crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}
		// A CRTC with no mode or no outputs is disabled
		if info.Mode == 0 || info.NumOutputs == 0 {
			continue
		}
		displays = append(displays, Display{
			ID:     uint32(crtc),
			X:      int(info.X),
			Y:      int(info.Y),
			Width:  int(info.Width),
			Height: int(info.Height),
		})
	}

	return displays, nil
}

// watchTopology polls RandR for changes and notifies listeners.
func (p *XRandRProvider) watchTopology() {
	log := logger.WithComponent("displays")
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopChan:
			return
		case <-ticker.C:
			updated, err := p.enumerate()
			if err != nil {
				log.Debug().Err(err).Msg("Display enumeration failed")
				continue
			}

			p.mu.Lock()
			changed := !sameTopology(p.current, updated)
			if changed {
				p.current = updated
			}
			p.mu.Unlock()

			if !changed {
				continue
			}

			log.Info().Int("displays", len(updated)).Msg("Display topology changed")
			// Send under the read lock; Unsubscribe closes under the
			// write lock, so a send can never race a close.
			p.mu.RLock()
			for _, listener := range p.listeners {
				select {
				case listener <- updated:
				default:
					// Skip if channel is full
				}
			}
			p.mu.RUnlock()
		}
	}
}

func sameTopology(a, b []Display) bool {
	if len(a) != len(b) {
		return false
	}
	byID := make(map[uint32]Display, len(a))
	for _, d := range a {
		byID[d.ID] = d
	}
	for _, d := range b {
		if byID[d.ID] != d {
			return false
		}
	}
	return true
}
