package displays

import "sync"

// StaticProvider serves a fixed, settable display list. Used by tests and
// as a headless fallback when no display server is reachable.
type StaticProvider struct {
	mu        sync.RWMutex
	current   []Display
	listeners []chan []Display
}

// NewStaticProvider creates a provider with the given initial topology.
func NewStaticProvider(initial []Display) *StaticProvider {
	return &StaticProvider{current: append([]Display(nil), initial...)}
}

// Displays returns the current display list
func (p *StaticProvider) Displays() ([]Display, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Display(nil), p.current...), nil
}

// Set replaces the topology and notifies listeners. Sends happen under the
// lock so they cannot race a concurrent Unsubscribe closing a channel.
func (p *StaticProvider) Set(displays []Display) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = append([]Display(nil), displays...)
	for _, listener := range p.listeners {
		select {
		case listener <- displays:
		default:
		}
	}
}

// Subscribe adds a listener for topology changes
func (p *StaticProvider) Subscribe() chan []Display {
	ch := make(chan []Display, 4)
	p.mu.Lock()
	p.listeners = append(p.listeners, ch)
	p.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener
func (p *StaticProvider) Unsubscribe(ch chan []Display) {
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

// Stop is a no-op for the static provider
func (p *StaticProvider) Stop() {}
