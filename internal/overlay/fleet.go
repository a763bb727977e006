package overlay

import (
	"fmt"
	"sync"
	"time"

	"github.com/bryanchriswhite/breakwall/internal/clock"
	"github.com/bryanchriswhite/breakwall/internal/displays"
	"github.com/bryanchriswhite/breakwall/internal/logger"
)

// Options contains runtime tunables and hooks for the fleet.
type Options struct {
	// BroadcastInterval is the cadence at which remaining time is pushed
	// to every live surface. Defaults to 100ms.
	BroadcastInterval time.Duration
	// TeardownGrace is the delay between the countdown reaching zero and
	// surface destruction, allowing a final frame. Defaults to 100ms.
	TeardownGrace time.Duration
	// Clock supplies wall-clock time for the elapsed-time computation.
	// Defaults to the real clock.
	Clock clock.Clock
	// OnTick, if set, is invoked with each broadcast value (used to relay
	// updates to out-of-process surfaces over the bridge).
	OnTick func(remainingSeconds int)
	// OnFinished, if set, is invoked once after the break ran to zero and
	// the fleet was torn down. Not invoked on HideBreak.
	OnFinished func()
}

// Fleet creates and destroys one overlay surface per connected display and
// drives their countdowns. Remaining time is derived from the break start
// timestamp rather than accumulated ticks, so a suspended process never
// causes drift.
type Fleet struct {
	factory  Factory
	provider displays.Provider
	options  Options

	mu            sync.Mutex
	surfaces      map[uint32]Surface
	active        bool
	breakStart    time.Time
	breakDuration time.Duration
	stopCh        chan struct{}
}

// NewFleet creates an empty fleet.
func NewFleet(factory Factory, provider displays.Provider, options Options) *Fleet {
	if options.BroadcastInterval <= 0 {
		options.BroadcastInterval = 100 * time.Millisecond
	}
	if options.TeardownGrace <= 0 {
		options.TeardownGrace = 100 * time.Millisecond
	}
	if options.Clock == nil {
		options.Clock = clock.Real{}
	}

	return &Fleet{
		factory:  factory,
		provider: provider,
		options:  options,
		surfaces: make(map[uint32]Surface),
	}
}

// ShowBreak creates one surface per connected display and starts the
// broadcast loop. No-op if a break is already showing.
func (f *Fleet) ShowBreak(duration time.Duration) error {
	log := logger.WithComponent("overlay")

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.active {
		return nil
	}

	connected, err := f.provider.Displays()
	if err != nil {
		return fmt.Errorf("failed to enumerate displays: %w", err)
	}

	totalSeconds := int(duration / time.Second)
	for _, d := range connected {
		surface, err := f.createSurfaceLocked(d, totalSeconds)
		if err != nil {
			log.Warn().Err(err).Uint32("display", d.ID).Msg("Failed to create overlay surface")
			continue
		}
		f.surfaces[d.ID] = surface
	}

	f.active = true
	f.breakStart = f.options.Clock.Now()
	f.breakDuration = duration
	f.stopCh = make(chan struct{})

	log.Info().
		Int("surfaces", len(f.surfaces)).
		Dur("duration", duration).
		Msg("Break overlays shown")

	go f.broadcastLoop(f.stopCh)
	return nil
}

// HideBreak stops the broadcast loop and destroys every surface. Idempotent:
// calling it with no active break is a no-op.
func (f *Fleet) HideBreak() {
	f.mu.Lock()
	if !f.active {
		f.mu.Unlock()
		return
	}
	f.teardownLocked()
	f.mu.Unlock()

	logger.WithComponent("overlay").Info().Msg("Break overlays hidden")
}

// Active reports whether a break is currently showing.
func (f *Fleet) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

// Remaining returns the seconds left in the active break, computed from
// elapsed wall-clock time. Zero when no break is active.
func (f *Fleet) Remaining() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.remainingLocked()
}

// SurfaceDisplays returns the displays currently covered by live surfaces.
func (f *Fleet) SurfaceDisplays() []displays.Display {
	f.mu.Lock()
	defer f.mu.Unlock()

	covered := make([]displays.Display, 0, len(f.surfaces))
	for _, surface := range f.surfaces {
		covered = append(covered, surface.Display())
	}
	return covered
}

// SyncDisplays reconciles the fleet with a new display topology. Surfaces
// whose display ID is gone are destroyed; newly connected displays get a
// surface seeded with the current remaining time. No-op outside a break.
func (f *Fleet) SyncDisplays(connected []displays.Display) {
	log := logger.WithComponent("overlay")

	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.active {
		return
	}

	byID := make(map[uint32]displays.Display, len(connected))
	for _, d := range connected {
		byID[d.ID] = d
	}

	for id, surface := range f.surfaces {
		if _, still := byID[id]; !still {
			surface.Close()
			delete(f.surfaces, id)
			log.Info().Uint32("display", id).Msg("Overlay surface dropped with its display")
		}
	}

	remaining := f.remainingLocked()
	for id, d := range byID {
		if _, exists := f.surfaces[id]; exists {
			continue
		}
		surface, err := f.createSurfaceLocked(d, remaining)
		if err != nil {
			log.Warn().Err(err).Uint32("display", id).Msg("Failed to create overlay surface for new display")
			continue
		}
		f.surfaces[id] = surface
		log.Info().Uint32("display", id).Msg("Overlay surface added for new display")
	}
}

// Shutdown force-closes every surface regardless of break state.
func (f *Fleet) Shutdown() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active {
		f.teardownLocked()
	}
}

func (f *Fleet) createSurfaceLocked(d displays.Display, totalSeconds int) (Surface, error) {
	surface, err := f.factory(d, totalSeconds)
	if err != nil {
		return nil, err
	}
	if err := surface.Show(); err != nil {
		surface.Close()
		return nil, err
	}
	return surface, nil
}

func (f *Fleet) remainingLocked() int {
	if !f.active {
		return 0
	}
	elapsed := f.options.Clock.Now().Sub(f.breakStart)
	remaining := f.breakDuration - elapsed
	if remaining < 0 {
		return 0
	}
	return int(remaining / time.Second)
}

// teardownLocked stops the broadcast loop and destroys all surfaces.
func (f *Fleet) teardownLocked() {
	if f.stopCh != nil {
		close(f.stopCh)
		f.stopCh = nil
	}
	for id, surface := range f.surfaces {
		surface.Close()
		delete(f.surfaces, id)
	}
	f.active = false
}

// broadcastLoop pushes remaining time to all live surfaces at the broadcast
// cadence, then tears the fleet down shortly after the countdown hits zero.
func (f *Fleet) broadcastLoop(stopCh chan struct{}) {
	ticker := time.NewTicker(f.options.BroadcastInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if done := f.broadcastOnce(); done {
				time.Sleep(f.options.TeardownGrace)
				f.finish(stopCh)
				return
			}
		}
	}
}

// broadcastOnce pushes one remaining-time value to every ready surface.
// Returns true when the countdown has reached zero.
func (f *Fleet) broadcastOnce() bool {
	f.mu.Lock()
	if !f.active {
		f.mu.Unlock()
		return false
	}
	remaining := f.remainingLocked()
	surfaces := make([]Surface, 0, len(f.surfaces))
	for _, surface := range f.surfaces {
		surfaces = append(surfaces, surface)
	}
	f.mu.Unlock()

	for _, surface := range surfaces {
		if surface.Ready() {
			surface.SetRemaining(remaining)
		}
	}
	if f.options.OnTick != nil {
		f.options.OnTick(remaining)
	}

	return remaining <= 0
}

// finish tears down after a completed countdown, unless HideBreak already
// ran during the grace delay.
func (f *Fleet) finish(stopCh chan struct{}) {
	f.mu.Lock()
	if !f.active || f.stopCh != stopCh {
		f.mu.Unlock()
		return
	}
	f.teardownLocked()
	f.mu.Unlock()

	logger.WithComponent("overlay").Info().Msg("Break finished, overlays torn down")
	if f.options.OnFinished != nil {
		f.options.OnFinished()
	}
}
