// Package app wires the timer, break gate, meeting detector, overlay fleet
// and bridge together. One goroutine (the authority loop) owns all state
// transitions; overlays and API clients only send discrete requests back.
package app

import (
	"fmt"
	"time"

	"github.com/bryanchriswhite/breakwall/internal/bridge"
	"github.com/bryanchriswhite/breakwall/internal/clock"
	"github.com/bryanchriswhite/breakwall/internal/config"
	"github.com/bryanchriswhite/breakwall/internal/displays"
	"github.com/bryanchriswhite/breakwall/internal/foreground"
	"github.com/bryanchriswhite/breakwall/internal/gate"
	"github.com/bryanchriswhite/breakwall/internal/logger"
	"github.com/bryanchriswhite/breakwall/internal/meeting"
	"github.com/bryanchriswhite/breakwall/internal/notify"
	"github.com/bryanchriswhite/breakwall/internal/overlay"
	"github.com/bryanchriswhite/breakwall/internal/timer"
)

// Deps allows tests (and unusual sessions) to override platform-backed
// collaborators. Zero-value fields get real implementations.
type Deps struct {
	SurfaceFactory overlay.Factory
	Provider       displays.Provider
	Backend        foreground.Backend
	Notifier       gate.Notifier
	Clock          clock.Clock
}

// App is the authority process: it owns the timer state machine and the
// overlay fleet and mediates everything between them.
type App struct {
	configMgr *config.Manager
	machine   *timer.Machine
	detector  *meeting.Detector
	gate      *gate.Gate
	fleet     *overlay.Fleet
	hub       *bridge.Hub
	provider  displays.Provider
	notifier  gate.Notifier
	backend   foreground.Backend

	stopChan chan struct{}
	doneChan chan struct{}
}

// New assembles the application from configuration plus optional dependency
// overrides.
func New(configMgr *config.Manager, deps Deps) (*App, error) {
	log := logger.WithComponent("app")
	cfg := configMgr.Get()

	provider := deps.Provider
	if provider == nil {
		p, err := displays.NewXRandRProvider()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize display enumeration: %w", err)
		}
		provider = p
	}

	backend := deps.Backend
	if backend == nil {
		b, err := foreground.NewBackend()
		if err != nil {
			// Meeting detection degrades to unavailable; breaks still work.
			log.Warn().Err(err).Msg("Foreground inspection unavailable, meeting detection disabled")
		} else {
			backend = b
		}
	}

	notifier := deps.Notifier
	if notifier == nil {
		n, err := notify.NewDBusNotifier()
		if err != nil {
			log.Warn().Err(err).Msg("Session bus unavailable, notifications disabled")
			notifier = notify.Nop{}
		} else {
			notifier = n
		}
	}

	factory := deps.SurfaceFactory
	if factory == nil {
		factory = overlay.X11Factory()
	}

	clk := deps.Clock
	if clk == nil {
		clk = clock.Real{}
	}

	a := &App{
		configMgr: configMgr,
		provider:  provider,
		notifier:  notifier,
		backend:   backend,
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}

	a.machine = timer.New(cfg.Timer, timer.Options{
		TickInterval: cfg.Tunables.TickInterval,
		RestartDelay: cfg.Tunables.RestartDelay,
	})

	a.hub = bridge.NewHub(a)

	a.fleet = overlay.NewFleet(factory, provider, overlay.Options{
		BroadcastInterval: cfg.Tunables.BroadcastInterval,
		TeardownGrace:     cfg.Tunables.TeardownGrace,
		Clock:             clk,
		OnTick:            a.hub.BroadcastTick,
		OnFinished:        a.hub.BreakEnded,
	})

	a.detector = meeting.NewDetector(backend, cfg.Meeting)

	a.gate = gate.New(a.detector, presenter{a}, notifier, cfg.SkipBreaksDuringMeetings, gate.Options{
		RecheckInterval: cfg.Tunables.MeetingRecheckInterval,
	})

	return a, nil
}

// presenter adapts the gate's "show the break now" decision onto the fleet
// and the rest of the authority: overlays up, bridge informed, break
// countdown running.
type presenter struct{ app *App }

func (p presenter) ShowBreak(duration time.Duration) error {
	if err := p.app.fleet.ShowBreak(duration); err != nil {
		return err
	}
	p.app.hub.BreakStarted(int(duration / time.Second))
	p.app.machine.Start()
	return nil
}

// Run starts the timer and processes events until Shutdown. Blocks.
func (a *App) Run() {
	defer close(a.doneChan)
	log := logger.WithComponent("app")

	events := a.machine.Subscribe(64)
	topologyCh := a.provider.Subscribe()
	defer a.provider.Unsubscribe(topologyCh)
	configCh := a.configMgr.Subscribe()
	defer a.configMgr.Unsubscribe(configCh)

	a.machine.Start()
	log.Info().Msg("Work countdown started")

	for {
		select {
		case <-a.stopChan:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			a.handleTimerEvent(ev)
		case topology, ok := <-topologyCh:
			if !ok {
				return
			}
			a.fleet.SyncDisplays(topology)
		case cfg, ok := <-configCh:
			if !ok {
				return
			}
			a.applySettings(cfg)
		}
	}
}

func (a *App) handleTimerEvent(ev timer.Event) {
	switch ev.Type {
	case timer.EventPhaseChange:
		if ev.State.OnBreak {
			a.notifier.Notify("Time for a break",
				fmt.Sprintf("Step away for %s.", formatBreakLength(ev.BreakDuration)))
			a.gate.RequestBreak(ev.BreakDuration)
			return
		}
		// Back to work: break completed, skipped or snoozed.
		a.fleet.HideBreak()
		a.hub.BreakEnded()
		if ev.Reason == timer.ReasonCompleted {
			a.notifier.Notify("Break over", "Back to work. Next break is scheduled.")
		}
	}
}

func (a *App) applySettings(cfg *config.Config) {
	logger.WithComponent("app").Info().Msg("Applying updated settings")
	a.machine.UpdateSettings(cfg.Timer)
	a.detector.UpdateSettings(cfg.Meeting)
	a.gate.SetSkipDuringMeetings(cfg.SkipBreaksDuringMeetings)
}

// Shutdown stops the authority loop, cancels every outstanding timer and
// force-closes all overlay surfaces.
func (a *App) Shutdown() {
	close(a.stopChan)
	<-a.doneChan

	a.machine.Stop()
	a.gate.Shutdown()
	a.fleet.Shutdown()
	a.hub.Close()
	a.provider.Stop()
	if a.backend != nil {
		a.backend.Close()
	}
	if closer, ok := a.notifier.(interface{ Close() error }); ok {
		closer.Close()
	}
	logger.WithComponent("app").Info().Msg("Shutdown complete")
}

// Hub exposes the bridge hub for the HTTP layer.
func (a *App) Hub() *bridge.Hub { return a.hub }

// Displays exposes the display provider for the HTTP layer.
func (a *App) Displays() displays.Provider { return a.provider }

// StartTimer resumes the countdown.
func (a *App) StartTimer() { a.machine.Start() }

// PauseTimer freezes the countdown.
func (a *App) PauseTimer() { a.machine.Pause() }

// ResetTimer restores the current phase's full duration.
func (a *App) ResetTimer() { a.machine.Reset() }

// SkipBreak ends the current break, counting it as taken.
func (a *App) SkipBreak() { a.machine.SkipBreak() }

// SnoozeBreak ends the current break without counting it.
func (a *App) SnoozeBreak() { a.machine.SnoozeBreak() }

// TimerState returns the authoritative timer snapshot.
func (a *App) TimerState() timer.State { return a.machine.Snapshot() }

// BreakActive reports whether overlays are currently showing.
func (a *App) BreakActive() bool { return a.fleet.Active() }

// BreakRemaining returns seconds left in the showing break.
func (a *App) BreakRemaining() int { return a.fleet.Remaining() }

// PendingBreak reports whether a break is deferred behind a meeting.
func (a *App) PendingBreak() bool { return a.gate.HasPending() }

func formatBreakLength(d time.Duration) string {
	if d >= time.Minute && d%time.Minute == 0 {
		minutes := int(d / time.Minute)
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	return fmt.Sprintf("%d seconds", int(d/time.Second))
}
