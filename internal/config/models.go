package config

import (
	"fmt"
	"time"
)

// TimerSettings holds the work/break cycle durations.
// Read-only to the timer core; edited only through the settings surface.
type TimerSettings struct {
	WorkDurationMinutes      int `json:"work_duration_minutes" yaml:"work_duration_minutes"`
	BreakDurationSeconds     int `json:"break_duration_seconds" yaml:"break_duration_seconds"`
	LongBreakDurationMinutes int `json:"long_break_duration_minutes" yaml:"long_break_duration_minutes"`
	LongBreakIntervalCycles  int `json:"long_break_interval_cycles" yaml:"long_break_interval_cycles"`
}

// WorkDuration returns the work phase length.
func (s TimerSettings) WorkDuration() time.Duration {
	return time.Duration(s.WorkDurationMinutes) * time.Minute
}

// BreakDuration returns the short break length.
func (s TimerSettings) BreakDuration() time.Duration {
	return time.Duration(s.BreakDurationSeconds) * time.Second
}

// LongBreakDuration returns the long break length.
func (s TimerSettings) LongBreakDuration() time.Duration {
	return time.Duration(s.LongBreakDurationMinutes) * time.Minute
}

// MeetingSettings configures foreground-window meeting detection.
type MeetingSettings struct {
	// MeetingApps are window classes that always indicate a meeting
	// (dedicated clients like zoom).
	MeetingApps []string `json:"meeting_apps" yaml:"meeting_apps"`
	// BrowserClasses are window classes treated as browsers; their titles
	// are matched against URLSubstrings.
	BrowserClasses []string `json:"browser_classes" yaml:"browser_classes"`
	// URLSubstrings mark a browser tab as a meeting when found in the title.
	URLSubstrings []string `json:"url_substrings" yaml:"url_substrings"`
}

// Tunables are timing knobs that affect perceived smoothness and test
// determinism. All have sane defaults; most users never touch them.
type Tunables struct {
	TickInterval           time.Duration `json:"tick_interval" yaml:"tick_interval"`
	BroadcastInterval      time.Duration `json:"broadcast_interval" yaml:"broadcast_interval"`
	RestartDelay           time.Duration `json:"restart_delay" yaml:"restart_delay"`
	MeetingRecheckInterval time.Duration `json:"meeting_recheck_interval" yaml:"meeting_recheck_interval"`
	TeardownGrace          time.Duration `json:"teardown_grace" yaml:"teardown_grace"`
}

// Config represents the application configuration
type Config struct {
	Timer                    TimerSettings   `json:"timer" yaml:"timer"`
	Meeting                  MeetingSettings `json:"meeting" yaml:"meeting"`
	SkipBreaksDuringMeetings bool            `json:"skip_breaks_during_meetings" yaml:"skip_breaks_during_meetings"`
	Tunables                 Tunables        `json:"tunables" yaml:"tunables"`
	ServerPort               int             `json:"server_port" yaml:"server_port"`
	LogLevel                 string          `json:"log_level" yaml:"log_level"`
}

// DefaultConfig returns the configuration used when no file exists yet.
func DefaultConfig() *Config {
	return &Config{
		Timer: TimerSettings{
			WorkDurationMinutes:      25,
			BreakDurationSeconds:     120,
			LongBreakDurationMinutes: 10,
			LongBreakIntervalCycles:  4,
		},
		Meeting: MeetingSettings{
			MeetingApps: []string{
				"zoom", "Zoom", "teams-for-linux", "Microsoft Teams", "Slack",
			},
			BrowserClasses: []string{
				"firefox", "Navigator", "chromium", "Chromium", "google-chrome", "Google-chrome", "brave-browser",
			},
			URLSubstrings: []string{
				"meet.google.com", "Google Meet", "zoom.us", "teams.microsoft.com", "webex.com", "whereby.com",
			},
		},
		SkipBreaksDuringMeetings: true,
		Tunables: Tunables{
			TickInterval:           time.Second,
			BroadcastInterval:      100 * time.Millisecond,
			RestartDelay:           500 * time.Millisecond,
			MeetingRecheckInterval: 30 * time.Second,
			TeardownGrace:          100 * time.Millisecond,
		},
		ServerPort: 8343,
		LogLevel:   "info",
	}
}

// Validate checks the configuration for values the timer core cannot run with.
func (c *Config) Validate() error {
	if c.Timer.WorkDurationMinutes < 1 {
		return fmt.Errorf("timer.work_duration_minutes must be >= 1, got %d", c.Timer.WorkDurationMinutes)
	}
	if c.Timer.BreakDurationSeconds < 1 {
		return fmt.Errorf("timer.break_duration_seconds must be >= 1, got %d", c.Timer.BreakDurationSeconds)
	}
	if c.Timer.LongBreakDurationMinutes < 1 {
		return fmt.Errorf("timer.long_break_duration_minutes must be >= 1, got %d", c.Timer.LongBreakDurationMinutes)
	}
	if c.Timer.LongBreakIntervalCycles < 1 {
		return fmt.Errorf("timer.long_break_interval_cycles must be >= 1, got %d", c.Timer.LongBreakIntervalCycles)
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("server_port %d is not a valid port", c.ServerPort)
	}
	return nil
}
