package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bryanchriswhite/breakwall/internal/logger"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Manager owns the persisted configuration. The timer core never writes
// through it; external settings surfaces do, and subscribers are notified
// on every change (including edits made directly to the file on disk).
type Manager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex
	watcher    *fsnotify.Watcher
	listeners  []chan *Config
	stopChan   chan struct{}
}

// NewManager creates a new config manager, loading or creating the config file
func NewManager(configFile string) (*Manager, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".config", "breakwall")
	actualConfigPath := filepath.Join(configDir, "config.yaml")
	if configFile != "" {
		actualConfigPath = configFile
		configDir = filepath.Dir(configFile)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	m := &Manager{
		configPath: actualConfigPath,
		stopChan:   make(chan struct{}),
	}

	if err := m.load(); err != nil {
		if os.IsNotExist(err) {
			logger.WithComponent("config").Info().
				Str("path", m.configPath).
				Msg("Config file not found, creating new config")
			m.config = DefaultConfig()
			if err := m.Save(); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	logger.WithComponent("config").Info().
		Str("path", m.configPath).
		Int("work_minutes", m.config.Timer.WorkDurationMinutes).
		Int("break_seconds", m.config.Timer.BreakDurationSeconds).
		Msg("Config loaded")

	return m, nil
}

// load reads and parses the config file, filling gaps with defaults.
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg := *m.config
	return &cfg
}

// GetConfigPath returns the path of the backing file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// Save writes the current configuration to disk
func (m *Manager) Save() error {
	m.mu.RLock()
	data, err := yaml.Marshal(m.config)
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Update replaces the configuration, persists it and notifies subscribers
func (m *Manager) Update(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()

	if err := m.Save(); err != nil {
		return err
	}

	m.notifyListeners()
	return nil
}

// Subscribe returns a channel receiving the new config after every change
func (m *Manager) Subscribe() chan *Config {
	ch := make(chan *Config, 4)
	m.mu.Lock()
	m.listeners = append(m.listeners, ch)
	m.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel
func (m *Manager) Unsubscribe(ch chan *Config) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, listener := range m.listeners {
		if listener == ch {
			m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
			close(ch)
			break
		}
	}
}

func (m *Manager) notifyListeners() {
	cfg := m.Get()
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, listener := range m.listeners {
		select {
		case listener <- cfg:
		default:
			// Skip if channel is full
		}
	}
}

// Watch begins watching the config file for external edits (e.g. a settings
// UI writing directly to disk) and reloads on change.
func (m *Manager) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(m.configPath)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch config directory: %w", err)
	}
	m.watcher = watcher

	go m.watchLoop()
	return nil
}

func (m *Manager) watchLoop() {
	log := logger.WithComponent("config")

	for {
		select {
		case <-m.stopChan:
			return
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if event.Name != m.configPath {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := m.load(); err != nil {
				log.Warn().Err(err).Msg("Failed to reload config after file change")
				continue
			}
			log.Info().Msg("Config reloaded from disk")
			m.notifyListeners()
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("Config watcher error")
		}
	}
}

// Stop shuts down the file watcher and closes all subscriber channels
func (m *Manager) Stop() {
	close(m.stopChan)
	if m.watcher != nil {
		m.watcher.Close()
	}

	m.mu.Lock()
	listeners := m.listeners
	m.listeners = nil
	m.mu.Unlock()

	for _, ch := range listeners {
		close(ch)
	}
}
