package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bryanchriswhite/wincap/internal/logger"
	"gopkg.in/yaml.v3"
)

// Backend names accepted by WindowsConfig.Backend
const (
	BackendAuto = "auto"
	BackendX11  = "x11"
	BackendKWin = "kwin"
)

// Thumbnail encodings accepted by ThumbnailConfig.Format
const (
	ThumbnailPNG  = "png"
	ThumbnailTIFF = "tiff"
)

// Config represents the application configuration
type Config struct {
	ServerHost string `json:"server_host" yaml:"server_host"`
	ServerPort int    `json:"server_port" yaml:"server_port"`
	LogLevel   string `json:"log_level" yaml:"log_level"`

	Windows    WindowsConfig   `json:"windows" yaml:"windows"`
	Thumbnails ThumbnailConfig `json:"thumbnails" yaml:"thumbnails"`
	Encoder    EncoderConfig   `json:"encoder" yaml:"encoder"`
	Icons      IconConfig      `json:"icons" yaml:"icons"`
}

// WindowsConfig controls which windows enumeration reports
type WindowsConfig struct {
	Backend             string   `json:"backend" yaml:"backend"`
	MinWidth            int      `json:"min_width" yaml:"min_width"`
	MinHeight           int      `json:"min_height" yaml:"min_height"`
	ExcludedClasses     []string `json:"excluded_classes" yaml:"excluded_classes"`
	HideUntitledClasses []string `json:"hide_untitled_classes" yaml:"hide_untitled_classes"`
	HideSelf            bool     `json:"hide_self" yaml:"hide_self"`
}

// ThumbnailConfig controls window thumbnail capture
type ThumbnailConfig struct {
	Format      string  `json:"format" yaml:"format"`
	Scale       float64 `json:"scale" yaml:"scale"`
	FullSizeMax int     `json:"full_size_max" yaml:"full_size_max"`
	Concurrency int     `json:"concurrency" yaml:"concurrency"`
}

// EncoderConfig controls the ffmpeg encoder
type EncoderConfig struct {
	FFmpegPath   string `json:"ffmpeg_path" yaml:"ffmpeg_path"`
	Codec        string `json:"codec" yaml:"codec"`
	Preset       string `json:"preset" yaml:"preset"`
	CRF          int    `json:"crf" yaml:"crf"`
	FPS          int    `json:"fps" yaml:"fps"`
	MaxGapFrames int    `json:"max_gap_frames" yaml:"max_gap_frames"`
	// OutputDir confines files requested over the HTTP API. Empty means
	// $HOME/Videos/wincap.
	OutputDir string `json:"output_dir" yaml:"output_dir"`
}

// ResolveOutputDir returns OutputDir as an absolute path
func (c EncoderConfig) ResolveOutputDir() (string, error) {
	if c.OutputDir != "" {
		return filepath.Abs(c.OutputDir)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, "Videos", "wincap"), nil
}

// IconConfig controls application icon lookup
type IconConfig struct {
	PreferredSize int      `json:"preferred_size" yaml:"preferred_size"`
	Theme         string   `json:"theme" yaml:"theme"`
	ExtraDataDirs []string `json:"extra_data_dirs" yaml:"extra_data_dirs"`
	CacheSize     int      `json:"cache_size" yaml:"cache_size"`
}

// Manager handles configuration
type Manager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex

	watching  bool
	callbacks []func(*Config)
	stopWatch chan struct{}
}

// DefaultPath returns $HOME/.config/wincap/config.yaml
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "wincap", "config.yaml"), nil
}

// NewManager creates a new configuration manager. An empty configFile selects
// the default path. A missing file is created with defaults.
func NewManager(configFile string) (*Manager, error) {
	actualConfigPath := configFile
	if actualConfigPath == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		actualConfigPath = p
	}

	if err := os.MkdirAll(filepath.Dir(actualConfigPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	m := &Manager{
		configPath: actualConfigPath,
	}

	if err := m.load(); err != nil {
		if os.IsNotExist(err) {
			logger.WithComponent("config").Info().
				Str("path", m.configPath).
				Msg("Config file not found, creating new config")
			m.config = Defaults()
			if err := m.Save(); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Str("backend", m.config.Windows.Backend).
		Msg("Config loaded")

	return m, nil
}

// Defaults returns the default configuration
func Defaults() *Config {
	return &Config{
		ServerHost: "127.0.0.1",
		ServerPort: 8080,
		LogLevel:   "info",
		Windows: WindowsConfig{
			Backend:   BackendAuto,
			MinWidth:  40,
			MinHeight: 40,
			ExcludedClasses: []string{
				"plasmashell",
				"xfce4-panel",
				"gnome-shell",
				"polybar",
				"tint2",
				"conky",
				"xfdesktop",
				"desktop_window",
			},
			HideUntitledClasses: []string{"nautilus", "dolphin", "thunar", "pcmanfm", "nemo"},
			HideSelf:            true,
		},
		Thumbnails: ThumbnailConfig{
			Format:      ThumbnailPNG,
			Scale:       0.5,
			FullSizeMax: 200,
			Concurrency: 4,
		},
		Encoder: EncoderConfig{
			Codec:        "libx264",
			Preset:       "veryfast",
			CRF:          23,
			FPS:          30,
			MaxGapFrames: 300,
		},
		Icons: IconConfig{
			PreferredSize: 64,
			Theme:         "hicolor",
			ExtraDataDirs: []string{},
			CacheSize:     128,
		},
	}
}

// load reads the configuration from disk
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	cfg, err := parse(data)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()

	return nil
}

// parse decodes YAML over the defaults so missing sections keep sane values
func parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	normalize(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize replaces zero values that would break downstream components
func normalize(cfg *Config) {
	d := Defaults()
	if cfg.ServerHost == "" {
		cfg.ServerHost = d.ServerHost
	}
	if cfg.Windows.Backend == "" {
		cfg.Windows.Backend = BackendAuto
	}
	if cfg.Windows.ExcludedClasses == nil {
		cfg.Windows.ExcludedClasses = []string{}
	}
	if cfg.Windows.HideUntitledClasses == nil {
		cfg.Windows.HideUntitledClasses = []string{}
	}
	if cfg.Thumbnails.Format == "" {
		cfg.Thumbnails.Format = d.Thumbnails.Format
	}
	if cfg.Thumbnails.Scale <= 0 {
		cfg.Thumbnails.Scale = d.Thumbnails.Scale
	}
	if cfg.Thumbnails.Concurrency <= 0 {
		cfg.Thumbnails.Concurrency = d.Thumbnails.Concurrency
	}
	if cfg.Encoder.FPS <= 0 {
		cfg.Encoder.FPS = d.Encoder.FPS
	}
	if cfg.Encoder.Codec == "" {
		cfg.Encoder.Codec = d.Encoder.Codec
	}
	if cfg.Icons.PreferredSize <= 0 {
		cfg.Icons.PreferredSize = d.Icons.PreferredSize
	}
	if cfg.Icons.Theme == "" {
		cfg.Icons.Theme = d.Icons.Theme
	}
	if cfg.Icons.ExtraDataDirs == nil {
		cfg.Icons.ExtraDataDirs = []string{}
	}
}

// Validate rejects configurations no component can run with
func Validate(cfg *Config) error {
	switch cfg.Windows.Backend {
	case BackendAuto, BackendX11, BackendKWin:
	default:
		return fmt.Errorf("invalid windows.backend: %q (use auto, x11 or kwin)", cfg.Windows.Backend)
	}
	switch cfg.Thumbnails.Format {
	case ThumbnailPNG, ThumbnailTIFF:
	default:
		return fmt.Errorf("invalid thumbnails.format: %q (use png or tiff)", cfg.Thumbnails.Format)
	}
	if cfg.Thumbnails.Scale > 1 {
		return fmt.Errorf("invalid thumbnails.scale: %v (must be in (0, 1])", cfg.Thumbnails.Scale)
	}
	if cfg.Encoder.CRF < 0 || cfg.Encoder.CRF > 51 {
		return fmt.Errorf("invalid encoder.crf: %d (must be 0-51)", cfg.Encoder.CRF)
	}
	if cfg.Encoder.MaxGapFrames < 0 {
		return fmt.Errorf("invalid encoder.max_gap_frames: %d", cfg.Encoder.MaxGapFrames)
	}
	if cfg.ServerPort < 0 || cfg.ServerPort > 65535 {
		return fmt.Errorf("invalid server_port: %d", cfg.ServerPort)
	}
	if !logger.ValidLevel(cfg.LogLevel) {
		return fmt.Errorf("invalid log_level: %q", cfg.LogLevel)
	}
	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return Defaults()
	}

	cfg := *m.config
	cfg.Windows.ExcludedClasses = append([]string(nil), m.config.Windows.ExcludedClasses...)
	cfg.Windows.HideUntitledClasses = append([]string(nil), m.config.Windows.HideUntitledClasses...)
	cfg.Icons.ExtraDataDirs = append([]string(nil), m.config.Icons.ExtraDataDirs...)
	return &cfg
}

// Save saves the current configuration to disk
func (m *Manager) Save() error {
	m.mu.RLock()
	cfg := m.config
	m.mu.RUnlock()

	if cfg == nil {
		cfg = Defaults()
	}

	log := logger.WithComponent("config")
	log.Debug().
		Str("path", m.configPath).
		Msg("Saving config")

	configDir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		log.Error().
			Err(err).
			Str("config_dir", configDir).
			Msg("Failed to create config directory")
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		log.Error().
			Err(err).
			Msg("Failed to marshal config")
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		log.Error().
			Err(err).
			Str("path", m.configPath).
			Msg("Failed to write config")
		return err
	}

	log.Debug().
		Str("path", m.configPath).
		Msg("Config saved successfully")
	return nil
}

// Update validates and replaces the entire configuration
func (m *Manager) Update(cfg *Config) error {
	normalize(cfg)
	if err := Validate(cfg); err != nil {
		return err
	}
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return m.Save()
}

// SetPort sets the server port
func (m *Manager) SetPort(port int) error {
	cfg := m.Get()
	cfg.ServerPort = port
	return m.Update(cfg)
}

// SetLogLevel sets the log level
func (m *Manager) SetLogLevel(level string) error {
	cfg := m.Get()
	cfg.LogLevel = level
	return m.Update(cfg)
}

// GetConfigPath returns the configuration file path
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// GetConfigDir returns the directory holding the configuration file
func (m *Manager) GetConfigDir() string {
	return filepath.Dir(m.configPath)
}
