package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Backend BackendConfig `yaml:"backend"`
	Log     LogConfig     `yaml:"log"`
	DB      DBConfig      `yaml:"db"`
	Poll    PollConfig    `yaml:"poll"`
	Camera  CameraConfig  `yaml:"camera"`
	Suggest SuggestConfig `yaml:"suggest"`
	Audio   AudioConfig   `yaml:"audio"`
	Session SessionConfig `yaml:"session"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// BackendConfig holds settings for the tour backend the engine talks to.
type BackendConfig struct {
	BaseURL string   `yaml:"base_url"`
	Timeout Duration `yaml:"timeout"`
	Retries int      `yaml:"retries"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// PollConfig holds settings for the tour generation poller.
type PollConfig struct {
	Interval Duration `yaml:"interval"`
}

// CameraConfig holds settings for the camera tween engine.
type CameraConfig struct {
	Duration  Duration `yaml:"duration"`
	FrameRate int      `yaml:"frame_rate"`
	Zoom      float64  `yaml:"zoom"`
	Tilt      float64  `yaml:"tilt"`
}

// SuggestConfig holds settings for the theme suggestion fetcher.
type SuggestConfig struct {
	// CacheResolution is the H3 resolution used to bucket positions into a
	// shared cache key for suggestion responses.
	CacheResolution int `yaml:"cache_resolution"`
}

// AudioConfig holds settings for narration audio playback.
type AudioConfig struct {
	SpoolDir string `yaml:"spool_dir"`
	Volume   float64 `yaml:"volume"`
}

// SessionConfig holds session lifecycle settings.
type SessionConfig struct {
	TTL Duration `yaml:"ttl"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address: "localhost:1930",
		},
		Backend: BackendConfig{
			BaseURL: "http://localhost:8000",
			Timeout: Duration(30 * time.Second),
			Retries: 3,
		},
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
		},
		DB: DBConfig{
			Path: "./data/tourflow.db",
		},
		Poll: PollConfig{
			Interval: Duration(10 * time.Second),
		},
		Camera: CameraConfig{
			Duration:  Duration(1500 * time.Millisecond),
			FrameRate: 60,
			Zoom:      17,
			Tilt:      45,
		},
		Suggest: SuggestConfig{
			CacheResolution: 8,
		},
		Audio: AudioConfig{
			SpoolDir: "./data/audio",
			Volume:   1.0,
		},
		Session: SessionConfig{
			TTL: Duration(2 * time.Hour),
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, it merges defaults with existing values but does NOT save
// back to disk (to preserve user formatting and comments).
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}

		// Env fallback for deployment overrides (do NOT save back to disk).
		if base := os.Getenv("TOURFLOW_BACKEND_URL"); base != "" {
			cfg.Backend.BaseURL = base
		}
		if addr := os.Getenv("TOURFLOW_ADDRESS"); addr != "" {
			cfg.Server.Address = addr
		}

		return cfg, nil
	}

	if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# TourFlow Configuration
# ---------------------
# Supported Duration units: ns, us (or µs), ms, s, m, h, d (day), w (week)

`)
	data = append(header, data...)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
