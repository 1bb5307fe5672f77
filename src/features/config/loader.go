package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Load reads a YAML file from the given path and returns a new Manager.
// If the file doesn't exist, creates a default configuration.
func Load(path string) (*Manager, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		slog.Info("Config file not found, creating default configuration", "path", path)
		defaultCfg := createDefaultConfig()

		if err := saveDefaultConfig(path, defaultCfg); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}

		manager := NewManager(defaultCfg)
		if err := manager.EnsureDirectories(); err != nil {
			return nil, err
		}
		return manager, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, err
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// Override with environment variables if set
	if dbPath := os.Getenv("STACKD_DB_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if socket := os.Getenv("STACKD_MPV_SOCKET"); socket != "" {
		cfg.Decoder.SocketPath = socket
	}

	manager := NewManager(&cfg)
	if err := manager.EnsureDirectories(); err != nil {
		return nil, err
	}

	return manager, nil
}

// createDefaultConfig creates a new Config with sensible default values.
func createDefaultConfig() *Config {
	return &Config{
		SourceFolders: []string{"./music"},
		Logger: Logger{
			Level:  "info",
			Format: "text",
		},
		Server: Server{
			PrintRoutes: false,
			Port:        3636,
		},
		Database: Database{
			Path: "./stack.db",
		},
		Scan: Scan{
			DebounceMs:      3000,
			MinDurationMs:   30_000,
			CompletedHoldMs: 500,
			WatchFolders:    true,
		},
		Playback: Playback{
			PollIntervalMs:      250,
			PreloadThreshold:    0.80,
			DuckVolume:          0.2,
			PreviousThresholdMs: 3000,
		},
		Decoder: Decoder{
			Backend:    "mpv",
			BinaryPath: "mpv",
			SocketPath: "/tmp/stackd-mpv.sock",
		},
		Artwork: Artwork{
			CachePath: "./artwork-cache",
			Size:      512,
			Quality:   85,
		},
		Metrics: Metrics{
			Enabled: false,
			Port:    9636,
		},
	}
}

// saveDefaultConfig saves the default configuration to the specified file path.
func saveDefaultConfig(path string, cfg *Config) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()
	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	slog.Info("Default configuration saved", "path", path)
	return nil
}
