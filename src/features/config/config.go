package config

// Config holds the application configuration.
type Config struct {
	SourceFolders []string `yaml:"sourceFolders"`
	Logger        Logger   `yaml:"logger"`
	Server        Server   `yaml:"server"`
	Database      Database `yaml:"database"`
	Scan          Scan     `yaml:"scan"`
	Playback      Playback `yaml:"playback"`
	Decoder       Decoder  `yaml:"decoder"`
	Artwork       Artwork  `yaml:"artwork"`
	Metrics       Metrics  `yaml:"metrics"`
}

// Logger holds the configuration for the app logging.
type Logger struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Server holds the configuration for the Fiber server.
type Server struct {
	PrintRoutes bool   `yaml:"show_routes"`
	Port        uint32 `yaml:"port"`
}

// Database holds the configuration for the catalog store.
type Database struct {
	Path string `yaml:"path" validate:"required"`
}

// Scan holds the configuration for the scan pipeline.
type Scan struct {
	// DebounceMs coalesces bursts of change notifications into one scan.
	DebounceMs int `yaml:"debounce_ms" validate:"gte=0"`
	// MinDurationMs drops notification/UI sounds before they enter the catalog.
	MinDurationMs int64 `yaml:"min_duration_ms" validate:"gte=0"`
	// CompletedHoldMs keeps Completed/Error visible before resetting to Idle.
	CompletedHoldMs int `yaml:"completed_hold_ms" validate:"gte=0"`
	// WatchFolders starts the filesystem observer on the source folders.
	WatchFolders bool `yaml:"watch_folders"`
}

// Playback holds the configuration for the dual-decoder engine.
type Playback struct {
	PollIntervalMs      int     `yaml:"poll_interval_ms" validate:"gt=0"`
	PreloadThreshold    float64 `yaml:"preload_threshold" validate:"gt=0,lte=1"`
	DuckVolume          float64 `yaml:"duck_volume" validate:"gte=0,lte=1"`
	PreviousThresholdMs int64   `yaml:"previous_threshold_ms" validate:"gte=0"`
}

// Decoder holds the configuration for the decoder backend.
type Decoder struct {
	Backend    string `yaml:"backend"` // "mpv"
	BinaryPath string `yaml:"binary_path"`
	SocketPath string `yaml:"socket_path"`
}

// Artwork holds the configuration for the artwork thumbnail cache.
type Artwork struct {
	CachePath string `yaml:"cache_path"`
	Size      int    `yaml:"size"`
	Quality   int    `yaml:"quality"`
}

// Metrics holds the configuration for the Prometheus endpoint.
type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Port    uint32 `yaml:"port"`
}
