package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/takelwerk/dipwatch/internal/geom"
)

// Config holds the complete application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Station   StationConfig   `mapstructure:"station"`
	Detect    DetectConfig    `mapstructure:"detect"`
	Zones     []ZoneConfig    `mapstructure:"zones"`
	GloveArea GloveAreaConfig `mapstructure:"glove_area"`
	Tracking  TrackingConfig  `mapstructure:"tracking"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Watchdog  WatchdogConfig  `mapstructure:"watchdog"`
	Reset     ResetConfig     `mapstructure:"reset"`
	Recorder  RecorderConfig  `mapstructure:"recorder"`
	Source    SourceConfig    `mapstructure:"source"`
	Storage   StorageConfig   `mapstructure:"storage"`
}

// ServerConfig defines listener ports and addresses
type ServerConfig struct {
	BindAddress string `mapstructure:"bind_address"`
	StatusPort  int    `mapstructure:"status_port"`
	MetricsPort int    `mapstructure:"metrics_port"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StationConfig identifies the tracked line
type StationConfig struct {
	Label           string `mapstructure:"label"`             // Area label stamped on every record
	GloveZoneNumber int    `mapstructure:"glove_zone_number"` // Counter number for glove records
}

// DetectConfig defines detection routing thresholds
type DetectConfig struct {
	MinConfidence   float64 `mapstructure:"min_confidence"`
	MaterialClassID int     `mapstructure:"material_class_id"`
	GloveClassID    int     `mapstructure:"glove_class_id"`
}

// ZoneConfig defines one tracked zone. Exactly one of Rect or Polygon
// must be set: Rect is [x1,y1,x2,y2], Polygon is [[x,y],...].
type ZoneConfig struct {
	Number  int         `mapstructure:"number"`
	Name    string      `mapstructure:"name"`
	Rect    []float64   `mapstructure:"rect"`
	Polygon [][]float64 `mapstructure:"polygon"`
}

// Region builds the zone's geometry from whichever shape is configured.
func (z ZoneConfig) Region() (geom.Region, error) {
	return buildRegion(z.Rect, z.Polygon)
}

// GloveAreaConfig defines the glove detection area, same shape rules as
// ZoneConfig.
type GloveAreaConfig struct {
	Rect    []float64   `mapstructure:"rect"`
	Polygon [][]float64 `mapstructure:"polygon"`
}

// Region builds the glove area's geometry.
func (g GloveAreaConfig) Region() (geom.Region, error) {
	return buildRegion(g.Rect, g.Polygon)
}

// TrackingConfig defines the tracker debounce thresholds
type TrackingConfig struct {
	MaterialLossThreshold string `mapstructure:"material_loss_threshold"`
	GloveLossThreshold    string `mapstructure:"glove_loss_threshold"`
	FreetimeThreshold     string `mapstructure:"freetime_threshold"`
}

// PipelineConfig defines the frame queue behavior
type PipelineConfig struct {
	QueueSize    int    `mapstructure:"queue_size"`
	ProcessEvery int    `mapstructure:"process_every"` // Process every Nth frame
	FrameTimeout string `mapstructure:"frame_timeout"`
}

// WatchdogConfig defines pipeline stall detection
type WatchdogConfig struct {
	CheckInterval  string `mapstructure:"check_interval"`
	StallThreshold string `mapstructure:"stall_threshold"`
}

// ResetConfig defines the daily counter reset
type ResetConfig struct {
	Time      string `mapstructure:"time"`      // "HH:MM" local time
	Retention string `mapstructure:"retention"` // Stored record retention, 0 disables cleanup
}

// RecorderConfig defines the async record writer
type RecorderConfig struct {
	QueueSize    int    `mapstructure:"queue_size"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

// SourceConfig selects the frame source driving the pipeline
type SourceConfig struct {
	Type       string `mapstructure:"type"`        // "none" or "replay"
	ReplayPath string `mapstructure:"replay_path"` // JSONL detection log for type "replay"
	ReplayLoop bool   `mapstructure:"replay_loop"` // Restart the log when exhausted
}

// StorageConfig defines the record storage backend
type StorageConfig struct {
	Type   string       `mapstructure:"type"` // "redis", "sqlite", or "none"
	Redis  RedisConfig  `mapstructure:"redis"`
	SQLite SQLiteConfig `mapstructure:"sqlite"`
}

// RedisConfig defines Redis connection settings
type RedisConfig struct {
	Host         string `mapstructure:"host"` // Host, or full "host:port" address
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

// SQLiteConfig defines SQLite storage settings
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure viper
	v.SetConfigFile(configPath)
	v.SetEnvPrefix("DIPWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and environment variables
	}

	// Unmarshal config
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate config
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns a configuration populated with the built-in defaults,
// unvalidated. Used to highlight modified values in config dumps.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.bind_address", "0.0.0.0")
	v.SetDefault("server.status_port", 8081)
	v.SetDefault("server.metrics_port", 9090)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// Station defaults
	v.SetDefault("station.glove_zone_number", 5)

	// Detection defaults
	v.SetDefault("detect.min_confidence", 0.6)
	v.SetDefault("detect.material_class_id", 0)
	v.SetDefault("detect.glove_class_id", 2)

	// Tracking defaults
	v.SetDefault("tracking.material_loss_threshold", "1s")
	v.SetDefault("tracking.glove_loss_threshold", "1s")
	v.SetDefault("tracking.freetime_threshold", "2s")

	// Pipeline defaults
	v.SetDefault("pipeline.queue_size", 100)
	v.SetDefault("pipeline.process_every", 2)
	v.SetDefault("pipeline.frame_timeout", "5s")

	// Watchdog defaults
	v.SetDefault("watchdog.check_interval", "5s")
	v.SetDefault("watchdog.stall_threshold", "15s")

	// Reset defaults
	v.SetDefault("reset.time", "00:00")
	v.SetDefault("reset.retention", "2160h")

	// Recorder defaults
	v.SetDefault("recorder.queue_size", 256)
	v.SetDefault("recorder.write_timeout", "5s")

	// Source defaults
	v.SetDefault("source.type", "none")
	v.SetDefault("source.replay_loop", false)

	// Storage defaults
	v.SetDefault("storage.type", "redis")
	v.SetDefault("storage.redis.host", "127.0.0.1")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.pool_size", 10)
	v.SetDefault("storage.redis.min_idle_conns", 2)
	v.SetDefault("storage.redis.dial_timeout", "5s")
	v.SetDefault("storage.redis.read_timeout", "3s")
	v.SetDefault("storage.redis.write_timeout", "3s")
	v.SetDefault("storage.sqlite.path", "/var/lib/dipwatch/dipwatch.db")
}

// validate validates the configuration
func validate(cfg *Config) error {
	if cfg.Server.StatusPort <= 0 || cfg.Server.StatusPort > 65535 {
		return fmt.Errorf("invalid status port: %d", cfg.Server.StatusPort)
	}
	if cfg.Server.MetricsPort <= 0 || cfg.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", cfg.Server.MetricsPort)
	}

	if cfg.Station.Label == "" {
		return fmt.Errorf("station label is required")
	}
	if cfg.Station.GloveZoneNumber <= 0 {
		return fmt.Errorf("invalid glove zone number: %d (0 is reserved for freetime records)", cfg.Station.GloveZoneNumber)
	}

	if cfg.Detect.MinConfidence < 0 || cfg.Detect.MinConfidence >= 1 {
		return fmt.Errorf("invalid min confidence: %v (must be in [0,1))", cfg.Detect.MinConfidence)
	}

	// Validate zones
	if len(cfg.Zones) == 0 {
		return fmt.Errorf("at least one zone is required")
	}
	seen := make(map[int]bool, len(cfg.Zones))
	for i := range cfg.Zones {
		zone := &cfg.Zones[i]
		if zone.Number <= 0 {
			return fmt.Errorf("zone %d: invalid number %d (0 is reserved for freetime records)", i, zone.Number)
		}
		if seen[zone.Number] {
			return fmt.Errorf("zone %d: duplicate number %d", i, zone.Number)
		}
		if zone.Number == cfg.Station.GloveZoneNumber {
			return fmt.Errorf("zone %d: number %d collides with glove_zone_number", i, zone.Number)
		}
		seen[zone.Number] = true

		if zone.Name == "" {
			zone.Name = fmt.Sprintf("Zone_%d", zone.Number)
		}
		if _, err := zone.Region(); err != nil {
			return fmt.Errorf("zone %d (%s): %w", i, zone.Name, err)
		}
	}

	if _, err := cfg.GloveArea.Region(); err != nil {
		return fmt.Errorf("glove_area: %w", err)
	}

	// Validate durations
	durations := map[string]string{
		"tracking.material_loss_threshold": cfg.Tracking.MaterialLossThreshold,
		"tracking.glove_loss_threshold":    cfg.Tracking.GloveLossThreshold,
		"tracking.freetime_threshold":      cfg.Tracking.FreetimeThreshold,
		"pipeline.frame_timeout":           cfg.Pipeline.FrameTimeout,
		"watchdog.check_interval":          cfg.Watchdog.CheckInterval,
		"watchdog.stall_threshold":         cfg.Watchdog.StallThreshold,
		"recorder.write_timeout":           cfg.Recorder.WriteTimeout,
	}
	for name, value := range durations {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %q", name, value)
		}
		if d <= 0 {
			return fmt.Errorf("invalid %s: %v (must be positive)", name, d)
		}
	}

	if cfg.Pipeline.QueueSize <= 0 {
		return fmt.Errorf("invalid pipeline queue size: %d", cfg.Pipeline.QueueSize)
	}
	if cfg.Pipeline.ProcessEvery <= 0 {
		return fmt.Errorf("invalid pipeline process_every: %d", cfg.Pipeline.ProcessEvery)
	}
	if cfg.Recorder.QueueSize <= 0 {
		return fmt.Errorf("invalid recorder queue size: %d", cfg.Recorder.QueueSize)
	}

	if _, err := time.Parse("15:04", cfg.Reset.Time); err != nil {
		return fmt.Errorf("invalid reset time: %q (expected HH:MM)", cfg.Reset.Time)
	}
	if cfg.Reset.Retention != "" {
		retention, err := time.ParseDuration(cfg.Reset.Retention)
		if err != nil {
			return fmt.Errorf("invalid reset retention: %q", cfg.Reset.Retention)
		}
		if retention < 0 {
			return fmt.Errorf("invalid reset retention: %v (must not be negative)", retention)
		}
	}

	switch cfg.Source.Type {
	case "none":
	case "replay":
		if cfg.Source.ReplayPath == "" {
			return fmt.Errorf("source type replay requires replay_path")
		}
	default:
		return fmt.Errorf("unsupported source type: %s (must be 'none' or 'replay')", cfg.Source.Type)
	}

	switch cfg.Storage.Type {
	case "redis":
		if cfg.Storage.Redis.Host == "" {
			return fmt.Errorf("storage type redis requires redis.host")
		}
	case "sqlite":
		if cfg.Storage.SQLite.Path == "" {
			return fmt.Errorf("storage type sqlite requires sqlite.path")
		}
	case "none":
	default:
		return fmt.Errorf("unsupported storage type: %s (must be 'redis', 'sqlite', or 'none')", cfg.Storage.Type)
	}

	return nil
}

// buildRegion resolves the rect-or-polygon shape shared by zones and the
// glove area.
func buildRegion(rect []float64, polygon [][]float64) (geom.Region, error) {
	switch {
	case len(rect) > 0 && len(polygon) > 0:
		return nil, fmt.Errorf("rect and polygon are mutually exclusive")
	case len(rect) > 0:
		if len(rect) != 4 {
			return nil, fmt.Errorf("rect needs 4 values [x1,y1,x2,y2], got %d", len(rect))
		}
		r := geom.Rect{X1: rect[0], Y1: rect[1], X2: rect[2], Y2: rect[3]}
		if r.X2 <= r.X1 || r.Y2 <= r.Y1 {
			return nil, fmt.Errorf("rect corners must satisfy x1<x2 and y1<y2")
		}
		return r, nil
	case len(polygon) > 0:
		if len(polygon) < 3 {
			return nil, fmt.Errorf("polygon needs at least 3 points, got %d", len(polygon))
		}
		poly := make(geom.Polygon, 0, len(polygon))
		for i, pt := range polygon {
			if len(pt) != 2 {
				return nil, fmt.Errorf("polygon point %d needs 2 values [x,y], got %d", i, len(pt))
			}
			poly = append(poly, geom.Point{X: pt[0], Y: pt[1]})
		}
		return poly, nil
	default:
		return nil, fmt.Errorf("either rect or polygon is required")
	}
}
