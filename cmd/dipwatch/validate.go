package main

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/takelwerk/dipwatch/internal/config"
)

var (
	validateDump bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the dipwatch configuration file for syntax and semantic errors.`,
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateDump, "dump", false, "Dump full configuration with defaults highlighted")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration validation failed: %v\n", err)
		return err
	}

	// Check for unknown keys (always, not just with -dump)
	unknownKeys, err := findUnknownKeys(configPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "⚠️  Warning: Could not check for unknown keys: %v\n", err)
	}

	_, _ = fmt.Fprintf(os.Stdout, "✅ Configuration is valid: %s\n", configPath)
	_, _ = fmt.Fprintf(os.Stdout, "   Station %q with %d zone(s), storage %q\n", cfg.Station.Label, len(cfg.Zones), cfg.Storage.Type)

	// Warn about unknown keys
	if len(unknownKeys) > 0 {
		red := color.New(color.FgRed, color.Bold)
		fmt.Fprintln(os.Stdout)
		red.Fprintf(os.Stdout, "⚠️  WARNING: Found %d unknown configuration key(s):\n", len(unknownKeys))
		for _, key := range unknownKeys {
			red.Fprintf(os.Stdout, "   - %s\n", key)
		}
		fmt.Fprintln(os.Stdout, "\nThese keys will be ignored and may indicate typos or deprecated settings.")
	}

	// If dump requested, show full configuration with defaults highlighted
	if validateDump {
		_, _ = fmt.Fprintln(os.Stdout, "\n"+strings.Repeat("=", 80))
		_, _ = fmt.Fprintln(os.Stdout, "FULL CONFIGURATION (values different from defaults are highlighted)")
		_, _ = fmt.Fprintln(os.Stdout, strings.Repeat("=", 80))

		dumpConfig(cfg, config.Default(), unknownKeys)
	}

	return nil
}

// findUnknownKeys loads the config file and checks for unknown keys
func findUnknownKeys(configPath string) ([]string, error) {
	v := viper.New()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	// Get all keys from the config file
	allKeys := v.AllKeys()

	// Build set of valid keys
	validKeys := getValidKeys()

	// Find unknown keys
	unknown := []string{}
	for _, key := range allKeys {
		if !validKeys[key] {
			unknown = append(unknown, key)
		}
	}

	return unknown, nil
}

// getValidKeys returns a set of all valid configuration keys
func getValidKeys() map[string]bool {
	keys := map[string]bool{
		// Server
		"server.bind_address": true,
		"server.status_port":  true,
		"server.metrics_port": true,

		// Logging
		"logging.level":  true,
		"logging.format": true,

		// Station
		"station.label":             true,
		"station.glove_zone_number": true,

		// Detect
		"detect.min_confidence":    true,
		"detect.material_class_id": true,
		"detect.glove_class_id":    true,

		// Geometry (zone list entries are validated by config.Load)
		"zones":              true,
		"glove_area.rect":    true,
		"glove_area.polygon": true,

		// Tracking
		"tracking.material_loss_threshold": true,
		"tracking.glove_loss_threshold":    true,
		"tracking.freetime_threshold":      true,

		// Pipeline
		"pipeline.queue_size":    true,
		"pipeline.process_every": true,
		"pipeline.frame_timeout": true,

		// Watchdog
		"watchdog.check_interval":  true,
		"watchdog.stall_threshold": true,

		// Reset
		"reset.time":      true,
		"reset.retention": true,

		// Recorder
		"recorder.queue_size":    true,
		"recorder.write_timeout": true,

		// Source
		"source.type":        true,
		"source.replay_path": true,
		"source.replay_loop": true,

		// Storage
		"storage.type":                 true,
		"storage.redis.host":           true,
		"storage.redis.port":           true,
		"storage.redis.password":       true,
		"storage.redis.db":             true,
		"storage.redis.pool_size":      true,
		"storage.redis.min_idle_conns": true,
		"storage.redis.dial_timeout":   true,
		"storage.redis.read_timeout":   true,
		"storage.redis.write_timeout":  true,
		"storage.sqlite.path":          true,
	}

	return keys
}

// dumpConfig dumps configuration with color highlighting for non-default values
func dumpConfig(cfg, defaultCfg *config.Config, unknownKeys []string) {
	// Setup colors (only if terminal supports it)
	yellow := color.New(color.FgYellow, color.Bold)
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan, color.Bold)

	// Server
	_, _ = cyan.Println("\n[server]")
	dumpField("  bind_address", cfg.Server.BindAddress, defaultCfg.Server.BindAddress, yellow, green)
	dumpField("  status_port", cfg.Server.StatusPort, defaultCfg.Server.StatusPort, yellow, green)
	dumpField("  metrics_port", cfg.Server.MetricsPort, defaultCfg.Server.MetricsPort, yellow, green)

	// Logging
	_, _ = cyan.Println("\n[logging]")
	dumpField("  level", cfg.Logging.Level, defaultCfg.Logging.Level, yellow, green)
	dumpField("  format", cfg.Logging.Format, defaultCfg.Logging.Format, yellow, green)

	// Station
	_, _ = cyan.Println("\n[station]")
	dumpField("  label", cfg.Station.Label, defaultCfg.Station.Label, yellow, green)
	dumpField("  glove_zone_number", cfg.Station.GloveZoneNumber, defaultCfg.Station.GloveZoneNumber, yellow, green)

	// Detect
	_, _ = cyan.Println("\n[detect]")
	dumpField("  min_confidence", cfg.Detect.MinConfidence, defaultCfg.Detect.MinConfidence, yellow, green)
	dumpField("  material_class_id", cfg.Detect.MaterialClassID, defaultCfg.Detect.MaterialClassID, yellow, green)
	dumpField("  glove_class_id", cfg.Detect.GloveClassID, defaultCfg.Detect.GloveClassID, yellow, green)

	// Zones (always user-supplied, there is no default zone list)
	_, _ = cyan.Println("\n[zones]")
	for _, zc := range cfg.Zones {
		_, _ = yellow.Printf("  zone %d (%s) = %s\n", zc.Number, zc.Name, describeShape(zc.Rect, zc.Polygon))
	}

	// Glove area
	_, _ = cyan.Println("\n[glove_area]")
	_, _ = yellow.Printf("  shape = %s\n", describeShape(cfg.GloveArea.Rect, cfg.GloveArea.Polygon))

	// Tracking
	_, _ = cyan.Println("\n[tracking]")
	dumpField("  material_loss_threshold", cfg.Tracking.MaterialLossThreshold, defaultCfg.Tracking.MaterialLossThreshold, yellow, green)
	dumpField("  glove_loss_threshold", cfg.Tracking.GloveLossThreshold, defaultCfg.Tracking.GloveLossThreshold, yellow, green)
	dumpField("  freetime_threshold", cfg.Tracking.FreetimeThreshold, defaultCfg.Tracking.FreetimeThreshold, yellow, green)

	// Pipeline
	_, _ = cyan.Println("\n[pipeline]")
	dumpField("  queue_size", cfg.Pipeline.QueueSize, defaultCfg.Pipeline.QueueSize, yellow, green)
	dumpField("  process_every", cfg.Pipeline.ProcessEvery, defaultCfg.Pipeline.ProcessEvery, yellow, green)
	dumpField("  frame_timeout", cfg.Pipeline.FrameTimeout, defaultCfg.Pipeline.FrameTimeout, yellow, green)

	// Watchdog
	_, _ = cyan.Println("\n[watchdog]")
	dumpField("  check_interval", cfg.Watchdog.CheckInterval, defaultCfg.Watchdog.CheckInterval, yellow, green)
	dumpField("  stall_threshold", cfg.Watchdog.StallThreshold, defaultCfg.Watchdog.StallThreshold, yellow, green)

	// Reset
	_, _ = cyan.Println("\n[reset]")
	dumpField("  time", cfg.Reset.Time, defaultCfg.Reset.Time, yellow, green)
	dumpField("  retention", cfg.Reset.Retention, defaultCfg.Reset.Retention, yellow, green)

	// Recorder
	_, _ = cyan.Println("\n[recorder]")
	dumpField("  queue_size", cfg.Recorder.QueueSize, defaultCfg.Recorder.QueueSize, yellow, green)
	dumpField("  write_timeout", cfg.Recorder.WriteTimeout, defaultCfg.Recorder.WriteTimeout, yellow, green)

	// Source
	_, _ = cyan.Println("\n[source]")
	dumpField("  type", cfg.Source.Type, defaultCfg.Source.Type, yellow, green)
	dumpField("  replay_path", cfg.Source.ReplayPath, defaultCfg.Source.ReplayPath, yellow, green)
	dumpField("  replay_loop", cfg.Source.ReplayLoop, defaultCfg.Source.ReplayLoop, yellow, green)

	// Storage
	_, _ = cyan.Println("\n[storage]")
	dumpField("  type", cfg.Storage.Type, defaultCfg.Storage.Type, yellow, green)
	_, _ = cyan.Println("  [storage.redis]")
	dumpField("    host", cfg.Storage.Redis.Host, defaultCfg.Storage.Redis.Host, yellow, green)
	dumpField("    port", cfg.Storage.Redis.Port, defaultCfg.Storage.Redis.Port, yellow, green)
	dumpField("    password", redactPassword(cfg.Storage.Redis.Password), redactPassword(defaultCfg.Storage.Redis.Password), yellow, green)
	dumpField("    db", cfg.Storage.Redis.DB, defaultCfg.Storage.Redis.DB, yellow, green)
	dumpField("    pool_size", cfg.Storage.Redis.PoolSize, defaultCfg.Storage.Redis.PoolSize, yellow, green)
	dumpField("    min_idle_conns", cfg.Storage.Redis.MinIdleConns, defaultCfg.Storage.Redis.MinIdleConns, yellow, green)
	dumpField("    dial_timeout", cfg.Storage.Redis.DialTimeout, defaultCfg.Storage.Redis.DialTimeout, yellow, green)
	dumpField("    read_timeout", cfg.Storage.Redis.ReadTimeout, defaultCfg.Storage.Redis.ReadTimeout, yellow, green)
	dumpField("    write_timeout", cfg.Storage.Redis.WriteTimeout, defaultCfg.Storage.Redis.WriteTimeout, yellow, green)
	_, _ = cyan.Println("  [storage.sqlite]")
	dumpField("    path", cfg.Storage.SQLite.Path, defaultCfg.Storage.SQLite.Path, yellow, green)

	// Display unknown keys if any
	if len(unknownKeys) > 0 {
		red := color.New(color.FgRed, color.Bold)

		cyan.Println("\n[UNKNOWN KEYS - These will be ignored!]")
		for _, key := range unknownKeys {
			red.Printf("  %s = (unknown key - check for typos)\n", key)
		}
	}

	_, _ = fmt.Fprintln(os.Stdout, "\n"+strings.Repeat("=", 80))
}

// dumpField prints a field with color if it differs from default
func dumpField(name string, value, defaultValue interface{}, modifiedColor, defaultColor *color.Color) {
	// Deep equal comparison
	isDefault := reflect.DeepEqual(value, defaultValue)

	valueStr := fmt.Sprintf("%v", value)

	if isDefault {
		_, _ = defaultColor.Printf("%s = %s\n", name, valueStr)
	} else {
		_, _ = modifiedColor.Printf("%s = %s  (modified from default: %v)\n", name, valueStr, defaultValue)
	}
}

// describeShape summarizes a configured region for the dump output.
func describeShape(rect []float64, polygon [][]float64) string {
	if len(polygon) > 0 {
		return fmt.Sprintf("polygon(%d points)", len(polygon))
	}
	return fmt.Sprintf("rect=%v", rect)
}

// redactPassword redacts password if not empty
func redactPassword(password string) string {
	if password == "" {
		return ""
	}
	return "***REDACTED***"
}
