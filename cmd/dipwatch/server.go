package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/takelwerk/dipwatch/internal/clock"
	"github.com/takelwerk/dipwatch/internal/config"
	"github.com/takelwerk/dipwatch/internal/detect"
	"github.com/takelwerk/dipwatch/internal/metrics"
	"github.com/takelwerk/dipwatch/internal/pipeline"
	"github.com/takelwerk/dipwatch/internal/recorder"
	"github.com/takelwerk/dipwatch/internal/status"
	"github.com/takelwerk/dipwatch/internal/storage"
	"github.com/takelwerk/dipwatch/internal/storage/redis"
	"github.com/takelwerk/dipwatch/internal/storage/sqlite"
	"github.com/takelwerk/dipwatch/internal/systemd"
	"github.com/takelwerk/dipwatch/internal/track"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the dipwatch daemon",
	Long:  `Start the dipwatch daemon with the detection pipeline, status API, and metrics endpoints.`,
	RunE:  runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)
	log.Logger = logger

	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Msg("Starting dipwatch")

	// Initialize storage
	store, err := openStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	if store != nil {
		defer func() {
			if err := store.Close(); err != nil {
				logger.Error().Err(err).Msg("Failed to close storage")
			}
		}()
		logger.Info().Str("type", cfg.Storage.Type).Msg("Storage initialized")
	} else {
		logger.Warn().Msg("No storage configured, records will be logged but not persisted")
	}

	// Initialize record writer
	rec := recorder.NewWriter(
		store,
		cfg.Recorder.QueueSize,
		parseDuration(cfg.Recorder.WriteTimeout, 5*time.Second),
		logger,
	)

	// Build the tracked line from the configured geometry
	lineCfg, err := buildLineConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to build line geometry: %w", err)
	}

	clk := clock.RealClock{}
	line := track.NewLine(lineCfg, rec, clk.Now(), logger)

	logger.Info().
		Str("area", cfg.Station.Label).
		Int("zones", len(cfg.Zones)).
		Int("glove_zone", cfg.Station.GloveZoneNumber).
		Msg("Line trackers initialized")

	// Build the pipeline
	queue := pipeline.NewQueue(cfg.Pipeline.QueueSize, logger)
	watchdog := pipeline.NewWatchdog(
		queue,
		parseDuration(cfg.Watchdog.CheckInterval, 5*time.Second),
		parseDuration(cfg.Watchdog.StallThreshold, 15*time.Second),
		clk,
		logger,
	)

	source, detector, err := buildSource(cfg.Source)
	if err != nil {
		return fmt.Errorf("failed to build frame source: %w", err)
	}

	var producer *pipeline.Producer
	var consumer *pipeline.Consumer
	if source != nil {
		producer = pipeline.NewProducer(source, queue, watchdog, cfg.Pipeline.ProcessEvery, logger)
		consumer = pipeline.NewConsumer(queue, detector, line, watchdog, parseDuration(cfg.Pipeline.FrameTimeout, 5*time.Second), logger)
	}

	// Initialize reset scheduler
	var retention time.Duration
	if cfg.Reset.Retention != "" {
		retention = parseDuration(cfg.Reset.Retention, 0)
	}
	scheduler, err := track.NewResetScheduler(line, store, cfg.Reset.Time, retention, clk, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize reset scheduler: %w", err)
	}

	// Initialize HTTP servers
	metricsAddr := fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.MetricsPort)
	metricsServer := metrics.NewServer(metricsAddr, logger)

	statusAddr := fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.StatusPort)
	statusServer := status.NewServer(statusAddr, line, queue, consumer, rec, store, clk, logger)

	// Start everything
	if err := metricsServer.Start(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}
	logger.Info().Str("addr", metricsAddr).Msg("Metrics server started")

	rec.Start()

	if err := statusServer.Start(); err != nil {
		return fmt.Errorf("failed to start status server: %w", err)
	}
	logger.Info().Str("addr", statusAddr).Msg("Status server started")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var pipelineWG sync.WaitGroup
	if producer != nil {
		pipelineWG.Add(3)
		go func() {
			defer pipelineWG.Done()
			producer.Run(ctx)
		}()
		go func() {
			defer pipelineWG.Done()
			consumer.Run(ctx)
		}()
		go func() {
			defer pipelineWG.Done()
			watchdog.Run(ctx)
		}()

		logger.Info().
			Str("source", cfg.Source.Type).
			Int("queue_size", cfg.Pipeline.QueueSize).
			Int("process_every", cfg.Pipeline.ProcessEvery).
			Msg("Pipeline started")
	} else {
		logger.Warn().Msg("No frame source configured, pipeline is idle (set source.type to drive the trackers)")
	}

	scheduler.Start()

	// Log startup complete
	logger.Info().Msg("dipwatch startup complete")
	logger.Info().Msgf("Status API: http://%s/api/status", statusAddr)
	logger.Info().Msgf("Metrics: http://%s/metrics", metricsAddr)

	// Notify systemd that we're ready
	if err := systemd.NotifyReady(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd ready notification")
	} else {
		logger.Debug().Msg("Sent systemd ready notification")
	}

	// Wait for signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	for {
		sig := <-sigChan
		if sig == syscall.SIGHUP {
			logger.Info().Msg("SIGHUP received, live reload is not supported, restart to apply config changes")
			continue
		}
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received, gracefully stopping...")
		break
	}

	// Notify systemd that we're stopping
	if err := systemd.NotifyStopping(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd stopping notification")
	}

	// Stop frame intake first so nothing races the shutdown drain
	cancel()
	pipelineWG.Wait()

	// Drain open sessions into the recorder, then let the recorder flush
	line.Shutdown(clk.Now())

	scheduler.Stop()
	rec.Stop()

	if err := statusServer.Stop(); err != nil {
		logger.Error().Err(err).Msg("Error stopping status server")
	}
	if err := metricsServer.Stop(); err != nil {
		logger.Error().Err(err).Msg("Error stopping metrics server")
	}

	logger.Info().Msg("dipwatch stopped")

	return nil
}

// buildLineConfig resolves the configured zone and glove geometry into the
// tracker configuration.
func buildLineConfig(cfg *config.Config) (track.LineConfig, error) {
	zones := make([]track.ZoneDef, 0, len(cfg.Zones))
	for _, zc := range cfg.Zones {
		region, err := zc.Region()
		if err != nil {
			return track.LineConfig{}, fmt.Errorf("zone %d: %w", zc.Number, err)
		}
		zones = append(zones, track.ZoneDef{Number: zc.Number, Name: zc.Name, Region: region})
	}

	gloveRegion, err := cfg.GloveArea.Region()
	if err != nil {
		return track.LineConfig{}, fmt.Errorf("glove area: %w", err)
	}

	return track.LineConfig{
		Area:               cfg.Station.Label,
		Zones:              zones,
		GloveRegion:        gloveRegion,
		GloveZoneNumber:    cfg.Station.GloveZoneNumber,
		MaterialClassID:    cfg.Detect.MaterialClassID,
		GloveClassID:       cfg.Detect.GloveClassID,
		MinConfidence:      cfg.Detect.MinConfidence,
		LossThreshold:      parseDuration(cfg.Tracking.MaterialLossThreshold, time.Second),
		GloveLossThreshold: parseDuration(cfg.Tracking.GloveLossThreshold, time.Second),
		FreetimeThreshold:  parseDuration(cfg.Tracking.FreetimeThreshold, 2*time.Second),
	}, nil
}

// buildSource returns the configured frame source and detector, or nil
// when the pipeline should stay idle.
func buildSource(cfg config.SourceConfig) (detect.Source, detect.Detector, error) {
	switch cfg.Type {
	case "replay":
		replay, err := detect.NewReplay(cfg.ReplayPath, cfg.ReplayLoop)
		if err != nil {
			return nil, nil, err
		}
		return replay, replay, nil
	default:
		return nil, nil, nil
	}
}

func openStorage(cfg config.StorageConfig) (storage.Store, error) {
	storageType := cfg.Type
	if storageType == "" {
		storageType = "redis"
	}

	switch storageType {
	case "redis":
		return redis.Open(cfg.Redis)
	case "sqlite":
		return sqlite.Open(cfg.SQLite)
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s (must be 'redis', 'sqlite', or 'none')", storageType)
	}
}

// setupLogger configures the logger based on configuration
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "trace":
		level = zerolog.TraceLevel
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Set output format
	if cfg.Format == "json" {
		return zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	// Default to console output, the daemon usually runs under journald
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
}

// parseDuration parses a duration string with a fallback
func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
