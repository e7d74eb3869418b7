package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dbehnke/jjyd/internal/config"
	"github.com/dbehnke/jjyd/internal/database"
	"github.com/dbehnke/jjyd/internal/logging"
	"github.com/dbehnke/jjyd/internal/metrics"
	"github.com/dbehnke/jjyd/internal/publish"
	"github.com/dbehnke/jjyd/internal/transmitter"
)

func newRunCmd(configFile *string) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the transmitter",
		Long:  "Send the JJY time code on the configured GPIO pin until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.NewConfig(*configFile)
			if err := cfg.Load(); err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if dryRun {
				cfg.GPIO.DryRun = true
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runTransmitter(ctx, cfg)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log the time code without touching the GPIO pin")
	return cmd
}

func loggerFor(cfg *config.Config) zerolog.Logger {
	return logging.Setup(logging.Options{
		Level:      cfg.GetLogLevel(),
		File:       cfg.GetLogFile(),
		MaxSizeMB:  cfg.GetLogMaxSizeMB(),
		MaxBackups: cfg.GetLogMaxBackups(),
	})
}

func runTransmitter(ctx context.Context, cfg *config.Config) error {
	logger := loggerFor(cfg)
	sessionID := uuid.NewString()

	logger.Info().
		Str("version", VERSION).
		Str("station", cfg.GetStationName()).
		Str("timezone", cfg.GetLocation().String()).
		Str("session", sessionID).
		Msg("jjyd starting")

	actuator, err := openActuator(cfg, logger)
	if err != nil {
		return err
	}
	defer actuator.Close()

	var sinks []transmitter.Sink
	var observer transmitter.Observer

	if cfg.GetDatabaseEnabled() {
		db, err := database.NewDB(database.Config{
			Path:  cfg.GetDatabasePath(),
			Debug: cfg.GetDatabaseDebug(),
		}, logger.With().Str("component", "database").Logger())
		if err != nil {
			return fmt.Errorf("open history database: %w", err)
		}
		defer db.Close()
		if err := db.Health(); err != nil {
			return fmt.Errorf("history database unhealthy: %w", err)
		}

		repo := database.NewFrameRepository(db.GetDB())
		if err := repo.HealthCheck(); err != nil {
			return fmt.Errorf("history table unusable: %w", err)
		}
		sinks = append(sinks, transmitter.NewHistorySink(repo, sessionID, cfg.GetRetention(), logger))
		logger.Info().Str("path", cfg.GetDatabasePath()).Msg("transmission history enabled")
	}

	if cfg.GetMetricsEnabled() {
		m := metrics.New()
		observer = m
		sinks = append(sinks, m)

		go func() {
			if err := m.Serve(ctx, cfg.GetMetricsBind(), logger); err != nil {
				logger.Error().Err(err).Msg("metrics endpoint failed")
			}
		}()
	}

	if cfg.GetMQTTEnabled() {
		pub, err := publish.NewMQTTPublisher(publish.Config{
			Broker:      cfg.GetMQTTBroker(),
			TopicPrefix: cfg.GetMQTTTopicPrefix(),
			Username:    cfg.GetMQTTUsername(),
			Password:    cfg.GetMQTTPassword(),
			QoS:         cfg.GetMQTTQoS(),
			Station:     cfg.GetStationName(),
		}, logger.With().Str("component", "mqtt").Logger())
		if err != nil {
			return err
		}
		defer pub.Close()
		sinks = append(sinks, pub)
	}

	tx := transmitter.New(transmitter.Options{
		Clock:    transmitter.SystemClock{Location: cfg.GetLocation()},
		Actuator: actuator,
		Display:  transmitter.NewLogDisplay(logger),
		Observer: observer,
		Sinks:    sinks,
		Logger:   logger,
	})

	if err := tx.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("transmitter stopped on a fatal error")
		return err
	}
	return nil
}

func openActuator(cfg *config.Config, logger zerolog.Logger) (transmitter.Actuator, error) {
	if cfg.GetDryRun() {
		logger.Warn().Msg("dry run: GPIO pin will not be driven")
		return transmitter.NewNopActuator(logger), nil
	}

	pin, err := transmitter.OpenGPIO(cfg.GetGPIOPin(), cfg.GetGPIOActiveLow())
	if err != nil {
		return nil, err
	}
	logger.Info().Int("pin", cfg.GetGPIOPin()).Bool("active_low", cfg.GetGPIOActiveLow()).Msg("GPIO opened")
	return pin, nil
}
