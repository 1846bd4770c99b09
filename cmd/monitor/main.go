package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	httpadapter "github.com/couchcryptid/aqi-monitor-service/internal/adapter/http"
	"github.com/couchcryptid/aqi-monitor-service/internal/adapter/ipinfo"
	kafkaadapter "github.com/couchcryptid/aqi-monitor-service/internal/adapter/kafka"
	mqttadapter "github.com/couchcryptid/aqi-monitor-service/internal/adapter/mqtt"
	"github.com/couchcryptid/aqi-monitor-service/internal/adapter/nominatim"
	"github.com/couchcryptid/aqi-monitor-service/internal/adapter/openmeteo"
	"github.com/couchcryptid/aqi-monitor-service/internal/config"
	"github.com/couchcryptid/aqi-monitor-service/internal/dispatch"
	"github.com/couchcryptid/aqi-monitor-service/internal/domain"
	"github.com/couchcryptid/aqi-monitor-service/internal/location"
	"github.com/couchcryptid/aqi-monitor-service/internal/observability"
	"github.com/couchcryptid/aqi-monitor-service/internal/pipeline"
	"github.com/couchcryptid/aqi-monitor-service/internal/stores"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	set, err := stores.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open stores", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := set.Close(); err != nil {
			logger.Error("store close error", "error", err)
		}
	}()

	notifier, closeNotifier, err := newNotifier(cfg, logger)
	if err != nil {
		logger.Error("failed to create notifier", "error", err)
		os.Exit(1)
	}
	defer closeNotifier()

	var geocoder domain.ReverseGeocoder = nominatim.NewCachedGeocoder(
		nominatim.NewClient(cfg.NominatimURL, cfg.GeocodeUserAgent, cfg.GeoTimeout, metrics, logger),
		cfg.GeocodeCacheSize,
		metrics,
	)
	resolver := location.NewResolver(
		set.Overrides,
		ipinfo.NewClient(cfg.IPInfoURL, cfg.GeoTimeout, metrics, logger),
		geocoder,
		logger,
	)

	opts := pipeline.Options{
		PollInterval:      cfg.PollInterval,
		NoLocationBackoff: cfg.NoLocationBackoff,
		ShutdownTimeout:   cfg.ShutdownTimeout,
	}
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		opts.Publisher = writer
		logger.Info("kafka mirror enabled", "brokers", cfg.KafkaBrokers)
	}

	sampler := pipeline.New(
		resolver,
		openmeteo.NewClient(cfg.AQIBaseURL, cfg.AQITimeout, metrics, logger),
		set.Series,
		set.Overrides,
		pipeline.NewTransformer(set.Alerts),
		opts,
		logger,
		metrics,
	)

	dispatcher := dispatch.New(set.Alerts, notifier, dispatch.Options{
		Interval:            cfg.DispatchInterval,
		Cooldown:            cfg.AlertCooldown,
		EntryTTL:            cfg.AlertEntryTTL,
		NotificationTimeout: cfg.NotificationTimeout,
		ShutdownTimeout:     cfg.ShutdownTimeout,
	}, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, []httpadapter.Check{
		{Name: "sampler", Checker: sampler},
		{Name: "stores", Checker: set},
	}, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// The loops reset their stores on the way out, so wait for both.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := sampler.Run(ctx); err != nil {
			logger.Error("sampler error", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := dispatcher.Run(ctx); err != nil {
			logger.Error("dispatcher error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	wg.Wait()

	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// newNotifier picks the notification transport. The returned func releases it.
func newNotifier(cfg *config.Config, logger *slog.Logger) (domain.Notifier, func(), error) {
	if cfg.Notifier != config.NotifierMQTT {
		return dispatch.NewLogNotifier(logger), func() {}, nil
	}

	client, err := mqttadapter.Connect(cfg.MQTTBroker, cfg.MQTTClientID, cfg.NotificationTimeout, logger)
	if err != nil {
		return nil, nil, err
	}
	n := mqttadapter.NewNotifier(client, cfg.MQTTTopicPrefix)
	return n, n.Close, nil
}
