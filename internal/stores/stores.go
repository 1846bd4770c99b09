// Package stores opens the series, alert, and override backends selected in
// configuration.
package stores

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/couchcryptid/aqi-monitor-service/internal/adapter/filestore"
	redisadapter "github.com/couchcryptid/aqi-monitor-service/internal/adapter/redis"
	"github.com/couchcryptid/aqi-monitor-service/internal/adapter/sqlite"
	"github.com/couchcryptid/aqi-monitor-service/internal/config"
	"github.com/couchcryptid/aqi-monitor-service/internal/domain"
)

// Set bundles the three persisted records the loops share.
type Set struct {
	Series    domain.SeriesStore
	Alerts    domain.AlertStore
	Overrides domain.OverrideStore

	db    *sqlite.DB
	redis *goredis.Client
}

// Open builds the configured backends. Callers must Close the returned set.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Set, error) {
	s := &Set{}

	switch cfg.StoreBackend {
	case config.StoreSQLite:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := db.InitSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		s.db = db
		s.Series = db.Series()
		s.Alerts = db.Alerts()
	default:
		s.Series = filestore.NewSeriesStore(cfg.SeriesFile, logger)
		s.Alerts = filestore.NewAlertStore(cfg.AlertsFile, logger)
	}

	switch cfg.LocationBackend {
	case config.LocationRedis:
		client, err := redisadapter.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.redis = client
		s.Overrides = redisadapter.NewOverrideStore(client, cfg.RedisKey)
	default:
		s.Overrides = filestore.NewOverrideStore(cfg.LocationFile)
	}

	logger.Info("stores opened",
		"store_backend", cfg.StoreBackend,
		"location_backend", cfg.LocationBackend,
	)
	return s, nil
}

// CheckReadiness pings the network-backed stores. File stores are always ready.
func (s *Set) CheckReadiness(ctx context.Context) error {
	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			return fmt.Errorf("sqlite: %w", err)
		}
	}
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Close releases database and Redis connections.
func (s *Set) Close() error {
	var errs []error
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	return errors.Join(errs...)
}
