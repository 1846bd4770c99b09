// Package location decides which coordinate the monitor samples: a
// user-supplied override when present, otherwise the host's IP position.
package location

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/aqi-monitor-service/internal/domain"
)

// ErrNotAvailable means neither the override record nor IP geolocation
// produced a coordinate. Callers wait and retry.
var ErrNotAvailable = errors.New("location not available")

// Resolver walks the override then IP-geolocation chain. It keeps per-process
// memory (the IP result and the last geocoded override) and is meant to be
// owned by a single loop.
type Resolver struct {
	overrides domain.OverrideStore
	ip        domain.IPLocator
	geocoder  domain.ReverseGeocoder
	logger    *slog.Logger

	ipLocation *domain.Coordinate

	// last override position that needed a name, and the name it got
	namedAt   *domain.Coordinate
	namedCity string
}

// NewResolver creates a Resolver. ip and geocoder may be nil; a nil geocoder
// names every unnamed override "Unknown".
func NewResolver(overrides domain.OverrideStore, ip domain.IPLocator, geocoder domain.ReverseGeocoder, logger *slog.Logger) *Resolver {
	return &Resolver{
		overrides: overrides,
		ip:        ip,
		geocoder:  geocoder,
		logger:    logger,
	}
}

// Resolve returns the active coordinate, or an error wrapping ErrNotAvailable.
func (r *Resolver) Resolve(ctx context.Context) (domain.Coordinate, error) {
	if c, ok := r.fromOverride(ctx); ok {
		return c, nil
	}
	return r.fromIP(ctx)
}

func (r *Resolver) fromOverride(ctx context.Context) (domain.Coordinate, bool) {
	if r.overrides == nil {
		return domain.Coordinate{}, false
	}

	o, err := r.overrides.Load(ctx)
	if err != nil {
		r.logger.Warn("load location override failed", "error", err)
		return domain.Coordinate{}, false
	}

	c, ok := o.Coordinate()
	if !ok {
		return domain.Coordinate{}, false
	}
	if err := c.Validate(); err != nil {
		r.logger.Warn("ignoring location override", "error", err)
		return domain.Coordinate{}, false
	}

	if c.City == "" {
		c.City = r.nameOverride(ctx, c)
	}
	return c, true
}

// nameOverride reverse-geocodes an unnamed override once per position.
func (r *Resolver) nameOverride(ctx context.Context, c domain.Coordinate) string {
	if r.namedAt != nil && r.namedAt.Lat == c.Lat && r.namedAt.Lon == c.Lon {
		return r.namedCity
	}

	city := domain.ResolveCityName(ctx, c, r.geocoder, r.logger)
	r.namedAt = &domain.Coordinate{Lat: c.Lat, Lon: c.Lon}
	r.namedCity = city
	return city
}

func (r *Resolver) fromIP(ctx context.Context) (domain.Coordinate, error) {
	if r.ipLocation != nil {
		return *r.ipLocation, nil
	}
	if r.ip == nil {
		return domain.Coordinate{}, ErrNotAvailable
	}

	c, err := r.ip.Locate(ctx)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("%w: ip geolocation: %w", ErrNotAvailable, err)
	}
	if err := c.Validate(); err != nil {
		return domain.Coordinate{}, fmt.Errorf("%w: ip geolocation: %w", ErrNotAvailable, err)
	}
	if c.City == "" {
		c.City = domain.UnknownCity
	}

	r.logger.Info("located host by ip", "city", c.City, "lat", c.Lat, "lon", c.Lon)
	r.ipLocation = &c
	return c, nil
}
