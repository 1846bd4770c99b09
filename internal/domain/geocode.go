package domain

import (
	"context"
	"log/slog"
	"strings"
)

// ResolveCityName fills in a place name for a coordinate. A nil geocoder, a
// provider error, or an empty answer all yield UnknownCity (graceful
// degradation).
func ResolveCityName(ctx context.Context, c Coordinate, geocoder ReverseGeocoder, logger *slog.Logger) string {
	if geocoder == nil {
		return UnknownCity
	}

	name, err := geocoder.ReverseGeocode(ctx, c.Lat, c.Lon)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"lat", c.Lat,
			"lon", c.Lon,
			"error", err,
		)
		return UnknownCity
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return UnknownCity
	}
	return name
}
