package domain

import "context"

// AQIProvider returns the hourly AQI series for a coordinate.
type AQIProvider interface {
	HourlyAQI(ctx context.Context, lat, lon float64) ([]HourlyAQI, error)
}

// IPLocator resolves the host's approximate position from its public IP.
type IPLocator interface {
	Locate(ctx context.Context) (Coordinate, error)
}

// ReverseGeocoder names the place at a coordinate.
type ReverseGeocoder interface {
	// ReverseGeocode returns a best-effort place name. An empty name with a nil
	// error means the provider knows the coordinate but has no settlement for it.
	ReverseGeocode(ctx context.Context, lat, lon float64) (string, error)
}

// Notifier delivers a notification to the user. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
