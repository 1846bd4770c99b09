package domain

import (
	"errors"
	"fmt"
	"time"
)

// TimestampLayout is the wall-clock format written to the series store.
const TimestampLayout = "15:04:05"

// UnknownCity is the place name used when no provider can name a coordinate.
const UnknownCity = "Unknown"

var (
	// ErrInvalidCoordinate is returned when latitude or longitude are out of range.
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	// ErrNoAQIValue means the provider series held no non-null value.
	ErrNoAQIValue = errors.New("no aqi value in hourly series")
)

// Coordinate is a WGS-84 position with an optional place name.
type Coordinate struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	City string  `json:"city,omitempty"`
}

// Validate checks latitude and longitude ranges.
func (c Coordinate) Validate() error {
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidCoordinate, c.Lat)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidCoordinate, c.Lon)
	}
	return nil
}

// SameAs reports whether two coordinates describe the same monitoring target.
func (c Coordinate) SameAs(other Coordinate) bool {
	return c.Lat == other.Lat && c.Lon == other.Lon && c.City == other.City
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%s (%.4f, %.4f)", c.City, c.Lat, c.Lon)
}

// Override is the persisted, user-supplied location record. Any field may be
// null; a null latitude or longitude means "no override".
type Override struct {
	Lat  *float64 `json:"lat"`
	Lon  *float64 `json:"lon"`
	City *string  `json:"city"`
}

// NewOverride builds an override record. An empty city is stored as null.
func NewOverride(lat, lon float64, city string) Override {
	o := Override{Lat: &lat, Lon: &lon}
	if city != "" {
		o.City = &city
	}
	return o
}

// Coordinate returns the override position. The boolean is false when the
// record does not carry both latitude and longitude. City is left empty when
// the record has none.
func (o Override) Coordinate() (Coordinate, bool) {
	if o.Lat == nil || o.Lon == nil {
		return Coordinate{}, false
	}
	c := Coordinate{Lat: *o.Lat, Lon: *o.Lon}
	if o.City != nil {
		c.City = *o.City
	}
	return c, true
}

// HourlyAQI is one entry of the provider's hourly series. AQI is nil for
// hours the provider has no value for.
type HourlyAQI struct {
	Time string `json:"time"`
	AQI  *int   `json:"aqi"`
}

// AqiSample is one accepted poll result.
type AqiSample struct {
	Timestamp string `json:"timestamp"`
	City      string `json:"city"`
	AQI       int    `json:"aqi"`
	Changed   bool   `json:"changed"`
}

// NewSample stamps a sample with the wall-clock time of t.
func NewSample(t time.Time, city string, aqi int, changed bool) AqiSample {
	return AqiSample{
		Timestamp: t.Format(TimestampLayout),
		City:      city,
		AQI:       aqi,
		Changed:   changed,
	}
}

// AlertRecord is an emergency reading queued for notification.
type AlertRecord struct {
	City    string `json:"city"`
	AQI     int    `json:"aqi"`
	Message string `json:"alert_message"`
}

// Notification is what the dispatcher hands to a transport.
type Notification struct {
	ID      string        `json:"id"`
	Title   string        `json:"title"`
	Body    string        `json:"body"`
	City    string        `json:"city"`
	AQI     int           `json:"aqi"`
	Timeout time.Duration `json:"-"`
	SentAt  time.Time     `json:"sent_at"`
}
