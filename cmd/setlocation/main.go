// Command setlocation writes the location override record the monitor reads
// on every poll. It uses the same LOCATION_BACKEND settings as the monitor.
//
// Usage:
//
//	go run ./cmd/setlocation -lat 28.61 -lon 77.21 -city Delhi
//	go run ./cmd/setlocation -lat 12.9 -lon 77.6     # city filled by reverse geocoding
//	go run ./cmd/setlocation -show
//	go run ./cmd/setlocation -clear
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/couchcryptid/aqi-monitor-service/internal/config"
	"github.com/couchcryptid/aqi-monitor-service/internal/domain"
	"github.com/couchcryptid/aqi-monitor-service/internal/stores"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "setlocation: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("setlocation", flag.ContinueOnError)
	lat := fs.Float64("lat", math.NaN(), "latitude in degrees")
	lon := fs.Float64("lon", math.NaN(), "longitude in degrees")
	city := fs.String("city", "", "place name (optional)")
	reset := fs.Bool("clear", false, "remove the override so the monitor falls back to IP geolocation")
	show := fs.Bool("show", false, "print the current override record")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	set, err := stores.Open(ctx, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		return err
	}
	defer set.Close()

	switch {
	case *show:
	case *reset:
		if err := set.Overrides.Reset(ctx); err != nil {
			return fmt.Errorf("clear override: %w", err)
		}
	default:
		o, err := buildOverride(*lat, *lon, *city)
		if err != nil {
			return err
		}
		if err := set.Overrides.Save(ctx, o); err != nil {
			return fmt.Errorf("save override: %w", err)
		}
	}

	o, err := set.Overrides.Load(ctx)
	if err != nil {
		return fmt.Errorf("load override: %w", err)
	}
	return printOverride(out, o)
}

func buildOverride(lat, lon float64, city string) (domain.Override, error) {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return domain.Override{}, errors.New("both -lat and -lon are required")
	}
	c := domain.Coordinate{Lat: lat, Lon: lon}
	if err := c.Validate(); err != nil {
		return domain.Override{}, err
	}
	return domain.NewOverride(lat, lon, city), nil
}

func printOverride(w io.Writer, o domain.Override) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(o)
}
