package ipinfo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/aqi-monitor-service/internal/domain"
	"github.com/couchcryptid/aqi-monitor-service/internal/observability"
)

// DefaultURL is the ipinfo.io endpoint describing the caller's own IP.
const DefaultURL = "https://ipinfo.io/json"

// ErrMalformedLocation is returned when the "loc" field is not a lat,lon pair.
var ErrMalformedLocation = errors.New("malformed loc field")

// Client implements domain.IPLocator using ipinfo.io.
type Client struct {
	httpClient *http.Client
	url        string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an ipinfo.io client.
func NewClient(url string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
		metrics:    metrics,
		logger:     logger,
	}
}

// Locate returns the approximate coordinate and city of the host's public IP.
func (c *Client) Locate(ctx context.Context) (domain.Coordinate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ProviderDuration.WithLabelValues("ipinfo").Observe(time.Since(start).Seconds())
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("ip geolocation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Coordinate{}, fmt.Errorf("ipinfo API error: status %d: %s", resp.StatusCode, body)
	}

	var info response
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return domain.Coordinate{}, fmt.Errorf("decode response: %w", err)
	}

	coord, err := parseLoc(info.Loc)
	if err != nil {
		return domain.Coordinate{}, err
	}
	coord.City = strings.TrimSpace(info.City)
	if coord.City == "" {
		coord.City = domain.UnknownCity
	}
	return coord, nil
}

// parseLoc splits ipinfo's "lat,lon" string.
func parseLoc(loc string) (domain.Coordinate, error) {
	parts := strings.Split(loc, ",")
	if len(parts) != 2 {
		return domain.Coordinate{}, fmt.Errorf("%w: %q", ErrMalformedLocation, loc)
	}
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, errLon := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errLat != nil || errLon != nil {
		return domain.Coordinate{}, fmt.Errorf("%w: %q", ErrMalformedLocation, loc)
	}
	coord := domain.Coordinate{Lat: lat, Lon: lon}
	if err := coord.Validate(); err != nil {
		return domain.Coordinate{}, err
	}
	return coord, nil
}

type response struct {
	Loc  string `json:"loc"`
	City string `json:"city"`
}
