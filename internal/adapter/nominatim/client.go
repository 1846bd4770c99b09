package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/aqi-monitor-service/internal/observability"
)

// DefaultBaseURL is the public OpenStreetMap reverse geocoding endpoint.
const DefaultBaseURL = "https://nominatim.openstreetmap.org/reverse"

// Client implements domain.ReverseGeocoder using the Nominatim reverse API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Nominatim client. Nominatim's usage policy requires an
// identifying User-Agent on every request.
func NewClient(baseURL, userAgent string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		userAgent:  userAgent,
		metrics:    metrics,
		logger:     logger,
	}
}

// ReverseGeocode returns the settlement name at a coordinate, preferring city,
// then town, then village. An empty string means no settlement was found.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	params := url.Values{
		"lat":    {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":    {strconv.FormatFloat(lon, 'f', -1, 64)},
		"format": {"json"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ProviderDuration.WithLabelValues("nominatim").Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("reverse geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("nominatim API error: status %d: %s", resp.StatusCode, body)
	}

	var revResp response
	if err := json.NewDecoder(resp.Body).Decode(&revResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if revResp.Error != "" {
		c.logger.Debug("nominatim returned no place", "lat", lat, "lon", lon, "reason", revResp.Error)
		return "", nil
	}

	return revResp.Address.settlement(), nil
}

// Nominatim API response types.

type response struct {
	Address address `json:"address"`
	Error   string  `json:"error"`
}

type address struct {
	City    string `json:"city"`
	Town    string `json:"town"`
	Village string `json:"village"`
}

func (a address) settlement() string {
	switch {
	case a.City != "":
		return a.City
	case a.Town != "":
		return a.Town
	default:
		return a.Village
	}
}
