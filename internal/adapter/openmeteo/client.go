package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/aqi-monitor-service/internal/domain"
	"github.com/couchcryptid/aqi-monitor-service/internal/observability"
)

// DefaultBaseURL is the Open-Meteo air-quality endpoint.
const DefaultBaseURL = "https://air-quality-api.open-meteo.com/v1/air-quality"

// Client implements domain.AQIProvider using the Open-Meteo air-quality API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an Open-Meteo client. The timeout bounds every request so
// a stalled provider surfaces as a poll failure.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// HourlyAQI fetches the hourly US AQI series for a coordinate.
func (c *Client) HourlyAQI(ctx context.Context, lat, lon float64) ([]domain.HourlyAQI, error) {
	params := url.Values{
		"latitude":  {strconv.FormatFloat(lat, 'f', -1, 64)},
		"longitude": {strconv.FormatFloat(lon, 'f', -1, 64)},
		"hourly":    {"us_aqi"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ProviderDuration.WithLabelValues("aqi").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("air quality request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("open-meteo API error: status %d: %s", resp.StatusCode, body)
	}

	var aqResp response
	if err := json.NewDecoder(resp.Body).Decode(&aqResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return aqResp.series(), nil
}

// Open-Meteo API response types.

type response struct {
	Hourly hourly `json:"hourly"`
}

type hourly struct {
	Time  []string   `json:"time"`
	USAQI []*float64 `json:"us_aqi"`
}

// series zips the parallel time/value arrays. Values without a matching time
// entry keep an empty Time rather than being dropped.
func (r response) series() []domain.HourlyAQI {
	out := make([]domain.HourlyAQI, len(r.Hourly.USAQI))
	for i, v := range r.Hourly.USAQI {
		if i < len(r.Hourly.Time) {
			out[i].Time = r.Hourly.Time[i]
		}
		if v != nil {
			n := int(math.Round(*v))
			out[i].AQI = &n
		}
	}
	return out
}
