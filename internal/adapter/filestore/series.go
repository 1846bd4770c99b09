package filestore

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/couchcryptid/aqi-monitor-service/internal/domain"
)

// SeriesHeader is the header row of the series file. The last column carries
// the changed flag as YES/NO.
var SeriesHeader = []string{"timestamp", "city", "aqi", "alert"}

// SeriesStore implements domain.SeriesStore on a CSV file.
type SeriesStore struct {
	t *table[domain.AqiSample]
}

// NewSeriesStore creates a series store backed by the CSV file at path.
func NewSeriesStore(path string, logger *slog.Logger) *SeriesStore {
	return &SeriesStore{t: &table[domain.AqiSample]{
		path:   path,
		header: SeriesHeader,
		encode: encodeSample,
		decode: decodeSample,
		logger: logger,
	}}
}

func (s *SeriesStore) Append(ctx context.Context, sample domain.AqiSample) error {
	return s.t.append(ctx, sample)
}

func (s *SeriesStore) ReadAll(ctx context.Context) ([]domain.AqiSample, error) {
	return s.t.readAll(ctx)
}

func (s *SeriesStore) Reset(ctx context.Context) error {
	return s.t.reset(ctx)
}

func encodeSample(s domain.AqiSample) []string {
	return []string{s.Timestamp, s.City, strconv.Itoa(s.AQI), yesNo(s.Changed)}
}

func decodeSample(row []string) (domain.AqiSample, error) {
	if len(row) != len(SeriesHeader) {
		return domain.AqiSample{}, fmt.Errorf("expected %d fields, got %d", len(SeriesHeader), len(row))
	}
	aqi, err := strconv.Atoi(row[2])
	if err != nil {
		return domain.AqiSample{}, fmt.Errorf("parse aqi: %w", err)
	}
	return domain.AqiSample{
		Timestamp: row[0],
		City:      row[1],
		AQI:       aqi,
		Changed:   row[3] == "YES",
	}, nil
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}
