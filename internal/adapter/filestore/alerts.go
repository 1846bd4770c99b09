package filestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/couchcryptid/aqi-monitor-service/internal/domain"
)

// AlertsHeader is the header row of the alerts file.
var AlertsHeader = []string{"city", "aqi", "alert_message"}

// AlertStore implements domain.AlertStore on a CSV file.
type AlertStore struct {
	t *table[domain.AlertRecord]
}

// NewAlertStore creates an alert store backed by the CSV file at path.
func NewAlertStore(path string, logger *slog.Logger) *AlertStore {
	return &AlertStore{t: &table[domain.AlertRecord]{
		path:   path,
		header: AlertsHeader,
		encode: encodeAlert,
		decode: decodeAlert,
		logger: logger,
	}}
}

func (s *AlertStore) Append(ctx context.Context, r domain.AlertRecord) error {
	if r.Message == "" {
		return errors.New("alert record without message")
	}
	return s.t.append(ctx, r)
}

func (s *AlertStore) ReadAll(ctx context.Context) ([]domain.AlertRecord, error) {
	return s.t.readAll(ctx)
}

func (s *AlertStore) Reset(ctx context.Context) error {
	return s.t.reset(ctx)
}

func encodeAlert(r domain.AlertRecord) []string {
	return []string{r.City, strconv.Itoa(r.AQI), r.Message}
}

func decodeAlert(row []string) (domain.AlertRecord, error) {
	if len(row) != len(AlertsHeader) {
		return domain.AlertRecord{}, fmt.Errorf("expected %d fields, got %d", len(AlertsHeader), len(row))
	}
	aqi, err := strconv.Atoi(row[1])
	if err != nil {
		return domain.AlertRecord{}, fmt.Errorf("parse aqi: %w", err)
	}
	return domain.AlertRecord{City: row[0], AQI: aqi, Message: row[2]}, nil
}
