package pipeline

import (
	"context"
	"fmt"

	"github.com/couchcryptid/aqi-monitor-service/internal/domain"
)

// AlertTransformer classifies samples and queues emergency readings in the
// alert store.
type AlertTransformer struct {
	alerts domain.AlertStore
}

// NewTransformer creates an AlertTransformer writing to alerts.
func NewTransformer(alerts domain.AlertStore) *AlertTransformer {
	return &AlertTransformer{alerts: alerts}
}

// Transform returns the classified reading and, when the reading carries an
// emergency message, the alert record it appended.
func (t *AlertTransformer) Transform(ctx context.Context, s domain.AqiSample) (domain.ClassifiedReading, *domain.AlertRecord, error) {
	reading := domain.ClassifySample(s)

	rec, ok := reading.AlertRecord()
	if !ok {
		return reading, nil, nil
	}
	if err := t.alerts.Append(ctx, rec); err != nil {
		return reading, nil, fmt.Errorf("append alert record: %w", err)
	}
	return reading, &rec, nil
}
