package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/aqi-monitor-service/internal/adapter/filestore"
	"github.com/couchcryptid/aqi-monitor-service/internal/domain"
)

var samples = []domain.AqiSample{
	{Timestamp: "10:00:00", City: "Delhi", AQI: 40, Changed: true},
	{Timestamp: "10:01:00", City: "Delhi", AQI: 40, Changed: false},
	{Timestamp: "10:02:00", City: "Delhi", AQI: 160, Changed: true},
	{Timestamp: "10:03:00", City: "Delhi", AQI: 210, Changed: true},
}

func TestBuild_Summary(t *testing.T) {
	alerts := []domain.AlertRecord{{City: "Delhi", AQI: 210, Message: domain.EmergencyMessage}}

	rep := build(samples, alerts, 0)

	require.Len(t, rep.Rows, 4)
	assert.Equal(t, domain.CategoryGood, rep.Rows[0].Category)
	assert.Equal(t, domain.CategoryPoor, rep.Rows[2].Category)
	assert.True(t, rep.Rows[2].Alert)
	assert.Empty(t, rep.Rows[2].EmergencyMessage)

	s := rep.Summary
	assert.Equal(t, 4, s.Samples)
	assert.Equal(t, 2, s.Alerting)
	assert.Equal(t, map[domain.Category]int{
		domain.CategoryGood:     2,
		domain.CategoryPoor:     1,
		domain.CategoryVeryPoor: 1,
	}, s.Categories)
	require.NotNil(t, s.Latest)
	assert.Equal(t, 210, s.Latest.AQI)
	assert.Equal(t, map[string]int{"Delhi": 1}, s.Queued)
}

func TestBuild_LastTrimsRowsOnly(t *testing.T) {
	rep := build(samples, nil, 2)

	require.Len(t, rep.Rows, 2)
	assert.Equal(t, "10:02:00", rep.Rows[0].Timestamp)
	assert.Equal(t, 4, rep.Summary.Samples)
}

func TestBuild_Empty(t *testing.T) {
	rep := build(nil, nil, 0)

	assert.Empty(t, rep.Rows)
	assert.Nil(t, rep.Summary.Latest)
}

func TestRun_ReadsFileStores(t *testing.T) {
	dir := t.TempDir()
	seriesPath := filepath.Join(dir, "aqi_data.csv")
	alertsPath := filepath.Join(dir, "alerts.csv")
	t.Setenv("STORE_BACKEND", "csv")
	t.Setenv("SERIES_FILE", seriesPath)
	t.Setenv("ALERTS_FILE", alertsPath)
	t.Setenv("LOCATION_BACKEND", "file")
	t.Setenv("LOCATION_FILE", filepath.Join(dir, "location.json"))

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	series := filestore.NewSeriesStore(seriesPath, logger)
	for _, s := range samples {
		require.NoError(t, series.Append(ctx, s))
	}

	var text bytes.Buffer
	require.NoError(t, run(ctx, nil, &text))
	assert.Contains(t, text.String(), "TIME")
	assert.Contains(t, text.String(), "Very Poor")
	assert.Contains(t, text.String(), "queued alerts: none")

	var out bytes.Buffer
	require.NoError(t, run(ctx, []string{"-json"}, &out))

	var rep report
	require.NoError(t, json.Unmarshal(out.Bytes(), &rep))
	assert.Len(t, rep.Rows, 4)
	assert.Equal(t, 2, rep.Summary.Alerting)
}
