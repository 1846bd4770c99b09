package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/aqi-monitor-service/internal/domain"
	"github.com/couchcryptid/aqi-monitor-service/internal/location"
	"github.com/couchcryptid/aqi-monitor-service/internal/observability"
	"github.com/couchcryptid/aqi-monitor-service/internal/pipeline"
)

// --- mocks ---

type mockResolver struct {
	locs  []domain.Coordinate
	errs  []error
	calls int
}

func (m *mockResolver) Resolve(_ context.Context) (domain.Coordinate, error) {
	i := m.calls
	m.calls++
	if i < len(m.errs) && m.errs[i] != nil {
		return domain.Coordinate{}, m.errs[i]
	}
	if len(m.locs) == 0 {
		return domain.Coordinate{}, location.ErrNotAvailable
	}
	if i >= len(m.locs) {
		i = len(m.locs) - 1
	}
	return m.locs[i], nil
}

type response struct {
	aqi *int
	err error
}

type mockProvider struct {
	responses []response
	calls     int
}

func (m *mockProvider) HourlyAQI(_ context.Context, _, _ float64) ([]domain.HourlyAQI, error) {
	i := m.calls
	m.calls++
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	r := m.responses[i]
	if r.err != nil {
		return nil, r.err
	}
	return []domain.HourlyAQI{
		{Time: "2026-10-18T09:00", AQI: ptr(1)},
		{Time: "2026-10-18T10:00", AQI: r.aqi},
		{Time: "2026-10-18T11:00", AQI: nil},
	}, nil
}

type memSeries struct {
	samples []domain.AqiSample
	err     error
	appends int
	resets  int
}

func (m *memSeries) Append(_ context.Context, s domain.AqiSample) error {
	if m.err != nil {
		return m.err
	}
	m.appends++
	m.samples = append(m.samples, s)
	return nil
}

func (m *memSeries) ReadAll(_ context.Context) ([]domain.AqiSample, error) {
	return m.samples, nil
}

func (m *memSeries) Reset(_ context.Context) error {
	m.resets++
	m.samples = nil
	return nil
}

type memAlerts struct {
	records []domain.AlertRecord
	err     error
}

func (m *memAlerts) Append(_ context.Context, r domain.AlertRecord) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, r)
	return nil
}

func (m *memAlerts) ReadAll(_ context.Context) ([]domain.AlertRecord, error) {
	return m.records, nil
}

func (m *memAlerts) Reset(_ context.Context) error {
	m.records = nil
	return nil
}

type mockOverrides struct {
	resets int
}

func (m *mockOverrides) Load(_ context.Context) (domain.Override, error) {
	return domain.Override{}, nil
}
func (m *mockOverrides) Save(_ context.Context, _ domain.Override) error { return nil }
func (m *mockOverrides) Reset(_ context.Context) error {
	m.resets++
	return nil
}

type mockPublisher struct {
	samples []domain.AqiSample
	alerts  []domain.AlertRecord
}

func (m *mockPublisher) PublishSample(_ context.Context, s domain.AqiSample) error {
	m.samples = append(m.samples, s)
	return nil
}

func (m *mockPublisher) PublishAlert(_ context.Context, r domain.AlertRecord) error {
	m.alerts = append(m.alerts, r)
	return nil
}

func ptr[T any](v T) *T { return &v }

func values(vs ...int) []response {
	out := make([]response, len(vs))
	for i, v := range vs {
		out[i] = response{aqi: ptr(v)}
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var pune = domain.Coordinate{Lat: 18.52, Lon: 73.85, City: "Pune"}

type fixture struct {
	resolver  *mockResolver
	provider  *mockProvider
	series    *memSeries
	alerts    *memAlerts
	overrides *mockOverrides
	publisher *mockPublisher
	clock     *clockwork.FakeClock
}

func newFixture(locs []domain.Coordinate, responses []response) *fixture {
	return &fixture{
		resolver:  &mockResolver{locs: locs},
		provider:  &mockProvider{responses: responses},
		series:    &memSeries{},
		alerts:    &memAlerts{},
		overrides: &mockOverrides{},
		publisher: &mockPublisher{},
		clock:     clockwork.NewFakeClockAt(time.Date(2026, time.October, 18, 15, 10, 5, 0, time.UTC)),
	}
}

func (f *fixture) sampler(opts pipeline.Options) *pipeline.Sampler {
	if opts.Clock == nil {
		opts.Clock = f.clock
	}
	if opts.Publisher == nil {
		opts.Publisher = f.publisher
	}
	return pipeline.New(
		f.resolver,
		f.provider,
		f.series,
		f.overrides,
		pipeline.NewTransformer(f.alerts),
		opts,
		discardLogger(),
		observability.NewMetricsForTesting(),
	)
}

func changedFlags(samples []domain.AqiSample) []bool {
	out := make([]bool, len(samples))
	for i, s := range samples {
		out[i] = s.Changed
	}
	return out
}

// --- tests ---

func TestPollOnce_ChangeDetection(t *testing.T) {
	f := newFixture([]domain.Coordinate{pune}, values(40, 40, 60))
	s := f.sampler(pipeline.Options{})
	ctx := context.Background()

	for range 3 {
		assert.Equal(t, pipeline.OutcomeSampled, s.PollOnce(ctx))
	}

	require.Len(t, f.series.samples, 3)
	assert.Equal(t, []bool{true, false, true}, changedFlags(f.series.samples))

	categories := make([]domain.Category, 0, 3)
	for _, sample := range f.series.samples {
		categories = append(categories, domain.ClassifySample(sample).Category)
	}
	assert.Equal(t, []domain.Category{domain.CategoryGood, domain.CategoryGood, domain.CategoryModerate}, categories)
	assert.Empty(t, f.alerts.records)
}

func TestPollOnce_LocationChangeResetsChangeDetection(t *testing.T) {
	mumbai := domain.Coordinate{Lat: 19.07, Lon: 72.88, City: "Mumbai"}
	f := newFixture([]domain.Coordinate{pune, pune, mumbai}, values(40, 40, 40))
	s := f.sampler(pipeline.Options{})
	ctx := context.Background()

	for range 3 {
		require.Equal(t, pipeline.OutcomeSampled, s.PollOnce(ctx))
	}

	assert.Equal(t, []bool{true, false, true}, changedFlags(f.series.samples))
	assert.Equal(t, "Mumbai", f.series.samples[2].City)

	active, ok := s.Active()
	require.True(t, ok)
	assert.Equal(t, mumbai, active)
}

func TestPollOnce_SampleFields(t *testing.T) {
	f := newFixture([]domain.Coordinate{pune}, values(73))
	s := f.sampler(pipeline.Options{})

	require.Equal(t, pipeline.OutcomeSampled, s.PollOnce(context.Background()))
	assert.Equal(t, domain.AqiSample{Timestamp: "15:10:05", City: "Pune", AQI: 73, Changed: true}, f.series.samples[0])
}

func TestPollOnce_AllNullSeriesIsFailure(t *testing.T) {
	series := &memSeries{}
	s := pipeline.New(
		&mockResolver{locs: []domain.Coordinate{pune}},
		nullProvider{},
		series,
		nil,
		pipeline.NewTransformer(&memAlerts{}),
		pipeline.Options{},
		discardLogger(),
		observability.NewMetricsForTesting(),
	)

	assert.Equal(t, pipeline.OutcomeFailed, s.PollOnce(context.Background()))
	assert.Empty(t, series.samples)
}

type nullProvider struct{}

func (nullProvider) HourlyAQI(_ context.Context, _, _ float64) ([]domain.HourlyAQI, error) {
	return []domain.HourlyAQI{{Time: "a"}, {Time: "b"}}, nil
}

func TestPollOnce_ProviderErrorSkipsCycle(t *testing.T) {
	f := newFixture([]domain.Coordinate{pune}, []response{
		{aqi: ptr(40)},
		{err: errors.New("timeout")},
		{aqi: ptr(40)},
	})
	s := f.sampler(pipeline.Options{})
	ctx := context.Background()

	assert.Equal(t, pipeline.OutcomeSampled, s.PollOnce(ctx))
	assert.Equal(t, pipeline.OutcomeFailed, s.PollOnce(ctx))
	assert.Equal(t, pipeline.OutcomeSampled, s.PollOnce(ctx))

	assert.Equal(t, []bool{true, false}, changedFlags(f.series.samples))
}

func TestPollOnce_NoLocation(t *testing.T) {
	f := newFixture(nil, values(40))
	s := f.sampler(pipeline.Options{})

	assert.Equal(t, pipeline.OutcomeNoLocation, s.PollOnce(context.Background()))
	assert.Zero(t, f.provider.calls)
	assert.Empty(t, f.series.samples)
	_, ok := s.Active()
	assert.False(t, ok)
}

func TestPollOnce_ResolveFailureWhileActiveKeepsState(t *testing.T) {
	f := newFixture([]domain.Coordinate{pune}, values(40, 40))
	f.resolver.errs = []error{nil, location.ErrNotAvailable}
	s := f.sampler(pipeline.Options{})
	ctx := context.Background()

	assert.Equal(t, pipeline.OutcomeSampled, s.PollOnce(ctx))
	assert.Equal(t, pipeline.OutcomeFailed, s.PollOnce(ctx))
	assert.Equal(t, pipeline.OutcomeSampled, s.PollOnce(ctx))

	assert.Equal(t, []bool{true, false}, changedFlags(f.series.samples))
	assert.Zero(t, f.series.resets)
}

func TestPollOnce_EmergencyAppendsAlertRecord(t *testing.T) {
	f := newFixture([]domain.Coordinate{{Lat: 28.61, Lon: 77.21, City: "Delhi"}}, values(210))
	s := f.sampler(pipeline.Options{})

	require.Equal(t, pipeline.OutcomeSampled, s.PollOnce(context.Background()))

	reading := domain.ClassifySample(f.series.samples[0])
	assert.Equal(t, domain.CategoryVeryPoor, reading.Category)
	assert.True(t, reading.Alert)
	assert.NotEmpty(t, reading.EmergencyMessage)

	require.Len(t, f.alerts.records, 1)
	assert.Equal(t, domain.AlertRecord{City: "Delhi", AQI: 210, Message: domain.EmergencyMessage}, f.alerts.records[0])

	require.Len(t, f.publisher.samples, 1)
	require.Len(t, f.publisher.alerts, 1)
}

func TestPollOnce_AlertWithoutEmergencyIsNotQueued(t *testing.T) {
	f := newFixture([]domain.Coordinate{pune}, values(160))
	s := f.sampler(pipeline.Options{})

	require.Equal(t, pipeline.OutcomeSampled, s.PollOnce(context.Background()))
	assert.Empty(t, f.alerts.records)
	assert.Len(t, f.publisher.samples, 1)
	assert.Empty(t, f.publisher.alerts)
}

func TestPollOnce_RepeatedEmergencyQueuesEachSample(t *testing.T) {
	f := newFixture([]domain.Coordinate{pune}, values(250, 250))
	s := f.sampler(pipeline.Options{})
	ctx := context.Background()

	s.PollOnce(ctx)
	s.PollOnce(ctx)
	assert.Len(t, f.alerts.records, 2)
}

func TestPollOnce_AlertStoreErrorKeepsSample(t *testing.T) {
	f := newFixture([]domain.Coordinate{pune}, values(250))
	f.alerts.err = errors.New("disk full")
	s := f.sampler(pipeline.Options{})

	assert.Equal(t, pipeline.OutcomeSampled, s.PollOnce(context.Background()))
	assert.Len(t, f.series.samples, 1)
	assert.Empty(t, f.publisher.alerts)
}

func TestPollOnce_SeriesAppendErrorDoesNotAdvance(t *testing.T) {
	f := newFixture([]domain.Coordinate{pune}, values(40, 40))
	f.series.err = errors.New("read-only filesystem")
	s := f.sampler(pipeline.Options{})
	ctx := context.Background()

	assert.Equal(t, pipeline.OutcomeFailed, s.PollOnce(ctx))
	require.Error(t, s.CheckReadiness(ctx))

	f.series.err = nil
	assert.Equal(t, pipeline.OutcomeSampled, s.PollOnce(ctx))
	assert.True(t, f.series.samples[0].Changed)
}

func TestCheckReadiness(t *testing.T) {
	f := newFixture([]domain.Coordinate{pune}, values(40))
	s := f.sampler(pipeline.Options{})
	ctx := context.Background()

	require.Error(t, s.CheckReadiness(ctx))
	s.PollOnce(ctx)
	assert.NoError(t, s.CheckReadiness(ctx))
}

func TestRun_ResetsStoresOnShutdown(t *testing.T) {
	f := newFixture([]domain.Coordinate{pune}, values(40, 41, 42))
	s := f.sampler(pipeline.Options{
		Clock:        clockwork.NewRealClock(),
		PollInterval: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	require.NoError(t, s.Run(ctx))

	assert.Positive(t, f.series.appends)
	assert.Equal(t, 2, f.series.resets, "reset at start and on shutdown")
	assert.Empty(t, f.series.samples)
	assert.Equal(t, 1, f.overrides.resets)
}

func TestRun_NoLocationUsesShortBackoff(t *testing.T) {
	f := newFixture(nil, values(40))
	s := f.sampler(pipeline.Options{
		Clock:             clockwork.NewRealClock(),
		PollInterval:      time.Hour,
		NoLocationBackoff: 5 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	require.NoError(t, s.Run(ctx))
	assert.Greater(t, f.resolver.calls, 1)
	assert.Zero(t, f.provider.calls)
}

func TestRun_WaitsPollIntervalAfterSample(t *testing.T) {
	f := newFixture([]domain.Coordinate{pune}, values(40))
	s := f.sampler(pipeline.Options{
		Clock:             clockwork.NewRealClock(),
		PollInterval:      time.Hour,
		NoLocationBackoff: time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	require.NoError(t, s.Run(ctx))
	assert.Equal(t, 1, f.provider.calls)
}

func TestRun_CancelledContext(t *testing.T) {
	f := newFixture([]domain.Coordinate{pune}, values(40))
	s := f.sampler(pipeline.Options{PollInterval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, s.Run(ctx))
	assert.Equal(t, 1, f.overrides.resets)
	assert.Empty(t, f.series.samples)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "sampled", pipeline.OutcomeSampled.String())
	assert.Equal(t, "no_location", pipeline.OutcomeNoLocation.String())
	assert.Equal(t, "failed", pipeline.OutcomeFailed.String())
}
