package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/aqi-monitor-service/internal/domain"
	"github.com/couchcryptid/aqi-monitor-service/internal/observability"
)

// LocationResolver yields the coordinate to sample.
type LocationResolver interface {
	Resolve(ctx context.Context) (domain.Coordinate, error)
}

// Publisher mirrors accepted samples and alert records to an event stream.
type Publisher interface {
	PublishSample(ctx context.Context, s domain.AqiSample) error
	PublishAlert(ctx context.Context, r domain.AlertRecord) error
}

// Outcome is the result of a single poll.
type Outcome int

const (
	// OutcomeSampled means a sample was appended to the series store.
	OutcomeSampled Outcome = iota
	// OutcomeNoLocation means no coordinate has been resolved yet.
	OutcomeNoLocation
	// OutcomeFailed means the cycle was skipped after a transient error.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSampled:
		return "sampled"
	case OutcomeNoLocation:
		return "no_location"
	default:
		return "failed"
	}
}

// Options tunes the sampler loop.
type Options struct {
	PollInterval      time.Duration
	NoLocationBackoff time.Duration
	// ShutdownTimeout bounds the store resets run after cancellation.
	ShutdownTimeout time.Duration
	Clock           clockwork.Clock
	// Publisher is optional.
	Publisher Publisher
}

// Sampler polls the AQI provider for the resolved location and appends one
// sample per successful cycle. Its state is owned by the goroutine calling
// Run or PollOnce.
type Sampler struct {
	resolver    LocationResolver
	provider    domain.AQIProvider
	series      domain.SeriesStore
	overrides   domain.OverrideStore
	transformer *AlertTransformer
	publisher   Publisher
	clock       clockwork.Clock
	logger      *slog.Logger
	metrics     *observability.Metrics
	opts        Options

	active       *domain.Coordinate
	lastAccepted *int
	ready        atomic.Bool
}

// New creates a Sampler. overrides is reset on shutdown and may be nil.
func New(
	resolver LocationResolver,
	provider domain.AQIProvider,
	series domain.SeriesStore,
	overrides domain.OverrideStore,
	transformer *AlertTransformer,
	opts Options,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Sampler {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Sampler{
		resolver:    resolver,
		provider:    provider,
		series:      series,
		overrides:   overrides,
		transformer: transformer,
		publisher:   opts.Publisher,
		clock:       opts.Clock,
		logger:      logger,
		metrics:     metrics,
		opts:        opts,
	}
}

// CheckReadiness returns nil once the sampler has appended a sample.
func (s *Sampler) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("sampler has not recorded any samples yet")
	}
	return nil
}

// Active returns the coordinate currently being sampled.
func (s *Sampler) Active() (domain.Coordinate, bool) {
	if s.active == nil {
		return domain.Coordinate{}, false
	}
	return *s.active, true
}

// Run starts with an empty series and polls until the context is cancelled,
// then resets the override record and the series store.
func (s *Sampler) Run(ctx context.Context) error {
	s.logger.Info("sampler started", "poll_interval", s.opts.PollInterval)
	s.metrics.SamplerRunning.Set(1)
	defer s.metrics.SamplerRunning.Set(0)

	if err := s.series.Reset(ctx); err != nil {
		s.logger.Error("initialise series store failed", "error", err)
	}

	defer s.shutdown(ctx)

	for {
		outcome := s.PollOnce(ctx)
		if ctx.Err() != nil {
			s.logger.Info("sampler stopping", "reason", ctx.Err())
			return nil
		}

		wait := s.opts.PollInterval
		if outcome == OutcomeNoLocation {
			wait = s.opts.NoLocationBackoff
		}
		if !sleepWithContext(ctx, s.clock, wait) {
			s.logger.Info("sampler stopping", "reason", ctx.Err())
			return nil
		}
	}
}

// PollOnce runs one resolve-fetch-append cycle. Errors are logged and folded
// into the outcome.
func (s *Sampler) PollOnce(ctx context.Context) Outcome {
	outcome := s.poll(ctx)
	s.metrics.Polls.WithLabelValues(outcome.String()).Inc()
	return outcome
}

func (s *Sampler) poll(ctx context.Context) Outcome {
	loc, err := s.resolver.Resolve(ctx)
	if err != nil {
		if s.active == nil {
			s.logger.Info("waiting for location", "reason", err)
			return OutcomeNoLocation
		}
		s.logger.Warn("resolve location failed, skipping cycle",
			"city", s.active.City,
			"error", err,
		)
		return OutcomeFailed
	}

	if s.active == nil || !s.active.SameAs(loc) {
		s.switchLocation(loc)
	}

	aqi, err := s.fetchLatest(ctx, loc)
	if err != nil {
		s.logger.Warn("fetch aqi failed", "city", loc.City, "error", err)
		return OutcomeFailed
	}

	changed := s.lastAccepted == nil || *s.lastAccepted != aqi
	sample := domain.NewSample(s.clock.Now(), loc.City, aqi, changed)
	if err := s.series.Append(ctx, sample); err != nil {
		s.logger.Error("append sample failed", "city", loc.City, "aqi", aqi, "error", err)
		return OutcomeFailed
	}
	s.lastAccepted = &aqi
	s.ready.Store(true)

	s.metrics.SamplesAppended.Inc()
	s.metrics.CurrentAQI.Set(float64(aqi))
	if changed {
		s.metrics.SamplesChanged.Inc()
	}
	s.logger.Debug("sample recorded", "city", loc.City, "aqi", aqi, "changed", changed)

	s.classify(ctx, sample)
	return OutcomeSampled
}

// switchLocation starts a fresh series memory for a new coordinate.
func (s *Sampler) switchLocation(loc domain.Coordinate) {
	if s.active != nil {
		s.metrics.LocationChanges.Inc()
	}
	s.logger.Info("monitoring location", "city", loc.City, "lat", loc.Lat, "lon", loc.Lon)
	s.active = &loc
	s.lastAccepted = nil
}

func (s *Sampler) fetchLatest(ctx context.Context, loc domain.Coordinate) (int, error) {
	hourly, err := s.provider.HourlyAQI(ctx, loc.Lat, loc.Lon)
	if err != nil {
		return 0, fmt.Errorf("fetch hourly aqi: %w", err)
	}
	aqi, ok := domain.LatestAQI(hourly)
	if !ok {
		return 0, domain.ErrNoAQIValue
	}
	return aqi, nil
}

// classify runs the alert transform and mirrors the results. Failures here do
// not undo the accepted sample.
func (s *Sampler) classify(ctx context.Context, sample domain.AqiSample) {
	reading, rec, err := s.transformer.Transform(ctx, sample)
	if err != nil {
		s.logger.Error("record alert failed", "city", sample.City, "aqi", sample.AQI, "error", err)
	} else if rec != nil {
		s.metrics.AlertsRecorded.Inc()
		s.logger.Warn("air quality emergency", "city", reading.City, "aqi", reading.AQI, "category", reading.Category)
	}

	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishSample(ctx, sample); err != nil {
		s.logger.Warn("publish sample failed", "error", err)
	}
	if rec != nil {
		if err := s.publisher.PublishAlert(ctx, *rec); err != nil {
			s.logger.Warn("publish alert failed", "error", err)
		}
	}
}

// shutdown clears the override record and the series store. It runs on a
// context detached from the cancelled parent.
func (s *Sampler) shutdown(parent context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), s.shutdownTimeout())
	defer cancel()

	if s.overrides != nil {
		if err := s.overrides.Reset(ctx); err != nil {
			s.logger.Error("reset location override failed", "error", err)
		}
	}
	if err := s.series.Reset(ctx); err != nil {
		s.logger.Error("reset series store failed", "error", err)
	}
	s.logger.Info("sampler state cleared")
}

func (s *Sampler) shutdownTimeout() time.Duration {
	if s.opts.ShutdownTimeout > 0 {
		return s.opts.ShutdownTimeout
	}
	return 10 * time.Second
}

func sleepWithContext(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
