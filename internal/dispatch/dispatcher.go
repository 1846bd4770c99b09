// Package dispatch turns queued alert records into user notifications,
// limited to one per city per cooldown window.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/aqi-monitor-service/internal/domain"
	"github.com/couchcryptid/aqi-monitor-service/internal/observability"
)

// NotificationTitle is the title of every alert notification.
const NotificationTitle = "Air Quality Alert"

// Options tunes the dispatcher loop.
type Options struct {
	Interval time.Duration
	Cooldown time.Duration
	// EntryTTL is how long a city's cooldown entry survives without a
	// dispatch. It must exceed Cooldown.
	EntryTTL            time.Duration
	NotificationTimeout time.Duration
	ShutdownTimeout     time.Duration
	Clock               clockwork.Clock
}

// Result summarises one dispatch cycle.
type Result struct {
	Dispatched int
	Suppressed int
	Failed     int
	Expired    int
}

// Dispatcher owns the per-city cooldown map. It is not safe for concurrent use;
// Run and Cycle belong to a single goroutine.
type Dispatcher struct {
	alerts   domain.AlertStore
	notifier domain.Notifier
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics
	opts     Options

	last map[string]time.Time
}

// New creates a Dispatcher reading from alerts and delivering through notifier.
func New(alerts domain.AlertStore, notifier domain.Notifier, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Dispatcher {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Dispatcher{
		alerts:   alerts,
		notifier: notifier,
		clock:    opts.Clock,
		logger:   logger,
		metrics:  metrics,
		opts:     opts,
		last:     make(map[string]time.Time),
	}
}

// Run dispatches once immediately and then on every tick until the context is
// cancelled. On exit it resets the alert store.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("dispatcher started",
		"interval", d.opts.Interval,
		"cooldown", d.opts.Cooldown,
		"entry_ttl", d.opts.EntryTTL,
	)
	d.metrics.DispatcherRunning.Set(1)
	defer d.metrics.DispatcherRunning.Set(0)
	defer d.shutdown(ctx)

	ticker := d.clock.NewTicker(d.opts.Interval)
	defer ticker.Stop()

	for {
		d.Cycle(ctx)

		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
		}
	}
}

// Cycle expires stale cooldown entries, then notifies for every alert record
// whose city is not cooling down.
func (d *Dispatcher) Cycle(ctx context.Context) Result {
	now := d.clock.Now()
	res := Result{Expired: d.expire(now)}

	records, err := d.alerts.ReadAll(ctx)
	if err != nil {
		d.logger.Warn("read alert records failed", "error", err)
		return res
	}

	for _, rec := range records {
		if last, ok := d.last[rec.City]; ok && now.Sub(last) <= d.opts.Cooldown {
			res.Suppressed++
			d.metrics.Notifications.WithLabelValues("suppressed").Inc()
			continue
		}

		if err := d.send(ctx, rec, now); err != nil {
			d.logger.Warn("notification failed", "city", rec.City, "aqi", rec.AQI, "error", err)
			res.Failed++
			d.metrics.Notifications.WithLabelValues("failed").Inc()
		} else {
			d.logger.Info("notification dispatched", "city", rec.City, "aqi", rec.AQI)
			res.Dispatched++
			d.metrics.Notifications.WithLabelValues("dispatched").Inc()
		}
		// Delivery is best effort: a failed send still starts the cooldown.
		d.last[rec.City] = now
	}

	d.metrics.CooldownEntries.Set(float64(len(d.last)))
	return res
}

// Tracked reports whether city currently has a cooldown entry.
func (d *Dispatcher) Tracked(city string) bool {
	_, ok := d.last[city]
	return ok
}

func (d *Dispatcher) expire(now time.Time) int {
	n := 0
	for city, last := range d.last {
		if now.Sub(last) > d.opts.EntryTTL {
			delete(d.last, city)
			n++
		}
	}
	if n > 0 {
		d.metrics.CooldownEvictions.Add(float64(n))
		d.logger.Debug("expired cooldown entries", "count", n)
	}
	return n
}

func (d *Dispatcher) send(ctx context.Context, rec domain.AlertRecord, now time.Time) error {
	n := domain.Notification{
		ID:      uuid.NewString(),
		Title:   NotificationTitle,
		Body:    FormatBody(rec),
		City:    rec.City,
		AQI:     rec.AQI,
		Timeout: d.opts.NotificationTimeout,
		SentAt:  now,
	}

	if d.opts.NotificationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.NotificationTimeout)
		defer cancel()
	}
	return d.notifier.Notify(ctx, n)
}

func (d *Dispatcher) shutdown(parent context.Context) {
	timeout := d.opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), timeout)
	defer cancel()

	if err := d.alerts.Reset(ctx); err != nil {
		d.logger.Error("reset alert store failed", "error", err)
		return
	}
	d.logger.Info("alert store cleared")
}

// FormatBody renders the notification text for an alert record.
func FormatBody(rec domain.AlertRecord) string {
	return fmt.Sprintf("%s (AQI %d): %s", rec.City, rec.AQI, rec.Message)
}
