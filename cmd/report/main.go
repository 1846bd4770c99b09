// Command report classifies every stored sample and summarises the alert
// queue. It reads the same backends as the monitor and never writes.
//
// Usage:
//
//	go run ./cmd/report
//	go run ./cmd/report -json
//	go run ./cmd/report -last 10
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/couchcryptid/aqi-monitor-service/internal/config"
	"github.com/couchcryptid/aqi-monitor-service/internal/domain"
	"github.com/couchcryptid/aqi-monitor-service/internal/stores"
)

// row is one classified sample as printed.
type row struct {
	Timestamp string `json:"timestamp"`
	Changed   bool   `json:"changed"`
	domain.ClassifiedReading
}

// summary aggregates a report.
type summary struct {
	Samples    int                     `json:"samples"`
	Categories map[domain.Category]int `json:"categories"`
	Alerting   int                     `json:"alerting"`
	Latest     *row                    `json:"latest,omitempty"`
	Queued     map[string]int          `json:"queued_alerts"`
}

type report struct {
	Rows    []row   `json:"rows"`
	Summary summary `json:"summary"`
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "report: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "print the report as JSON")
	last := fs.Int("last", 0, "only list the most recent N samples (0 lists all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	set, err := stores.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer set.Close()

	samples, err := set.Series.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("read series: %w", err)
	}
	alerts, err := set.Alerts.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("read alerts: %w", err)
	}

	rep := build(samples, alerts, *last)
	if *asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	return printText(out, rep)
}

// build classifies samples and counts queued alert records per city. The
// summary always covers the whole series; last only trims the listed rows.
func build(samples []domain.AqiSample, alerts []domain.AlertRecord, last int) report {
	rows := make([]row, len(samples))
	sum := summary{
		Samples:    len(samples),
		Categories: make(map[domain.Category]int),
		Queued:     make(map[string]int),
	}
	for i, s := range samples {
		r := row{Timestamp: s.Timestamp, Changed: s.Changed, ClassifiedReading: domain.ClassifySample(s)}
		rows[i] = r
		sum.Categories[r.Category]++
		if r.Alert {
			sum.Alerting++
		}
	}
	if len(rows) > 0 {
		latest := rows[len(rows)-1]
		sum.Latest = &latest
	}
	for _, a := range alerts {
		sum.Queued[a.City]++
	}

	if last > 0 && last < len(rows) {
		rows = rows[len(rows)-last:]
	}
	return report{Rows: rows, Summary: sum}
}

func printText(out io.Writer, rep report) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tCITY\tAQI\tCHANGED\tCATEGORY\tALERT\tADVICE")
	for _, r := range rep.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			r.Timestamp, r.City, r.AQI, yesNo(r.Changed), r.Category, yesNo(r.Alert), r.HealthAdvice)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	s := rep.Summary
	fmt.Fprintln(out)
	fmt.Fprintf(out, "samples: %d  alerting: %d\n", s.Samples, s.Alerting)
	for _, c := range []domain.Category{
		domain.CategoryGood,
		domain.CategoryModerate,
		domain.CategoryPoor,
		domain.CategoryVeryPoor,
	} {
		fmt.Fprintf(out, "  %-10s %d\n", c, s.Categories[c])
	}
	if s.Latest != nil {
		fmt.Fprintf(out, "latest: %s %s AQI %d (%s)\n", s.Latest.Timestamp, s.Latest.City, s.Latest.AQI, s.Latest.Category)
		if s.Latest.EmergencyMessage != "" {
			fmt.Fprintf(out, "  %s\n", s.Latest.EmergencyMessage)
		}
	}
	if len(s.Queued) == 0 {
		fmt.Fprintln(out, "queued alerts: none")
		return nil
	}
	fmt.Fprintln(out, "queued alerts:")
	for city, n := range s.Queued {
		fmt.Fprintf(out, "  %s: %d\n", city, n)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}
