// Package sqlite backs the series and alert stores with a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/aqi-monitor-service/internal/domain"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection and schema lifecycle.
type DB struct {
	db *sql.DB
}

// Open initializes the database connection, creating directories as needed.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// A single connection keeps appends serialized.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &DB{db: db}, nil
}

// Close releases the database handle.
func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// InitSchema creates the series and alert tables if they do not exist.
func (d *DB) InitSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS aqi_samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			city TEXT NOT NULL,
			aqi INTEGER NOT NULL,
			changed INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS aqi_alerts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			city TEXT NOT NULL,
			aqi INTEGER NOT NULL,
			alert_message TEXT NOT NULL
		);`,
	}

	for _, stmt := range stmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Ping reports whether the database is reachable.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// SeriesStore implements domain.SeriesStore on the aqi_samples table.
type SeriesStore struct {
	db *sql.DB
}

// Series returns the series store view of the database.
func (d *DB) Series() *SeriesStore {
	return &SeriesStore{db: d.db}
}

func (s *SeriesStore) Append(ctx context.Context, sample domain.AqiSample) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO aqi_samples (timestamp, city, aqi, changed) VALUES (?, ?, ?, ?)`,
		sample.Timestamp, sample.City, sample.AQI, sample.Changed)
	if err != nil {
		return fmt.Errorf("insert sample: %w", err)
	}
	return nil
}

func (s *SeriesStore) ReadAll(ctx context.Context) ([]domain.AqiSample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp, city, aqi, changed FROM aqi_samples ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	out := []domain.AqiSample{}
	for rows.Next() {
		var sample domain.AqiSample
		if err := rows.Scan(&sample.Timestamp, &sample.City, &sample.AQI, &sample.Changed); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		out = append(out, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return out, nil
}

func (s *SeriesStore) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM aqi_samples`); err != nil {
		return fmt.Errorf("reset samples: %w", err)
	}
	return nil
}

// AlertStore implements domain.AlertStore on the aqi_alerts table.
type AlertStore struct {
	db *sql.DB
}

// Alerts returns the alert store view of the database.
func (d *DB) Alerts() *AlertStore {
	return &AlertStore{db: d.db}
}

func (s *AlertStore) Append(ctx context.Context, r domain.AlertRecord) error {
	if r.Message == "" {
		return errors.New("alert record without message")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO aqi_alerts (city, aqi, alert_message) VALUES (?, ?, ?)`,
		r.City, r.AQI, r.Message)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (s *AlertStore) ReadAll(ctx context.Context) ([]domain.AlertRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT city, aqi, alert_message FROM aqi_alerts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	out := []domain.AlertRecord{}
	for rows.Next() {
		var r domain.AlertRecord
		if err := rows.Scan(&r.City, &r.AQI, &r.Message); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return out, nil
}

func (s *AlertStore) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM aqi_alerts`); err != nil {
		return fmt.Errorf("reset alerts: %w", err)
	}
	return nil
}
