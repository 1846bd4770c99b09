// Package filestore persists the series, alert, and override records as flat
// files that external readers consume directly.
package filestore

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// table is an append-only CSV file with a fixed header row.
type table[T any] struct {
	path   string
	header []string
	encode func(T) []string
	decode func([]string) (T, error)
	logger *slog.Logger

	mu sync.Mutex // serializes writers within the process
}

func (t *table[T]) append(_ context.Context, rec T) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	f, err := os.OpenFile(t.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", t.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", t.path, err)
	}

	rows := [][]string{t.encode(rec)}
	if info.Size() == 0 {
		rows = append([][]string{t.header}, rows...)
	}

	// One write per append so concurrent readers never observe half a row.
	buf, err := encodeRows(rows)
	if err != nil {
		return err
	}
	if _, err := f.Write(buf); err != nil {
		return fmt.Errorf("append %s: %w", t.path, err)
	}
	return nil
}

func (t *table[T]) readAll(_ context.Context) ([]T, error) {
	f, err := os.Open(t.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", t.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	out := []T{}
	for line := 1; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", t.path, err)
		}
		if line == 1 && slices.Equal(row, t.header) {
			continue
		}
		rec, err := t.decode(row)
		if err != nil {
			t.logger.Warn("skipping malformed row", "path", t.path, "line", line, "error", err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// reset replaces the file with a header-only copy. The swap is a rename so a
// concurrent reader sees either the old rows or the empty table.
func (t *table[T]) reset(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	buf, err := encodeRows([][]string{t.header})
	if err != nil {
		return err
	}
	return writeFileAtomic(t.path, buf)
}

func encodeRows(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}
	return buf.Bytes(), nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
