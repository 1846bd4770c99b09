package domain

import "context"

// SeriesStore is the append-only sequence of accepted samples.
type SeriesStore interface {
	Append(ctx context.Context, s AqiSample) error
	ReadAll(ctx context.Context) ([]AqiSample, error)
	Reset(ctx context.Context) error
}

// AlertStore is the append-only sequence of emergency alert records.
type AlertStore interface {
	Append(ctx context.Context, r AlertRecord) error
	ReadAll(ctx context.Context) ([]AlertRecord, error)
	Reset(ctx context.Context) error
}

// OverrideStore holds the single user-supplied location record.
type OverrideStore interface {
	// Load returns the stored record. A missing record is returned as the zero
	// Override with a nil error.
	Load(ctx context.Context) (Override, error)
	Save(ctx context.Context, o Override) error
	// Reset stores a record with every field null.
	Reset(ctx context.Context) error
}
