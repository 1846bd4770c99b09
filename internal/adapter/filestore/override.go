package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/couchcryptid/aqi-monitor-service/internal/domain"
)

// OverrideStore implements domain.OverrideStore on a JSON file of the form
// {"lat": ..., "lon": ..., "city": ...}.
type OverrideStore struct {
	path string
}

// NewOverrideStore creates an override store backed by the JSON file at path.
func NewOverrideStore(path string) *OverrideStore {
	return &OverrideStore{path: path}
}

func (s *OverrideStore) Load(_ context.Context) (domain.Override, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Override{}, nil
	}
	if err != nil {
		return domain.Override{}, fmt.Errorf("read override: %w", err)
	}

	var o domain.Override
	if err := json.Unmarshal(data, &o); err != nil {
		return domain.Override{}, fmt.Errorf("decode override: %w", err)
	}
	return o, nil
}

func (s *OverrideStore) Save(_ context.Context, o domain.Override) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("encode override: %w", err)
	}
	return writeFileAtomic(s.path, data)
}

func (s *OverrideStore) Reset(ctx context.Context) error {
	return s.Save(ctx, domain.Override{})
}
