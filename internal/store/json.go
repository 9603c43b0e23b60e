package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"

	"github.com/0xDTC/0xGodaddy/internal/metrics"
	"github.com/0xDTC/0xGodaddy/internal/record"
)

// jsonStore keeps the snapshot as one JSON document, overwritten wholesale
// each run via temp-file-and-rename so a crash never leaves a truncated
// snapshot behind.
type jsonStore struct {
	path    string
	metrics *metrics.Metrics
}

func newJSONStore(path string, metrics *metrics.Metrics) *jsonStore {
	return &jsonStore{path: path, metrics: metrics}
}

func (s *jsonStore) Load(ctx context.Context) ([]record.Record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.metrics.IncStoreRequest("load", true)
		return nil, nil
	}
	if err != nil {
		s.metrics.IncStoreRequest("load", false)
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var records []record.Record
	if err := json.Unmarshal(data, &records); err != nil {
		s.metrics.IncStoreRequest("load", false)
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	s.metrics.IncStoreRequest("load", true)
	return records, nil
}

func (s *jsonStore) Save(ctx context.Context, records []record.Record) error {
	if records == nil {
		records = []record.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		s.metrics.IncStoreRequest("save", false)
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			s.metrics.IncStoreRequest("save", false)
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		s.metrics.IncStoreRequest("save", false)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.metrics.IncStoreRequest("save", false)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	s.metrics.IncStoreRequest("save", true)
	return nil
}

func (s *jsonStore) Close() error {
	return nil
}
