// Package store persists the inventory snapshot between runs.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/0xDTC/0xGodaddy/internal/metrics"
	"github.com/0xDTC/0xGodaddy/internal/record"
)

// ErrCorrupt marks an existing snapshot that cannot be parsed. Callers
// treat it as an empty history and rebuild, never as a fatal error.
var ErrCorrupt = errors.New("snapshot corrupt")

type Store interface {
	Load(ctx context.Context) ([]record.Record, error)
	Save(ctx context.Context, records []record.Record) error
	Close() error
}

func New(backend, path string, metrics *metrics.Metrics) (Store, error) {
	switch backend {
	case "json":
		return newJSONStore(path, metrics), nil
	case "badger":
		return newBadgerStore(path, metrics)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
