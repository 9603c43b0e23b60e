package store

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v3"
	json "github.com/goccy/go-json"

	"github.com/0xDTC/0xGodaddy/internal/metrics"
	"github.com/0xDTC/0xGodaddy/internal/record"
)

const recordPrefix = "record:"

// badgerStore keys each snapshot record by its signature. Deployments
// that run under watch mode prefer it over rewriting one large JSON file
// every interval.
type badgerStore struct {
	db      *badger.DB
	metrics *metrics.Metrics
}

func newBadgerStore(path string, metrics *metrics.Metrics) (*badgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable Badger's internal logger

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	return &badgerStore{db: db, metrics: metrics}, nil
}

func (s *badgerStore) Load(ctx context.Context) ([]record.Record, error) {
	records := []record.Record{}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(recordPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var rec record.Record
				if err := json.Unmarshal(val, &rec); err != nil {
					return fmt.Errorf("%w: %v", ErrCorrupt, err)
				}
				records = append(records, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.metrics.IncStoreRequest("load", false)
		return nil, err
	}

	record.Sort(records)
	s.metrics.IncStoreRequest("load", true)
	return records, nil
}

func (s *badgerStore) Save(ctx context.Context, records []record.Record) error {
	txn := s.db.NewTransaction(true)
	defer txn.Discard()

	// Collect existing keys so records gone from this snapshot are removed.
	existing := make(map[string]bool)
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	prefix := []byte(recordPrefix)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		existing[string(it.Item().Key())] = true
	}
	it.Close()

	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			s.metrics.IncStoreRequest("save", false)
			return err
		}
		key := recordPrefix + rec.Signature()
		if err := txn.Set([]byte(key), data); err != nil {
			s.metrics.IncStoreRequest("save", false)
			return err
		}
		delete(existing, key)
	}

	for key := range existing {
		if err := txn.Delete([]byte(key)); err != nil {
			s.metrics.IncStoreRequest("save", false)
			return err
		}
	}

	err := txn.Commit()
	s.metrics.IncStoreRequest("save", err == nil)
	return err
}

func (s *badgerStore) Close() error {
	return s.db.Close()
}
