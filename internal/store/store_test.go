package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/0xDTC/0xGodaddy/internal/metrics"
	"github.com/0xDTC/0xGodaddy/internal/record"
)

func sampleRecords() []record.Record {
	return []record.Record{
		{
			Domain:        "alpha.com",
			Subdomain:     "",
			Type:          "A",
			Data:          "1.2.3.4",
			Source:        record.SourceGoDaddy,
			DiscoveryDate: "2024-01-01",
			Status:        record.StatusActive,
		},
		{
			Domain:        "alpha.com",
			Subdomain:     "www",
			Type:          "CNAME",
			Data:          "alpha.com",
			Source:        record.SourceCloudflare,
			DiscoveryDate: "2024-02-10",
			Status:        record.StatusRemoved,
		},
	}
}

func TestJSONStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "snapshot.json")
	s, err := New("json", path, metrics.New(false))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	records := sampleRecords()
	if err := s.Save(ctx, records); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(loaded, records) {
		t.Errorf("Expected %+v but got %+v", records, loaded)
	}

	if _, err := os.Stat(path + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Error("Expected temp file removed after save")
	}
}

func TestJSONStoreFieldNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	s := newJSONStore(path, metrics.New(false))

	if err := s.Save(context.Background(), sampleRecords()[:1]); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read snapshot: %v", err)
	}
	for _, field := range []string{`"domain"`, `"subdomain"`, `"type"`, `"data"`, `"source"`, `"discoveryDate"`, `"status"`} {
		if !strings.Contains(string(data), field) {
			t.Errorf("Expected snapshot to contain %s field", field)
		}
	}
}

func TestJSONStoreMissingFile(t *testing.T) {
	s := newJSONStore(filepath.Join(t.TempDir(), "absent.json"), metrics.New(false))
	loaded, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("Expected empty history but got %+v", loaded)
	}
}

func TestJSONStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := os.WriteFile(path, []byte(`{"not": "an array"`), 0o644); err != nil {
		t.Fatalf("Failed to write corrupt snapshot: %v", err)
	}

	s := newJSONStore(path, metrics.New(false))
	_, err := s.Load(context.Background())
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("Expected ErrCorrupt but got %v", err)
	}
}

func TestJSONStoreSaveNil(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	s := newJSONStore(path, metrics.New(false))
	if err := s.Save(context.Background(), nil); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read snapshot: %v", err)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("Expected empty array but got %s", data)
	}
}

func TestBadgerStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "badger")
	s, err := New("badger", path, metrics.New(false))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	records := sampleRecords()
	record.Sort(records)
	if err := s.Save(ctx, records); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(loaded, records) {
		t.Errorf("Expected %+v but got %+v", records, loaded)
	}

	// A save with fewer records replaces the previous set wholesale.
	if err := s.Save(ctx, records[:1]); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err = s.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 1 {
		t.Errorf("Expected 1 record after replacement but got %d", len(loaded))
	}
}

func TestBadgerStoreError(t *testing.T) {
	// A regular file where the db directory should go makes open fail.
	occupied := filepath.Join(t.TempDir(), "occupied")
	if err := os.WriteFile(occupied, []byte("x"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if _, err := New("badger", filepath.Join(occupied, "db"), metrics.New(false)); err == nil {
		t.Fatal("expected error for invalid path but got nil")
	}
}

func TestUnknownBackend(t *testing.T) {
	if _, err := New("etcd", "x", metrics.New(false)); err == nil {
		t.Error("Expected error for unknown backend")
	}
}
