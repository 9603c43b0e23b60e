package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.SnapshotPath != "data/dns_records_master.json" {
		t.Errorf("Expected default snapshot path but got %q", cfg.SnapshotPath)
	}
	if cfg.ReportPath != "DNS_Inventory.html" {
		t.Errorf("Expected default report path but got %q", cfg.ReportPath)
	}
	if cfg.StoreBackend != "json" {
		t.Errorf("Expected default store backend but got %q", cfg.StoreBackend)
	}
	if cfg.WatchInterval != time.Hour {
		t.Errorf("Expected default watch interval but got %v", cfg.WatchInterval)
	}
	if cfg.HTTP.Timeout != 30*time.Second {
		t.Errorf("Expected default timeout but got %v", cfg.HTTP.Timeout)
	}
	if cfg.HTTP.MaxRetries != 4 {
		t.Errorf("Expected default retries but got %d", cfg.HTTP.MaxRetries)
	}
	if cfg.GoDaddy.BaseURL != "https://api.godaddy.com" {
		t.Errorf("Expected default godaddy base url but got %q", cfg.GoDaddy.BaseURL)
	}
	if cfg.Cloudflare.ZonePageSize != 50 {
		t.Errorf("Expected default zone page size but got %d", cfg.Cloudflare.ZonePageSize)
	}
}

func TestLoadFormats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "yaml",
			file: "config.yaml",
			content: `
snapshotPath: /tmp/snap.json
godaddy:
  key: yk
  secret: ys
cloudflare:
  token: yt
  recordPageSize: 25
`,
		},
		{
			name: "toml",
			file: "config.toml",
			content: `
snapshotPath = "/tmp/snap.json"

[godaddy]
key = "yk"
secret = "ys"

[cloudflare]
token = "yt"
recordPageSize = 25
`,
		},
		{
			name: "json",
			file: "config.json",
			content: `{
  "snapshotPath": "/tmp/snap.json",
  "godaddy": {"key": "yk", "secret": "ys"},
  "cloudflare": {"token": "yt", "recordPageSize": 25}
}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.file, tt.content))
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if cfg.SnapshotPath != "/tmp/snap.json" {
				t.Errorf("Expected snapshot path override but got %q", cfg.SnapshotPath)
			}
			if cfg.GoDaddy.Key != "yk" || cfg.GoDaddy.Secret != "ys" {
				t.Errorf("Expected godaddy credentials but got %+v", cfg.GoDaddy)
			}
			if cfg.Cloudflare.Token != "yt" {
				t.Errorf("Expected cloudflare token but got %q", cfg.Cloudflare.Token)
			}
			if cfg.Cloudflare.RecordPageSize != 25 {
				t.Errorf("Expected record page size 25 but got %d", cfg.Cloudflare.RecordPageSize)
			}
			// Untouched fields still get defaults.
			if cfg.ReportPath != "DNS_Inventory.html" {
				t.Errorf("Expected default report path but got %q", cfg.ReportPath)
			}
		})
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	if _, err := Load(writeConfig(t, "config.ini", "snapshotPath=/x")); err == nil {
		t.Error("Expected error for unsupported config format")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GODADDY_API_KEY", "ek")
	t.Setenv("GODADDY_API_SECRET", "es")
	t.Setenv("CLOUDFLARE_API_TOKEN", "et")
	t.Setenv("DNS_INVENTORY_SNAPSHOT_PATH", "/tmp/env-snap.json")
	t.Setenv("DNS_INVENTORY_WATCH_INTERVAL", "15m")
	t.Setenv("DNS_INVENTORY_MAX_RETRIES", "7")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.GoDaddy.Key != "ek" || cfg.GoDaddy.Secret != "es" {
		t.Errorf("Expected godaddy credentials from env but got %+v", cfg.GoDaddy)
	}
	if cfg.Cloudflare.Token != "et" {
		t.Errorf("Expected cloudflare token from env but got %q", cfg.Cloudflare.Token)
	}
	if cfg.SnapshotPath != "/tmp/env-snap.json" {
		t.Errorf("Expected snapshot path from env but got %q", cfg.SnapshotPath)
	}
	if cfg.WatchInterval != 15*time.Minute {
		t.Errorf("Expected watch interval from env but got %v", cfg.WatchInterval)
	}
	if cfg.HTTP.MaxRetries != 7 {
		t.Errorf("Expected max retries from env but got %d", cfg.HTTP.MaxRetries)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		cfg.fillDefaults()
		cfg.GoDaddy.Key = "k"
		cfg.GoDaddy.Secret = "s"
		cfg.Cloudflare.Token = "t"
		return cfg
	}

	tests := []struct {
		name        string
		mutate      func(*Config)
		godaddy     bool
		cloudflare  bool
		expectError bool
	}{
		{name: "both providers valid", mutate: func(*Config) {}, godaddy: true, cloudflare: true},
		{name: "no provider selected", mutate: func(*Config) {}, expectError: true},
		{
			name:        "godaddy missing secret",
			mutate:      func(c *Config) { c.GoDaddy.Secret = "" },
			godaddy:     true,
			expectError: true,
		},
		{
			name:        "cloudflare missing token",
			mutate:      func(c *Config) { c.Cloudflare.Token = "" },
			cloudflare:  true,
			expectError: true,
		},
		{
			name:       "cloudflare only ignores godaddy creds",
			mutate:     func(c *Config) { c.GoDaddy.Key = "" },
			cloudflare: true,
		},
		{
			name:        "unknown store backend",
			mutate:      func(c *Config) { c.StoreBackend = "etcd" },
			godaddy:     true,
			expectError: true,
		},
		{
			name:    "badger backend accepted",
			mutate:  func(c *Config) { c.StoreBackend = "badger" },
			godaddy: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate(tt.godaddy, tt.cloudflare)
			if tt.expectError && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}
