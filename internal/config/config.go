package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	defaultSnapshotPath  = "data/dns_records_master.json"
	defaultReportPath    = "DNS_Inventory.html"
	defaultStoreBackend  = "json"
	defaultWatchInterval = time.Hour
	defaultMetricsAddr   = ":9090"
	defaultLogLevel      = "info"
	defaultLogEnv        = "prod"

	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 4
	defaultRetryBase  = time.Second
	defaultRatePause  = 30 * time.Second
	defaultRateLimit  = 4.0
	defaultUserAgent  = "dns-inventory/2.0"

	defaultGoDaddyBaseURL    = "https://api.godaddy.com"
	defaultCloudflareBaseURL = "https://api.cloudflare.com/client/v4"

	defaultGoDaddyPageSize        = 100
	defaultCloudflareZonePageSize = 50
	defaultCloudflareRecPageSize  = 100
)

type Config struct {
	SnapshotPath  string        `yaml:"snapshotPath" toml:"snapshotPath" json:"snapshotPath"`
	ReportPath    string        `yaml:"reportPath" toml:"reportPath" json:"reportPath"`
	StoreBackend  string        `yaml:"storeBackend" toml:"storeBackend" json:"storeBackend"`
	WatchInterval time.Duration `yaml:"watchInterval" toml:"watchInterval" json:"watchInterval"`
	MetricsAddr   string        `yaml:"metricsAddr" toml:"metricsAddr" json:"metricsAddr"`
	Log           Log           `yaml:"log" toml:"log" json:"log"`
	HTTP          HTTP          `yaml:"http" toml:"http" json:"http"`
	GoDaddy       GoDaddy       `yaml:"godaddy" toml:"godaddy" json:"godaddy"`
	Cloudflare    Cloudflare    `yaml:"cloudflare" toml:"cloudflare" json:"cloudflare"`
}

type Log struct {
	Level string `yaml:"level" toml:"level" json:"level"`
	Env   string `yaml:"env" toml:"env" json:"env"`
}

type HTTP struct {
	Timeout    time.Duration `yaml:"timeout" toml:"timeout" json:"timeout"`
	MaxRetries int           `yaml:"maxRetries" toml:"maxRetries" json:"maxRetries"`
	RetryBase  time.Duration `yaml:"retryBase" toml:"retryBase" json:"retryBase"`
	RatePause  time.Duration `yaml:"ratePause" toml:"ratePause" json:"ratePause"`
	RateLimit  float64       `yaml:"rateLimit" toml:"rateLimit" json:"rateLimit"`
	UserAgent  string        `yaml:"userAgent" toml:"userAgent" json:"userAgent"`
}

type GoDaddy struct {
	BaseURL  string `yaml:"baseUrl" toml:"baseUrl" json:"baseUrl"`
	Key      string `yaml:"key" toml:"key" json:"key"`
	Secret   string `yaml:"secret" toml:"secret" json:"secret"`
	PageSize int    `yaml:"pageSize" toml:"pageSize" json:"pageSize"`
}

type Cloudflare struct {
	BaseURL        string `yaml:"baseUrl" toml:"baseUrl" json:"baseUrl"`
	Token          string `yaml:"token" toml:"token" json:"token"`
	ZonePageSize   int    `yaml:"zonePageSize" toml:"zonePageSize" json:"zonePageSize"`
	RecordPageSize int    `yaml:"recordPageSize" toml:"recordPageSize" json:"recordPageSize"`
}

// Load reads the config file at path, fills defaults, and applies
// environment overrides. Secrets usually arrive via the environment or a
// .env file rather than the config file. A missing config file is fine;
// everything has a default except credentials.
func Load(path string) (*Config, error) {
	// Credentials commonly live in a .env next to the binary.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Default().Warn("fail load .env file", "error", err)
	}

	var cfg Config
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		slog.Default().Warn("fail find config file, proceeding", "path", path)
	} else {
		if err := decodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	cfg.fillDefaults()
	cfg.applyEnv()
	return &cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	case ".toml":
		return toml.Unmarshal(data, cfg)
	case ".json":
		return json.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
}

func (cfg *Config) fillDefaults() {
	if cfg.SnapshotPath == "" {
		cfg.SnapshotPath = defaultSnapshotPath
	}
	if cfg.ReportPath == "" {
		cfg.ReportPath = defaultReportPath
	}
	if cfg.StoreBackend == "" {
		cfg.StoreBackend = defaultStoreBackend
	}
	if cfg.WatchInterval == 0 {
		cfg.WatchInterval = defaultWatchInterval
	}
	if cfg.MetricsAddr == "" {
		cfg.MetricsAddr = defaultMetricsAddr
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = defaultLogLevel
	}
	if cfg.Log.Env == "" {
		cfg.Log.Env = defaultLogEnv
	}

	if cfg.HTTP.Timeout == 0 {
		cfg.HTTP.Timeout = defaultTimeout
	}
	if cfg.HTTP.MaxRetries == 0 {
		cfg.HTTP.MaxRetries = defaultMaxRetries
	}
	if cfg.HTTP.RetryBase == 0 {
		cfg.HTTP.RetryBase = defaultRetryBase
	}
	if cfg.HTTP.RatePause == 0 {
		cfg.HTTP.RatePause = defaultRatePause
	}
	if cfg.HTTP.RateLimit == 0 {
		cfg.HTTP.RateLimit = defaultRateLimit
	}
	if cfg.HTTP.UserAgent == "" {
		cfg.HTTP.UserAgent = defaultUserAgent
	}

	if cfg.GoDaddy.BaseURL == "" {
		cfg.GoDaddy.BaseURL = defaultGoDaddyBaseURL
	}
	if cfg.GoDaddy.PageSize == 0 {
		cfg.GoDaddy.PageSize = defaultGoDaddyPageSize
	}

	if cfg.Cloudflare.BaseURL == "" {
		cfg.Cloudflare.BaseURL = defaultCloudflareBaseURL
	}
	if cfg.Cloudflare.ZonePageSize == 0 {
		cfg.Cloudflare.ZonePageSize = defaultCloudflareZonePageSize
	}
	if cfg.Cloudflare.RecordPageSize == 0 {
		cfg.Cloudflare.RecordPageSize = defaultCloudflareRecPageSize
	}
}

// Override from environment if set
func (cfg *Config) applyEnv() {
	if key := os.Getenv("GODADDY_API_KEY"); key != "" {
		cfg.GoDaddy.Key = key
	}
	if secret := os.Getenv("GODADDY_API_SECRET"); secret != "" {
		cfg.GoDaddy.Secret = secret
	}
	if token := os.Getenv("CLOUDFLARE_API_TOKEN"); token != "" {
		cfg.Cloudflare.Token = token
	}

	if path := os.Getenv("DNS_INVENTORY_SNAPSHOT_PATH"); path != "" {
		cfg.SnapshotPath = path
	}
	if path := os.Getenv("DNS_INVENTORY_REPORT_PATH"); path != "" {
		cfg.ReportPath = path
	}
	if backend := os.Getenv("DNS_INVENTORY_STORE"); backend != "" {
		cfg.StoreBackend = backend
	}
	if interval := os.Getenv("DNS_INVENTORY_WATCH_INTERVAL"); interval != "" {
		if parsed, err := time.ParseDuration(interval); err == nil {
			cfg.WatchInterval = parsed
		} else {
			slog.Default().Warn("fail parse watch interval to duration from string", "interval", interval, "error", err)
		}
	}
	if addr := os.Getenv("DNS_INVENTORY_METRICS_ADDR"); addr != "" {
		cfg.MetricsAddr = addr
	}
	if level := os.Getenv("DNS_INVENTORY_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if env := os.Getenv("DNS_INVENTORY_LOG_ENV"); env != "" {
		cfg.Log.Env = env
	}
	if timeout := os.Getenv("DNS_INVENTORY_HTTP_TIMEOUT"); timeout != "" {
		if parsed, err := time.ParseDuration(timeout); err == nil {
			cfg.HTTP.Timeout = parsed
		} else {
			slog.Default().Warn("fail parse http timeout to duration from string", "timeout", timeout, "error", err)
		}
	}
	if retries := os.Getenv("DNS_INVENTORY_MAX_RETRIES"); retries != "" {
		if parsed, err := strconv.Atoi(retries); err == nil {
			cfg.HTTP.MaxRetries = parsed
		} else {
			slog.Default().Warn("fail parse max retries to int from string", "retries", retries, "error", err)
		}
	}
	if base := os.Getenv("DNS_INVENTORY_GODADDY_BASE_URL"); base != "" {
		cfg.GoDaddy.BaseURL = base
	}
	if base := os.Getenv("DNS_INVENTORY_CLOUDFLARE_BASE_URL"); base != "" {
		cfg.Cloudflare.BaseURL = base
	}
}

// Validate checks that every selected provider has credentials and the
// chosen store backend exists. Called after flags decide which providers
// this run touches.
func (cfg *Config) Validate(godaddy, cloudflare bool) error {
	if !godaddy && !cloudflare {
		return errors.New("no provider selected")
	}
	if godaddy && (cfg.GoDaddy.Key == "" || cfg.GoDaddy.Secret == "") {
		return errors.New("godaddy selected but GODADDY_API_KEY or GODADDY_API_SECRET missing")
	}
	if cloudflare && cfg.Cloudflare.Token == "" {
		return errors.New("cloudflare selected but CLOUDFLARE_API_TOKEN missing")
	}
	switch cfg.StoreBackend {
	case "json", "badger":
	default:
		return fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	return nil
}
