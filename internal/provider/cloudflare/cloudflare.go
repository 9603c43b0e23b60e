package cloudflare

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cloudflare/cloudflare-go"

	"github.com/0xDTC/0xGodaddy/internal/config"
	"github.com/0xDTC/0xGodaddy/internal/fetch"
	"github.com/0xDTC/0xGodaddy/internal/metrics"
	"github.com/0xDTC/0xGodaddy/internal/progress"
	"github.com/0xDTC/0xGodaddy/internal/provider"
	"github.com/0xDTC/0xGodaddy/internal/record"
)

type CloudflareProvider struct {
	api            *cloudflare.API
	fetch          *fetch.Client
	baseURL        string
	header         http.Header
	zonePageSize   int
	recordPageSize int
}

func New(cfg config.Cloudflare, opts fetch.Options, metrics *metrics.Metrics, spinner *progress.Spinner) (*CloudflareProvider, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("cloudflare API token required")
	}

	api, err := cloudflare.NewWithAPIToken(cfg.Token, cloudflare.BaseURL(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create Cloudflare client: %w", err)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+cfg.Token)

	return &CloudflareProvider{
		api:            api,
		fetch:          fetch.New(string(record.SourceCloudflare), opts, metrics, spinner),
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		header:         header,
		zonePageSize:   cfg.ZonePageSize,
		recordPageSize: cfg.RecordPageSize,
	}, nil
}

func (p *CloudflareProvider) Name() record.Source {
	return record.SourceCloudflare
}

// Check verifies the API token before any listing happens.
func (p *CloudflareProvider) Check(ctx context.Context) error {
	result, err := p.api.VerifyAPIToken(ctx)
	if err != nil {
		return fmt.Errorf("cloudflare token verification, err=%w", err)
	}
	if result.Status != "active" {
		return fmt.Errorf("cloudflare token status %q", result.Status)
	}
	return nil
}

func (p *CloudflareProvider) ListDomains(ctx context.Context) ([]provider.Domain, error) {
	slog.Info("Listing zones", "provider", p.Name())
	start := time.Now()

	params := url.Values{}
	params.Set("per_page", strconv.Itoa(p.zonePageSize))
	pager := p.fetch.Pages(fetch.Request{
		URL:    p.baseURL + "/zones",
		Header: p.header,
		Params: params,
		Label:  "zones",
	})

	var domains []provider.Domain
	for pager.Next(ctx) {
		for _, raw := range pager.Page().Items {
			var zone cloudflare.Zone
			if err := json.Unmarshal(raw, &zone); err != nil {
				slog.Warn("Skipping malformed zone entry", "provider", p.Name(), "error", err)
				continue
			}
			name := strings.ToLower(strings.TrimSpace(zone.Name))
			if name == "" || provider.Placeholder(name) {
				continue
			}
			domains = append(domains, provider.Domain{ID: zone.ID, Name: name})
		}
	}
	domains = provider.Dedupe(domains)

	if err := pager.Err(); err != nil {
		if provider.Fatal(err) {
			return domains, err
		}
		slog.Warn("Zone listing incomplete, continuing with partial results",
			"provider", p.Name(),
			"zones", len(domains),
			"error", err,
		)
	}
	slog.Debug("Listed zones", "provider", p.Name(), "count", len(domains), "duration", time.Since(start))
	return domains, nil
}

func (p *CloudflareProvider) ListRecords(ctx context.Context, domain provider.Domain) ([]record.Record, error) {
	start := time.Now()

	params := url.Values{}
	params.Set("per_page", strconv.Itoa(p.recordPageSize))
	pager := p.fetch.Pages(fetch.Request{
		URL:    fmt.Sprintf("%s/zones/%s/dns_records", p.baseURL, url.PathEscape(domain.ID)),
		Header: p.header,
		Params: params,
		Label:  domain.Name,
	})

	var records []record.Record
	for pager.Next(ctx) {
		for _, raw := range pager.Page().Items {
			var item cloudflare.DNSRecord
			if err := json.Unmarshal(raw, &item); err != nil {
				slog.Warn("Skipping malformed record entry", "provider", p.Name(), "zone", domain.Name, "error", err)
				continue
			}
			records = append(records, record.Record{
				Domain:    domain.Name,
				Subdomain: provider.Subdomain(item.Name, domain.Name),
				Type:      strings.ToUpper(strings.TrimSpace(item.Type)),
				Data:      strings.TrimSpace(item.Content),
				Source:    record.SourceCloudflare,
			})
		}
	}

	if err := pager.Err(); err != nil {
		if provider.Fatal(err) {
			return records, err
		}
		slog.Warn("Record listing incomplete, continuing with partial results",
			"provider", p.Name(),
			"zone", domain.Name,
			"records", len(records),
			"error", err,
		)
	}
	slog.Debug("Listed records", "provider", p.Name(), "zone", domain.Name, "count", len(records), "duration", time.Since(start))
	return records, nil
}
