package godaddy

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

	"github.com/0xDTC/0xGodaddy/internal/config"
	"github.com/0xDTC/0xGodaddy/internal/fetch"
	"github.com/0xDTC/0xGodaddy/internal/metrics"
	"github.com/0xDTC/0xGodaddy/internal/progress"
	"github.com/0xDTC/0xGodaddy/internal/provider"
	"github.com/0xDTC/0xGodaddy/internal/record"
)

type GoDaddyProvider struct {
	fetch    *fetch.Client
	baseURL  string
	header   http.Header
	pageSize int
}

func New(cfg config.GoDaddy, opts fetch.Options, metrics *metrics.Metrics, spinner *progress.Spinner) (*GoDaddyProvider, error) {
	if cfg.Key == "" || cfg.Secret == "" {
		return nil, fmt.Errorf("godaddy API key and secret required")
	}

	header := http.Header{}
	header.Set("Authorization", "sso-key "+cfg.Key+":"+cfg.Secret)

	opts.QuotaMarkers = append(opts.QuotaMarkers, "QUOTA_EXCEEDED")
	opts.RateMarkers = append(opts.RateMarkers, "TOO_MANY_REQUESTS")

	return &GoDaddyProvider{
		fetch:    fetch.New(string(record.SourceGoDaddy), opts, metrics, spinner),
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		header:   header,
		pageSize: cfg.PageSize,
	}, nil
}

func (p *GoDaddyProvider) Name() record.Source {
	return record.SourceGoDaddy
}

// Check performs one cheap authenticated call to decide whether this
// provider participates in the run.
func (p *GoDaddyProvider) Check(ctx context.Context) error {
	params := url.Values{}
	params.Set("limit", "1")
	_, err := p.fetch.Get(ctx, fetch.Request{
		URL:    p.baseURL + "/v1/domains",
		Header: p.header,
		Params: params,
		Label:  "reachability",
	})
	if err != nil {
		return fmt.Errorf("godaddy reachability check, err=%w", err)
	}
	return nil
}

func (p *GoDaddyProvider) ListDomains(ctx context.Context) ([]provider.Domain, error) {
	slog.Info("Listing domains", "provider", p.Name())
	start := time.Now()

	params := url.Values{}
	params.Set("limit", strconv.Itoa(p.pageSize))
	params.Set("statuses", "ACTIVE")
	pager := p.fetch.Pages(fetch.Request{
		URL:    p.baseURL + "/v1/domains",
		Header: p.header,
		Params: params,
		Label:  "domains",
	})

	var domains []provider.Domain
	for pager.Next(ctx) {
		for _, raw := range pager.Page().Items {
			var item struct {
				Domain   string `json:"domain"`
				DomainID int64  `json:"domainId"`
			}
			if err := json.Unmarshal(raw, &item); err != nil {
				slog.Warn("Skipping malformed domain entry", "provider", p.Name(), "error", err)
				continue
			}
			name := strings.ToLower(strings.TrimSpace(item.Domain))
			if name == "" || provider.Placeholder(name) {
				continue
			}
			var id string
			if item.DomainID != 0 {
				id = strconv.FormatInt(item.DomainID, 10)
			}
			domains = append(domains, provider.Domain{ID: id, Name: name})
		}
	}
	domains = provider.Dedupe(domains)

	if err := pager.Err(); err != nil {
		if provider.Fatal(err) {
			return domains, err
		}
		slog.Warn("Domain listing incomplete, continuing with partial results",
			"provider", p.Name(),
			"domains", len(domains),
			"error", err,
		)
	}
	slog.Debug("Listed domains", "provider", p.Name(), "count", len(domains), "duration", time.Since(start))
	return domains, nil
}

func (p *GoDaddyProvider) ListRecords(ctx context.Context, domain provider.Domain) ([]record.Record, error) {
	start := time.Now()

	params := url.Values{}
	params.Set("limit", strconv.Itoa(p.pageSize))
	pager := p.fetch.Pages(fetch.Request{
		URL:    fmt.Sprintf("%s/v1/domains/%s/records", p.baseURL, url.PathEscape(domain.Name)),
		Header: p.header,
		Params: params,
		Label:  domain.Name,
	})

	var records []record.Record
	for pager.Next(ctx) {
		for _, raw := range pager.Page().Items {
			var item struct {
				Name string `json:"name"`
				Type string `json:"type"`
				Data string `json:"data"`
			}
			if err := json.Unmarshal(raw, &item); err != nil {
				slog.Warn("Skipping malformed record entry", "provider", p.Name(), "domain", domain.Name, "error", err)
				continue
			}
			records = append(records, record.Record{
				Domain:    domain.Name,
				Subdomain: provider.Subdomain(item.Name, domain.Name),
				Type:      strings.ToUpper(strings.TrimSpace(item.Type)),
				Data:      strings.TrimSpace(item.Data),
				Source:    record.SourceGoDaddy,
			})
		}
	}

	if err := pager.Err(); err != nil {
		if provider.Fatal(err) {
			return records, err
		}
		slog.Warn("Record listing incomplete, continuing with partial results",
			"provider", p.Name(),
			"domain", domain.Name,
			"records", len(records),
			"error", err,
		)
	}
	slog.Debug("Listed records", "provider", p.Name(), "domain", domain.Name, "count", len(records), "duration", time.Since(start))
	return records, nil
}
