package cloudflare

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/0xDTC/0xGodaddy/internal/config"
	"github.com/0xDTC/0xGodaddy/internal/fetch"
	"github.com/0xDTC/0xGodaddy/internal/metrics"
	"github.com/0xDTC/0xGodaddy/internal/provider"
	"github.com/0xDTC/0xGodaddy/internal/record"
)

func testProvider(t *testing.T, baseURL string) *CloudflareProvider {
	t.Helper()
	cfg := config.Cloudflare{BaseURL: baseURL, Token: "tok", ZonePageSize: 2, RecordPageSize: 100}
	opts := fetch.Options{MaxRetries: 1, RetryBase: time.Millisecond, RatePause: time.Millisecond}
	p, err := New(cfg, opts, metrics.New(false), nil)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}
	return p
}

func TestNewRequiresToken(t *testing.T) {
	if _, err := New(config.Cloudflare{BaseURL: "https://api.cloudflare.com/client/v4"}, fetch.Options{}, metrics.New(false), nil); err == nil {
		t.Error("Expected error for missing token")
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name        string
		status      string
		expectError bool
	}{
		{name: "active token", status: "active"},
		{name: "disabled token", status: "disabled", expectError: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/user/tokens/verify" {
					t.Errorf("Expected /user/tokens/verify but got %s", r.URL.Path)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer tok" {
					t.Errorf("Expected bearer auth but got %q", got)
				}
				fmt.Fprintf(w, `{"success": true, "errors": [], "messages": [], "result": {"id": "t1", "status": %q}}`, tt.status)
			}))
			defer server.Close()

			p := testProvider(t, server.URL)
			err := p.Check(context.Background())
			if tt.expectError && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestCheckUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	p := testProvider(t, server.URL)
	if err := p.Check(context.Background()); err == nil {
		t.Error("Expected error for unreachable API")
	}
}

func TestListDomains(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/zones" {
			t.Errorf("Expected /zones but got %s", r.URL.Path)
		}
		query := r.URL.Query()
		if got := query.Get("per_page"); got != "2" {
			t.Errorf("Expected per_page=2 but got %q", got)
		}
		page := 1
		if raw := query.Get("page"); raw != "" {
			page, _ = strconv.Atoi(raw)
		}
		switch page {
		case 1:
			fmt.Fprint(w, `{
				"result": [
					{"id": "z1", "name": "Gamma.IO"},
					{"id": "z2", "name": "example.org"}
				],
				"result_info": {"page": 1, "total_pages": 2}
			}`)
		case 2:
			fmt.Fprint(w, `{
				"result": [
					{"id": "z1", "name": "gamma.io"},
					{"id": "z3", "name": "delta.dev"}
				],
				"result_info": {"page": 2, "total_pages": 2}
			}`)
		}
	}))
	defer server.Close()

	p := testProvider(t, server.URL)
	domains, err := p.ListDomains(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	expected := []provider.Domain{
		{ID: "z1", Name: "gamma.io"},
		{ID: "z3", Name: "delta.dev"},
	}
	if !reflect.DeepEqual(domains, expected) {
		t.Errorf("Expected domains %+v but got %+v", expected, domains)
	}
}

func TestListRecords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/zones/z1/dns_records" {
			t.Errorf("Expected /zones/z1/dns_records but got %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("per_page"); got != "100" {
			t.Errorf("Expected per_page=100 but got %q", got)
		}
		fmt.Fprint(w, `{
			"result": [
				{"id": "r1", "name": "gamma.io", "type": "A", "content": "9.9.9.9"},
				{"id": "r2", "name": "API.gamma.io", "type": "cname", "content": "edge.gamma.io"},
				{"id": "r3", "name": "txt.gamma.io", "type": "TXT", "content": "k=v; x|y"}
			],
			"result_info": {"page": 1, "total_pages": 1}
		}`)
	}))
	defer server.Close()

	p := testProvider(t, server.URL)
	records, err := p.ListRecords(context.Background(), provider.Domain{ID: "z1", Name: "gamma.io"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	expected := []record.Record{
		{Domain: "gamma.io", Subdomain: "", Type: "A", Data: "9.9.9.9", Source: record.SourceCloudflare},
		{Domain: "gamma.io", Subdomain: "api", Type: "CNAME", Data: "edge.gamma.io", Source: record.SourceCloudflare},
		{Domain: "gamma.io", Subdomain: "txt", Type: "TXT", Data: "k=v; x|y", Source: record.SourceCloudflare},
	}
	if !reflect.DeepEqual(records, expected) {
		t.Errorf("Expected records %+v but got %+v", expected, records)
	}
}
