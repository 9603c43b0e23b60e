package provider

import (
	"context"
	"errors"
	"strings"

	"github.com/libdns/libdns"

	"github.com/0xDTC/0xGodaddy/internal/fetch"
	"github.com/0xDTC/0xGodaddy/internal/record"
)

// Domain is one registered domain or zone held at a provider.
type Domain struct {
	ID   string // provider identifier, empty when the name is the identifier
	Name string // registrable name, lowercase
}

// Provider enumerates the DNS estate held at one vendor.
//
// ListDomains and ListRecords return whatever was gathered before any
// failure alongside the error, and callers keep the partial results. A
// non-nil error means the provider was abandoned mid-run (quota
// exhaustion or cancellation); best-effort truncation after exhausted
// retries is logged by the adapter and not reported as an error.
type Provider interface {
	Name() record.Source
	Check(ctx context.Context) error
	ListDomains(ctx context.Context) ([]Domain, error)
	ListRecords(ctx context.Context, domain Domain) ([]record.Record, error)
}

// Fatal reports whether err ends the provider's whole branch rather than
// just the current collection.
func Fatal(err error) bool {
	return errors.Is(err, fetch.ErrQuotaExhausted) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Subdomain derives the record name relative to zone, mapping the zone
// apex to the empty string. Handles both relative names and the fully
// qualified names some providers return.
func Subdomain(name, zone string) string {
	rel := libdns.RelativeName(strings.ToLower(strings.TrimSpace(name)), strings.ToLower(zone))
	if rel == "@" {
		return ""
	}
	return rel
}

// Registrars seed demo domains into fresh accounts. They never hold real
// records, so they are dropped during domain enumeration.
var placeholderNames = map[string]struct{}{
	"example.com": {},
	"example.net": {},
	"example.org": {},
	"example.edu": {},
}

var placeholderPrefixes = []string{"example.", "test-"}

// Placeholder reports whether name is a well-known demo domain.
func Placeholder(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	if _, ok := placeholderNames[lower]; ok {
		return true
	}
	for _, prefix := range placeholderPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// Dedupe folds out domains already seen, keyed by identifier when present
// and by name otherwise. Providers may repeat a domain across a pagination
// boundary.
func Dedupe(domains []Domain) []Domain {
	seen := make(map[string]struct{}, len(domains))
	out := domains[:0]
	for _, d := range domains {
		key := d.ID
		if key == "" {
			key = d.Name
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, d)
	}
	return out
}
