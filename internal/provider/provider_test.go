package provider

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/0xDTC/0xGodaddy/internal/fetch"
)

func TestPlaceholder(t *testing.T) {
	tests := []struct {
		name     string
		domain   string
		expected bool
	}{
		{name: "well known example", domain: "example.com", expected: true},
		{name: "case insensitive", domain: "EXAMPLE.ORG", expected: true},
		{name: "example prefix", domain: "example.dev", expected: true},
		{name: "test prefix", domain: "test-staging.net", expected: true},
		{name: "real domain", domain: "eslack.net", expected: false},
		{name: "test infix is kept", domain: "latest-news.com", expected: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Placeholder(tt.domain); got != tt.expected {
				t.Errorf("Placeholder(%q) = %v, expected %v", tt.domain, got, tt.expected)
			}
		})
	}
}

func TestDedupe(t *testing.T) {
	domains := []Domain{
		{ID: "1", Name: "a.com"},
		{ID: "2", Name: "b.com"},
		{ID: "1", Name: "a.com"},
		{Name: "c.com"},
		{Name: "c.com"},
	}
	expected := []Domain{
		{ID: "1", Name: "a.com"},
		{ID: "2", Name: "b.com"},
		{Name: "c.com"},
	}
	if got := Dedupe(domains); !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected %+v but got %+v", expected, got)
	}
}

func TestSubdomain(t *testing.T) {
	tests := []struct {
		name     string
		zone     string
		expected string
	}{
		{name: "@", zone: "a.com", expected: ""},
		{name: "a.com", zone: "a.com", expected: ""},
		{name: "a.com.", zone: "a.com", expected: ""},
		{name: "www", zone: "a.com", expected: "www"},
		{name: "WWW.A.COM", zone: "a.com", expected: "www"},
		{name: "deep.sub.a.com", zone: "a.com", expected: "deep.sub"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s in %s", tt.name, tt.zone), func(t *testing.T) {
			if got := Subdomain(tt.name, tt.zone); got != tt.expected {
				t.Errorf("Subdomain(%q, %q) = %q, expected %q", tt.name, tt.zone, got, tt.expected)
			}
		})
	}
}

func TestFatal(t *testing.T) {
	if !Fatal(fmt.Errorf("abandoned: %w", fetch.ErrQuotaExhausted)) {
		t.Error("Expected quota exhaustion to be fatal")
	}
	if !Fatal(context.Canceled) {
		t.Error("Expected cancellation to be fatal")
	}
	if Fatal(errors.New("giving up after 4 retries")) {
		t.Error("Expected plain truncation not fatal")
	}
}
