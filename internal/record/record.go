package record

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sort"
)

// DateFormat is the calendar-date layout used for discovery dates.
const DateFormat = "2006-01-02"

// Source identifies the provider a record was observed at.
type Source string

const (
	SourceGoDaddy    Source = "GoDaddy"
	SourceCloudflare Source = "Cloudflare"
)

// Status is the lifecycle state of a record across inventory runs.
type Status string

const (
	StatusActive  Status = "active"
	StatusRemoved Status = "removed"
)

// Record is one DNS resource record as observed from one provider.
// Domain is the registered zone name, lower-case. Subdomain is the host
// label relative to the zone; the zone apex is the empty string, never "@".
type Record struct {
	Domain        string `json:"domain"`
	Subdomain     string `json:"subdomain"`
	Type          string `json:"type"`
	Data          string `json:"data"`
	Source        Source `json:"source"`
	DiscoveryDate string `json:"discoveryDate"`
	Status        Status `json:"status"`
}

// Signature is the record's identity: a hash over the ordered tuple
// (domain, subdomain, type, data, source). Status and discovery date are
// excluded so they can change between runs without changing identity.
// Fields are length-prefixed before hashing; field values may contain
// any byte, TXT data included, without colliding.
func (r Record) Signature() string {
	h := sha256.New()
	for _, field := range []string{r.Domain, r.Subdomain, r.Type, r.Data, string(r.Source)} {
		var n [4]byte
		binary.LittleEndian.PutUint32(n[:], uint32(len(field)))
		h.Write(n[:])
		h.Write([]byte(field))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Sort orders records by (domain, subdomain) ascending, case-sensitive,
// with type, data and source as tie-breakers so the order is total and
// snapshots are byte-stable across runs.
func Sort(recs []Record) {
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.Domain != b.Domain {
			return a.Domain < b.Domain
		}
		if a.Subdomain != b.Subdomain {
			return a.Subdomain < b.Subdomain
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Data != b.Data {
			return a.Data < b.Data
		}
		return a.Source < b.Source
	})
}
