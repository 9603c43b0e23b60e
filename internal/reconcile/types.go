package reconcile

import (
	"github.com/0xDTC/0xGodaddy/internal/record"
)

type Results struct {
	Records []record.Record // the next snapshot, sorted
	Added   []record.Record // first observed this run
	Removed []record.Record // newly marked removed this run
}

// Counts tallies the next snapshot by lifecycle status.
func (r Results) Counts() (active, removed int) {
	for _, rec := range r.Records {
		switch rec.Status {
		case record.StatusRemoved:
			removed++
		default:
			active++
		}
	}
	return active, removed
}
