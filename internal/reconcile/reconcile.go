// Package reconcile merges freshly fetched events into the persisted ledger.
package reconcile

import (
	"sort"
	"time"

	"github.com/khoirulanam-dev/CTF-Polije/internal/model"
)

// DefaultLimit is the ledger retention cap.
const DefaultLimit = 100

type Result struct {
	Ledger []model.Event // merged, time-ascending, at most limit entries
	New    []model.Event // entries of Ledger that the old ledger did not know
}

// Merge unions old and fetched by id. The first copy of an id wins, so an
// already-known event is never replaced by a refetch. The union is sorted by
// time and the newest limit entries are kept.
//
// New is taken from the truncated ledger against the ids known before the
// merge: an event too old to make the window is not reported, which keeps it
// from being announced again on every fetch.
func Merge(old, fetched []model.Event, limit int) Result {
	if limit <= 0 {
		limit = DefaultLimit
	}

	known := make(map[string]struct{}, len(old))
	for _, e := range old {
		known[e.ID] = struct{}{}
	}

	seen := make(map[string]struct{}, len(old)+len(fetched))
	merged := make([]model.Event, 0, len(old)+len(fetched))
	for _, batch := range [][]model.Event{old, fetched} {
		for _, e := range batch {
			if _, dup := seen[e.ID]; dup {
				continue
			}
			seen[e.ID] = struct{}{}
			merged = append(merged, e)
		}
	}

	times := make(map[string]time.Time, len(merged))
	for _, e := range merged {
		t, _ := e.Timestamp()
		times[e.ID] = t
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return times[merged[i].ID].Before(times[merged[j].ID])
	})
	if len(merged) > limit {
		merged = merged[len(merged)-limit:]
	}

	var fresh []model.Event
	for _, e := range merged {
		if _, ok := known[e.ID]; !ok {
			fresh = append(fresh, e)
		}
	}
	return Result{Ledger: merged, New: fresh}
}
