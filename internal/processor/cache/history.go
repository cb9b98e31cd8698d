package cache

import "time"

// HistoryProvider implements pkg/contracts.HistoryProvider over one
// fixture's cached bookmakers, decoupling the filter evaluator's
// history() operator from the cache's storage shape (§9 "History
// provider").
type HistoryProvider struct {
	fixture *FixtureData
}

// NewHistoryProvider binds a HistoryProvider to one fixture snapshot,
// valid only while the caller holds the cache's read lock.
func NewHistoryProvider(fixture *FixtureData) *HistoryProvider {
	return &HistoryProvider{fixture: fixture}
}

// GetSnapshot returns the oldest history entry for bookmaker whose age
// relative to now is <= maxAgeMs (§4.7 "history operator").
func (h *HistoryProvider) GetSnapshot(bookmaker string, maxAgeMs int64) (interface{}, bool) {
	bk, ok := h.fixture.Bookmakers[bookmaker]
	if !ok {
		return nil, false
	}

	now := time.Now().UnixMilli()
	var best *Snapshot
	var bestAge int64 = -1
	for i := range bk.History {
		snap := bk.History[i]
		age := now - snap.Timestamp
		if age < 0 || age > maxAgeMs {
			continue
		}
		if age > bestAge {
			bestAge = age
			best = &bk.History[i]
		}
	}
	if best == nil {
		return nil, false
	}
	return snapshotToMap(*best), true
}
