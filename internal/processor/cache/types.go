// Package cache is the Processor's bounded in-memory fixture cache
// (§4.4): the most recently updated fixtures, every bookmaker's current
// snapshot and 20-deep history, fair-odds recomputed on every apply.
package cache

import "github.com/fortuna/oddspipeline/pkg/models"

// Snapshot is one bookmaker's odds state at a point in time: the same
// columns as the canonical record, flattened to scalars/vectors for the
// outgoing WS message shape rather than the time-series column shape
// the persisted row uses.
type Snapshot struct {
	X12H, X12X, X12A          int32
	FairX12H, FairX12X, FairX12A int32

	AHLines        []float64
	AHH, AHA       []int32
	FairAHH, FairAHA []int32

	OULines        []float64
	OUO, OUU       []int32
	FairOUO, FairOUU []int32

	IDs       *models.IDsEntry
	MaxStakes *models.MaxStakesEntry
	LatestT   models.LatestT

	Timestamp int64 // upstream update time
	Start     int64 // bookmaker-publish time, for latency measurement
}

// BookmakerOdds is the current snapshot plus its bounded history,
// newest entry at index 0.
type BookmakerOdds struct {
	Current Snapshot
	History []Snapshot
}

const historyCap = 20

// FixtureData is one cached fixture: every bookmaker reporting on it,
// keyed by label, plus the last time any of them updated (the eviction
// key).
type FixtureData struct {
	FixtureID  int64
	Bookmakers map[string]*BookmakerOdds
	LastUpdate int64
}
