// Package canonical implements the merge/snapshot discipline over the
// persisted Canonical Odds Record (§4.2): append-or-replace-by-t,
// Pinnacle history compaction, and market-zeroing.
package canonical

import (
	"sort"

	"github.com/fortuna/oddspipeline/pkg/models"
)

// MergeX12 appends or replaces entry in place by matching t, then
// resorts by t. No deduplication across distinct t values.
func MergeX12(entries []models.X12Entry, entry models.X12Entry) []models.X12Entry {
	for i := range entries {
		if entries[i].T == entry.T {
			entries[i] = entry
			sortX12(entries)
			return entries
		}
	}
	entries = append(entries, entry)
	sortX12(entries)
	return entries
}

func sortX12(entries []models.X12Entry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].T < entries[j].T })
}

// MergeAH appends or replaces entry in place by matching t, resorting
// by t afterward.
func MergeAH(entries []models.AHEntry, entry models.AHEntry) []models.AHEntry {
	for i := range entries {
		if entries[i].T == entry.T {
			entries[i] = entry
			sortAH(entries)
			return entries
		}
	}
	entries = append(entries, entry)
	sortAH(entries)
	return entries
}

func sortAH(entries []models.AHEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].T < entries[j].T })
}

// MergeOU appends or replaces entry in place by matching t, resorting
// by t afterward.
func MergeOU(entries []models.OUEntry, entry models.OUEntry) []models.OUEntry {
	for i := range entries {
		if entries[i].T == entry.T {
			entries[i] = entry
			sortOU(entries)
			return entries
		}
	}
	entries = append(entries, entry)
	sortOU(entries)
	return entries
}

func sortOU(entries []models.OUEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].T < entries[j].T })
}

// X12EqualIgnoringT reports whether two entries carry the same odds values,
// disregarding their timestamp — used by the Pinnacle compaction rule,
// which skips appending a no-op history entry.
func X12EqualIgnoringT(a, b models.X12Entry) bool {
	if (a.X12 == nil) != (b.X12 == nil) {
		return false
	}
	return a.X12 == nil || *a.X12 == *b.X12
}

func AHEqualIgnoringT(a, b models.AHEntry) bool {
	return float32SliceEqual32(a.AHH, b.AHH) && float32SliceEqual32(a.AHA, b.AHA)
}

func OUEqualIgnoringT(a, b models.OUEntry) bool {
	return float32SliceEqual32(a.OUO, b.OUO) && float32SliceEqual32(a.OUU, b.OUU)
}

func float32SliceEqual32(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// MergePinnacleX12 applies the Pinnacle-path compaction rule: compare
// the new entry to the latest existing entry ignoring t; skip the
// append if they're equal (§4.2).
func MergePinnacleX12(entries []models.X12Entry, entry models.X12Entry) []models.X12Entry {
	if len(entries) > 0 && X12EqualIgnoringT(entries[len(entries)-1], entry) {
		return entries
	}
	return MergeX12(entries, entry)
}

func MergePinnacleAH(entries []models.AHEntry, entry models.AHEntry) []models.AHEntry {
	if len(entries) > 0 && AHEqualIgnoringT(entries[len(entries)-1], entry) {
		return entries
	}
	return MergeAH(entries, entry)
}

func MergePinnacleOU(entries []models.OUEntry, entry models.OUEntry) []models.OUEntry {
	if len(entries) > 0 && OUEqualIgnoringT(entries[len(entries)-1], entry) {
		return entries
	}
	return MergeOU(entries, entry)
}

// ZeroX12 returns a market-zeroing x12 entry: all-zero odds, current
// timestamp.
func ZeroX12(t int64) models.X12Entry {
	return models.X12Entry{T: t, X12: &[3]int32{0, 0, 0}}
}

// ZeroAH returns a market-zeroing ah entry for n active lines: zeroed
// home/away vectors of the same length, keeping line count intact.
func ZeroAH(t int64, lineCount int) models.AHEntry {
	return models.AHEntry{T: t, AHH: make([]int32, lineCount), AHA: make([]int32, lineCount)}
}

// ZeroOU returns a market-zeroing ou entry for n active lines.
func ZeroOU(t int64, lineCount int) models.OUEntry {
	return models.OUEntry{T: t, OUO: make([]int32, lineCount), OUU: make([]int32, lineCount)}
}

// ZeroMaxStakes returns a zeroed max_stakes entry shaped like the given
// existing one (preserving which market-type arms are populated).
func ZeroMaxStakes(t int64, existing models.MaxStakesEntry) models.MaxStakesEntry {
	out := models.MaxStakesEntry{T: t}
	if existing.MaxStakeX12 != nil {
		out.MaxStakeX12 = &[3]float64{0, 0, 0}
	}
	if existing.MaxStakeAH != nil {
		out.MaxStakeAH = &models.MaxStakeAHOU{
			H: make([]float64, len(existing.MaxStakeAH.H)),
			A: make([]float64, len(existing.MaxStakeAH.A)),
		}
	}
	if existing.MaxStakeOU != nil {
		out.MaxStakeOU = &models.MaxStakeAHOU{
			H: make([]float64, len(existing.MaxStakeOU.H)),
			A: make([]float64, len(existing.MaxStakeOU.A)),
		}
	}
	return out
}
