package cache

import (
	"sort"
	"sync"

	"github.com/fortuna/oddspipeline/pkg/models"
)

// evictKey is one entry of the eviction index: oldest-last_update-first,
// fixture id breaking ties.
type evictKey struct {
	lastUpdate int64
	fixtureID  int64
}

func (a evictKey) less(b evictKey) bool {
	if a.lastUpdate != b.lastUpdate {
		return a.lastUpdate < b.lastUpdate
	}
	return a.fixtureID < b.fixtureID
}

// Cache is the bounded, reader-writer-locked fixture cache (§4.4, §5).
// The eviction index is a sorted slice rather than a true ordered map:
// nothing in the example pack offers a BTree/skip-list/ordered-map
// type, and max_fixtures defaults to 1000 — small enough that a sorted
// slice with binary-search insert/remove is the right tool, not a
// workaround (see DESIGN.md).
type Cache struct {
	mu sync.RWMutex

	fixtures    map[int64]*FixtureData
	evictionIdx []evictKey
	maxFixtures int
}

// New returns an empty Cache bounded at maxFixtures.
func New(maxFixtures int) *Cache {
	return &Cache{
		fixtures:    make(map[int64]*FixtureData),
		maxFixtures: maxFixtures,
	}
}

// ApplyUpdate applies a normalized update from the wire (§4.4 steps 1-7).
func (c *Cache) ApplyUpdate(update *models.NormalizedUpdate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fd, exists := c.fixtures[update.FixtureID]
	if !exists {
		if len(c.fixtures) >= c.maxFixtures {
			c.evictOldestLocked()
		}
		fd = &FixtureData{FixtureID: update.FixtureID, Bookmakers: make(map[string]*BookmakerOdds)}
		c.fixtures[update.FixtureID] = fd
	} else {
		c.removeEvictionEntryLocked(evictKey{lastUpdate: fd.LastUpdate, fixtureID: fd.FixtureID})
	}

	bk, ok := fd.Bookmakers[update.Bookmaker]
	if !ok {
		bk = &BookmakerOdds{}
		fd.Bookmakers[update.Bookmaker] = bk
	}

	if bk.Current.Timestamp != 0 {
		bk.History = append([]Snapshot{bk.Current}, bk.History...)
		if len(bk.History) > historyCap {
			bk.History = bk.History[:historyCap]
		}
	}

	applyColumns(&bk.Current, update)

	recomputeFairX12(&bk.Current)
	bk.Current.FairAHH, bk.Current.FairAHA = recomputeFairPerLine(bk.Current.AHLines, bk.Current.AHH, bk.Current.AHA)
	bk.Current.FairOUO, bk.Current.FairOUU = recomputeFairPerLine(bk.Current.OULines, bk.Current.OUO, bk.Current.OUU)

	fd.LastUpdate = update.Timestamp
	c.insertEvictionEntryLocked(evictKey{lastUpdate: fd.LastUpdate, fixtureID: fd.FixtureID})
}

func applyColumns(cur *Snapshot, u *models.NormalizedUpdate) {
	if u.X12 != nil {
		cur.X12H, cur.X12X, cur.X12A = u.X12[0], u.X12[1], u.X12[2]
	}
	if u.AHLines != nil {
		cur.AHLines, cur.AHH, cur.AHA = u.AHLines, u.AHH, u.AHA
	}
	if u.OULines != nil {
		cur.OULines, cur.OUO, cur.OUU = u.OULines, u.OUO, u.OUU
	}
	if u.IDs != nil {
		cur.IDs = u.IDs
	}
	if u.MaxStakes != nil {
		cur.MaxStakes = u.MaxStakes
	}
	if u.LatestT != nil {
		cur.LatestT = *u.LatestT
	}
	cur.Timestamp = u.Timestamp
	cur.Start = u.Start
}

func (c *Cache) evictOldestLocked() {
	if len(c.evictionIdx) == 0 {
		return
	}
	oldest := c.evictionIdx[0]
	c.evictionIdx = c.evictionIdx[1:]
	delete(c.fixtures, oldest.fixtureID)
}

func (c *Cache) insertEvictionEntryLocked(key evictKey) {
	i := sort.Search(len(c.evictionIdx), func(i int) bool { return !c.evictionIdx[i].less(key) })
	c.evictionIdx = append(c.evictionIdx, evictKey{})
	copy(c.evictionIdx[i+1:], c.evictionIdx[i:])
	c.evictionIdx[i] = key
}

func (c *Cache) removeEvictionEntryLocked(key evictKey) {
	i := sort.Search(len(c.evictionIdx), func(i int) bool { return !c.evictionIdx[i].less(key) })
	if i < len(c.evictionIdx) && c.evictionIdx[i] == key {
		c.evictionIdx = append(c.evictionIdx[:i], c.evictionIdx[i+1:]...)
	}
}

// Get returns the fixture's data under the read lock's protection. The
// caller must not retain bookmaker slices beyond the call without
// copying — Snapshot fields are shared with the cache's internal state.
func (c *Cache) Get(fixtureID int64) (*FixtureData, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fd, ok := c.fixtures[fixtureID]
	return fd, ok
}

// Snapshot copies the current set of cached fixture pointers under the
// read lock (the FixtureData values themselves are shared, not copied), for
// callers (like a new WS subscriber) that need to iterate every cached
// fixture without holding the lock for the whole iteration.
func (c *Cache) Snapshot() []*FixtureData {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*FixtureData, 0, len(c.fixtures))
	for _, fd := range c.fixtures {
		out = append(out, fd)
	}
	return out
}
