package monaco

import (
	"sync"
	"time"

	"github.com/fortuna/oddspipeline/pkg/models"
)

// State is the per-market lifecycle (§4.1 "State machine (per market)").
type State int

const (
	StateUnmapped State = iota
	StateInitialized
	StateLive
	StateClosed
)

type marketEntry struct {
	mapping *models.MarketMapping
	state   State
}

// Engine holds the concurrent market-mapping registry and the order
// book registry it drives. Market mappings are read-mostly: many
// readers (every incoming price/status update) against occasional
// writers (market initialization, the 60-minute refresh) — guarded by
// a single RWMutex, matching the "concurrent maps" guidance in §5/§9.
type Engine struct {
	mu sync.RWMutex

	markets       map[string]*marketEntry          // "event-market" -> entry
	eventMarkets  map[string][]string               // event id -> market keys
	byFixtureType map[string][]*models.MarketMapping // "fixtureID-marketType" -> mappings, insertion order

	Books *Books
}

// New returns an empty Engine.
func New() *Engine {
	return &Engine{
		markets:       make(map[string]*marketEntry),
		eventMarkets:  make(map[string][]string),
		byFixtureType: make(map[string][]*models.MarketMapping),
		Books:         NewBooks(),
	}
}

// RegisterMapping installs a freshly-discovered MarketMapping in
// Unmapped state. It is a no-op if the key is already registered (the
// 60-minute refresh re-fetches markets it already knows about).
func (e *Engine) RegisterMapping(m *models.MarketMapping) {
	key := m.Key()

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.markets[key]; exists {
		return
	}
	e.markets[key] = &marketEntry{mapping: m, state: StateUnmapped}
	e.eventMarkets[m.EventID] = append(e.eventMarkets[m.EventID], key)
}

// ResolveFixture attaches fixtureID to every mapping for eventID and
// transitions them Unmapped -> Initialized. Duplicate line values
// within one (fixture, market type) are resolved first-wins: a later
// mapping whose line value matches one already indexed is attached (so
// price updates against it are not silently dropped) but excluded from
// the ordered line-index used for projection.
func (e *Engine) ResolveFixture(eventID string, fixtureID int64) []*models.MarketMapping {
	e.mu.Lock()
	defer e.mu.Unlock()

	var resolved []*models.MarketMapping
	for _, key := range e.eventMarkets[eventID] {
		entry := e.markets[key]
		if entry == nil || entry.state != StateUnmapped {
			continue
		}
		id := fixtureID
		entry.mapping.FixtureID = &id
		entry.state = StateInitialized
		resolved = append(resolved, entry.mapping)

		ftKey := fixtureTypeKey(fixtureID, entry.mapping.MarketType)
		if !e.hasLineValue(ftKey, entry.mapping.LineValue) {
			e.byFixtureType[ftKey] = append(e.byFixtureType[ftKey], entry.mapping)
		}
	}
	return resolved
}

func (e *Engine) hasLineValue(ftKey string, line *float64) bool {
	for _, m := range e.byFixtureType[ftKey] {
		if line == nil && m.LineValue == nil {
			return true
		}
		if line != nil && m.LineValue != nil && *m.LineValue == *line {
			return true
		}
	}
	return false
}

func fixtureTypeKey(fixtureID int64, marketType models.MarketType) string {
	return bookKey(fixtureID, marketType)
}

// MappingsFor returns the insertion-ordered, first-wins-deduplicated
// list of mappings driving a fixture's market type. For x12 this is
// normally a single mapping; for ah/ou it is one mapping per distinct
// line.
func (e *Engine) MappingsFor(fixtureID int64, marketType models.MarketType) []*models.MarketMapping {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*models.MarketMapping, len(e.byFixtureType[fixtureTypeKey(fixtureID, marketType)]))
	copy(out, e.byFixtureType[fixtureTypeKey(fixtureID, marketType)])
	return out
}

// Lookup returns the mapping and current state for one upstream market.
func (e *Engine) Lookup(eventID, marketID string) (*models.MarketMapping, State, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	entry, ok := e.markets[eventID+"-"+marketID]
	if !ok {
		return nil, StateUnmapped, false
	}
	return entry.mapping, entry.state, true
}

// ApplyPriceUpdate applies an incremental price update for one upstream
// market. Returns the mapping, the updated order-book snapshot, and
// whether the update was accepted (false for Unmapped markets, which
// are dropped per §4.1).
func (e *Engine) ApplyPriceUpdate(eventID, marketID string, records []PriceRecord) (*models.MarketMapping, *models.OrderBook, bool) {
	e.mu.Lock()
	entry, ok := e.markets[eventID+"-"+marketID]
	if !ok || entry.state == StateUnmapped {
		e.mu.Unlock()
		return nil, nil, false
	}
	if entry.state == StateInitialized || entry.state == StateClosed {
		entry.state = StateLive
	}
	mapping := entry.mapping
	e.mu.Unlock()

	ob, _ := e.Books.ApplyUpdate(*mapping.FixtureID, mapping.MarketType, records)
	return mapping, ob, true
}

// ApplyStatusUpdate handles a MarketStatusUpdate: if the market closes
// (status != "Open", or inPlayStatus == "InPlay"), the ladder is
// dropped and the market transitions to Closed. Returns the mapping and
// whether the market should be reported as zeroed downstream.
func (e *Engine) ApplyStatusUpdate(eventID, marketID, status, inPlayStatus string) (*models.MarketMapping, bool, bool) {
	e.mu.Lock()
	entry, ok := e.markets[eventID+"-"+marketID]
	if !ok || entry.state == StateUnmapped {
		e.mu.Unlock()
		return nil, false, false
	}
	mapping := entry.mapping
	shouldZero := status != "Open" || inPlayStatus == "InPlay"
	if shouldZero {
		entry.state = StateClosed
	}
	e.mu.Unlock()

	if shouldZero {
		e.Books.Remove(*mapping.FixtureID, mapping.MarketType)
	}
	return mapping, shouldZero, true
}

// ParseValidAt parses a Monaco price's validAt RFC3339 timestamp,
// falling back to the message receipt time if absent or unparseable.
func ParseValidAt(validAt string, receivedAt time.Time) time.Time {
	if validAt == "" {
		return receivedAt
	}
	t, err := time.Parse(time.RFC3339, validAt)
	if err != nil {
		return receivedAt
	}
	return t
}
