// Package monaco implements the Monaco order-book engine (§4.1): the
// per-(fixture, market-type) ladder maintenance, market-status gating,
// and projection into canonical market records.
package monaco

import (
	"fmt"
	"sort"
	"sync"

	"github.com/fortuna/oddspipeline/pkg/models"
)

const sideAgainst = "Against"

// PriceRecord is one upstream price entry keyed by the raw outcome id
// (not yet resolved to a position — that happens at projection time via
// the owning MarketMapping).
type PriceRecord struct {
	Side      string
	OutcomeID string
	Price     float64
	Liquidity float64
}

// Books is the concurrent registry of order books keyed by
// (fixture_id, market_type). One mutex guards the whole registry; each
// update holds it only long enough to mutate one ladder and clone a
// snapshot (§5).
type Books struct {
	mu    sync.Mutex
	books map[string]*models.OrderBook
}

// NewBooks returns an empty registry.
func NewBooks() *Books {
	return &Books{books: make(map[string]*models.OrderBook)}
}

func bookKey(fixtureID int64, marketType models.MarketType) string {
	return fmt.Sprintf("%d-%s", fixtureID, marketType)
}

// Initialize aggregates all "Against"-side price records by outcome id,
// summing liquidity at equal prices, drops zero-liquidity levels and
// non-Against sides, sorts each ladder price-descending, and installs
// the resulting book. Any existing book for this key is replaced.
func (b *Books) Initialize(fixtureID int64, marketType models.MarketType, records []PriceRecord) *models.OrderBook {
	ob := &models.OrderBook{
		FixtureID:  fixtureID,
		MarketType: marketType,
		Ladders:    make(map[string]models.Ladder),
	}

	// outcome id -> price -> cumulative liquidity
	agg := make(map[string]map[float64]float64)
	for _, r := range records {
		if r.Side != sideAgainst {
			continue
		}
		prices := agg[r.OutcomeID]
		if prices == nil {
			prices = make(map[float64]float64)
			agg[r.OutcomeID] = prices
		}
		prices[r.Price] += r.Liquidity
	}

	for id, prices := range agg {
		var ladder models.Ladder
		for price, liq := range prices {
			if liq <= 0 {
				continue
			}
			ladder = append(ladder, models.PriceLevel{Price: price, Liquidity: liq})
		}
		sortLadderDesc(ladder)
		if len(ladder) > 0 {
			ob.Ladders[id] = ladder
		}
	}

	b.mu.Lock()
	b.books[bookKey(fixtureID, marketType)] = ob
	b.mu.Unlock()

	return ob.Clone()
}

// ApplyUpdate applies an incremental MarketPriceUpdate (§4.1): entries
// whose side isn't "Against" are ignored; an exact-price match either
// overwrites (liquidity > 0) or removes (liquidity == 0) the level;
// otherwise a new level is inserted if liquidity > 0. Touched ladders
// are re-sorted. A missing book (never initialized, or removed by a
// closing status) is created, so the update re-establishes it. Returns
// the post-update snapshot and true; the boolean is never false.
func (b *Books) ApplyUpdate(fixtureID int64, marketType models.MarketType, records []PriceRecord) (*models.OrderBook, bool) {
	key := bookKey(fixtureID, marketType)

	b.mu.Lock()
	defer b.mu.Unlock()

	ob, ok := b.books[key]
	if !ok {
		ob = &models.OrderBook{
			FixtureID:  fixtureID,
			MarketType: marketType,
			Ladders:    make(map[string]models.Ladder),
		}
		b.books[key] = ob
	}

	touched := make(map[string]bool)
	for _, r := range records {
		if r.Side != sideAgainst {
			continue
		}
		ladder := ob.Ladders[r.OutcomeID]
		idx := indexOfPrice(ladder, r.Price)
		switch {
		case idx >= 0 && r.Liquidity == 0:
			ladder = append(ladder[:idx], ladder[idx+1:]...)
		case idx >= 0:
			ladder[idx].Liquidity = r.Liquidity
		case r.Liquidity > 0:
			ladder = append(ladder, models.PriceLevel{Price: r.Price, Liquidity: r.Liquidity})
		default:
			// no existing level, liquidity <= 0: nothing to do
		}
		ob.Ladders[r.OutcomeID] = ladder
		touched[r.OutcomeID] = true
	}

	for id := range touched {
		sortLadderDesc(ob.Ladders[id])
		if len(ob.Ladders[id]) == 0 {
			delete(ob.Ladders, id)
		}
	}

	return ob.Clone(), true
}

// Get returns a snapshot of the book for a key, if one exists.
func (b *Books) Get(fixtureID int64, marketType models.MarketType) (*models.OrderBook, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ob, ok := b.books[bookKey(fixtureID, marketType)]
	if !ok {
		return nil, false
	}
	return ob.Clone(), true
}

// Remove drops the ladder entirely, per the market-status gating rule:
// a market that is not Open, or is InPlay, has no book (§4.1).
func (b *Books) Remove(fixtureID int64, marketType models.MarketType) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.books, bookKey(fixtureID, marketType))
}

func indexOfPrice(ladder models.Ladder, price float64) int {
	for i, lvl := range ladder {
		if lvl.Price == price {
			return i
		}
	}
	return -1
}

func sortLadderDesc(ladder models.Ladder) {
	sort.Slice(ladder, func(i, j int) bool {
		return ladder[i].Price > ladder[j].Price
	})
}
