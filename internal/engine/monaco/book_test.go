package monaco_test

import (
	"testing"

	"github.com/fortuna/oddspipeline/internal/engine/monaco"
	"github.com/fortuna/oddspipeline/pkg/models"
)

func TestBooksInitializeAggregatesAgainstSide(t *testing.T) {
	b := monaco.NewBooks()

	ob := b.Initialize(42, models.MarketX12, []monaco.PriceRecord{
		{Side: "Against", OutcomeID: "O1", Price: 1.95, Liquidity: 50},
		{Side: "Against", OutcomeID: "O1", Price: 1.80, Liquidity: 100},
		{Side: "Against", OutcomeID: "O2", Price: 3.40, Liquidity: 80},
		{Side: "Against", OutcomeID: "O3", Price: 4.20, Liquidity: 60},
		{Side: "Back", OutcomeID: "O1", Price: 10, Liquidity: 999}, // dropped, different side
	})

	best, ok := ob.BestPrice("O1")
	if !ok || best.Price != 1.95 || best.Liquidity != 50 {
		t.Fatalf("outcome O1 best = %+v, ok=%v", best, ok)
	}
	if len(ob.Ladders["O1"]) != 2 {
		t.Fatalf("expected 2 levels for O1, got %d", len(ob.Ladders["O1"]))
	}
}

func TestBooksApplyUpdateExactPriceOverwriteAndRemove(t *testing.T) {
	b := monaco.NewBooks()
	b.Initialize(1, models.MarketX12, []monaco.PriceRecord{
		{Side: "Against", OutcomeID: "O1", Price: 2.0, Liquidity: 10},
	})

	ob, ok := b.ApplyUpdate(1, models.MarketX12, []monaco.PriceRecord{
		{Side: "Against", OutcomeID: "O1", Price: 2.0, Liquidity: 25},
	})
	if !ok {
		t.Fatal("expected ok")
	}
	if lvl, _ := ob.BestPrice("O1"); lvl.Liquidity != 25 {
		t.Fatalf("overwrite failed, got liquidity %v", lvl.Liquidity)
	}

	ob, ok = b.ApplyUpdate(1, models.MarketX12, []monaco.PriceRecord{
		{Side: "Against", OutcomeID: "O1", Price: 2.0, Liquidity: 0},
	})
	if !ok {
		t.Fatal("expected ok")
	}
	if _, ok := ob.BestPrice("O1"); ok {
		t.Fatal("expected level to be removed when liquidity == 0")
	}
}

func TestBooksApplyUpdateInsertsNewLevel(t *testing.T) {
	b := monaco.NewBooks()
	b.Initialize(1, models.MarketX12, []monaco.PriceRecord{
		{Side: "Against", OutcomeID: "O1", Price: 2.0, Liquidity: 10},
	})

	ob, _ := b.ApplyUpdate(1, models.MarketX12, []monaco.PriceRecord{
		{Side: "Against", OutcomeID: "O1", Price: 2.2, Liquidity: 5},
	})

	ladder := ob.Ladders["O1"]
	if len(ladder) != 2 {
		t.Fatalf("expected 2 levels, got %d", len(ladder))
	}
	if ladder[0].Price != 2.2 {
		t.Fatalf("expected best price 2.2 after re-sort, got %v", ladder[0].Price)
	}
}

func TestLadderOrderingInvariant(t *testing.T) {
	b := monaco.NewBooks()
	b.Initialize(1, models.MarketX12, []monaco.PriceRecord{
		{Side: "Against", OutcomeID: "O1", Price: 1.5, Liquidity: 10},
		{Side: "Against", OutcomeID: "O1", Price: 2.5, Liquidity: 10},
		{Side: "Against", OutcomeID: "O1", Price: 2.0, Liquidity: 10},
	})
	ob, _ := b.ApplyUpdate(1, models.MarketX12, []monaco.PriceRecord{
		{Side: "Against", OutcomeID: "O1", Price: 1.8, Liquidity: 5},
	})

	ladder := ob.Ladders["O1"]
	for i := 1; i < len(ladder); i++ {
		if ladder[i-1].Price <= ladder[i].Price {
			t.Fatalf("ladder not strictly descending at %d: %+v", i, ladder)
		}
	}
	for _, lvl := range ladder {
		if lvl.Liquidity <= 0 {
			t.Fatalf("ladder has non-positive liquidity level: %+v", lvl)
		}
	}
}

func TestBooksRemoveDropsLadder(t *testing.T) {
	b := monaco.NewBooks()
	b.Initialize(1, models.MarketX12, []monaco.PriceRecord{
		{Side: "Against", OutcomeID: "O1", Price: 2.0, Liquidity: 10},
	})
	b.Remove(1, models.MarketX12)

	if _, ok := b.Get(1, models.MarketX12); ok {
		t.Fatal("expected book to be gone after Remove")
	}
}
