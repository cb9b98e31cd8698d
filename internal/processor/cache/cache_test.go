package cache

import (
	"testing"

	"github.com/fortuna/oddspipeline/pkg/models"
)

func update(fixtureID int64, ts int64, x12 [3]int32) *models.NormalizedUpdate {
	v := x12
	return &models.NormalizedUpdate{
		FixtureID: fixtureID,
		Bookmaker: "Monaco",
		Timestamp: ts,
		Decimals:  3,
		X12:       &v,
	}
}

func TestApplyUpdateRecomputesFairOdds(t *testing.T) {
	c := New(10)
	c.ApplyUpdate(update(1, 1000, [3]int32{1900, 3600, 4100}))

	fd, ok := c.Get(1)
	if !ok {
		t.Fatal("expected fixture to be cached")
	}
	bk := fd.Bookmakers["Monaco"]
	if bk.Current.FairX12H == 0 {
		t.Fatal("expected fair x12 to be computed")
	}
}

func TestApplyUpdatePushesHistory(t *testing.T) {
	c := New(10)
	c.ApplyUpdate(update(1, 1000, [3]int32{1900, 3600, 4100}))
	c.ApplyUpdate(update(1, 2000, [3]int32{1950, 3500, 4000}))

	fd, _ := c.Get(1)
	bk := fd.Bookmakers["Monaco"]
	if len(bk.History) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(bk.History))
	}
	if bk.History[0].Timestamp != 1000 {
		t.Fatalf("expected oldest snapshot preserved, got ts=%d", bk.History[0].Timestamp)
	}
	if bk.Current.Timestamp != 2000 {
		t.Fatalf("expected current timestamp updated, got %d", bk.Current.Timestamp)
	}
}

func TestEvictionOldestFirst(t *testing.T) {
	c := New(2)
	c.ApplyUpdate(update(1, 1000, [3]int32{1900, 3600, 4100}))
	c.ApplyUpdate(update(2, 2000, [3]int32{1900, 3600, 4100}))
	c.ApplyUpdate(update(3, 3000, [3]int32{1900, 3600, 4100}))

	if _, ok := c.Get(1); ok {
		t.Fatal("expected fixture 1 to be evicted as oldest")
	}
	if _, ok := c.Get(2); !ok {
		t.Fatal("expected fixture 2 to survive")
	}
	if _, ok := c.Get(3); !ok {
		t.Fatal("expected fixture 3 to survive")
	}
}

func TestEvictionReindexesOnUpdate(t *testing.T) {
	c := New(2)
	c.ApplyUpdate(update(1, 1000, [3]int32{1900, 3600, 4100}))
	c.ApplyUpdate(update(2, 2000, [3]int32{1900, 3600, 4100}))
	// fixture 1 gets touched again, making fixture 2 the oldest
	c.ApplyUpdate(update(1, 5000, [3]int32{1900, 3600, 4100}))
	c.ApplyUpdate(update(3, 6000, [3]int32{1900, 3600, 4100}))

	if _, ok := c.Get(2); ok {
		t.Fatal("expected fixture 2 to be evicted after fixture 1's re-update")
	}
	if _, ok := c.Get(1); !ok {
		t.Fatal("expected fixture 1 to survive")
	}
}
