// Package ingest is the Engine's orchestration layer: it wires the
// Monaco stream handler and the Pinnacle poll sink to the shared
// read-modify-write persistence cycle and the Processor publisher,
// so neither upstream package needs to know about storage or the wire
// format downstream.
package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fortuna/oddspipeline/internal/engine/canonical"
	"github.com/fortuna/oddspipeline/internal/engine/monaco"
	"github.com/fortuna/oddspipeline/internal/engine/persistence"
	"github.com/fortuna/oddspipeline/internal/engine/pinnacle"
	"github.com/fortuna/oddspipeline/internal/engine/publisher"
	"github.com/fortuna/oddspipeline/internal/platform/logx"
	"github.com/fortuna/oddspipeline/pkg/models"
	"github.com/fortuna/oddspipeline/pkg/oddsmath"
)

// Fixed bookie ids for the two upstream venues this pipeline tracks;
// there is no catalog of arbitrary bookmakers so these are constants
// rather than a lookup.
const (
	MonacoBookieID   int64 = 1
	PinnacleBookieID int64 = 2

	// Decimals is the fixed-point scale every persisted/published odds
	// value is encoded at (§4.2 "decimals ... 3").
	Decimals = 3
)

// FixtureResolver is the opaque fixture/team-name matcher both venues
// depend on; its real implementation (fuzzy text match against a
// catalog) is out of scope for this pipeline.
type FixtureResolver func(eventID string) (fixtureID int64, ok bool)

// Pipeline bundles the shared collaborators both venue handlers write
// through: the persistence bridge and the Processor publisher.
type Pipeline struct {
	store *persistence.Store
	pub   *publisher.Publisher
	log   *logx.Logger
}

// NewPipeline returns a Pipeline over store and pub.
func NewPipeline(store *persistence.Store, pub *publisher.Publisher) *Pipeline {
	return &Pipeline{store: store, pub: pub, log: logx.New("ingest")}
}

// apply runs fn inside a read-modify-write transaction for
// (fixtureID, bookmaker) and publishes the resulting update on success.
// A persistence error is logged and swallowed (§7 "the in-memory order
// book is unaffected; retry happens on the next update").
func (p *Pipeline) apply(fixtureID int64, bookmaker string, fn func(row *persistence.ExistingRow, update *models.NormalizedUpdate)) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	update := &models.NormalizedUpdate{
		FixtureID: fixtureID,
		Bookmaker: bookmaker,
		Timestamp: time.Now().UnixMilli(),
		Decimals:  Decimals,
	}
	if bookmaker == "Monaco" {
		update.BookieID = MonacoBookieID
	} else {
		update.BookieID = PinnacleBookieID
	}

	err := p.store.WithTx(ctx, func(tx *sql.Tx) error {
		row, err := p.store.ReadRow(ctx, tx, fixtureID, bookmaker)
		if err != nil {
			return fmt.Errorf("read row: %w", err)
		}
		fn(row, update)
		return p.store.WriteRow(ctx, tx, fixtureID, bookmaker, row)
	})
	if err != nil {
		p.log.Errorf("persist %s/%d failed: %v", bookmaker, fixtureID, err)
		return
	}

	if err := p.pub.Publish(update); err != nil {
		p.log.Warnf("publish %s/%d: %v", bookmaker, fixtureID, err)
	}
}

// EnsureRecord creates the backing row the first time a fixture/bookmaker
// pair is seen (§4.2 "Record created on first successful fixture
// resolution for a bookmaker").
func (p *Pipeline) EnsureRecord(ctx context.Context, fixtureID, bookieID int64, bookmaker string, lines models.LinesEntry, t int64) {
	if err := p.store.EnsureFixtureOddsRecord(ctx, fixtureID, bookieID, bookmaker, Decimals, lines, t); err != nil {
		p.log.Errorf("ensure odds record %s/%d: %v", bookmaker, fixtureID, err)
	}
}

// MonacoHandler implements monaco.StreamHandler, projecting order-book
// snapshots into the canonical record on every price/status update.
type MonacoHandler struct {
	engine   *monaco.Engine
	pipeline *Pipeline
	log      *logx.Logger
}

// NewMonacoHandler returns a MonacoHandler driving engine through pipeline.
func NewMonacoHandler(engine *monaco.Engine, pipeline *Pipeline) *MonacoHandler {
	return &MonacoHandler{engine: engine, pipeline: pipeline, log: logx.New("monaco-ingest")}
}

// HandlePriceUpdate applies an incremental price update to the owning
// order book and, if the market is mapped, projects and persists it.
func (h *MonacoHandler) HandlePriceUpdate(update monaco.MarketPriceUpdate, receivedAt time.Time) {
	records := make([]monaco.PriceRecord, 0, len(update.Prices))
	for _, p := range update.Prices {
		records = append(records, monaco.PriceRecord{
			Side:      p.Side,
			OutcomeID: p.OutcomeID,
			Price:     p.Price,
			Liquidity: p.Liquidity,
		})
	}

	mapping, ob, ok := h.engine.ApplyPriceUpdate(update.EventID, update.MarketID, records)
	if !ok {
		return // Unmapped or unknown market: dropped (§4.1)
	}
	h.project(mapping, ob, receivedAt)
}

// HandleStatusUpdate closes the market's book on a closing status and
// publishes a zeroed projection, preserving line values/counts.
func (h *MonacoHandler) HandleStatusUpdate(update monaco.MarketStatusUpdate) {
	mapping, shouldZero, ok := h.engine.ApplyStatusUpdate(update.EventID, update.MarketID, update.Status, update.InPlayStatus)
	if !ok || !shouldZero {
		return
	}
	h.projectZero(mapping, time.Now())
}

func (h *MonacoHandler) project(mapping *models.MarketMapping, ob *models.OrderBook, at time.Time) {
	if mapping.FixtureID == nil {
		return
	}
	fixtureID := *mapping.FixtureID
	t := at.UnixMilli()

	h.pipeline.apply(fixtureID, "Monaco", func(row *persistence.ExistingRow, update *models.NormalizedUpdate) {
		switch mapping.MarketType {
		case models.MarketX12:
			x12 := monaco.ProjectX12(ob, mapping, Decimals)
			row.OddsX12 = canonical.MergeX12(row.OddsX12, models.X12Entry{T: t, X12: &x12})
			row.LatestT.X12Ts = &t
			update.X12 = &x12

			stakes := monaco.ProjectMaxStakesX12(ob, mapping)
			row.MaxStakes = []models.MaxStakesEntry{{T: t, MaxStakeX12: &stakes}}
			row.LatestT.StakesTs = &t
			update.MaxStakes = &row.MaxStakes[len(row.MaxStakes)-1]

		case models.MarketAH, models.MarketOU:
			mappings := h.engine.MappingsFor(fixtureID, mapping.MarketType)
			lines := monaco.BuildLines(mappings)
			home, away := monaco.ProjectAHOU(ob, mappings, lines, Decimals)
			stakeH, stakeA := monaco.ProjectMaxStakesAHOU(ob, mappings, lines)

			if mapping.MarketType == models.MarketAH {
				row.OddsAH = canonical.MergeAH(row.OddsAH, models.AHEntry{T: t, AHH: home, AHA: away})
				row.LatestT.AHTs = &t
				update.AHLines, update.AHH, update.AHA = lines, home, away
				row.MaxStakes = []models.MaxStakesEntry{{T: t, MaxStakeAH: &models.MaxStakeAHOU{H: stakeH, A: stakeA}}}
			} else {
				row.OddsOU = canonical.MergeOU(row.OddsOU, models.OUEntry{T: t, OUO: home, OUU: away})
				row.LatestT.OUTs = &t
				update.OULines, update.OUO, update.OUU = lines, home, away
				row.MaxStakes = []models.MaxStakesEntry{{T: t, MaxStakeOU: &models.MaxStakeAHOU{H: stakeH, A: stakeA}}}
			}
			row.LatestT.StakesTs = &t
			update.MaxStakes = &row.MaxStakes[len(row.MaxStakes)-1]

			lineEntry := models.LinesEntry{T: t}
			if mapping.MarketType == models.MarketAH {
				lineEntry.AH = lines
			} else {
				lineEntry.OU = lines
			}
			row.Lines = append(row.Lines, lineEntry)
			row.LatestT.LinesTs = &t
		}
	})
}

// projectZero mirrors project but writes all-zero values for the
// market's current line set, used on market closure.
func (h *MonacoHandler) projectZero(mapping *models.MarketMapping, at time.Time) {
	if mapping.FixtureID == nil {
		return
	}
	fixtureID := *mapping.FixtureID
	t := at.UnixMilli()

	h.pipeline.apply(fixtureID, "Monaco", func(row *persistence.ExistingRow, update *models.NormalizedUpdate) {
		switch mapping.MarketType {
		case models.MarketX12:
			entry := canonical.ZeroX12(t)
			row.OddsX12 = canonical.MergeX12(row.OddsX12, entry)
			row.LatestT.X12Ts = &t
			update.X12 = entry.X12

		case models.MarketAH, models.MarketOU:
			mappings := h.engine.MappingsFor(fixtureID, mapping.MarketType)
			lines := monaco.BuildLines(mappings)
			lineCount := len(lines)
			if mapping.MarketType == models.MarketAH {
				entry := canonical.ZeroAH(t, lineCount)
				row.OddsAH = canonical.MergeAH(row.OddsAH, entry)
				row.LatestT.AHTs = &t
				update.AHLines, update.AHH, update.AHA = lines, entry.AHH, entry.AHA
			} else {
				entry := canonical.ZeroOU(t, lineCount)
				row.OddsOU = canonical.MergeOU(row.OddsOU, entry)
				row.LatestT.OUTs = &t
				update.OULines, update.OUO, update.OUU = lines, entry.OUO, entry.OUU
			}
		}

		if len(row.MaxStakes) > 0 {
			zeroed := canonical.ZeroMaxStakes(t, row.MaxStakes[len(row.MaxStakes)-1])
			row.MaxStakes = []models.MaxStakesEntry{zeroed}
			row.LatestT.StakesTs = &t
			update.MaxStakes = &row.MaxStakes[0]
		}
	})
}

// MarketInitResult pairs a newly-resolved fixture with its line set, the
// two values a persisted row is created from.
type MarketInitResult struct {
	FixtureID int64
	Lines     models.LinesEntry
}

// PinnacleSink returns a pinnacle.OddsSink bound to pipeline, translating
// a Pinnacle period into the same canonical projection the Monaco path
// produces.
func PinnacleSink(pipeline *Pipeline) pinnacle.OddsSink {
	return func(fixtureID int64, period pinnacle.Period, closed bool) {
		t := time.Now().UnixMilli()

		pipeline.apply(fixtureID, "Pinnacle", func(row *persistence.ExistingRow, update *models.NormalizedUpdate) {
			if period.MoneyLine != nil {
				x12 := encodeMoneyLine(period.MoneyLine)
				entry := models.X12Entry{T: t, X12: &x12}
				row.OddsX12 = canonical.MergePinnacleX12(row.OddsX12, entry)
				row.LatestT.X12Ts = &t
				update.X12 = &x12
			}

			if len(period.Spreads) > 0 {
				lines, home, away := encodeSpreads(period.Spreads)
				entry := models.AHEntry{T: t, AHH: home, AHA: away}
				row.OddsAH = canonical.MergePinnacleAH(row.OddsAH, entry)
				row.LatestT.AHTs = &t
				update.AHLines, update.AHH, update.AHA = lines, home, away
				row.Lines = append(row.Lines, models.LinesEntry{T: t, AH: lines})
				row.LatestT.LinesTs = &t
			}

			if len(period.Totals) > 0 {
				lines, over, under := encodeTotals(period.Totals)
				entry := models.OUEntry{T: t, OUO: over, OUU: under}
				row.OddsOU = canonical.MergePinnacleOU(row.OddsOU, entry)
				row.LatestT.OUTs = &t
				update.OULines, update.OUO, update.OUU = lines, over, under
				row.Lines = append(row.Lines, models.LinesEntry{T: t, OU: lines})
				row.LatestT.LinesTs = &t
			}
		})
	}
}

func encodeMoneyLine(ml *pinnacle.MoneyLine) [3]int32 {
	var out [3]int32
	if ml.Home != nil {
		out[0] = oddsmath.EncodeDecimal(*ml.Home, Decimals)
	}
	if ml.Draw != nil {
		out[1] = oddsmath.EncodeDecimal(*ml.Draw, Decimals)
	}
	if ml.Away != nil {
		out[2] = oddsmath.EncodeDecimal(*ml.Away, Decimals)
	}
	return out
}

func encodeSpreads(spreads []pinnacle.Spread) (lines []float64, home, away []int32) {
	for _, sp := range spreads {
		lines = append(lines, sp.Hdp)
		home = append(home, oddsmath.EncodeDecimal(sp.Home, Decimals))
		away = append(away, oddsmath.EncodeDecimal(sp.Away, Decimals))
	}
	return
}

func encodeTotals(totals []pinnacle.Total) (lines []float64, over, under []int32) {
	for _, t := range totals {
		lines = append(lines, t.Points)
		over = append(over, oddsmath.EncodeDecimal(t.Over, Decimals))
		under = append(under, oddsmath.EncodeDecimal(t.Under, Decimals))
	}
	return
}
