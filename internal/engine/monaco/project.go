package monaco

import (
	"github.com/fortuna/oddspipeline/pkg/models"
	"github.com/fortuna/oddspipeline/pkg/oddsmath"
)

// BuildLines returns the current distinct line values for a fixture's
// ah/ou mappings, in discovery order (first-wins on duplicates is
// already enforced by Engine.ResolveFixture).
func BuildLines(mappings []*models.MarketMapping) []float64 {
	lines := make([]float64, 0, len(mappings))
	for _, m := range mappings {
		if m.LineValue != nil {
			lines = append(lines, *m.LineValue)
		}
	}
	return lines
}

// ProjectX12 builds the three-slot x12 integer array for a resolved
// x12 market: slot = best price of that outcome's ladder, Monaco-margin
// encoded; an empty ladder yields 0 (§4.1 "Projection to canonical
// form").
func ProjectX12(ob *models.OrderBook, mapping *models.MarketMapping, decimals int) [3]int32 {
	var out [3]int32
	if ob == nil {
		return out
	}
	for outcomeID, idx := range mapping.OutcomeMappings {
		if idx < 0 || idx > 2 {
			continue
		}
		if lvl, ok := ob.BestPrice(outcomeID); ok {
			out[idx] = oddsmath.EncodeMonacoPrice(lvl.Price, decimals)
		}
	}
	return out
}

// ProjectAHOU fills the home/away (or over/under) integer vectors
// position-wise against lines, using mappings whose LineValue matches
// lines[k] (exact — mappings are the authoritative source lines was
// built from) and whose outcome index parity selects the side: even
// index -> home/over, odd -> away/under.
func ProjectAHOU(ob *models.OrderBook, mappings []*models.MarketMapping, lines []float64, decimals int) (home, away []int32) {
	home = make([]int32, len(lines))
	away = make([]int32, len(lines))
	if ob == nil {
		return home, away
	}

	for k, line := range lines {
		m := mappingForLine(mappings, line)
		if m == nil {
			continue
		}
		for outcomeID, idx := range m.OutcomeMappings {
			lvl, ok := ob.BestPrice(outcomeID)
			if !ok {
				continue
			}
			encoded := oddsmath.EncodeMonacoPrice(lvl.Price, decimals)
			if idx%2 == 0 {
				home[k] = encoded
			} else {
				away[k] = encoded
			}
		}
	}
	return home, away
}

// ProjectMaxStakesAHOU mirrors ProjectAHOU but returns the raw (unencoded)
// liquidity of each best level, for the max_stakes columns.
func ProjectMaxStakesAHOU(ob *models.OrderBook, mappings []*models.MarketMapping, lines []float64) (home, away []float64) {
	home = make([]float64, len(lines))
	away = make([]float64, len(lines))
	if ob == nil {
		return home, away
	}
	for k, line := range lines {
		m := mappingForLine(mappings, line)
		if m == nil {
			continue
		}
		for outcomeID, idx := range m.OutcomeMappings {
			lvl, ok := ob.BestPrice(outcomeID)
			if !ok {
				continue
			}
			if idx%2 == 0 {
				home[k] = lvl.Liquidity
			} else {
				away[k] = lvl.Liquidity
			}
		}
	}
	return home, away
}

// ProjectMaxStakesX12 returns the raw liquidity of each best x12 level.
func ProjectMaxStakesX12(ob *models.OrderBook, mapping *models.MarketMapping) [3]float64 {
	var out [3]float64
	if ob == nil {
		return out
	}
	for outcomeID, idx := range mapping.OutcomeMappings {
		if idx < 0 || idx > 2 {
			continue
		}
		if lvl, ok := ob.BestPrice(outcomeID); ok {
			out[idx] = lvl.Liquidity
		}
	}
	return out
}

func mappingForLine(mappings []*models.MarketMapping, line float64) *models.MarketMapping {
	for _, m := range mappings {
		if m.LineValue != nil && *m.LineValue == line {
			return m
		}
	}
	return nil
}
