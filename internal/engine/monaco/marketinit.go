package monaco

import (
	"regexp"
	"strconv"

	"github.com/fortuna/oddspipeline/pkg/models"
)

const (
	marketTypeThreeWay  = "FOOTBALL_FULL_TIME_RESULT"
	marketTypeHandicap  = "FOOTBALL_FULL_TIME_RESULT_HANDICAP"
	marketTypeOverUnder = "FOOTBALL_OVER_UNDER_TOTAL_GOALS"
)

var (
	handicapRe = regexp.MustCompile(`Goal Handicap ([+-]?[\d.]+)`)
	totalRe    = regexp.MustCompile(`Total Goals Over/Under ([\d.]+)`)
)

// MapMarketType translates an upstream Monaco market-type id into the
// pipeline's closed market-type set, or "" if the market isn't one this
// pipeline tracks.
func MapMarketType(marketTypeID string) models.MarketType {
	switch marketTypeID {
	case marketTypeThreeWay:
		return models.MarketX12
	case marketTypeHandicap:
		return models.MarketAH
	case marketTypeOverUnder:
		return models.MarketOU
	default:
		return ""
	}
}

// HandicapValue extracts the signed line value from an Asian Handicap
// market's name, e.g. "Goal Handicap +1.5".
func HandicapValue(marketName string) (float64, bool) {
	m := handicapRe.FindStringSubmatch(marketName)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// TotalValue extracts the positive line value for an over/under market,
// preferring the market's own marketValue field and falling back to a
// regex match on its name.
func TotalValue(marketValue *float64, marketName string) (float64, bool) {
	if marketValue != nil {
		return *marketValue, true
	}
	m := totalRe.FindStringSubmatch(marketName)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// BuildMapping constructs a MarketMapping from a raw upstream market,
// or false if the market type isn't tracked or its line value can't be
// determined (for ah/ou).
func BuildMapping(market RawMarket) (*models.MarketMapping, bool) {
	marketType := MapMarketType(market.MarketTypeID)
	if marketType == "" {
		return nil, false
	}

	mapping := &models.MarketMapping{
		EventID:         market.EventID,
		MarketID:        market.ID,
		MarketType:      marketType,
		OutcomeMappings: make(map[string]int, len(market.OutcomeIDs)),
	}

	switch marketType {
	case models.MarketAH:
		v, ok := HandicapValue(market.Name)
		if !ok {
			return nil, false
		}
		mapping.LineValue = &v
	case models.MarketOU:
		v, ok := TotalValue(market.MarketValue, market.Name)
		if !ok {
			return nil, false
		}
		mapping.LineValue = &v
	}

	for idx, outcomeID := range market.OutcomeIDs {
		mapping.OutcomeMappings[outcomeID] = idx
	}

	return mapping, true
}
