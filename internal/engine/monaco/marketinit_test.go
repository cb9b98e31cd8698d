package monaco_test

import (
	"testing"

	"github.com/fortuna/oddspipeline/internal/engine/monaco"
	"github.com/fortuna/oddspipeline/pkg/models"
)

func TestHandicapValue(t *testing.T) {
	tests := []struct {
		name    string
		market  string
		want    float64
		wantOK  bool
	}{
		{name: "positive line", market: "Goal Handicap +1.5", want: 1.5, wantOK: true},
		{name: "negative line", market: "Goal Handicap -0.25", want: -0.25, wantOK: true},
		{name: "no match", market: "Match Result", wantOK: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := monaco.HandicapValue(tc.market)
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if ok && got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestTotalValue(t *testing.T) {
	two := 2.5
	got, ok := monaco.TotalValue(&two, "Total Goals Over/Under 3.5")
	if !ok || got != 2.5 {
		t.Fatalf("marketValue should win: got %v, ok %v", got, ok)
	}

	got, ok = monaco.TotalValue(nil, "Total Goals Over/Under 2.5")
	if !ok || got != 2.5 {
		t.Fatalf("expected regex fallback to parse 2.5, got %v, ok %v", got, ok)
	}

	_, ok = monaco.TotalValue(nil, "Match Result")
	if ok {
		t.Fatal("expected no match")
	}
}

func TestMapMarketType(t *testing.T) {
	if monaco.MapMarketType("FOOTBALL_FULL_TIME_RESULT") != models.MarketX12 {
		t.Fatal("expected x12")
	}
	if monaco.MapMarketType("FOOTBALL_FULL_TIME_RESULT_HANDICAP") != models.MarketAH {
		t.Fatal("expected ah")
	}
	if monaco.MapMarketType("FOOTBALL_OVER_UNDER_TOTAL_GOALS") != models.MarketOU {
		t.Fatal("expected ou")
	}
	if monaco.MapMarketType("SOMETHING_ELSE") != "" {
		t.Fatal("expected empty for untracked market type")
	}
}

func TestBuildMappingOutcomeOrder(t *testing.T) {
	m, ok := monaco.BuildMapping(monaco.RawMarket{
		ID:           "m1",
		EventID:      "e1",
		MarketTypeID: "FOOTBALL_FULL_TIME_RESULT",
		OutcomeIDs:   []string{"home", "draw", "away"},
	})
	if !ok {
		t.Fatal("expected mapping to build")
	}
	if m.OutcomeMappings["home"] != 0 || m.OutcomeMappings["draw"] != 1 || m.OutcomeMappings["away"] != 2 {
		t.Fatalf("unexpected outcome mappings: %+v", m.OutcomeMappings)
	}
}
