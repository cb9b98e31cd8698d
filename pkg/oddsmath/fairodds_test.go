package oddsmath_test

import (
	"testing"

	"github.com/fortuna/oddspipeline/pkg/oddsmath"
)

func TestCalculateFairOdds(t *testing.T) {
	tests := []struct {
		name      string
		odds      []int32
		decimals  int
		wantFair  []int32
		wantOK    bool
	}{
		{
			name:     "three way within margin",
			odds:     []int32{1900, 3600, 4100},
			decimals: 3,
			wantFair: []int32{1960, 3820, 4388},
			wantOK:   true,
		},
		{
			name:     "margin exceeds max",
			odds:     []int32{1500, 1500, 1500},
			decimals: 3,
			wantOK:   false,
		},
		{
			name:     "non positive price rejected",
			odds:     []int32{0, 3600, 4100},
			decimals: 3,
			wantOK:   false,
		},
		{
			name:     "empty input rejected",
			odds:     nil,
			decimals: 3,
			wantOK:   false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := oddsmath.CalculateFairOdds(tc.odds, tc.decimals)
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if !tc.wantOK {
				return
			}
			if len(got) != len(tc.wantFair) {
				t.Fatalf("len(got) = %d, want %d", len(got), len(tc.wantFair))
			}
			for i := range got {
				diff := got[i] - tc.wantFair[i]
				if diff < -2 || diff > 2 {
					t.Errorf("fair[%d] = %d, want within 2 of %d", i, got[i], tc.wantFair[i])
				}
			}
		})
	}
}

func TestCalculateFairOddsRoundTrip(t *testing.T) {
	// Feeding a zero-margin vector back through the algorithm should
	// yield itself within 1 unit of the last encoded digit.
	odds := []int32{3000, 3000, 3000} // decimal 3.0 each, margin = 0
	fair, ok := oddsmath.CalculateFairOdds(odds, 3)
	if !ok {
		t.Fatal("expected ok for zero-margin input")
	}
	for i, f := range fair {
		diff := f - odds[i]
		if diff < -1 || diff > 1 {
			t.Errorf("fair[%d] = %d, want within 1 of %d", i, f, odds[i])
		}
	}
}
