package cache

import "github.com/fortuna/oddspipeline/pkg/oddsmath"

// decimals is the fixed-point scale every cached odds value is carried
// at, matching the Engine's canonical record (§6 "decimals=3").
const decimals = 3

// recomputeFairX12 recomputes the x12 fair-odds triple from the current
// scalars. On rejection (non-positive input or margin too large), the
// prior fair values are left untouched — unlike ah/ou, x12 has only one
// triple per bookmaker so there is no shape to rebuild around.
func recomputeFairX12(cur *Snapshot) {
	fair, ok := oddsmath.CalculateFairOdds([]int32{cur.X12H, cur.X12X, cur.X12A}, decimals)
	if !ok {
		return
	}
	cur.FairX12H, cur.FairX12X, cur.FairX12A = fair[0], fair[1], fair[2]
}

// recomputeFairPerLine rebuilds a fair-odds pair vector fresh against
// the current line count: every call clears and recomputes both
// vectors position-wise, leaving a line's pair at zero when its own
// fair-odds computation is rejected (§4.4.1 "applied ... to ah/ou
// vector position-wise").
func recomputeFairPerLine(lines []float64, home, away []int32) (fairHome, fairAway []int32) {
	fairHome = make([]int32, len(lines))
	fairAway = make([]int32, len(lines))
	for i := range lines {
		if i >= len(home) || i >= len(away) {
			continue
		}
		fair, ok := oddsmath.CalculateFairOdds([]int32{home[i], away[i]}, decimals)
		if !ok {
			continue
		}
		fairHome[i], fairAway[i] = fair[0], fair[1]
	}
	return
}
