package models

// X12Entry is one time-ordered row of the odds_x12 column.
type X12Entry struct {
	T   int64      `json:"t"`
	X12 *[3]int32  `json:"x12,omitempty"`
}

// AHEntry is one time-ordered row of the odds_ah column.
type AHEntry struct {
	T    int64    `json:"t"`
	AHH  []int32  `json:"ah_h,omitempty"`
	AHA  []int32  `json:"ah_a,omitempty"`
}

// OUEntry is one time-ordered row of the odds_ou column.
type OUEntry struct {
	T   int64   `json:"t"`
	OUO []int32 `json:"ou_o,omitempty"`
	OUU []int32 `json:"ou_u,omitempty"`
}

// LinesEntry is one time-ordered row of the lines column: the active
// line set at time t.
type LinesEntry struct {
	T  int64     `json:"t"`
	AH []float64 `json:"ah,omitempty"`
	OU []float64 `json:"ou,omitempty"`
}

// LineIDs holds upstream outcome identifiers per market type, keyed
// position-wise with the matching lines/odds vectors.
type LineIDs struct {
	X12 []string `json:"x12,omitempty"`
	AH  []string `json:"ah,omitempty"`
	OU  []string `json:"ou,omitempty"`
}

// IDsEntry is one time-ordered row of the ids column.
type IDsEntry struct {
	T       int64    `json:"t"`
	LineID  *string  `json:"line_id,omitempty"`
	LineIDs *LineIDs `json:"line_ids,omitempty"`
}

// MaxStakeAHOU is the raw-liquidity pair carried per ah/ou line.
type MaxStakeAHOU struct {
	H []float64 `json:"h,omitempty"`
	A []float64 `json:"a,omitempty"`
}

// MaxStakesEntry is the single current-liquidity snapshot retained per
// record; the max_stakes column always holds exactly one of these.
type MaxStakesEntry struct {
	T           int64         `json:"t"`
	MaxStakeX12 *[3]float64   `json:"max_stake_x12,omitempty"`
	MaxStakeAH  *MaxStakeAHOU `json:"max_stake_ah,omitempty"`
	MaxStakeOU  *MaxStakeAHOU `json:"max_stake_ou,omitempty"`
}

// LatestT records the last-write time per column.
type LatestT struct {
	X12Ts   *int64 `json:"x12_ts,omitempty"`
	AHTs    *int64 `json:"ah_ts,omitempty"`
	OUTs    *int64 `json:"ou_ts,omitempty"`
	LinesTs *int64 `json:"lines_ts,omitempty"`
	IDsTs   *int64 `json:"ids_ts,omitempty"`
	StakesTs *int64 `json:"stakes_ts,omitempty"`
}

// CanonicalOddsRecord is the persisted, bookmaker-independent snapshot
// shape: one row per (fixture_id, bookmaker).
type CanonicalOddsRecord struct {
	FixtureID int64      `json:"fixture_id"`
	BookieID  int64      `json:"bookie_id"`
	Bookmaker string     `json:"bookmaker"`
	Decimals  int        `json:"decimals"`
	OddsX12   []X12Entry `json:"odds_x12"`
	OddsAH    []AHEntry  `json:"odds_ah"`
	OddsOU    []OUEntry  `json:"odds_ou"`
	Lines     []LinesEntry    `json:"lines"`
	IDs       []IDsEntry      `json:"ids"`
	MaxStakes []MaxStakesEntry `json:"max_stakes"`
	LatestT   LatestT          `json:"latest_t"`
}

// CurrentLines returns the active line set, which is always the last
// element of Lines (the empty value if none has been written yet).
func (r *CanonicalOddsRecord) CurrentLines() LinesEntry {
	if len(r.Lines) == 0 {
		return LinesEntry{}
	}
	return r.Lines[len(r.Lines)-1]
}
