package models

import "fmt"

// NormalizedUpdate is the newline-framed JSON wire message sent from the
// Engine to the Processor over the TCP stream (§4.3). It carries the same
// columns as CanonicalOddsRecord, but only the columns that changed on
// this write are present — everything else is the zero value and is
// omitted from the JSON encoding.
type NormalizedUpdate struct {
	FixtureID int64  `json:"fixture_id"`
	BookieID  int64  `json:"bookie_id"`
	Bookmaker string `json:"bookmaker"`
	Timestamp int64  `json:"timestamp"`
	Start     int64  `json:"start,omitempty"`
	Decimals  int    `json:"decimals"`

	X12 *[3]int32 `json:"x12,omitempty"`

	AHLines []float64 `json:"ah_lines,omitempty"`
	AHH     []int32   `json:"ah_h,omitempty"`
	AHA     []int32   `json:"ah_a,omitempty"`

	OULines []float64 `json:"ou_lines,omitempty"`
	OUO     []int32   `json:"ou_o,omitempty"`
	OUU     []int32   `json:"ou_u,omitempty"`

	IDs       *IDsEntry       `json:"ids,omitempty"`
	MaxStakes *MaxStakesEntry `json:"max_stakes,omitempty"`
	LatestT   *LatestT        `json:"latest_t,omitempty"`
}

// Key identifies the (fixture, bookmaker) this update belongs to.
func (u *NormalizedUpdate) Key() string {
	return fmt.Sprintf("%d:%s", u.FixtureID, u.Bookmaker)
}
