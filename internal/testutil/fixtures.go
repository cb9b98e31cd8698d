// Package testutil provides shared fixture builders for tests across
// both the Engine and the Processor, mirroring the override-function
// builder style of normalizer/tests/testutil and the Mock*-helper style
// of ws-broadcaster/tests/testutil.
package testutil

import "github.com/fortuna/oddspipeline/pkg/models"

// NormalizedUpdateFixture builds a NormalizedUpdate with sensible
// defaults, overridable the same way RawOddsFixture is in the teacher.
func NormalizedUpdateFixture(overrides ...func(*models.NormalizedUpdate)) *models.NormalizedUpdate {
	u := &models.NormalizedUpdate{
		FixtureID: 1001,
		BookieID:  1,
		Bookmaker: "Monaco",
		Timestamp: 1_700_000_000_000,
		Decimals:  3,
	}
	for _, o := range overrides {
		o(u)
	}
	return u
}

// X12Update builds a NormalizedUpdate carrying only an x12 write.
func X12Update(fixtureID int64, home, draw, away int32) *models.NormalizedUpdate {
	return NormalizedUpdateFixture(func(u *models.NormalizedUpdate) {
		u.FixtureID = fixtureID
		u.X12 = &[3]int32{home, draw, away}
	})
}

// AHUpdate builds a NormalizedUpdate carrying an Asian handicap write
// at a single line.
func AHUpdate(fixtureID int64, line float64, home, away int32) *models.NormalizedUpdate {
	return NormalizedUpdateFixture(func(u *models.NormalizedUpdate) {
		u.FixtureID = fixtureID
		u.AHLines = []float64{line}
		u.AHH = []int32{home}
		u.AHA = []int32{away}
	})
}

// OUUpdate builds a NormalizedUpdate carrying an over/under write at a
// single line.
func OUUpdate(fixtureID int64, line float64, over, under int32) *models.NormalizedUpdate {
	return NormalizedUpdateFixture(func(u *models.NormalizedUpdate) {
		u.FixtureID = fixtureID
		u.OULines = []float64{line}
		u.OUO = []int32{over}
		u.OUU = []int32{under}
	})
}

// PinnacleOdds builds a NormalizedUpdate as the Pinnacle poller would
// emit it: a distinct bookmaker name and bookie id from Monaco's, at the
// same decimals scale.
func PinnacleOdds(fixtureID int64, home, draw, away int32) *models.NormalizedUpdate {
	return NormalizedUpdateFixture(func(u *models.NormalizedUpdate) {
		u.FixtureID = fixtureID
		u.BookieID = 2
		u.Bookmaker = "Pinnacle"
		u.X12 = &[3]int32{home, draw, away}
	})
}

// CanonicalRecordFixture builds an empty CanonicalOddsRecord for the
// given (fixture, bookmaker) pair, with no columns written yet.
func CanonicalRecordFixture(fixtureID, bookieID int64, bookmaker string) *models.CanonicalOddsRecord {
	return &models.CanonicalOddsRecord{
		FixtureID: fixtureID,
		BookieID:  bookieID,
		Bookmaker: bookmaker,
		Decimals:  3,
	}
}

// Float64Ptr returns a pointer to a float64, matching the teacher's
// testutil helper name exactly.
func Float64Ptr(v float64) *float64 {
	return &v
}

// Int32Ptr returns a pointer to an int32.
func Int32Ptr(v int32) *int32 {
	return &v
}
