package edge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitPayload(t *testing.T) {
	fixtureID, bookmaker, ok := splitPayload("42|Bet365")
	assert.True(t, ok)
	assert.Equal(t, int64(42), fixtureID)
	assert.Equal(t, "Bet365", bookmaker)

	_, _, ok = splitPayload("not-a-payload")
	assert.False(t, ok)

	_, _, ok = splitPayload("abc|Bet365")
	assert.False(t, ok)
}

func TestRescaleSlice(t *testing.T) {
	// a writer persisting at decimals=2 carries 195 for odds 1.95;
	// re-scaled to decimals=3 that's 1950.
	out := rescaleSlice([]int32{195, 340}, 2, 3)
	assert.Equal(t, []int32{1950, 3400}, out)

	assert.Nil(t, rescaleSlice(nil, 2, 3))
}
