package edge

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/oddspipeline/internal/processor/cache"
	"github.com/fortuna/oddspipeline/internal/processor/filter"
	"github.com/fortuna/oddspipeline/internal/testutil"
	"github.com/fortuna/oddspipeline/pkg/models"
)

func mustFilter(t *testing.T, raw string) *filter.Expr {
	t.Helper()
	var e filter.Expr
	require.NoError(t, json.Unmarshal([]byte(raw), &e))
	return &e
}

func x12Update(fixtureID int64, home, draw, away int32) *models.NormalizedUpdate {
	return testutil.X12Update(fixtureID, home, draw, away)
}

func newTestHub() *Hub {
	c := cache.New(100)
	updates := make(chan *models.NormalizedUpdate, 10)
	return NewHub(c, updates)
}

func TestSessionNoFilterForwardsUpdateDirectly(t *testing.T) {
	h := newTestHub()
	h.cache.ApplyUpdate(x12Update(1, 1900, 3600, 4100))
	fd, _ := h.cache.Get(1)

	s := NewSession("s1", nil, h)

	doc := cache.ToDocument(fd)
	timestamp, start := cache.Envelope(fd)
	s.handleUpdate(fd, doc, timestamp, start)

	msg := <-s.send
	assert.Equal(t, serverUpdate, msg.Type)
	assert.Equal(t, int64(1), msg.FixtureID)
}

func TestSessionFilterEnterStayLeave(t *testing.T) {
	h := newTestHub()
	s := NewSession("s2", nil, h)
	s.setFilter(mustFilter(t, `{"field": "bookmakers.Monaco.x12_h", "op": "gte", "value": 1950}`))

	// below threshold: no match, nothing forwarded (false -> false).
	h.cache.ApplyUpdate(x12Update(7, 1900, 3600, 4100))
	fd, _ := h.cache.Get(7)
	s.handleUpdate(fd, cache.ToDocument(fd), 0, 0)
	assert.Empty(t, s.send)

	// crosses threshold: enter.
	h.cache.ApplyUpdate(x12Update(7, 1960, 3600, 4100))
	fd, _ = h.cache.Get(7)
	s.handleUpdate(fd, cache.ToDocument(fd), 0, 0)
	msg := <-s.send
	assert.Equal(t, serverUpdate, msg.Type)
	assert.True(t, s.matching[7])

	// still above: stay.
	h.cache.ApplyUpdate(x12Update(7, 1970, 3600, 4100))
	fd, _ = h.cache.Get(7)
	s.handleUpdate(fd, cache.ToDocument(fd), 0, 0)
	msg = <-s.send
	assert.Equal(t, serverUpdate, msg.Type)

	// drops back below: leave.
	h.cache.ApplyUpdate(x12Update(7, 1900, 3600, 4100))
	fd, _ = h.cache.Get(7)
	s.handleUpdate(fd, cache.ToDocument(fd), 0, 0)
	msg = <-s.send
	assert.Equal(t, serverRemoved, msg.Type)
	assert.False(t, s.matching[7])
}

func TestResyncSendsSnapshotForEachMatchingFixture(t *testing.T) {
	h := newTestHub()
	h.cache.ApplyUpdate(x12Update(1, 1900, 3600, 4100))
	h.cache.ApplyUpdate(x12Update(2, 2500, 3600, 4100))

	s := NewSession("s3", nil, h)
	s.setFilter(mustFilter(t, `{"field": "bookmakers.Monaco.x12_h", "op": "gte", "value": 2000}`))

	msg := <-s.send
	assert.Equal(t, serverSnapshot, msg.Type)
	assert.Equal(t, int64(2), msg.FixtureID)
	assert.Empty(t, s.send)
	assert.True(t, s.matching[2])
	assert.False(t, s.matching[1])
}
