package edge

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/oddspipeline/pkg/models"
)

func TestHandleConnParsesAndDropsMalformedLines(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	l := NewTCPListener(":0")
	updates := make(chan *models.NormalizedUpdate, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go l.handleConn(ctx, server, updates)

	go func() {
		client.Write([]byte("not json\n"))
		client.Write([]byte(`{"fixture_id": 9, "bookmaker": "Bet365", "decimals": 3}` + "\n"))
	}()

	select {
	case u := <-updates:
		assert.Equal(t, int64(9), u.FixtureID)
		assert.Equal(t, "Bet365", u.Bookmaker)
	case <-time.After(2 * time.Second):
		require.Fail(t, "timed out waiting for parsed update")
	}
}
