package monaco

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fortuna/oddspipeline/internal/platform/backoff"
	"github.com/fortuna/oddspipeline/internal/platform/logx"
)

// envelope is the tagged wrapper every Monaco stream message arrives
// in; the "type" field selects which payload to unmarshal.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	msgMarketPriceUpdate  = "marketPriceUpdate"
	msgMarketStatusUpdate = "marketStatusUpdate"
)

// StreamHandler receives dispatched Monaco stream messages. Each
// callback should return quickly; slow downstream work should be
// handed off rather than block the read loop (§5).
type StreamHandler interface {
	HandlePriceUpdate(update MarketPriceUpdate, receivedAt time.Time)
	HandleStatusUpdate(update MarketStatusUpdate)
}

// StreamClient maintains the long-lived Monaco WebSocket connection,
// reconnecting with exponential backoff on any transport error and
// resetting the backoff sequence after a clean close (§5, §7).
type StreamClient struct {
	url     string
	handler StreamHandler
	log     *logx.Logger
}

// NewStreamClient returns a StreamClient for the given feed URL.
func NewStreamClient(url string, handler StreamHandler) *StreamClient {
	return &StreamClient{url: url, handler: handler, log: logx.New("monaco-stream")}
}

// Run connects and reconnects until ctx is cancelled.
func (c *StreamClient) Run(ctx context.Context) {
	policy := backoff.NewPolicy(60 * time.Second)

	for {
		if ctx.Err() != nil {
			return
		}

		cleanClose, err := c.runOnce(ctx)
		if err != nil {
			c.log.Warnf("stream error: %v", err)
		}
		if cleanClose {
			policy.Reset()
		}

		if ctx.Err() != nil {
			return
		}

		delay := policy.Next()
		c.log.Infof("reconnecting in %v", delay)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

func (c *StreamClient) runOnce(ctx context.Context) (cleanClose bool, err error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	c.log.Infof("connected to %s", c.url)

	for {
		if ctx.Err() != nil {
			return true, nil
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return true, nil
			}
			return false, err
		}

		c.dispatch(raw)
	}
}

func (c *StreamClient) dispatch(raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.log.Warnf("unparseable message dropped: %v", err)
		return
	}

	receivedAt := time.Now()

	switch env.Type {
	case msgMarketPriceUpdate:
		var upd MarketPriceUpdate
		if err := json.Unmarshal(env.Data, &upd); err != nil {
			c.log.Warnf("unparseable price update dropped: %v", err)
			return
		}
		c.handler.HandlePriceUpdate(upd, receivedAt)
	case msgMarketStatusUpdate:
		var upd MarketStatusUpdate
		if err := json.Unmarshal(env.Data, &upd); err != nil {
			c.log.Warnf("unparseable status update dropped: %v", err)
			return
		}
		c.handler.HandleStatusUpdate(upd)
	default:
		// unknown message types are ignored, not errors
	}
}
