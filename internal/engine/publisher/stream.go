// Package publisher is the Engine side of the Normalized Update Stream
// (§4.3): a single long-lived TCP connection to the Processor, framed as
// newline-terminated JSON objects, reconnecting with backoff and
// dropping messages while disconnected rather than queuing them.
package publisher

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/fortuna/oddspipeline/internal/platform/backoff"
	"github.com/fortuna/oddspipeline/internal/platform/logx"
	"github.com/fortuna/oddspipeline/pkg/models"
)

// Publisher owns the TCP connection to the Processor.
type Publisher struct {
	addr string
	log  *logx.Logger

	mu   sync.Mutex
	conn net.Conn
	w    *bufio.Writer
}

// New returns a Publisher targeting addr (host:port).
func New(addr string) *Publisher {
	return &Publisher{addr: addr, log: logx.New("publisher")}
}

// Run maintains the connection until ctx is cancelled, reconnecting
// with exponential backoff on failure and resetting the backoff
// sequence each time a dial succeeds.
func (p *Publisher) Run(ctx context.Context) {
	policy := backoff.NewPolicy(60 * time.Second)

	for {
		if ctx.Err() != nil {
			return
		}

		dialer := net.Dialer{Timeout: 10 * time.Second}
		conn, err := dialer.DialContext(ctx, "tcp", p.addr)
		if err != nil {
			p.log.Warnf("dial %s failed: %v", p.addr, err)
			p.wait(ctx, policy.Next())
			continue
		}

		p.log.Infof("connected to processor at %s", p.addr)
		p.setConn(conn)
		policy.Reset()

		<-waitForClose(ctx, conn)
		p.setConn(nil)

		if ctx.Err() != nil {
			return
		}
		p.wait(ctx, policy.Next())
	}
}

func (p *Publisher) wait(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func (p *Publisher) setConn(conn net.Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		p.conn.Close()
	}
	p.conn = conn
	if conn != nil {
		p.w = bufio.NewWriter(conn)
	} else {
		p.w = nil
	}
}

// waitForClose returns a channel that closes when the connection
// errors out or the context is cancelled, so Run can detect a dead
// connection without a dedicated read loop (the Engine never reads
// from this connection).
func waitForClose(ctx context.Context, conn net.Conn) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 1)
		for {
			if ctx.Err() != nil {
				return
			}
			conn.SetReadDeadline(time.Now().Add(30 * time.Second))
			_, err := conn.Read(buf)
			if err != nil {
				if ne, ok := err.(net.Error); ok && ne.Timeout() {
					continue
				}
				return
			}
			// The Processor never writes back; any inbound byte is
			// unexpected and ignored.
		}
	}()
	return done
}

// Publish writes update as one newline-terminated JSON object. If no
// connection is currently established, the update is dropped — the
// Engine never queues (§4.3).
func (p *Publisher) Publish(update *models.NormalizedUpdate) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.w == nil {
		return fmt.Errorf("publisher: no connection, update dropped")
	}

	body, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}
	body = append(body, '\n')

	p.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if _, err := p.w.Write(body); err != nil {
		p.closeLocked()
		return fmt.Errorf("write update: %w", err)
	}
	if err := p.w.Flush(); err != nil {
		p.closeLocked()
		return fmt.Errorf("flush update: %w", err)
	}
	return nil
}

func (p *Publisher) closeLocked() {
	if p.conn != nil {
		p.conn.Close()
	}
	p.conn = nil
	p.w = nil
}
