// Package edge is the Processor's boundary: TCP ingest of normalized
// updates, a Postgres change-notification listener for non-Monaco/
// Pinnacle writers, and the WebSocket subscription server (§4.9).
package edge

import (
	"bufio"
	"context"
	"encoding/json"
	"net"

	"github.com/fortuna/oddspipeline/internal/platform/logx"
	"github.com/fortuna/oddspipeline/pkg/models"
)

// TCPListener binds a loopback port and decodes newline-framed JSON
// normalized updates, publishing each onto the shared update channel
// (§4.9 "TCP ingest"). There is no queue of its own: if the channel is
// full, the reader blocks, the Engine's write eventually times out, and
// it reconnects (§5 backpressure).
type TCPListener struct {
	addr string
	log  *logx.Logger
}

// NewTCPListener returns a listener bound to addr (e.g. ":9000").
func NewTCPListener(addr string) *TCPListener {
	return &TCPListener{addr: addr, log: logx.New("tcp-ingest")}
}

// Run accepts connections until ctx is cancelled. Each connection is
// handled on its own goroutine; a connection error closes that stream
// and the listener keeps awaiting the next one.
func (l *TCPListener) Run(ctx context.Context, updates chan<- *models.NormalizedUpdate) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", l.addr)
	if err != nil {
		return err
	}
	l.log.Infof("listening on %s", l.addr)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			l.log.Warnf("accept error: %v", err)
			continue
		}
		go l.handleConn(ctx, conn, updates)
	}
}

func (l *TCPListener) handleConn(ctx context.Context, conn net.Conn, updates chan<- *models.NormalizedUpdate) {
	defer conn.Close()
	l.log.Infof("engine connected from %s", conn.RemoteAddr())

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var update models.NormalizedUpdate
		if err := json.Unmarshal(line, &update); err != nil {
			l.log.Infof("malformed update dropped: %v", err)
			continue
		}

		select {
		case updates <- &update:
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		l.log.Warnf("connection from %s closed: %v", conn.RemoteAddr(), err)
	}
}
