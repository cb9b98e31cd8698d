package edge

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fortuna/oddspipeline/internal/platform/logx"
	"github.com/fortuna/oddspipeline/internal/processor/cache"
	"github.com/fortuna/oddspipeline/internal/processor/filter"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second // §4.9 "send a WS ping every 30s"
	maxMessageSize = 8192
	sendBufferSize = 256
)

// Session is one WS subscriber: its filter and matching-fixture set are
// private to it and protected by its own lock (§5).
type Session struct {
	id   string
	conn *websocket.Conn
	hub  *Hub
	send chan ServerMessage
	log  *logx.Logger

	mu       sync.RWMutex
	filter   *filter.Expr
	matching map[int64]bool
}

// NewSession wraps an upgraded WS connection.
func NewSession(id string, conn *websocket.Conn, hub *Hub) *Session {
	return &Session{
		id:       id,
		conn:     conn,
		hub:      hub,
		send:     make(chan ServerMessage, sendBufferSize),
		log:      logx.New("ws-session"),
		matching: make(map[int64]bool),
	}
}

// ReadPump reads client frames until the connection closes or ctx ends.
func (s *Session) ReadPump(ctx context.Context) {
	defer func() {
		s.hub.Unregister(s)
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			var msg ClientMessage
			if err := s.conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					s.log.Warnf("session %s unexpected close: %v", s.id, err)
				}
				return
			}
			s.handleClientMessage(msg)
		}
	}
}

// WritePump drains send to the connection and pings on pingPeriod.
func (s *Session) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			s.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case msg, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteJSON(msg); err != nil {
				s.log.Warnf("session %s write error: %v", s.id, err) // §7 terminates this session only
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Session) handleClientMessage(msg ClientMessage) {
	switch msg.Type {
	case clientSubscribe:
		s.setFilter(msg.Filter)
	case clientUpdateFilter:
		s.setFilter(msg.Filter)
	case clientRemoveFilter:
		s.setFilter(nil)
	}
}

func (s *Session) setFilter(expr *filter.Expr) {
	s.mu.Lock()
	s.filter = expr
	s.matching = make(map[int64]bool)
	s.mu.Unlock()

	s.resync()
}

// resync implements §4.9's "on connect and on every filter change": a
// full snapshot pass over every cached fixture.
func (s *Session) resync() {
	s.mu.RLock()
	expr := s.filter
	s.mu.RUnlock()

	for _, fd := range s.hub.cache.Snapshot() {
		doc := cache.ToDocument(fd)
		timestamp, start := cache.Envelope(fd)

		if expr == nil {
			s.setMatching(fd.FixtureID, true)
			s.enqueue(serverSnapshot, fd.FixtureID, timestamp, start, doc, nil)
			continue
		}

		fctx := filter.NewContext(doc, cache.NewHistoryProvider(fd))
		if filter.Evaluate(*expr, doc, fctx) {
			s.setMatching(fd.FixtureID, true)
			s.enqueue(serverSnapshot, fd.FixtureID, timestamp, start, doc, fctx.Traces())
		}
	}
}

// handleUpdate applies §4.9's enter/stay/leave/drop rules for one
// already-cache-applied update.
func (s *Session) handleUpdate(fd *cache.FixtureData, doc map[string]interface{}, timestamp, start int64) {
	s.mu.RLock()
	expr := s.filter
	wasMatching := s.matching[fd.FixtureID]
	s.mu.RUnlock()

	if expr == nil {
		s.enqueue(serverUpdate, fd.FixtureID, timestamp, start, doc, nil)
		return
	}

	fctx := filter.NewContext(doc, cache.NewHistoryProvider(fd))
	matchesNow := filter.Evaluate(*expr, doc, fctx)

	switch {
	case matchesNow:
		s.setMatching(fd.FixtureID, true)
		s.enqueue(serverUpdate, fd.FixtureID, timestamp, start, doc, fctx.Traces())
	case wasMatching:
		s.setMatching(fd.FixtureID, false)
		s.enqueue(serverRemoved, fd.FixtureID, timestamp, start, map[string]interface{}{}, nil)
	}
	// false -> false: drop, nothing to send
}

func (s *Session) setMatching(fixtureID int64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ok {
		s.matching[fixtureID] = true
	} else {
		delete(s.matching, fixtureID)
	}
}

// enqueue drops the message if the session's buffer is full instead of
// disconnecting it — the filter's enter/leave semantics make a slow
// client eventually consistent on its next matching update (§5).
func (s *Session) enqueue(msgType string, fixtureID, timestamp, start int64, bookmakers map[string]interface{}, traces []filter.MatchTrace) {
	msg := ServerMessage{
		Type:          msgType,
		FixtureID:     fixtureID,
		Timestamp:     timestamp,
		Start:         start,
		End:           time.Now().UnixMilli(),
		Bookmakers:    bookmakers,
		FilterMatches: traces,
	}
	select {
	case s.send <- msg:
	default:
		s.log.Warnf("session %s buffer full, dropping %s", s.id, msgType)
	}
}
