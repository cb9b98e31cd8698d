package edge

import (
	"context"
	"sync"

	"github.com/fortuna/oddspipeline/internal/platform/logx"
	"github.com/fortuna/oddspipeline/internal/processor/cache"
	"github.com/fortuna/oddspipeline/pkg/models"
)

// Hub owns the Processor cache and fans out every applied update to
// every subscribed session (§4.9, §5 "processor cache ... reader-writer
// lock; the update-apply task holds the write lock for one fixture's
// worth of work").
type Hub struct {
	cache *cache.Cache
	log   *logx.Logger

	clients   map[*Session]bool
	clientsMu sync.RWMutex

	register   chan *Session
	unregister chan *Session
	updates    <-chan *models.NormalizedUpdate
}

// NewHub returns a Hub that applies updates from the updates channel to
// c and fans each applied update out to registered sessions.
func NewHub(c *cache.Cache, updates <-chan *models.NormalizedUpdate) *Hub {
	return &Hub{
		cache:      c,
		log:        logx.New("hub"),
		clients:    make(map[*Session]bool),
		register:   make(chan *Session),
		unregister: make(chan *Session),
		updates:    updates,
	}
}

// Run drains registration and update events until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	h.log.Infof("hub started")
	for {
		select {
		case <-ctx.Done():
			return

		case s := <-h.register:
			h.clientsMu.Lock()
			h.clients[s] = true
			h.clientsMu.Unlock()
			s.resync()

		case s := <-h.unregister:
			h.clientsMu.Lock()
			if _, ok := h.clients[s]; ok {
				delete(h.clients, s)
				close(s.send)
			}
			h.clientsMu.Unlock()

		case update := <-h.updates:
			h.applyAndBroadcast(update)
		}
	}
}

func (h *Hub) applyAndBroadcast(update *models.NormalizedUpdate) {
	h.cache.ApplyUpdate(update)

	fd, ok := h.cache.Get(update.FixtureID)
	if !ok {
		return
	}
	doc := cache.ToDocument(fd)
	timestamp, start := cache.Envelope(fd)

	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	for s := range h.clients {
		s.handleUpdate(fd, doc, timestamp, start)
	}
}

// Register adds a session to the hub and sends it an initial snapshot.
func (h *Hub) Register(s *Session) { h.register <- s }

// Unregister removes a session from the hub.
func (h *Hub) Unregister(s *Session) { h.unregister <- s }

// FixtureCount reports how many fixtures are currently cached.
func (h *Hub) FixtureCount() int {
	return len(h.cache.Snapshot())
}
