package edge

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/fortuna/oddspipeline/internal/platform/logx"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server exposes the WS subscription endpoint and a health check over
// HTTP, backed by a Hub.
type Server struct {
	hub *Hub
	ctx context.Context
	log *logx.Logger
}

// NewServer returns a Server serving h's sessions under ctx's lifetime.
func NewServer(h *Hub, ctx context.Context) *Server {
	return &Server{hub: h, ctx: ctx, log: logx.New("ws-server")}
}

// HandleWebSocket upgrades the connection and starts the session's pumps.
func (srv *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		srv.log.Warnf("upgrade error: %v", err)
		return
	}

	id := uuid.New().String()
	s := NewSession(id, conn, srv.hub)
	srv.hub.Register(s)

	go s.WritePump(srv.ctx)
	go s.ReadPump(srv.ctx)

	srv.log.Infof("session %s connected from %s", id, r.RemoteAddr)
}

// HandleHealth reports liveness and the current cache size.
func (srv *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":   "healthy",
		"service":  "odds-processor",
		"fixtures": srv.hub.FixtureCount(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}
