package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lukapolovic/moviesearch/pkg/cluster"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Internal cluster surface; origin checks add nothing here.
		return true
	},
}

// membershipEvent is one snapshot pushed to watchers.
type membershipEvent struct {
	Type      string                          `json:"type"`
	Timestamp time.Time                       `json:"ts"`
	Replicas  map[string]cluster.ReplicaState `json:"replicas"`
}

// MembershipWatch pushes a membership snapshot to every connected
// websocket client after each heartbeat tick.
type MembershipWatch struct {
	mu     sync.Mutex
	conns  map[*websocket.Conn]bool
	logger zerolog.Logger
}

// NewMembershipWatch creates an empty watch hub.
func NewMembershipWatch(logger zerolog.Logger) *MembershipWatch {
	return &MembershipWatch{
		conns:  make(map[*websocket.Conn]bool),
		logger: logger.With().Str("component", "membership-watch").Logger(),
	}
}

// Handler upgrades the request and keeps the connection registered until
// the client goes away.
func (mw *MembershipWatch) Handler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		mw.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	mw.mu.Lock()
	mw.conns[conn] = true
	mw.mu.Unlock()

	// Drain client frames; the read failing is how we learn the client
	// disconnected.
	go func() {
		defer mw.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast pushes one snapshot to every watcher. Failed writers are
// dropped.
func (mw *MembershipWatch) Broadcast(replicas map[string]cluster.ReplicaState) {
	event := membershipEvent{
		Type:      "membership",
		Timestamp: time.Now(),
		Replicas:  replicas,
	}

	mw.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(mw.conns))
	for c := range mw.conns {
		conns = append(conns, c)
	}
	mw.mu.Unlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if err := conn.WriteJSON(event); err != nil {
			mw.drop(conn)
		}
	}
}

// Close disconnects every watcher.
func (mw *MembershipWatch) Close() {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	for conn := range mw.conns {
		conn.Close()
	}
	mw.conns = make(map[*websocket.Conn]bool)
}

func (mw *MembershipWatch) drop(conn *websocket.Conn) {
	mw.mu.Lock()
	delete(mw.conns, conn)
	mw.mu.Unlock()
	conn.Close()
}
