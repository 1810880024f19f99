package realtime

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/somo-lms/somo/core"
	"github.com/somo-lms/somo/core/user"
)

// Hub owns the live connections and fans domain events out to lesson rooms.
// It satisfies comment.Broadcaster so the comment service can publish without
// knowing anything about websockets.
type Hub struct {
	registry *SessionRegistry
	rooms    *RoomManager
	logger   core.Logger

	mu    sync.RWMutex
	conns map[string]*connection
}

func NewHub(logger core.Logger) *Hub {
	return &Hub{
		registry: NewSessionRegistry(),
		rooms:    NewRoomManager(),
		logger:   logger,
		conns:    make(map[string]*connection),
	}
}

// bind registers a freshly authenticated connection and starts its writer.
func (h *Hub) bind(conn *connection, usr user.User) {
	h.mu.Lock()
	h.conns[conn.id] = conn
	h.mu.Unlock()
	h.registry.Add(conn.id, usr)
	go conn.writePump()
}

// unbind removes every trace of the connection: its identity, its room
// memberships and the connection itself. Safe to call more than once.
func (h *Hub) unbind(conn *connection) {
	h.rooms.DropConn(conn.id)
	h.registry.Remove(conn.id)
	h.mu.Lock()
	delete(h.conns, conn.id)
	h.mu.Unlock()
	conn.close()
}

func (h *Hub) conn(connID string) (*connection, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.conns[connID]
	return c, ok
}

// Broadcast delivers one event to every connection in the lesson's room.
// Delivery is best effort; a member whose send queue is full is dropped so
// one slow client cannot stall the rest of the room.
func (h *Hub) Broadcast(lessonID, event string, payload interface{}) {
	msg, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		h.logger.Error(fmt.Sprintf("marshaling %q broadcast: %v", event, err), err)
		return
	}
	for _, connID := range h.rooms.MembersOf(lessonID) {
		conn, ok := h.conn(connID)
		if !ok {
			continue
		}
		if !conn.enqueue(msg) {
			h.logger.Warn(fmt.Sprintf("dropping slow connection %s", connID))
			h.unbind(conn)
		}
	}
}

// sendTo queues a frame for a single connection.
func (h *Hub) sendTo(conn *connection, v interface{}) {
	msg, err := json.Marshal(v)
	if err != nil {
		h.logger.Error(fmt.Sprintf("marshaling reply: %v", err), err)
		return
	}
	if !conn.enqueue(msg) {
		h.unbind(conn)
	}
}

func (h *Hub) SessionCount() int { return h.registry.Len() }
func (h *Hub) RoomCount() int    { return h.rooms.RoomCount() }
