package realtime

import "sync"

// RoomKey derives the room name for a lesson. Every component that needs a
// room name goes through this so the scheme can never drift.
func RoomKey(lessonID string) string {
	return "lesson_" + lessonID
}

// RoomManager tracks which connections are in which lesson rooms. A
// connection may be in any number of rooms at once; join and leave are
// idempotent.
type RoomManager struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]struct{} // roomKey -> connIDs
	joined map[string]map[string]struct{} // connID -> roomKeys, for fast drop
}

func NewRoomManager() *RoomManager {
	return &RoomManager{
		rooms:  make(map[string]map[string]struct{}),
		joined: make(map[string]map[string]struct{}),
	}
}

func (m *RoomManager) Join(connID, lessonID string) {
	key := RoomKey(lessonID)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rooms[key] == nil {
		m.rooms[key] = make(map[string]struct{})
	}
	m.rooms[key][connID] = struct{}{}
	if m.joined[connID] == nil {
		m.joined[connID] = make(map[string]struct{})
	}
	m.joined[connID][key] = struct{}{}
}

func (m *RoomManager) Leave(connID, lessonID string) {
	key := RoomKey(lessonID)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leave(connID, key)
}

func (m *RoomManager) leave(connID, key string) {
	if conns, ok := m.rooms[key]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(m.rooms, key)
		}
	}
	if keys, ok := m.joined[connID]; ok {
		delete(keys, key)
		if len(keys) == 0 {
			delete(m.joined, connID)
		}
	}
}

// MembersOf returns the IDs of the connections currently in the lesson's
// room. The snapshot is safe to range over while members join and leave.
func (m *RoomManager) MembersOf(lessonID string) []string {
	key := RoomKey(lessonID)
	m.mu.RLock()
	defer m.mu.RUnlock()
	conns := m.rooms[key]
	members := make([]string, 0, len(conns))
	for connID := range conns {
		members = append(members, connID)
	}
	return members
}

// DropConn removes the connection from every room it joined.
func (m *RoomManager) DropConn(connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.joined[connID] {
		if conns, ok := m.rooms[key]; ok {
			delete(conns, connID)
			if len(conns) == 0 {
				delete(m.rooms, key)
			}
		}
	}
	delete(m.joined, connID)
}

func (m *RoomManager) RoomCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}
