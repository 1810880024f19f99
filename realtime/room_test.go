package realtime

import (
	"sort"
	"testing"

	"github.com/somo-lms/somo/core/user"
)

func TestRoomKey(t *testing.T) {
	if got := RoomKey("les1"); got != "lesson_les1" {
		t.Errorf("RoomKey() = %q, want %q", got, "lesson_les1")
	}
}

func TestRoomManagerJoinLeave(t *testing.T) {
	m := NewRoomManager()

	m.Join("c1", "les1")
	m.Join("c2", "les1")
	m.Join("c1", "les2")

	if got := members(m, "les1"); len(got) != 2 {
		t.Errorf("les1 members = %v, want 2", got)
	}

	// joining twice is a no-op
	m.Join("c1", "les1")
	if got := members(m, "les1"); len(got) != 2 {
		t.Errorf("les1 members after re-join = %v, want 2", got)
	}

	m.Leave("c2", "les1")
	if got := members(m, "les1"); len(got) != 1 || got[0] != "c1" {
		t.Errorf("les1 members after leave = %v, want [c1]", got)
	}

	// leaving twice is a no-op
	m.Leave("c2", "les1")
	m.Leave("c2", "les9")
	if got := members(m, "les1"); len(got) != 1 {
		t.Errorf("les1 members after re-leave = %v, want 1", got)
	}
}

func TestRoomManagerDropConn(t *testing.T) {
	m := NewRoomManager()
	m.Join("c1", "les1")
	m.Join("c1", "les2")
	m.Join("c2", "les2")

	m.DropConn("c1")

	if got := members(m, "les1"); len(got) != 0 {
		t.Errorf("les1 members = %v, want none", got)
	}
	if got := members(m, "les2"); len(got) != 1 || got[0] != "c2" {
		t.Errorf("les2 members = %v, want [c2]", got)
	}
	if got := m.RoomCount(); got != 1 {
		t.Errorf("RoomCount() = %d, want 1", got)
	}
}

func TestRoomManagerEmptyRoomsCollected(t *testing.T) {
	m := NewRoomManager()
	m.Join("c1", "les1")
	m.Leave("c1", "les1")

	if got := m.RoomCount(); got != 0 {
		t.Errorf("RoomCount() = %d, want 0", got)
	}
}

func TestSessionRegistry(t *testing.T) {
	r := NewSessionRegistry()
	usr := user.User{ID: "uid1", Name: "Test User"}

	if _, ok := r.Get("c1"); ok {
		t.Error("Get() on empty registry reported a session")
	}

	r.Add("c1", usr)
	got, ok := r.Get("c1")
	if !ok || got.ID != usr.ID {
		t.Errorf("Get() = %v, %v; want %v, true", got, ok, usr)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}

	r.Remove("c1")
	if _, ok = r.Get("c1"); ok {
		t.Error("Get() after Remove() reported a session")
	}
}

func members(m *RoomManager, lessonID string) []string {
	got := m.MembersOf(lessonID)
	sort.Strings(got)
	return got
}
