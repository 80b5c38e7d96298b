package chat

import "sync"

// Tracker holds the process-wide presence state: which users have a
// live connection and which rooms each user's connection has joined.
// It mirrors socket.io room membership and is the authoritative
// liveness source for the delivery state machine; the persisted
// contact InRoom flag is only a derived cache of "actively viewing".
//
// State is bound to connection lifetime: set on authentication,
// cleared on disconnect. Concurrent connect/disconnect for the same
// user resolve last-writer-wins per key.
type Tracker struct {
	mu     sync.RWMutex
	online map[uint]bool
	rooms  map[uint]map[string]bool
}

func NewTracker() *Tracker {
	return &Tracker{
		online: make(map[uint]bool),
		rooms:  make(map[uint]map[string]bool),
	}
}

func (t *Tracker) SetOnline(user uint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.online[user] = true
}

// SetOffline marks the user offline and clears every room membership,
// returning the rooms that were left. A dropped connection is not
// still viewing anything.
func (t *Tracker) SetOffline(user uint) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.online, user)

	left := make([]string, 0, len(t.rooms[user]))
	for room := range t.rooms[user] {
		left = append(left, room)
	}
	delete(t.rooms, user)
	return left
}

func (t *Tracker) Online(user uint) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.online[user]
}

func (t *Tracker) EnterRoom(user uint, room string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.rooms[user] == nil {
		t.rooms[user] = make(map[string]bool)
	}
	t.rooms[user][room] = true
}

func (t *Tracker) LeaveRoom(user uint, room string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.rooms[user], room)
}

// InRoom reports whether a live connection of the user is joined to
// the room. Joined is weaker than viewing: a user joined through
// join_all_rooms receives broadcasts without counting as in-room for
// read receipts.
func (t *Tracker) InRoom(user uint, room string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rooms[user][room]
}

func (t *Tracker) Rooms(user uint) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rooms := make([]string, 0, len(t.rooms[user]))
	for room := range t.rooms[user] {
		rooms = append(rooms, room)
	}
	return rooms
}

// Clear drops all state. Called on process stop.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.online = make(map[uint]bool)
	t.rooms = make(map[uint]map[string]bool)
}
