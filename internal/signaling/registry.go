package signaling

import (
	"sort"
	"sync"
	"time"
)

// DefaultRemoteLimit is how many remote peers a room admits besides the
// local one.
const DefaultRemoteLimit = 3

// JoinResult is the outcome of a join attempt.
type JoinResult int

const (
	// JoinRejected means the room name was empty; nothing changed.
	JoinRejected JoinResult = iota
	// JoinCreated means the room did not exist and the caller is its first member.
	JoinCreated
	// JoinJoined means the caller was added to an existing room.
	JoinJoined
	// JoinFull means the room is at capacity; nothing changed.
	JoinFull
)

func (r JoinResult) String() string {
	switch r {
	case JoinCreated:
		return "created"
	case JoinJoined:
		return "joined"
	case JoinFull:
		return "full"
	default:
		return "rejected"
	}
}

// Room is a named group of connections. Members are kept in join order.
type Room struct {
	Name      string
	Members   []string
	CreatedAt time.Time
}

func (r *Room) indexOf(connID string) int {
	for i, m := range r.Members {
		if m == connID {
			return i
		}
	}
	return -1
}

// RoomInfo is a point-in-time view of a room.
type RoomInfo struct {
	Name      string    `json:"name"`
	Members   int       `json:"members"`
	Capacity  int       `json:"capacity"`
	CreatedAt time.Time `json:"createdAt"`
}

// Registry is the authoritative map of room name to members. All methods
// are safe for concurrent use; capacity check and insertion happen under
// one lock so concurrent joins can never overfill a room.
type Registry struct {
	mu       sync.Mutex
	capacity int
	rooms    map[string]*Room
	memberOf map[string]string
	now      func() time.Time
}

// NewRegistry creates a registry whose rooms hold at most capacity members.
// A capacity below 1 falls back to DefaultRemoteLimit+1.
func NewRegistry(capacity int) *Registry {
	if capacity < 1 {
		capacity = DefaultRemoteLimit + 1
	}
	return &Registry{
		capacity: capacity,
		rooms:    make(map[string]*Room),
		memberOf: make(map[string]string),
		now:      time.Now,
	}
}

// Capacity returns the maximum number of members per room.
func (r *Registry) Capacity() int {
	return r.capacity
}

// Join adds connID to the named room, creating it if needed.
//
// A connection is in at most one room: if connID is currently in a
// different room it is removed from it first, and left reports that room
// and its remaining members so the caller can notify them. Joining the
// room one is already in reports JoinJoined and changes nothing.
func (r *Registry) Join(connID, name string) (result JoinResult, left *Departure) {
	if name == "" {
		return JoinRejected, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.memberOf[connID]; ok {
		if current == name {
			return JoinJoined, nil
		}
		room := r.rooms[name]
		if room != nil && len(room.Members) >= r.capacity {
			return JoinFull, nil
		}
		left = r.removeLocked(connID, current)
	}

	room, ok := r.rooms[name]
	if !ok {
		r.rooms[name] = &Room{Name: name, Members: []string{connID}, CreatedAt: r.now()}
		r.memberOf[connID] = name
		return JoinCreated, left
	}

	if len(room.Members) >= r.capacity {
		return JoinFull, left
	}

	room.Members = append(room.Members, connID)
	r.memberOf[connID] = name
	return JoinJoined, left
}

// Departure describes a membership that was removed.
type Departure struct {
	Room      string
	Remaining []string
	// Deleted is true when the departure emptied the room.
	Deleted bool
}

// Leave removes connID from the named room. It returns nil when connID was
// not a member of that room (including when the room does not exist).
func (r *Registry) Leave(connID, name string) *Departure {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.memberOf[connID] != name {
		return nil
	}
	return r.removeLocked(connID, name)
}

// Disconnect removes connID from whatever room it is in. It returns nil
// when the connection had no membership.
func (r *Registry) Disconnect(connID string) *Departure {
	r.mu.Lock()
	defer r.mu.Unlock()

	name, ok := r.memberOf[connID]
	if !ok {
		return nil
	}
	return r.removeLocked(connID, name)
}

func (r *Registry) removeLocked(connID, name string) *Departure {
	delete(r.memberOf, connID)

	room, ok := r.rooms[name]
	if !ok {
		return nil
	}
	i := room.indexOf(connID)
	if i < 0 {
		return nil
	}
	room.Members = append(room.Members[:i], room.Members[i+1:]...)

	d := &Departure{Room: name, Remaining: append([]string(nil), room.Members...)}
	if len(room.Members) == 0 {
		delete(r.rooms, name)
		d.Deleted = true
	}
	return d
}

// Others returns the members of the named room other than connID, in join
// order. ok is false when connID is not a member of the room.
func (r *Registry) Others(connID, name string) (others []string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.memberOf[connID] != name {
		return nil, false
	}
	room := r.rooms[name]
	if room == nil {
		return nil, false
	}
	others = make([]string, 0, len(room.Members)-1)
	for _, m := range room.Members {
		if m != connID {
			others = append(others, m)
		}
	}
	return others, true
}

// Members returns a copy of the room's members, or nil if it does not exist.
func (r *Registry) Members(name string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[name]
	if !ok {
		return nil
	}
	return append([]string(nil), room.Members...)
}

// RoomOf returns the room connID is a member of.
func (r *Registry) RoomOf(connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name, ok := r.memberOf[connID]
	return name, ok
}

// Exists reports whether a room with this name is live.
func (r *Registry) Exists(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.rooms[name]
	return ok
}

// Snapshot lists all live rooms sorted by name.
func (r *Registry) Snapshot() []RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]RoomInfo, 0, len(r.rooms))
	for _, room := range r.rooms {
		out = append(out, RoomInfo{
			Name:      room.Name,
			Members:   len(room.Members),
			Capacity:  r.capacity,
			CreatedAt: room.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
