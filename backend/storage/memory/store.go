package memory

import (
	"sort"
	"sync"

	"github.com/adwski/watchparty/backend/model"
	"github.com/google/uuid"
)

// MemStore keeps live connections and room membership.
// Each room's member list is kept in join order and always agrees with
// the Room and InRoom fields of the member connections.
type MemStore struct {
	mx    *sync.RWMutex
	conns map[string]*model.Connection
	rooms map[string][]string
}

func NewMemStore() *MemStore {
	return &MemStore{
		mx:    &sync.RWMutex{},
		conns: make(map[string]*model.Connection),
		rooms: make(map[string][]string),
	}
}

// Connect registers a new connection with no room and no username.
func (ms *MemStore) Connect() string {
	ms.mx.Lock()
	defer ms.mx.Unlock()

	id := uuid.NewString()
	for _, ok := ms.conns[id]; ok; _, ok = ms.conns[id] {
		id = uuid.NewString()
	}
	ms.conns[id] = &model.Connection{ID: id}
	return id
}

// Join puts the connection into room, leaving its previous room first.
// It returns the connection as it was before the call.
// Room names are not validated. Unknown connections are reported with false.
func (ms *MemStore) Join(id, username, room string) (model.Connection, bool) {
	ms.mx.Lock()
	defer ms.mx.Unlock()

	conn, ok := ms.conns[id]
	if !ok {
		return model.Connection{}, false
	}
	prev := *conn

	if !conn.InRoom || conn.Room != room {
		ms.removeMember(conn)
		ms.rooms[room] = append(ms.rooms[room], id)
	}
	conn.Username = username
	conn.Room = room
	conn.InRoom = true
	return prev, true
}

// Leave removes the connection from its current room.
// It returns the connection as it was before the call and whether it actually left a room.
func (ms *MemStore) Leave(id string) (model.Connection, bool) {
	ms.mx.Lock()
	defer ms.mx.Unlock()

	conn, ok := ms.conns[id]
	if !ok || !conn.InRoom {
		return model.Connection{}, false
	}
	prev := *conn
	ms.removeMember(conn)
	conn.Room = ""
	conn.InRoom = false
	return prev, true
}

// Disconnect leaves the current room and discards the connection record.
// It returns the record as it was before removal; repeated calls report false.
func (ms *MemStore) Disconnect(id string) (model.Connection, bool) {
	ms.mx.Lock()
	defer ms.mx.Unlock()

	conn, ok := ms.conns[id]
	if !ok {
		return model.Connection{}, false
	}
	ms.removeMember(conn)
	delete(ms.conns, id)
	return *conn, true
}

func (ms *MemStore) Lookup(id string) (model.Connection, bool) {
	ms.mx.RLock()
	defer ms.mx.RUnlock()

	conn, ok := ms.conns[id]
	if !ok {
		return model.Connection{}, false
	}
	return *conn, true
}

// MembersOf returns the room's connection ids in join order.
func (ms *MemStore) MembersOf(room string) []string {
	ms.mx.RLock()
	defer ms.mx.RUnlock()

	members := ms.rooms[room]
	out := make([]string, len(members))
	copy(out, members)
	return out
}

func (ms *MemStore) CountOf(room string) int {
	ms.mx.RLock()
	defer ms.mx.RUnlock()

	return len(ms.rooms[room])
}

// Rooms lists occupied rooms sorted by name.
func (ms *MemStore) Rooms() []model.RoomPresence {
	ms.mx.RLock()
	defer ms.mx.RUnlock()

	out := make([]model.RoomPresence, 0, len(ms.rooms))
	for name, members := range ms.rooms {
		out = append(out, model.RoomPresence{Room: name, ActiveUsers: len(members)})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Room < out[j].Room
	})
	return out
}

// removeMember must be called with the write lock held.
func (ms *MemStore) removeMember(conn *model.Connection) {
	if !conn.InRoom {
		return
	}
	room := conn.Room
	members := ms.rooms[room]
	for i, member := range members {
		if member == conn.ID {
			members = append(members[:i], members[i+1:]...)
			break
		}
	}
	if len(members) == 0 {
		delete(ms.rooms, room)
		return
	}
	ms.rooms[room] = members
}
