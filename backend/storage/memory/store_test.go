package memory

import (
	"testing"

	"github.com/adwski/watchparty/backend/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requirePartition checks that every joined connection is listed in exactly
// the room its record names, and nowhere else.
func requirePartition(t *testing.T, ms *MemStore) {
	t.Helper()

	seen := make(map[string]string)
	for room, members := range ms.rooms {
		require.NotEmpty(t, members, "empty room %q kept", room)
		for _, id := range members {
			prev, dup := seen[id]
			require.False(t, dup, "connection %s in rooms %q and %q", id, prev, room)
			seen[id] = room
		}
	}
	for id, conn := range ms.conns {
		if !conn.InRoom {
			assert.NotContains(t, seen, id)
			continue
		}
		require.Contains(t, seen, id)
		assert.Equal(t, conn.Room, seen[id], "connection %s", id)
	}
	for id := range seen {
		assert.Contains(t, ms.conns, id)
	}
}

func TestMemStore_Connect(t *testing.T) {
	ms := NewMemStore()

	a := ms.Connect()
	b := ms.Connect()
	require.NotEmpty(t, a)
	require.NotEqual(t, a, b)

	conn, ok := ms.Lookup(a)
	require.True(t, ok)
	assert.Equal(t, model.Connection{ID: a}, conn)
}

func TestMemStore_Join(t *testing.T) {
	ms := NewMemStore()
	a := ms.Connect()

	prev, ok := ms.Join(a, "alice", "Lobby")
	require.True(t, ok)
	assert.Equal(t, model.Connection{ID: a}, prev)

	conn, ok := ms.Lookup(a)
	require.True(t, ok)
	assert.Equal(t, "alice", conn.Username)
	assert.Equal(t, "Lobby", conn.Room)
	assert.True(t, conn.InRoom)
	assert.Equal(t, []string{a}, ms.MembersOf("Lobby"))
	assert.Equal(t, 1, ms.CountOf("Lobby"))
	requirePartition(t, ms)
}

func TestMemStore_Join_SameRoomIsIdempotent(t *testing.T) {
	ms := NewMemStore()
	a := ms.Connect()
	b := ms.Connect()
	ms.Join(a, "alice", "Lobby")
	ms.Join(b, "bob", "Lobby")

	prev, ok := ms.Join(a, "alice2", "Lobby")
	require.True(t, ok)
	assert.Equal(t, "Lobby", prev.Room)
	assert.Equal(t, "alice", prev.Username)

	assert.Equal(t, []string{a, b}, ms.MembersOf("Lobby"))
	conn, _ := ms.Lookup(a)
	assert.Equal(t, "alice2", conn.Username)
	requirePartition(t, ms)
}

func TestMemStore_Join_MovesBetweenRooms(t *testing.T) {
	ms := NewMemStore()
	a := ms.Connect()
	b := ms.Connect()
	ms.Join(a, "alice", "Q")
	ms.Join(b, "bob", "Q")

	prev, ok := ms.Join(a, "alice", "R")
	require.True(t, ok)
	assert.Equal(t, "Q", prev.Room)

	assert.Equal(t, []string{b}, ms.MembersOf("Q"))
	assert.Equal(t, []string{a}, ms.MembersOf("R"))
	requirePartition(t, ms)
}

func TestMemStore_Join_UnknownConnection(t *testing.T) {
	ms := NewMemStore()

	_, ok := ms.Join("nope", "ghost", "Lobby")
	assert.False(t, ok)
	assert.Zero(t, ms.CountOf("Lobby"))
	requirePartition(t, ms)
}

func TestMemStore_Join_EmptyRoomName(t *testing.T) {
	ms := NewMemStore()
	a := ms.Connect()
	b := ms.Connect()

	_, ok := ms.Join(a, "alice", "")
	require.True(t, ok)
	ms.Join(b, "bob", "")

	conn, _ := ms.Lookup(a)
	assert.True(t, conn.InRoom)
	assert.Empty(t, conn.Room)
	assert.Equal(t, []string{a, b}, ms.MembersOf(""))
	assert.Equal(t, 2, ms.CountOf(""))
	requirePartition(t, ms)

	prev, ok := ms.Join(a, "alice", "Lobby")
	require.True(t, ok)
	assert.True(t, prev.InRoom)
	assert.Equal(t, []string{b}, ms.MembersOf(""))

	prev, ok = ms.Leave(b)
	require.True(t, ok, "leaving the empty-named room is a real leave")
	assert.Equal(t, model.Connection{ID: b, Username: "bob", InRoom: true}, prev)
	assert.Zero(t, ms.CountOf(""))
	requirePartition(t, ms)
}

func TestMemStore_Leave(t *testing.T) {
	ms := NewMemStore()
	a := ms.Connect()
	b := ms.Connect()
	ms.Join(a, "alice", "Lobby")
	ms.Join(b, "bob", "Lobby")

	prev, ok := ms.Leave(a)
	require.True(t, ok)
	assert.Equal(t, model.Connection{ID: a, Username: "alice", Room: "Lobby", InRoom: true}, prev)
	assert.Equal(t, []string{b}, ms.MembersOf("Lobby"))

	conn, ok := ms.Lookup(a)
	require.True(t, ok, "leave must keep the connection")
	assert.Empty(t, conn.Room)
	assert.False(t, conn.InRoom)

	_, ok = ms.Leave(a)
	assert.False(t, ok, "leave without a room is a no-op")
	_, ok = ms.Leave("nope")
	assert.False(t, ok)
	requirePartition(t, ms)
}

func TestMemStore_Disconnect(t *testing.T) {
	ms := NewMemStore()
	a := ms.Connect()
	b := ms.Connect()
	ms.Join(a, "alice", "Lobby")
	ms.Join(b, "bob", "Lobby")

	prev, ok := ms.Disconnect(b)
	require.True(t, ok)
	assert.Equal(t, "Lobby", prev.Room)
	assert.Equal(t, "bob", prev.Username)

	_, ok = ms.Lookup(b)
	assert.False(t, ok)
	assert.Equal(t, []string{a}, ms.MembersOf("Lobby"))

	_, ok = ms.Disconnect(b)
	assert.False(t, ok, "second disconnect must be a no-op")
	assert.Equal(t, []string{a}, ms.MembersOf("Lobby"))
	requirePartition(t, ms)
}

func TestMemStore_EmptyRoomIsForgotten(t *testing.T) {
	ms := NewMemStore()
	a := ms.Connect()
	ms.Join(a, "alice", "Lobby")
	ms.Disconnect(a)

	assert.Empty(t, ms.MembersOf("Lobby"))
	assert.NotNil(t, ms.MembersOf("Lobby"))
	assert.Zero(t, ms.CountOf("Lobby"))
	assert.Empty(t, ms.Rooms())
}

func TestMemStore_MembersOf_ReturnsCopy(t *testing.T) {
	ms := NewMemStore()
	a := ms.Connect()
	ms.Join(a, "alice", "Lobby")

	members := ms.MembersOf("Lobby")
	members[0] = "mutated"

	assert.Equal(t, []string{a}, ms.MembersOf("Lobby"))
}

func TestMemStore_Rooms(t *testing.T) {
	ms := NewMemStore()
	for _, room := range []string{"b", "a", "b"} {
		ms.Join(ms.Connect(), "u", room)
	}
	ms.Connect()

	assert.Equal(t, []model.RoomPresence{
		{Room: "a", ActiveUsers: 1},
		{Room: "b", ActiveUsers: 2},
	}, ms.Rooms())
}
