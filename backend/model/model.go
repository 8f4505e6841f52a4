package model

import "encoding/json"

// Inbound event types sent by clients.
const (
	EventJoin         = "join"
	EventLeaveRoom    = "leave-room"
	EventChatMessage  = "chat-message"
	EventPlay         = "play"
	EventPause        = "pause"
	EventSeek         = "seek"
	EventLoadVideo    = "load-video"
	EventSyncResponse = "sync-response"
)

// Outbound event types emitted by the hub.
// Chat and playback events reuse the inbound names.
const (
	EventUserJoined         = "user-joined"
	EventUserLeft           = "user-left"
	EventSystemNotification = "system-notification"
	EventUpdateLobby        = "update-lobby"
	EventRequestSync        = "request-sync"
	EventSyncState          = "sync-state"
)

// Announcement is a single frame exchanged with a client.
// Payload is kept raw so relayed events reach other clients exactly as sent.
type Announcement struct {
	DST     string          `json:"dst,omitempty"`
	SRC     string          `json:"src,omitempty"` // for inbound messages server re-assigns this based on websocket session
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Connection is a snapshot of a live connection's registry record.
// Room is meaningful only while InRoom is set; any string, the empty one
// included, is a valid room name.
type Connection struct {
	ID       string
	Username string
	Room     string
	InRoom   bool
}

type JoinRequest struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

type Presence struct {
	Username    string `json:"username"`
	ActiveUsers int    `json:"activeUsers"`
}

type ChatMessage struct {
	Username string          `json:"username"`
	Message  json.RawMessage `json:"message"`
}

// SyncResponse holds the only field of a sync-response the hub reads;
// the rest of the payload is relayed untouched.
type SyncResponse struct {
	TargetID string `json:"targetId"`
}

// SyncState describes the sync-response/sync-state payload clients exchange.
// The hub relays it as raw bytes and only reads TargetID through SyncResponse,
// so this type exists for clients and tools written against this package.
type SyncState struct {
	TargetID string  `json:"targetId,omitempty"`
	VideoID  string  `json:"videoId"`
	Time     float64 `json:"time"`
	State    int     `json:"state"`
}

type RoomPresence struct {
	Room        string `json:"room"`
	ActiveUsers int    `json:"activeUsers"`
}

// Wire is the outbound queue of one connection.
// The hub is the only writer, the transport drains it.
type Wire struct {
	TX chan Announcement
}

func NewWire(size int) Wire {
	return Wire{
		TX: make(chan Announcement, size),
	}
}
