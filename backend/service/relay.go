package service

import (
	"fmt"

	"github.com/adwski/watchparty/backend/model"
	"github.com/rs/zerolog"
)

// Activity notices for playback events. Seek has none.
var playbackNotices = map[string]string{
	model.EventPlay:      "%s played video.",
	model.EventPause:     "%s paused video.",
	model.EventLoadVideo: "%s changed video.",
}

// sender resolves the room of the event's source connection.
func (h *Hub) sender(ann model.Announcement, logger *zerolog.Logger) (model.Connection, []string, bool) {
	conn, ok := h.registry.Lookup(ann.SRC)
	if !ok || !conn.InRoom {
		h.drop(logger, "no_room")
		return model.Connection{}, nil, false
	}
	return conn, h.registry.MembersOf(conn.Room), true
}

// relayChat echoes the message to the whole room, sender included.
func (h *Hub) relayChat(ann model.Announcement, logger *zerolog.Logger) {
	conn, members, ok := h.sender(ann, logger)
	if !ok {
		return
	}
	h.multicast(members, model.EventChatMessage, model.ChatMessage{
		Username: conn.Username,
		Message:  nonEmpty(ann.Payload),
	})
}

// relayPlayback forwards the raw payload to everyone in the room but the sender.
func (h *Hub) relayPlayback(ann model.Announcement, logger *zerolog.Logger) {
	conn, members, ok := h.sender(ann, logger)
	if !ok {
		return
	}
	h.sw.Multicast(model.Announcement{
		Type:    ann.Type,
		Payload: ann.Payload,
	}, members, conn.ID)

	if notice, ok := playbackNotices[ann.Type]; ok {
		h.notify(members, fmt.Sprintf(notice, conn.Username))
	}
}
