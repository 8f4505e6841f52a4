package service

import (
	"encoding/json"
	"fmt"

	"github.com/adwski/watchparty/backend/model"
	"github.com/rs/zerolog"
)

func (h *Hub) join(ann model.Announcement, logger *zerolog.Logger) {
	var req model.JoinRequest
	if err := json.Unmarshal(ann.Payload, &req); err != nil {
		h.drop(logger, "malformed")
		return
	}
	prev, ok := h.registry.Join(ann.SRC, req.Username, req.Room)
	if !ok {
		h.drop(logger, "rejected")
		return
	}
	if prev.InRoom && prev.Room != req.Room {
		h.announceLeft(prev)
	}

	members := h.registry.MembersOf(req.Room)
	h.multicast(members, model.EventUserJoined, model.Presence{
		Username:    req.Username,
		ActiveUsers: len(members),
	})
	h.notify(members, fmt.Sprintf("%s joined the room.", req.Username))
	h.lobbyChanged()
	h.metrics.PresenceChanges.WithLabelValues("join").Inc()

	logger.Debug().
		Str("room", req.Room).
		Str("username", req.Username).
		Int("activeUsers", len(members)).
		Msg("joined room")

	h.requestSync(ann.SRC, members)
}

func (h *Hub) leave(id string) {
	conn, ok := h.registry.Leave(id)
	if !ok {
		return
	}
	h.announceLeft(conn)
	h.lobbyChanged()
}

func (h *Hub) disconnect(id string) {
	h.sw.Disconnect(id)
	conn, ok := h.registry.Disconnect(id)
	if !ok {
		return
	}
	h.metrics.Connections.Dec()
	h.logger.Debug().Str("connID", id).Msg("connection discarded")
	if !conn.InRoom {
		return
	}
	h.announceLeft(conn)
	h.lobbyChanged()
}

// announceLeft tells the remaining members of conn.Room that conn is gone.
func (h *Hub) announceLeft(conn model.Connection) {
	members := h.registry.MembersOf(conn.Room)
	h.multicast(members, model.EventUserLeft, model.Presence{
		Username:    conn.Username,
		ActiveUsers: len(members),
	})
	h.notify(members, fmt.Sprintf("%s left the room.", conn.Username))
	h.metrics.PresenceChanges.WithLabelValues("leave").Inc()

	h.logger.Debug().
		Str("connID", conn.ID).
		Str("room", conn.Room).
		Str("username", conn.Username).
		Int("activeUsers", len(members)).
		Msg("left room")
}

func (h *Hub) lobbyChanged() {
	h.sw.Broadcast(model.Announcement{Type: model.EventUpdateLobby})
}

func (h *Hub) notify(members []string, text string) {
	h.multicast(members, model.EventSystemNotification, text)
}

func (h *Hub) multicast(members []string, typ string, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error().Err(err).Str("type", typ).Msg("failed to marshal outgoing payload")
		return
	}
	h.sw.Multicast(model.Announcement{Type: typ, Payload: b}, members, "")
}
