package service

import (
	"encoding/json"

	"github.com/adwski/watchparty/backend/model"
	"github.com/rs/zerolog"
)

// requestSync asks the earliest other member of the room to report its
// playback state to the joiner. The hub keeps no record of the request:
// whatever sync-response arrives later is relayed, and a lost one is never noticed.
func (h *Hub) requestSync(joiner string, members []string) {
	if len(members) <= 1 {
		return
	}
	for _, ref := range members {
		if ref == joiner {
			continue
		}
		target, err := json.Marshal(joiner)
		if err != nil {
			h.logger.Error().Err(err).Str("connID", joiner).Msg("failed to marshal sync request")
			return
		}
		if h.sw.Send(model.Announcement{
			DST:     ref,
			Type:    model.EventRequestSync,
			Payload: target,
		}) {
			h.metrics.SyncRequests.Inc()
		}
		h.logger.Debug().
			Str("connID", joiner).
			Str("referencePeer", ref).
			Msg("sync requested")
		return
	}
}

// relaySync passes a reference peer's sync-response, unmodified, to its target only.
func (h *Hub) relaySync(ann model.Announcement, logger *zerolog.Logger) {
	var resp model.SyncResponse
	if err := json.Unmarshal(ann.Payload, &resp); err != nil {
		h.drop(logger, "malformed")
		return
	}
	if resp.TargetID == "" {
		h.drop(logger, "no_target")
		return
	}
	if h.sw.Send(model.Announcement{
		DST:     resp.TargetID,
		Type:    model.EventSyncState,
		Payload: ann.Payload,
	}) {
		h.metrics.SyncRelayed.Inc()
	}
}
