package service

import (
	"context"
	"errors"
	"sync"

	"github.com/adwski/watchparty/backend/metrics"
	"github.com/adwski/watchparty/backend/model"
	"github.com/rs/zerolog"
)

const (
	defaultInboxSize = 1024
)

var (
	ErrStopped = errors.New("hub is stopped")
)

var inboundEvents = map[string]struct{}{
	model.EventJoin:         {},
	model.EventLeaveRoom:    {},
	model.EventChatMessage:  {},
	model.EventPlay:         {},
	model.EventPause:        {},
	model.EventSeek:         {},
	model.EventLoadVideo:    {},
	model.EventSyncResponse: {},
}

type (
	// Registry is the connection registry and room membership directory.
	Registry interface {
		Connect() string
		Join(id, username, room string) (model.Connection, bool)
		Leave(id string) (model.Connection, bool)
		Disconnect(id string) (model.Connection, bool)
		Lookup(id string) (model.Connection, bool)
		MembersOf(room string) []string
		CountOf(room string) int
	}

	Switch interface {
		Connect(endpoint string, wire model.Wire)
		Disconnect(endpoint string)
		Send(ann model.Announcement) bool
		Multicast(ann model.Announcement, endpoints []string, except string) int
		Broadcast(ann model.Announcement) int
		Evicted() []string
	}

	Config struct {
		Registry  Registry
		Switch    Switch
		Metrics   *metrics.Metrics
		Logger    *zerolog.Logger
		InboxSize int
	}

	// Hub processes events of all connections one at a time in arrival order.
	// Registry and Switch are mutated only from the Run loop.
	Hub struct {
		registry Registry
		sw       Switch
		metrics  *metrics.Metrics
		inbox    chan op
		done     chan struct{}
		logger   zerolog.Logger
	}

	opKind int

	op struct {
		kind  opKind
		ann   model.Announcement
		wire  model.Wire
		reply chan<- string
	}
)

const (
	opConnect opKind = iota
	opEvent
	opDisconnect
)

func NewHub(cfg Config) *Hub {
	size := cfg.InboxSize
	if size <= 0 {
		size = defaultInboxSize
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.New(nil)
	}
	return &Hub{
		registry: cfg.Registry,
		sw:       cfg.Switch,
		metrics:  m,
		inbox:    make(chan op, size),
		done:     make(chan struct{}),
		logger:   cfg.Logger.With().Str("component", "hub").Logger(),
	}
}

func (h *Hub) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer func() {
		close(h.done)
		h.logger.Debug().Msg("hub stopped")
		wg.Done()
	}()
	h.logger.Debug().Msg("hub started")

	for {
		select {
		case <-ctx.Done():
			return
		case o := <-h.inbox:
			h.handle(o)
		}
	}
}

// Connect registers a new connection whose outbound frames go to wire.
func (h *Hub) Connect(ctx context.Context, wire model.Wire) (string, error) {
	reply := make(chan string, 1)
	if err := h.enqueue(ctx, op{kind: opConnect, wire: wire, reply: reply}); err != nil {
		return "", err
	}
	select {
	case id := <-reply:
		return id, nil
	case <-h.done:
		return "", ErrStopped
	case <-ctx.Done():
		// the hub still registers it; discard it once it does
		go h.discard(reply)
		return "", ctx.Err()
	}
}

func (h *Hub) discard(reply <-chan string) {
	select {
	case id := <-reply:
		if err := h.Disconnect(context.Background(), id); err != nil {
			h.logger.Debug().Err(err).Str("connID", id).Msg("abandoned connection not discarded")
		}
	case <-h.done:
	}
}

// Dispatch queues an inbound event; ann.SRC must name the sending connection.
func (h *Hub) Dispatch(ctx context.Context, ann model.Announcement) error {
	return h.enqueue(ctx, op{kind: opEvent, ann: ann})
}

// Disconnect queues the close of a connection. Repeated calls are harmless.
// Callers that must not lose the close pass a context without a deadline.
func (h *Hub) Disconnect(ctx context.Context, id string) error {
	return h.enqueue(ctx, op{kind: opDisconnect, ann: model.Announcement{SRC: id}})
}

func (h *Hub) enqueue(ctx context.Context, o op) error {
	select {
	case <-h.done:
		return ErrStopped
	default:
	}
	select {
	case h.inbox <- o:
		return nil
	case <-h.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) handle(o op) {
	switch o.kind {
	case opConnect:
		id := h.registry.Connect()
		h.sw.Connect(id, o.wire)
		h.metrics.Connections.Inc()
		h.logger.Debug().Str("connID", id).Msg("connection registered")
		o.reply <- id
	case opDisconnect:
		h.disconnect(o.ann.SRC)
	case opEvent:
		h.dispatch(o.ann)
	}
	h.reapEvicted()
}

// reapEvicted runs the disconnect path for endpoints the switch has cut off,
// so they stop counting as room members before the next event.
func (h *Hub) reapEvicted() {
	for evicted := h.sw.Evicted(); len(evicted) > 0; evicted = h.sw.Evicted() {
		for _, id := range evicted {
			h.logger.Debug().Str("connID", id).Msg("evicted connection discarded")
			h.disconnect(id)
		}
	}
}

func (h *Hub) dispatch(ann model.Announcement) {
	logger := h.logger.With().
		Str("connID", ann.SRC).
		Str("type", ann.Type).
		Logger()
	logger.Trace().RawJSON("payload", nonEmpty(ann.Payload)).Msg("inbound event")

	if _, ok := inboundEvents[ann.Type]; ok {
		h.metrics.Events.WithLabelValues(ann.Type).Inc()
	}
	switch ann.Type {
	case model.EventJoin:
		h.join(ann, &logger)
	case model.EventLeaveRoom:
		h.leave(ann.SRC)
	case model.EventChatMessage:
		h.relayChat(ann, &logger)
	case model.EventPlay, model.EventPause, model.EventSeek, model.EventLoadVideo:
		h.relayPlayback(ann, &logger)
	case model.EventSyncResponse:
		h.relaySync(ann, &logger)
	default:
		h.drop(&logger, "unknown_type")
	}
}

func (h *Hub) drop(logger *zerolog.Logger, reason string) {
	h.metrics.Dropped.WithLabelValues(reason).Inc()
	logger.Debug().Str("reason", reason).Msg("event dropped")
}

func nonEmpty(raw []byte) []byte {
	if len(raw) == 0 {
		return []byte("null")
	}
	return raw
}
