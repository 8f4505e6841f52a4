package _switch

import (
	"sync"

	"github.com/adwski/watchparty/backend/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

type Config struct {
	Logger *zerolog.Logger

	// DeadEndpoints is incremented when an endpoint is cut off. Optional.
	DeadEndpoints prometheus.Counter
}

// Switch owns the outbound wires of all connected endpoints.
// Sends never block: an endpoint whose queue is full is considered dead,
// its wire is closed and forgotten, and the transport tears the connection down.
type Switch struct {
	logger  zerolog.Logger
	mx      *sync.Mutex
	fwd     map[string]model.Wire
	evicted []string
	dead    prometheus.Counter
}

func NewSwitch(cfg Config) *Switch {
	return &Switch{
		logger: cfg.Logger.With().Str("component", "switch").Logger(),
		mx:     &sync.Mutex{},
		fwd:    make(map[string]model.Wire),
		dead:   cfg.DeadEndpoints,
	}
}

func (sw *Switch) Connect(endpoint string, wire model.Wire) {
	sw.mx.Lock()
	defer sw.mx.Unlock()

	sw.fwd[endpoint] = wire
	sw.logger.Debug().Str("endpoint", endpoint).Msg("endpoint connected")
}

// Disconnect closes the endpoint's wire. Unknown endpoints are ignored.
func (sw *Switch) Disconnect(endpoint string) {
	sw.mx.Lock()
	defer sw.mx.Unlock()

	wire, ok := sw.fwd[endpoint]
	if !ok {
		return
	}
	delete(sw.fwd, endpoint)
	close(wire.TX)
	sw.logger.Debug().Str("endpoint", endpoint).Msg("endpoint disconnected")
}

// Send delivers ann to ann.DST.
func (sw *Switch) Send(ann model.Announcement) bool {
	sw.mx.Lock()
	defer sw.mx.Unlock()

	wire, ok := sw.fwd[ann.DST]
	if !ok {
		sw.logger.Debug().
			Str("type", ann.Type).
			Str("dst", ann.DST).
			Msg("cannot forward, dst not found")
		return false
	}
	return sw.send(ann.DST, wire, ann)
}

// Multicast delivers ann to every listed endpoint except the excluded one
// and returns the number of endpoints reached.
func (sw *Switch) Multicast(ann model.Announcement, endpoints []string, except string) int {
	sw.mx.Lock()
	defer sw.mx.Unlock()

	var sent int
	for _, dst := range endpoints {
		if dst == except {
			continue
		}
		wire, ok := sw.fwd[dst]
		if !ok {
			continue
		}
		if sw.send(dst, wire, ann) {
			sent++
		}
	}
	if sent == 0 {
		sw.logger.Debug().
			Str("type", ann.Type).
			Str("src", ann.SRC).
			Msg("multicast did not reach anyone")
	}
	return sent
}

// Broadcast delivers ann to every connected endpoint.
func (sw *Switch) Broadcast(ann model.Announcement) int {
	sw.mx.Lock()
	defer sw.mx.Unlock()

	var sent int
	for dst, wire := range sw.fwd {
		if sw.send(dst, wire, ann) {
			sent++
		}
	}
	return sent
}

// Evicted returns the endpoints cut off since the previous call.
func (sw *Switch) Evicted() []string {
	sw.mx.Lock()
	defer sw.mx.Unlock()

	evicted := sw.evicted
	sw.evicted = nil
	return evicted
}

// send must be called with the lock held.
func (sw *Switch) send(dst string, wire model.Wire, ann model.Announcement) bool {
	ann.DST = dst
	select {
	case wire.TX <- ann:
		sw.logger.Trace().
			Str("type", ann.Type).
			Str("dst", dst).
			Msg("announce is forwarded")
		return true
	default:
	}

	sw.logger.Error().
		Str("type", ann.Type).
		Str("dst", dst).
		Msg("dead endpoint")
	delete(sw.fwd, dst)
	close(wire.TX)
	sw.evicted = append(sw.evicted, dst)
	if sw.dead != nil {
		sw.dead.Inc()
	}
	return false
}
