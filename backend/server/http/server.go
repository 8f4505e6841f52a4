package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/adwski/watchparty/backend/model"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const (
	defaultShutdownDeadline  = 10 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
)

var (
	ErrUnexpected = errors.New("unexpected server error")
)

// PresenceService answers occupancy queries outside the hub's event loop.
type PresenceService interface {
	CountOf(room string) int
	Rooms() []model.RoomPresence
}

type GenericResponse struct {
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type Server struct {
	logger zerolog.Logger
	svc    PresenceService
	*http.Server
}

type Config struct {
	Logger          *zerolog.Logger
	PresenceService PresenceService
	// Gatherer backs the /metrics endpoint; it is not mounted when nil.
	Gatherer   prometheus.Gatherer
	ListenAddr string
}

func NewServer(cfg Config) *Server {
	srv := &Server{
		logger: cfg.Logger.With().Str("component", "api-server").Logger(),
		svc:    cfg.PresenceService,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors)
	r.Options("/*", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/healthz", healthz)
	r.Route("/api/rooms", func(r chi.Router) {
		r.Get("/", srv.listRooms)
		r.Get("/{room}", srv.roomPresence)
	})
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	srv.Server = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
	}
	return srv
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")
		w.Header().Set("Access-Control-Max-Age", "86400")
		next.ServeHTTP(w, r)
	})
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, &GenericResponse{Message: "OK"})
}

func (srv *Server) listRooms(w http.ResponseWriter, _ *http.Request) {
	rooms := srv.svc.Rooms()
	srv.logger.Trace().Int("rooms", len(rooms)).Msg("rooms listed")
	writeJSON(w, http.StatusOK, &GenericResponse{Data: rooms})
}

// roomPresence reports the live occupancy of a room; unknown rooms have zero users.
func (srv *Server) roomPresence(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "room")
	writeJSON(w, http.StatusOK, &GenericResponse{Data: model.RoomPresence{
		Room:        room,
		ActiveUsers: srv.svc.CountOf(room),
	}})
}

func writeJSON(w http.ResponseWriter, code int, resp *GenericResponse) {
	b, err := json.Marshal(resp)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(code)
	_, _ = w.Write(b)
}

func (srv *Server) Run(ctx context.Context, wg *sync.WaitGroup, errc chan<- error) {
	defer func() {
		srv.logger.Debug().Msg("server stopped")
		wg.Done()
	}()

	hErr := make(chan error)
	go func() {
		hErr <- srv.ListenAndServe()
	}()

	srv.logger.Info().Str("addr", srv.Addr).Msg("server started")

	select {
	case err := <-hErr:
		if !errors.Is(err, http.ErrServerClosed) {
			errc <- errors.Join(ErrUnexpected, err)
		}
	case <-ctx.Done():
		shCtx, shCancel := context.WithTimeout(context.Background(), defaultShutdownDeadline)
		defer shCancel()
		if err := srv.Shutdown(shCtx); err != nil {
			srv.logger.Error().Err(err).Msg("server shutdown failed")
		}
	}
}
