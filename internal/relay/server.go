// Package relay serves boards to browsers over websockets. Each socket gets
// its own store connection and canvas engine; input messages drive the engine
// and room events are forwarded back out.
package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dyluth/ideaboard/internal/canvas"
	"github.com/dyluth/ideaboard/pkg/board"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/mdns"
	"github.com/rs/zerolog"
)

// Config controls the relay's sockets.
type Config struct {
	Listen        string
	Advertise     bool
	PingInterval  time.Duration
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	// PresenceTTL is how long the store keeps presence without a touch.
	// TouchInterval defaults to a third of it.
	PresenceTTL   time.Duration
	TouchInterval time.Duration
	Canvas        canvas.Config
}

func (c *Config) applyDefaults() {
	if c.PingInterval <= 0 {
		c.PingInterval = 20 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 60 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.TouchInterval <= 0 {
		c.TouchInterval = 10 * time.Second
		if c.PresenceTTL > 0 {
			c.TouchInterval = c.PresenceTTL / 3
		}
	}
}

// Server is the websocket relay.
type Server struct {
	cfg      Config
	open     Opener
	health   Pinger
	log      zerolog.Logger
	upgrader websocket.Upgrader

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	sessions atomic.Int64

	httpServer *http.Server
	mdns       *mdns.Server
}

// NewServer creates a relay. health may be nil when the store has nothing to
// ping.
func NewServer(cfg Config, open Opener, health Pinger, logger zerolog.Logger) *Server {
	cfg.applyDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:    cfg,
		open:   open,
		health: health,
		log:    logger.With().Str("component", "relay").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

// Handler returns the relay's HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.healthCheckHandler)
	mux.HandleFunc("GET /rooms/{room}/ws", s.handleRoom)
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if s.cfg.Advertise {
		port := ln.Addr().(*net.TCPAddr).Port
		srv, err := Advertise(port, nil)
		if err != nil {
			s.log.Warn().Err(err).Msg("mdns_advertise_failed")
		} else {
			s.mdns = srv
			s.log.Info().Int("port", port).Str("service", ServiceType).Msg("mdns_advertised")
		}
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", ln.Addr().String()).Msg("relay_listening")
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("relay server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops accepting sockets, closes every session and withdraws the
// mDNS announcement.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	if s.mdns != nil {
		if err := s.mdns.Shutdown(); err != nil {
			s.log.Warn().Err(err).Msg("mdns_shutdown_failed")
		}
	}

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}

// Sessions returns the number of open sockets.
func (s *Server) Sessions() int64 {
	return s.sessions.Load()
}

func (s *Server) handleRoom(w http.ResponseWriter, r *http.Request) {
	room := r.PathValue("room")
	if err := board.ValidateRoomName(room); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Str("room", room).Msg("upgrade_failed")
		return
	}

	s.wg.Add(1)
	s.sessions.Add(1)
	defer func() {
		s.sessions.Add(-1)
		s.wg.Done()
	}()

	sess := &session{
		cfg:  s.cfg,
		ws:   ws,
		room: room,
		log:  s.log.With().Str("room", room).Str("remote", r.RemoteAddr).Logger(),
	}
	sess.run(s.ctx, s.open)
}
