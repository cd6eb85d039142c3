// Package chatserver implements the chat server that wschat clients talk to.
//
// Clients connect on /producer, /consumer or /both. Every text message from
// a producing client is prefixed with its address and relayed to all
// consuming clients but the sender.
package chatserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gbrlsnchs/wschat"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	DefaultPingInterval = 5 * time.Second
	DefaultTimeout      = 20 * time.Second

	serverHeader = "wschat-server/1.0"
	badRoute     = `Improper route. Must be one of "/producer", "/consumer", or "/both"`
)

// Config holds the server settings.
type Config struct {
	// PingInterval is the period between keepalive pings.
	// Zero or negative disables pings and the read timeout with them.
	PingInterval time.Duration
	// Timeout is how long a client may stay silent after a ping.
	Timeout time.Duration
	Logger  *zerolog.Logger
}

// Server is an http.Handler upgrading chat clients and relaying their messages.
type Server struct {
	hub          *Hub
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	timeout      time.Duration
	logger       *zerolog.Logger
}

// New returns a server. Its hub must be started with Run.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Server{
		hub: newHub(logger),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		pingInterval: cfg.PingInterval,
		timeout:      cfg.Timeout,
		logger:       logger,
	}
}

// Run runs the hub until ctx is done. Connected clients are then sent a
// close frame.
func (s *Server) Run(ctx context.Context) {
	s.hub.Run(ctx)
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	return s.hub.Clients()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Server", serverHeader)
	role, err := wschat.ParseRole(strings.TrimPrefix(r.URL.Path, "/"))
	if err != nil {
		s.logger.Debug().Str("path", r.URL.Path).Str("remote", r.RemoteAddr).Msg("rejected route")
		http.Error(w, badRoute, http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, http.Header{"Server": {serverHeader}})
	if err != nil {
		// The upgrader has already answered with an error status.
		s.logger.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("upgrade failed")
		return
	}

	c := &client{
		id:           uuid.NewString(),
		addr:         r.RemoteAddr,
		role:         role,
		hub:          s.hub,
		conn:         conn,
		send:         make(chan []byte, sendQueueSize),
		pingInterval: s.pingInterval,
		timeout:      s.timeout,
	}
	c.logger = s.logger.With().Str("id", c.id).Str("addr", c.addr).Logger()
	if !enqueue(s.hub, s.hub.register, c) {
		conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}
