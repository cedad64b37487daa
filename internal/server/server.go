package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lox/rpsbet/internal/protocol"
)

// Server is the WebSocket front of the escrow host. Connections deliver
// calls to the Service; round events fan back out to every client.
type Server struct {
	upgrader    websocket.Upgrader
	connections map[*Connection]bool
	register    chan *Connection
	unregister  chan *Connection
	logger      zerolog.Logger
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	service     *Service
	httpServer  *http.Server
}

// NewServer creates a server around the given service.
func NewServer(logger zerolog.Logger, service *Service) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		upgrader: websocket.Upgrader{
			// Bots connect from anywhere; there is no browser surface to
			// protect.
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		logger:      logger.With().Str("component", "server").Logger(),
		ctx:         ctx,
		cancel:      cancel,
		service:     service,
	}
	service.SetBroadcast(s.Broadcast)
	return s
}

// Start runs the server on addr and blocks until shutdown.
func (s *Server) Start(addr string) error {
	go s.run()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	s.httpServer = &http.Server{Addr: addr, Handler: mux}
	s.logger.Info().Str("addr", addr).Msg("starting websocket server")
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting connections, closes the existing ones and waits
// for the HTTP server to drain.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()

	s.mu.Lock()
	for conn := range s.connections {
		_ = conn.Close()
	}
	s.mu.Unlock()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Server) run() {
	for {
		select {
		case conn := <-s.register:
			s.mu.Lock()
			s.connections[conn] = true
			total := len(s.connections)
			s.mu.Unlock()
			s.logger.Info().Int("total", total).Msg("client connected")

		case conn := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.connections[conn]; ok {
				delete(s.connections, conn)
				_ = conn.Close()
			}
			total := len(s.connections)
			s.mu.Unlock()
			s.logger.Info().Int("total", total).Msg("client disconnected")

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to upgrade connection")
		return
	}

	client := NewConnection(conn, s.logger, s.service)
	s.register <- client
	client.Start()

	go func() {
		<-client.ctx.Done()
		select {
		case s.unregister <- client:
		case <-s.ctx.Done():
		}
	}()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, "OK")
}

// Broadcast fans a message out to every connection.
func (s *Server) Broadcast(msg *protocol.Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for conn := range s.connections {
		if err := conn.Send(msg); err != nil {
			s.logger.Error().Err(err).Str("address", conn.Address()).Msg("broadcast send failed")
		}
	}
}

// ConnectedAddresses returns the joined address of every live connection.
func (s *Server) ConnectedAddresses() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var addrs []string
	for conn := range s.connections {
		if addr := conn.Address(); addr != "" {
			addrs = append(addrs, addr)
		}
	}
	return addrs
}
