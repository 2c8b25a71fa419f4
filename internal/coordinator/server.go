package coordinator

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/holdem-table/internal/protocol"
)

// Server hosts exactly one TableSession over WebSocket. An operator who
// needs multiple tables runs multiple Servers.
type Server struct {
	session  *TableSession
	logger   *log.Logger
	upgrader websocket.Upgrader

	mux        *http.ServeMux
	httpServer *http.Server
	routesOnce sync.Once
}

// NewServer wires an HTTP+WebSocket front end around session.
func NewServer(session *TableSession, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		session: session,
		logger:  logger.WithPrefix("http"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		mux: http.NewServeMux(),
	}
}

func (s *Server) ensureRoutes() {
	s.routesOnce.Do(func() {
		s.mux.HandleFunc("/ws", s.handleWebSocket)
		s.mux.HandleFunc("/healthz", s.handleHealthz)
	})
}

// Start listens on addr and serves until the listener errors or Shutdown
// is called.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(listener)
}

// Serve serves HTTP on an already-bound listener.
func (s *Server) Serve(listener net.Listener) error {
	s.ensureRoutes()
	s.httpServer = &http.Server{Handler: s.mux}
	s.logger.Info("server starting", "addr", listener.Addr().String())

	err := s.httpServer.Serve(listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops accepting connections.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("server shutting down")
	return s.httpServer.Shutdown(ctx)
}

// handleWebSocket performs the handshake: upgrade, read exactly one
// `hello` frame within helloDeadline, then hand the connection to the
// session.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	conn := newConnection(ws, s.logger)

	raw, err := conn.readHello()
	if err != nil {
		s.logger.Debug("no hello received", "error", err)
		_ = conn.Close()
		return
	}

	msgType, err := protocol.PeekType(raw)
	if err != nil || msgType != protocol.TypeHello {
		conn.SendDirect(protocol.NewError(time.Now(), protocol.CodeBadHello, "first frame must be hello"))
		_ = conn.CloseWithReason("expected hello")
		return
	}

	decoded, err := protocol.Decode(raw)
	if err != nil {
		conn.SendDirect(protocol.NewError(time.Now(), protocol.CodeBadHello, "malformed hello"))
		_ = conn.CloseWithReason("malformed hello")
		return
	}
	hello, ok := decoded.(protocol.Hello)
	if !ok || hello.Team == "" {
		conn.SendDirect(protocol.NewError(time.Now(), protocol.CodeBadSchema, "hello requires a non-empty team"))
		_ = conn.CloseWithReason("team required")
		return
	}

	s.session.HandleHello(conn, hello.Team)
	conn.Serve(func(data []byte) { s.session.HandleFrame(conn, data) })

	// The read pump's exit (on socket close, by peer or by error) is our
	// only disconnect signal; watch it here rather than in Connection,
	// which has no notion of sessions.
	go s.watchDisconnect(conn)
}

func (s *Server) watchDisconnect(conn *Connection) {
	<-conn.closed
	s.session.HandleDisconnect(conn)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}
