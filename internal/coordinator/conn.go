package coordinator

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/holdem-table/internal/protocol"
)

const (
	// writeWait bounds how long a single frame write may take.
	writeWait = 10 * time.Second

	// pongWait bounds how long we wait for a pong before considering the
	// peer dead.
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds a single inbound frame.
	maxMessageSize = 8192

	// helloDeadline bounds how long a new connection has to send its
	// hello frame.
	helloDeadline = 5 * time.Second

	// sendBuffer is the per-connection outbound queue depth. A slow
	// reader fills this before it ever blocks a broadcast to other
	// seats.
	sendBuffer = 256
)

// Connection wraps one client's WebSocket socket. It owns the socket
// exclusively; the TableSession never writes to it directly, only through
// Send, and never reads from it directly, only through the onMessage
// callback passed to Serve.
type Connection struct {
	ws        *websocket.Conn
	send      chan []byte
	logger    *log.Logger
	closed    chan struct{}
	closeOnce sync.Once
}

func newConnection(ws *websocket.Conn, logger *log.Logger) *Connection {
	return &Connection{
		ws:     ws,
		send:   make(chan []byte, sendBuffer),
		logger: logger.WithPrefix("conn"),
		closed: make(chan struct{}),
	}
}

// readHello blocks for up to helloDeadline for the connection's first
// frame, before the full read pump is running. It is used only during the
// handshake.
func (c *Connection) readHello() ([]byte, error) {
	_ = c.ws.SetReadDeadline(time.Now().Add(helloDeadline))
	_, data, err := c.ws.ReadMessage()
	_ = c.ws.SetReadDeadline(time.Time{})
	return data, err
}

// Serve starts the read and write pumps. onMessage is invoked with each
// inbound frame's raw bytes, from the read pump's goroutine, until the
// connection closes.
func (c *Connection) Serve(onMessage func([]byte)) {
	go c.writePump()
	go c.readPump(onMessage)
}

func (c *Connection) readPump(onMessage func([]byte)) {
	defer func() { _ = c.Close() }()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket read error", "error", err)
			}
			return
		}
		onMessage(data)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug("websocket write error", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}

// Send enqueues v for delivery, marshalled to JSON. It never blocks: a full
// queue closes the connection rather than stall a broadcast to other
// seats.
func (c *Connection) Send(v any) {
	data, err := protocol.Marshal(v)
	if err != nil {
		c.logger.Error("failed to marshal outbound message", "error", err)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			// send on a channel closed by a concurrent Close; expected
			// during shutdown races.
			c.logger.Debug("send on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- data:
	case <-c.closed:
	default:
		c.logger.Warn("outbound buffer full, closing connection")
		_ = c.Close()
	}
}

// SendError is a convenience wrapper for sending a protocol.Error frame.
func (c *Connection) SendError(now time.Time, code, msg string) {
	c.Send(protocol.NewError(now, code, msg))
}

// SendDirect writes v synchronously on the socket. It is only safe before
// Serve has started the pumps; the handshake uses it so a fatal error
// still reaches a connection that will never be attached to the session.
func (c *Connection) SendDirect(v any) {
	data, err := protocol.Marshal(v)
	if err != nil {
		c.logger.Error("failed to marshal handshake message", "error", err)
		return
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		c.logger.Debug("handshake write failed", "error", err)
	}
}

// Close closes the connection idempotently.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		close(c.send)
		err = c.ws.Close()
	})
	return err
}

// CloseWithReason sends a WebSocket close control frame carrying reason
// (e.g. "REPLACED" when a reconnect takes over this seat) before closing.
func (c *Connection) CloseWithReason(reason string) error {
	_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason), time.Now().Add(writeWait))
	return c.Close()
}
