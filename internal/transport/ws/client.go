package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"partyroom/internal/app"
	"partyroom/internal/codec"
	"partyroom/internal/domain"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to the peer with this period; must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Size of the outbound send buffer. Unlike the teacher's client, an
	// overflow here closes the socket rather than silently dropping a
	// frame, per spec.md §4.6 — a client too slow to drain its own queue
	// is treated as disconnected rather than left with stale state.
	sendBufferSize = 64
)

// Client is the app.Connection implementation backing one live
// WebSocket: a read pump feeding the bound Engine's job queue, and a
// write pump draining the outbound buffer. It has no room until the
// first JOIN intent resolves a bearer token through the registry;
// before that, handleJoin is the only frame it will act on.
type Client struct {
	conn     *websocket.Conn
	registry *app.RoomRegistry
	logger   *zap.Logger

	send   chan []byte
	done   chan struct{}
	mu     sync.Mutex
	closed bool

	playerID string
	engine   *app.Engine
}

// NewClient creates a client for a freshly upgraded connection.
func NewClient(conn *websocket.Conn, registry *app.RoomRegistry, logger *zap.Logger) *Client {
	return &Client{
		conn:     conn,
		registry: registry,
		logger:   logger,
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
	}
}

// PlayerID implements app.Connection.
func (c *Client) PlayerID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playerID
}

// Send implements app.Connection. A full buffer means this client is
// too far behind to keep consistent state; the connection is torn down
// rather than left to silently drop frames.
func (c *Client) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	select {
	case c.send <- data:
		return nil
	default:
		c.logger.Warn("outbound buffer overflow, closing connection", zap.String("playerId", c.playerID))
		c.closeLocked()
		return domain.ErrInvalidAction
	}
}

// Close implements app.Connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Client) closeLocked() error {
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)
	return c.conn.Close()
}

// Run starts the client's read and write pumps. It blocks until the
// connection closes.
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.Close()
		if c.engine != nil {
			engine, playerID := c.engine, c.playerID
			engine.Submit(func() { engine.HandleDisconnect(playerID) })
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}
		c.handleMessage(message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case message, ok := <-c.send:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage decodes the op discriminant and routes the frame.
// Everything but JOIN requires an already-bound engine.
func (c *Client) handleMessage(data []byte) {
	op, err := codec.DecodeOp(data)
	if err != nil {
		c.sendError(domain.ErrInvalidMessage)
		return
	}

	if op == domain.OpJoin {
		c.handleJoin(data)
		return
	}

	if c.engine == nil {
		c.sendError(domain.ErrNotInRoom)
		return
	}

	engine, playerID := c.engine, c.playerID
	engine.Submit(func() { engine.HandleIntent(playerID, op, data) })
}

// handleJoin resolves the bearer token carried by the intent and binds
// this socket to the room and player it names. A JOIN on an
// already-bound socket is forwarded to the engine as a state resync.
func (c *Client) handleJoin(data []byte) {
	in, err := codec.DecodeJoin(data)
	if err != nil {
		c.sendError(domain.ErrInvalidMessage)
		return
	}

	if c.engine != nil {
		engine, playerID := c.engine, c.playerID
		engine.Submit(func() { engine.HandleIntent(playerID, domain.OpJoin, data) })
		return
	}

	engine, playerID, err := c.registry.ResolveToken(in.Token)
	if err != nil {
		c.sendError(err)
		return
	}

	c.mu.Lock()
	c.engine = engine
	c.playerID = playerID
	c.mu.Unlock()

	engine.Submit(func() { engine.HandleJoin(playerID, c) })
}

func (c *Client) sendError(err error) {
	data, encErr := codec.Encode(domain.OpErrorEvent, domain.ErrorPayload{
		Code:    domain.ErrorCode(err),
		Message: err.Error(),
	})
	if encErr != nil {
		return
	}
	_ = c.Send(data)
}
