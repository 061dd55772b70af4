package hub

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/oakmount/circuithub/internal/infrastructure/config"
	"github.com/oakmount/circuithub/internal/infrastructure/logging"
)

// Client is a live channel handle: one WebSocket connection owned by
// exactly one registry entry while connected. Outbound messages go
// through a buffered send channel drained by writePump; a full buffer
// drops the message rather than blocking the sender.
type Client struct {
	conn      *websocket.Conn
	send      chan []byte
	cfg       config.WebSocketConfig
	logger    *logging.Logger
	closeOnce sync.Once

	// onMessage handles each inbound frame; nil for dashboard sessions,
	// which only receive. onClose runs exactly once when the read loop
	// exits, on every exit path.
	onMessage func(data []byte)
	onClose   func()
}

// NewClient wraps an upgraded connection in a channel handle. Start must
// be called to begin the read/write pumps.
func NewClient(conn *websocket.Conn, cfg config.WebSocketConfig, logger *logging.Logger, onMessage func([]byte), onClose func()) *Client {
	bufSize := cfg.SendBufferSize
	if bufSize <= 0 {
		bufSize = 256
	}
	return &Client{
		conn:      conn,
		send:      make(chan []byte, bufSize),
		cfg:       cfg,
		logger:    logger,
		onMessage: onMessage,
		onClose:   onClose,
	}
}

// Start launches the read and write pumps.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// Close tears the channel handle down. Safe to call from any goroutine
// and more than once; the send channel and connection close exactly once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.send)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

// trySend enqueues data for the write pump. It absorbs both a closed
// channel (handle torn down during a broadcast) and a full buffer
// (slow consumer) so no sender ever blocks or panics.
func (c *Client) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // Absorb send-on-closed-channel panic
	}()

	select {
	case c.send <- data:
	default:
		// Buffer full, drop.
	}
}

// readPump reads frames until the connection dies. The deferred block is
// the single cleanup path: it runs on clean close, protocol error, and
// transport loss alike, so onClose fires exactly once per session.
func (c *Client) readPump() {
	defer func() {
		c.Close()
		if c.onClose != nil {
			c.onClose()
		}
	}()

	if c.cfg.MaxMessageSize > 0 {
		c.conn.SetReadLimit(int64(c.cfg.MaxMessageSize))
	}
	pingInterval := time.Duration(c.cfg.PingInterval) * time.Second
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	pongWait := time.Duration(c.cfg.PongTimeout) * time.Second
	if pongWait <= 0 {
		pongWait = 10 * time.Second
	}
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			} else {
				c.logger.Debug("websocket closed", "error", err)
			}
			return
		}
		// Any inbound frame resets the read deadline; embedded clients do
		// not always answer protocol-level pings.
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
		if c.onMessage != nil {
			c.onMessage(message)
		}
	}
}

// writePump drains the send channel to the connection and keeps the
// peer alive with periodic pings.
func (c *Client) writePump() {
	pingInterval := time.Duration(c.cfg.PingInterval) * time.Second
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	pongWait := time.Duration(c.cfg.PongTimeout) * time.Second
	if pongWait <= 0 {
		pongWait = 10 * time.Second
	}

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// Handle was closed
				//nolint:errcheck // Best-effort close message
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
