package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hilthontt/cipherroom/internal/domain"
	"github.com/hilthontt/cipherroom/internal/infrastructure/logging"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 96 * 1024
	sendBufferSize = 64
)

// Limits bound what one connection may send.
type Limits struct {
	EventsPerSecond float64
	EventBurst      int
	MaxMessageSize  int64
}

// Client is one websocket connection. The room fields are owned by the Core
// loop and must not be touched from the pumps.
type Client struct {
	conn    *connWrapper
	Message chan *WSMessage
	ID      string
	// Identity is nil for guests.
	Identity *domain.Identity

	limiter      *rate.Limiter
	maxFrameSize int64
	closeOnce    sync.Once
	closed       chan struct{}

	RoomCode string
	Username string
	Avatar   string
	IsAdmin  bool

	// set while chat_history is loading; relays skip the client until then
	awaitingHistory bool
}

func NewClient(conn *websocket.Conn, identity *domain.Identity, limits Limits) *Client {
	var wrapper *connWrapper
	if conn != nil {
		wrapper = newConnWrapper(conn)
	}

	eventsPerSecond := rate.Limit(limits.EventsPerSecond)
	if limits.EventsPerSecond <= 0 {
		eventsPerSecond = rate.Inf
	}

	maxFrameSize := limits.MaxMessageSize
	if maxFrameSize <= 0 {
		maxFrameSize = maxMessageSize
	}

	return &Client{
		conn:         wrapper,
		Message:      make(chan *WSMessage, sendBufferSize), // buffered to avoid dead-locks on slow clients
		ID:           uuid.NewString(),
		Identity:     identity,
		limiter:      rate.NewLimiter(eventsPerSecond, limits.EventBurst),
		maxFrameSize: maxFrameSize,
		closed:       make(chan struct{}),
	}
}

// Send queues msg without blocking. Slow or closed clients lose the frame.
func (c *Client) Send(msg *WSMessage) bool {
	select {
	case <-c.closed:
		return false
	default:
	}

	select {
	case c.Message <- msg:
		return true
	default:
		return false
	}
}

// Close marks the client closed. The write pump flushes what is queued and
// then closes the socket.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
}

func (c *Client) Closed() <-chan struct{} {
	return c.closed
}

// ReadMessage pumps frames from the socket into core until the connection
// fails. Leaving the pump is an implicit disconnect.
func (c *Client) ReadMessage(core *Core) {
	defer func() {
		core.Unregister(c)
		c.Close()
	}()

	ws := c.conn.conn
	ws.SetReadLimit(c.maxFrameSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				core.logger.Warn(logging.WebSocket, logging.Connection, "read failed", map[logging.ExtraKey]any{
					logging.ConnectionID: c.ID,
					logging.ErrorMessage: err.Error(),
				})
			}
			return
		}

		if !c.limiter.Allow() {
			c.Send(NewError("", domain.CodeRateLimited, domain.ErrRateLimited.Error()))
			continue
		}

		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil || frame.Type == "" {
			c.Send(NewError("", domain.CodeValidation, "malformed frame"))
			continue
		}

		if !core.Dispatch(c, frame.Type, frame.Data) {
			return
		}
	}
}

// WriteMessage drains the send buffer to the socket and keeps it alive with
// pings.
func (c *Client) WriteMessage() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.Message:
			if err := c.conn.WriteJSON(msg, writeWait); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, writeWait); err != nil {
				return
			}
		case <-c.closed:
			c.flush()
			_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), writeWait)
			return
		}
	}
}

// flush writes frames already queued so a notice sent right before Close
// still reaches the peer.
func (c *Client) flush() {
	for {
		select {
		case msg := <-c.Message:
			if err := c.conn.WriteJSON(msg, writeWait); err != nil {
				return
			}
		default:
			return
		}
	}
}
