package websocket

import (
	"context"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hilthontt/kindred/domain/model"
)

// Options tunes a single connection.
type Options struct {
	SendBufferSize  int
	MaxMessageBytes int64
	PingInterval    time.Duration
	PongWait        time.Duration
	WriteWait       time.Duration
}

func (o Options) withDefaults() Options {
	if o.SendBufferSize <= 0 {
		o.SendBufferSize = 64
	}
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = 32 * 1024
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.PingInterval <= 0 || o.PingInterval >= o.PongWait {
		o.PingInterval = (o.PongWait * 9) / 10
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	return o
}

// CloseReason is the close frame written when the server ends a connection.
type CloseReason struct {
	Code int
	Text string
}

var (
	closeNormal   = CloseReason{Code: websocket.CloseNormalClosure, Text: "client disconnected"}
	closeSlow     = CloseReason{Code: websocket.CloseTryAgainLater, Text: "send buffer full"}
	closeShutdown = CloseReason{Code: websocket.CloseGoingAway, Text: "server shutting down"}
)

func closeForced(reason string) CloseReason {
	if reason == "" {
		reason = "disconnected by server"
	}
	return CloseReason{Code: websocket.ClosePolicyViolation, Text: reason}
}

// Dispatcher receives everything a client reads.
type Dispatcher interface {
	Dispatch(ctx context.Context, c *Client, msg Inbound)
	OnError(c *Client, err error)
	OnDisconnect(c *Client, reason string)
}

// Client is one live connection. Identity is attached before the client is
// registered and never changes afterwards.
type Client struct {
	ID       string
	Identity model.Identity

	conn  *connWrapper
	send  chan []byte
	rooms mapset.Set[string]
	opts  Options

	mu          sync.Mutex
	closeReason *CloseReason
}

func NewClient(conn *websocket.Conn, identity model.Identity, opts Options) *Client {
	opts = opts.withDefaults()
	return &Client{
		ID:       uuid.NewString(),
		Identity: identity,
		conn:     newConnWrapper(conn),
		send:     make(chan []byte, opts.SendBufferSize),
		rooms:    mapset.NewSet[string](),
		opts:     opts,
	}
}

// Rooms is a snapshot of the rooms the client is currently in.
func (c *Client) Rooms() []string {
	return c.rooms.ToSlice()
}

func (c *Client) InRoom(room string) bool {
	return c.rooms.Contains(room)
}

// Reason reports why the hub closed the client, if it did.
func (c *Client) Reason() (CloseReason, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closeReason == nil {
		return CloseReason{}, false
	}
	return *c.closeReason, true
}

func (c *Client) setReason(r CloseReason) {
	c.mu.Lock()
	if c.closeReason == nil {
		c.closeReason = &r
	}
	c.mu.Unlock()
}

// ReadMessage runs the read pump until the peer goes away or the hub closes
// the connection. Every frame is handed to d on this goroutine.
func (c *Client) ReadMessage(hub *Hub, d Dispatcher) {
	ctx, cancel := context.WithCancel(context.Background())
	reason := closeNormal.Text

	defer func() {
		cancel()
		hub.Unregister(c)
		_ = c.conn.Close()
		if r, ok := c.Reason(); ok && r != closeNormal {
			reason = r.Text
		}
		d.OnDisconnect(c, reason)
	}()

	if c.conn.conn == nil {
		return
	}

	c.conn.conn.SetReadLimit(c.opts.MaxMessageBytes)
	_ = c.conn.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.conn.SetPongHandler(func(string) error {
		return c.conn.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		_, raw, err := c.conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				if _, closedByHub := c.Reason(); !closedByHub {
					d.OnError(c, err)
					reason = err.Error()
				}
			}
			return
		}

		if len(raw) == 0 {
			continue
		}

		msg, err := DecodeInbound(raw)
		if err != nil {
			d.OnError(c, err)
			continue
		}

		d.Dispatch(ctx, c, msg)
	}
}

// WriteMessage runs the write pump. It drains the send buffer, keeps the
// connection alive with pings and writes the close frame once the hub closes
// the buffer.
func (c *Client) WriteMessage() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				r, _ := c.Reason()
				if r.Code == 0 {
					r = closeNormal
				}
				_ = c.conn.WriteClose(r.Code, r.Text, time.Now().Add(c.opts.WriteWait))
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, msg, time.Now().Add(c.opts.WriteWait)); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil, time.Now().Add(c.opts.WriteWait)); err != nil {
				return
			}
		}
	}
}
