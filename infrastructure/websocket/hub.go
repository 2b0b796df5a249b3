package websocket

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hilthontt/kindred/infrastructure/logger"
	"github.com/hilthontt/kindred/infrastructure/metrics"
	"go.uber.org/zap"
)

var ErrHubStopped = errors.New("hub is not running")

const (
	opQueueSize    = 1024
	publishTimeout = 2 * time.Second
)

// Hub owns every room membership of the process. All mutations and
// deliveries run as operations on a single goroutine, in the order they were
// submitted, so messages addressed to a room reach its members in emission
// order.
type Hub struct {
	node      string
	clients   map[string]*Client
	rooms     map[string]map[string]*Client
	ops       chan func()
	done      chan struct{}
	ready     chan struct{}
	readyOnce sync.Once
	readyErr  error
	backplane Backplane
	logger    *logger.Logger
	metrics   metrics.Manager
}

// NewHub builds a hub. bp may be nil, in which case delivery is local only.
func NewHub(log *logger.Logger, m metrics.Manager, bp Backplane) *Hub {
	return &Hub{
		node:      uuid.NewString(),
		clients:   make(map[string]*Client),
		rooms:     make(map[string]map[string]*Client),
		ops:       make(chan func(), opQueueSize),
		done:      make(chan struct{}),
		ready:     make(chan struct{}),
		backplane: bp,
		logger:    log,
		metrics:   m,
	}
}

// Run processes operations until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	if h.backplane != nil {
		go h.subscribe(ctx)
	} else {
		h.markReady(nil)
	}

	h.logger.Info("hub started", zap.String("node", h.node), zap.Bool("backplane", h.backplane != nil))

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			h.logger.Info("hub stopped", zap.String("node", h.node))
			return
		case op := <-h.ops:
			op()
		}
	}
}

// WaitReady blocks until emissions are deliverable: at once for a local hub,
// after the subscription is confirmed when a backplane is set.
func (h *Hub) WaitReady(ctx context.Context) error {
	select {
	case <-h.ready:
		return h.readyErr
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) markReady(err error) {
	h.readyOnce.Do(func() {
		h.readyErr = err
		close(h.ready)
	})
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) submit(op func()) bool {
	select {
	case <-h.done:
		return false
	default:
	}

	select {
	case h.ops <- op:
		return true
	case <-h.done:
		return false
	}
}

// call runs op on the hub goroutine and waits for it.
func (h *Hub) call(op func()) bool {
	ack := make(chan struct{})
	if !h.submit(func() {
		op()
		close(ack)
	}) {
		return false
	}

	select {
	case <-ack:
		return true
	case <-h.done:
		return false
	}
}

// Register adds the client and joins it to its personal room. When Register
// returns, the personal room membership is in place.
func (h *Hub) Register(c *Client) error {
	if !h.call(func() {
		if _, exists := h.clients[c.ID]; exists {
			return
		}
		h.clients[c.ID] = c
		h.join(c, PersonalRoom(c.Identity.ID))
		h.metrics.AddUpDownCounter(context.Background(), metrics.ActiveConnections, 1, "kind", string(c.Identity.Kind))
	}) {
		return ErrHubStopped
	}
	return nil
}

// Unregister removes the client from every room and closes its send buffer.
// Unknown clients are ignored.
func (h *Hub) Unregister(c *Client) {
	h.close(c, closeNormal)
}

func (h *Hub) close(c *Client, reason CloseReason) {
	h.submit(func() {
		h.remove(c, reason)
	})
}

// Join adds the client to room. Joining a room twice is a no-op. It reports
// false when the client is no longer registered.
func (h *Hub) Join(c *Client, room string) bool {
	var joined bool
	h.call(func() {
		if _, ok := h.clients[c.ID]; !ok {
			return
		}
		h.join(c, room)
		joined = true
	})
	return joined
}

func (h *Hub) Leave(c *Client, room string) {
	h.call(func() {
		h.leave(c, room)
	})
}

func (h *Hub) IsMember(c *Client, room string) bool {
	var member bool
	h.call(func() {
		member = h.isMember(c, room)
	})
	return member
}

// RoomSize reports the number of local members of room.
func (h *Hub) RoomSize(room string) int {
	var n int
	h.call(func() {
		n = len(h.rooms[room])
	})
	return n
}

// ClientCount reports the number of registered local clients.
func (h *Hub) ClientCount() int {
	var n int
	h.call(func() {
		n = len(h.clients)
	})
	return n
}

// EmitToRoom delivers event to every member of room, on every node.
func (h *Hub) EmitToRoom(room, event string, payload any) error {
	data, err := Encode(event, payload)
	if err != nil {
		return err
	}
	h.publish(Frame{Op: OpEmit, Room: room, Data: data})
	return nil
}

// BroadcastFromMember delivers event to every member of room except c, but
// only if c is currently a member. It reports whether the broadcast happened.
func (h *Hub) BroadcastFromMember(c *Client, room, event string, payload any) (bool, error) {
	data, err := Encode(event, payload)
	if err != nil {
		return false, err
	}
	frame := Frame{Op: OpEmit, Room: room, Except: c.ID, Data: data}

	if h.backplane == nil {
		var sent bool
		if !h.call(func() {
			if sent = h.isMember(c, room); sent {
				h.apply(frame)
			}
		}) {
			return false, ErrHubStopped
		}
		return sent, nil
	}

	if !h.IsMember(c, room) {
		return false, nil
	}
	h.publish(frame)
	return true, nil
}

// DisconnectRoom terminates every connection in room, on every node.
func (h *Hub) DisconnectRoom(room, reason string) {
	h.publish(Frame{Op: OpDisconnect, Room: room, Reason: reason})
}

func (h *Hub) publish(f Frame) {
	f.Node = h.node

	if h.backplane != nil {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		err := h.backplane.Publish(ctx, f)
		if err == nil {
			return
		}
		h.logger.Warn("backplane publish failed, delivering locally",
			zap.String("room", f.Room),
			zap.String("op", string(f.Op)),
			zap.Error(err),
		)
	}

	if !h.submit(func() { h.apply(f) }) {
		h.logger.Debug("frame dropped, hub not running", zap.String("room", f.Room))
	}
}

func (h *Hub) subscribe(ctx context.Context) {
	err := h.backplane.Subscribe(ctx, func() { h.markReady(nil) }, func(f Frame) {
		h.submit(func() { h.apply(f) })
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		h.markReady(fmt.Errorf("backplane subscription: %w", err))
		h.logger.Error("backplane subscription ended", zap.Error(err))
	}
}

// The methods below run on the hub goroutine only.

func (h *Hub) apply(f Frame) {
	switch f.Op {
	case OpEmit:
		h.deliver(f.Room, f.Except, f.Data)
	case OpDisconnect:
		h.disconnect(f.Room, f.Reason)
	default:
		h.logger.Warn("unknown frame op", zap.String("op", string(f.Op)))
	}
}

func (h *Hub) deliver(room, except string, data []byte) {
	members := h.rooms[room]
	if len(members) == 0 {
		return
	}

	kind, _, _ := ParseRoom(room)
	var slow []*Client
	for id, c := range members {
		if id == except {
			continue
		}
		select {
		case c.send <- data:
			h.metrics.IncrementCounter(context.Background(), metrics.MessagesSent, "room_kind", string(kind))
		default:
			slow = append(slow, c)
		}
	}

	for _, c := range slow {
		h.logger.Warn("dropping slow consumer",
			zap.String("client", c.ID),
			zap.String("identity", c.Identity.String()),
			zap.String("room", room),
		)
		h.metrics.IncrementCounter(context.Background(), metrics.SlowConsumersDropped)
		h.remove(c, closeSlow)
	}
}

func (h *Hub) disconnect(room, reason string) {
	members := h.rooms[room]
	if len(members) == 0 {
		return
	}

	victims := make([]*Client, 0, len(members))
	for _, c := range members {
		victims = append(victims, c)
	}
	for _, c := range victims {
		h.metrics.IncrementCounter(context.Background(), metrics.ForcedDisconnects)
		h.remove(c, closeForced(reason))
	}

	h.logger.Info("room disconnected",
		zap.String("room", room),
		zap.Int("connections", len(victims)),
		zap.String("reason", reason),
	)
}

func (h *Hub) join(c *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[room] = members
	}
	members[c.ID] = c
	c.rooms.Add(room)
}

func (h *Hub) leave(c *Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c.ID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	c.rooms.Remove(room)
}

func (h *Hub) isMember(c *Client, room string) bool {
	_, ok := h.rooms[room][c.ID]
	return ok
}

func (h *Hub) remove(c *Client, reason CloseReason) {
	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	delete(h.clients, c.ID)

	for _, room := range c.rooms.ToSlice() {
		h.leave(c, room)
	}

	c.setReason(reason)
	close(c.send)
	h.metrics.AddUpDownCounter(context.Background(), metrics.ActiveConnections, -1, "kind", string(c.Identity.Kind))
}

func (h *Hub) shutdown() {
	for _, c := range h.clients {
		h.remove(c, closeShutdown)
	}
}
