package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/getsentry/sentry-go"
	"github.com/hilthontt/kindred/application/usecases/authorization"
	"github.com/hilthontt/kindred/infrastructure/logger"
	"github.com/hilthontt/kindred/infrastructure/metrics"
	ws "github.com/hilthontt/kindred/infrastructure/websocket"
	"github.com/hilthontt/kindred/presentation/middlewares"
	"go.uber.org/zap"
)

type handlerFunc func(ctx context.Context, c *ws.Client, data json.RawMessage) error

// Handlers routes inbound events. A failing, denied or panicking handler
// affects only the frame that triggered it.
type Handlers struct {
	hub       *ws.Hub
	gate      authorization.Gate
	validator *middlewares.DefaultValidator
	logger    *logger.Logger
	metrics   metrics.Manager
	routes    map[string]handlerFunc
}

var _ ws.Dispatcher = (*Handlers)(nil)

func NewHandlers(
	hub *ws.Hub,
	gate authorization.Gate,
	validator *middlewares.DefaultValidator,
	logger *logger.Logger,
	metrics metrics.Manager,
) *Handlers {
	h := &Handlers{
		hub:       hub,
		gate:      gate,
		validator: validator,
		logger:    logger,
		metrics:   metrics,
	}
	h.routes = map[string]handlerFunc{
		ws.ChatJoin:     h.joinMatch,
		ws.ChatLeave:    h.leaveMatch,
		ws.ChatTyping:   h.typing,
		ws.ChatMarkRead: h.markRead,
		ws.EventJoin:    h.joinEvent,
		ws.EventLeave:   h.leaveEvent,
	}
	return h
}

func (h *Handlers) Dispatch(ctx context.Context, c *ws.Client, msg ws.Inbound) {
	defer h.recover(c, msg.Event)

	handle, ok := h.routes[msg.Event]
	if !ok {
		h.logger.Debug("ignoring unknown event", zap.String("event", msg.Event), zap.String("client", c.ID))
		return
	}

	h.metrics.IncrementCounter(ctx, metrics.MessagesReceived, "event", msg.Event)

	if err := handle(ctx, c, msg.Data); err != nil {
		h.logger.Warn("event dropped",
			zap.String("event", msg.Event),
			zap.String("identity", c.Identity.String()),
			zap.Error(err),
		)
	}
}

func (h *Handlers) OnError(c *ws.Client, err error) {
	h.logger.Warn("connection error",
		zap.String("client", c.ID),
		zap.String("identity", c.Identity.String()),
		zap.Error(err),
	)
}

func (h *Handlers) OnDisconnect(c *ws.Client, reason string) {
	h.logger.Info("client disconnected",
		zap.String("client", c.ID),
		zap.String("identity", c.Identity.String()),
		zap.String("reason", reason),
	)
}

func (h *Handlers) recover(c *ws.Client, event string) {
	r := recover()
	if r == nil {
		return
	}

	h.metrics.IncrementCounter(context.Background(), metrics.HandlerPanics, "event", event)
	h.logger.Error("handler panic recovered",
		zap.String("event", event),
		zap.String("identity", c.Identity.String()),
		zap.Any("panic", r),
	)

	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("event", event)
		scope.SetUser(sentry.User{ID: c.Identity.String()})
	})
	hub.Recover(r)
}

func (h *Handlers) joinMatch(ctx context.Context, c *ws.Client, data json.RawMessage) error {
	req, err := decode[MatchRef](h, data)
	if err != nil {
		return err
	}

	if !h.gate.CanJoinMatch(ctx, c.Identity, req.MatchID) {
		h.deny(ctx, c, ws.MatchRoom(req.MatchID))
		return nil
	}
	h.join(ctx, c, ws.MatchRoom(req.MatchID))
	return nil
}

func (h *Handlers) leaveMatch(_ context.Context, c *ws.Client, data json.RawMessage) error {
	req, err := decode[MatchRef](h, data)
	if err != nil {
		return err
	}
	h.hub.Leave(c, ws.MatchRoom(req.MatchID))
	return nil
}

func (h *Handlers) typing(_ context.Context, c *ws.Client, data json.RawMessage) error {
	req, err := decode[TypingRequest](h, data)
	if err != nil {
		return err
	}

	payload := ws.NewTyping(req.MatchID, c.Identity.ID, req.IsTyping)
	sent, err := h.hub.BroadcastFromMember(c, ws.MatchRoom(req.MatchID), ws.ChatTypingBroadcast, payload)
	if err != nil {
		return err
	}
	if !sent {
		h.logger.Debug("typing from non-member dropped", zap.String("identity", c.Identity.String()), zap.Int64("matchID", req.MatchID))
	}
	return nil
}

func (h *Handlers) markRead(_ context.Context, c *ws.Client, data json.RawMessage) error {
	req, err := decode[MarkReadRequest](h, data)
	if err != nil {
		return err
	}

	payload := ws.NewMessageRead(req.MatchID, req.MessageID, c.Identity.ID)
	sent, err := h.hub.BroadcastFromMember(c, ws.MatchRoom(req.MatchID), ws.ChatMessageRead, payload)
	if err != nil {
		return err
	}
	if !sent {
		h.logger.Debug("read receipt from non-member dropped", zap.String("identity", c.Identity.String()), zap.Int64("matchID", req.MatchID))
	}
	return nil
}

func (h *Handlers) joinEvent(ctx context.Context, c *ws.Client, data json.RawMessage) error {
	req, err := decode[EventRef](h, data)
	if err != nil {
		return err
	}

	if !h.gate.CanJoinEvent(ctx, c.Identity, req.EventID) {
		h.deny(ctx, c, ws.EventRoom(req.EventID))
		return nil
	}
	h.join(ctx, c, ws.EventRoom(req.EventID))
	return nil
}

func (h *Handlers) leaveEvent(_ context.Context, c *ws.Client, data json.RawMessage) error {
	req, err := decode[EventRef](h, data)
	if err != nil {
		return err
	}
	h.hub.Leave(c, ws.EventRoom(req.EventID))
	return nil
}

func (h *Handlers) join(ctx context.Context, c *ws.Client, room string) {
	if !h.hub.Join(c, room) {
		return
	}
	kind, _, _ := ws.ParseRoom(room)
	h.metrics.IncrementCounter(ctx, metrics.RoomJoins, "room_kind", string(kind))
	h.logger.Debug("room joined", zap.String("identity", c.Identity.String()), zap.String("room", room))
}

// deny is silent towards the client.
func (h *Handlers) deny(ctx context.Context, c *ws.Client, room string) {
	kind, _, _ := ws.ParseRoom(room)
	h.metrics.IncrementCounter(ctx, metrics.RoomJoinsDenied, "room_kind", string(kind))
	h.logger.Info("room join denied", zap.String("identity", c.Identity.String()), zap.String("room", room))
}

func decode[T any](h *Handlers, data json.RawMessage) (T, error) {
	var req T
	if len(data) == 0 {
		return req, errEmptyPayload
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("decode payload: %w", err)
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return req, fmt.Errorf("invalid payload: %s", h.validator.TranslateErrors(err)[0])
	}
	return req, nil
}
