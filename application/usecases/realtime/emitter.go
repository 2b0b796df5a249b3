package realtime

import (
	"context"

	"github.com/hilthontt/kindred/infrastructure/logger"
	"github.com/hilthontt/kindred/infrastructure/metrics"
	ws "github.com/hilthontt/kindred/infrastructure/websocket"
	"go.uber.org/zap"
)

const moderationReason = "disconnected by moderation"

// Emitter is the only way business code pushes to live connections. Every
// method is fire-and-forget: failures are logged and never returned.
type Emitter interface {
	EmitNewMessage(matchID int64, message any, senderID int64)
	EmitToIdentity(identityID int64, event string, payload any)
	EmitNewMatch(identityA, identityB int64, match any)
	EmitUserJoinedEvent(eventID int64, participant any)
	EmitConversationUpdate(identityID int64, conversation any)
	DisconnectIdentity(identityID int64)
}

type emitter struct {
	registry *Registry
	logger   *logger.Logger
	metrics  metrics.Manager
}

func NewEmitter(registry *Registry, logger *logger.Logger, metrics metrics.Manager) Emitter {
	return &emitter{
		registry: registry,
		logger:   logger,
		metrics:  metrics,
	}
}

func (e *emitter) EmitNewMessage(matchID int64, message any, senderID int64) {
	e.emit(ws.MatchRoom(matchID), ws.ChatNewMessage, ws.NewMessagePayload{
		MatchID:  matchID,
		Message:  message,
		SenderID: senderID,
	})
}

func (e *emitter) EmitToIdentity(identityID int64, event string, payload any) {
	if event == "" {
		e.logger.Warn("refusing to emit an unnamed event", zap.Int64("identityID", identityID))
		return
	}
	e.emit(ws.PersonalRoom(identityID), event, payload)
}

func (e *emitter) EmitNewMatch(identityA, identityB int64, match any) {
	e.emit(ws.PersonalRoom(identityA), ws.MatchNew, match)
	if identityB != identityA {
		e.emit(ws.PersonalRoom(identityB), ws.MatchNew, match)
	}
}

func (e *emitter) EmitUserJoinedEvent(eventID int64, participant any) {
	e.emit(ws.EventRoom(eventID), ws.EventUserJoined, ws.UserJoinedEventPayload{
		EventID:     eventID,
		Participant: participant,
	})
}

func (e *emitter) EmitConversationUpdate(identityID int64, conversation any) {
	e.emit(ws.PersonalRoom(identityID), ws.ChatConversationUpdate, conversation)
}

// DisconnectIdentity closes every connection in the identity's personal room.
// Users and organizers share that room namespace, so an organizer with the
// same numeric id is disconnected as well.
func (e *emitter) DisconnectIdentity(identityID int64) {
	server, ok := e.server(ws.PersonalRoom(identityID), "disconnect")
	if !ok {
		return
	}
	server.DisconnectRoom(ws.PersonalRoom(identityID), moderationReason)
	e.logger.Info("identity disconnected", zap.Int64("identityID", identityID))
}

func (e *emitter) emit(room, event string, payload any) {
	server, ok := e.server(room, event)
	if !ok {
		return
	}
	if err := server.EmitToRoom(room, event, payload); err != nil {
		e.logger.Error("emit failed",
			zap.String("room", room),
			zap.String("event", event),
			zap.Error(err),
		)
	}
}

func (e *emitter) server(room, event string) (Server, bool) {
	server, ok := e.registry.Get()
	if !ok {
		e.metrics.IncrementCounter(context.Background(), metrics.EmissionsBeforeReady, "event", event)
		e.logger.Debug("emission dropped",
			zap.String("room", room),
			zap.String("event", event),
		)
	}
	return server, ok
}
