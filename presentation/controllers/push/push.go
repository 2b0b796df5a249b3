package push

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hilthontt/kindred/application/usecases/realtime"
	"github.com/hilthontt/kindred/presentation/middlewares"
)

// PushController lets other backend services reach live connections. Every
// route maps onto exactly one emitter call and answers 202: delivery is
// fire-and-forget.
type PushController interface {
	EmitToIdentity(ctx *gin.Context)
	DisconnectIdentity(ctx *gin.Context)
	EmitConversationUpdate(ctx *gin.Context)
	EmitNewMessage(ctx *gin.Context)
	EmitNewMatch(ctx *gin.Context)
	EmitUserJoinedEvent(ctx *gin.Context)
}

type pushController struct {
	emitter realtime.Emitter
}

func NewPushController(emitter realtime.Emitter) PushController {
	return &pushController{emitter: emitter}
}

func (c *pushController) EmitToIdentity(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	var req EmitToIdentityRequest
	if !bind(ctx, &req) {
		return
	}

	c.emitter.EmitToIdentity(id, req.Event, req.Payload)
	accepted(ctx)
}

func (c *pushController) DisconnectIdentity(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	c.emitter.DisconnectIdentity(id)
	accepted(ctx)
}

func (c *pushController) EmitConversationUpdate(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	var req ConversationUpdateRequest
	if !bind(ctx, &req) {
		return
	}

	c.emitter.EmitConversationUpdate(id, req.Conversation)
	accepted(ctx)
}

func (c *pushController) EmitNewMessage(ctx *gin.Context) {
	matchID, ok := pathID(ctx)
	if !ok {
		return
	}

	var req NewMessageRequest
	if !bind(ctx, &req) {
		return
	}

	c.emitter.EmitNewMessage(matchID, req.Message, req.SenderID)
	accepted(ctx)
}

func (c *pushController) EmitNewMatch(ctx *gin.Context) {
	var req NewMatchRequest
	if !bind(ctx, &req) {
		return
	}

	c.emitter.EmitNewMatch(req.UserIDs[0], req.UserIDs[1], req.Match)
	accepted(ctx)
}

func (c *pushController) EmitUserJoinedEvent(ctx *gin.Context) {
	eventID, ok := pathID(ctx)
	if !ok {
		return
	}

	var req UserJoinedEventRequest
	if !bind(ctx, &req) {
		return
	}

	c.emitter.EmitUserJoinedEvent(eventID, req.Participant)
	accepted(ctx)
}

func pathID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "id must be a positive integer",
		})
		return 0, false
	}
	return id, true
}

func bind(ctx *gin.Context, req any) bool {
	if err := ctx.ShouldBindJSON(req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": middlewares.TranslateValidationError(err),
		})
		return false
	}
	return true
}

func accepted(ctx *gin.Context) {
	ctx.JSON(http.StatusAccepted, AcceptedResponse{Status: "accepted"})
}
