package websocket

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
	"github.com/hilthontt/kindred/infrastructure/config"
	"github.com/hilthontt/kindred/infrastructure/logger"
	"github.com/hilthontt/kindred/infrastructure/metrics"
	"github.com/hilthontt/kindred/infrastructure/security"
	ws "github.com/hilthontt/kindred/infrastructure/websocket"
	"go.uber.org/zap"
)

type WebSocketController interface {
	HandleConnection(ctx *gin.Context)
}

type webSocketController struct {
	verifier   *security.TokenVerifier
	hub        *ws.Hub
	dispatcher ws.Dispatcher
	upgrader   gorilla.Upgrader
	options    ws.Options
	logger     *logger.Logger
	metrics    metrics.Manager
}

func NewWebSocketController(
	cfg config.WebsocketConfig,
	verifier *security.TokenVerifier,
	hub *ws.Hub,
	dispatcher ws.Dispatcher,
	origins *ws.OriginPolicy,
	logger *logger.Logger,
	metrics metrics.Manager,
) WebSocketController {
	return &webSocketController{
		verifier:   verifier,
		hub:        hub,
		dispatcher: dispatcher,
		upgrader: gorilla.Upgrader{
			ReadBufferSize:   cfg.ReadBufferSize,
			WriteBufferSize:  cfg.WriteBufferSize,
			HandshakeTimeout: cfg.AuthTimeout,
			CheckOrigin:      origins.CheckOrigin,
		},
		options: ws.Options{
			SendBufferSize:  cfg.SendBufferSize,
			MaxMessageBytes: cfg.MaxMessageBytes,
			PingInterval:    cfg.PingInterval,
			PongWait:        cfg.PongWait,
			WriteWait:       cfg.WriteWait,
		},
		logger:  logger,
		metrics: metrics,
	}
}

// HandleConnection authenticates before upgrading: a rejected handshake gets
// a 401 JSON body and never reaches a handler.
func (c *webSocketController) HandleConnection(ctx *gin.Context) {
	identity, err := c.verifier.VerifyRequest(ctx.Request)
	if err != nil {
		message := security.ErrInvalidToken.Error()
		if errors.Is(err, security.ErrTokenRequired) {
			message = security.ErrTokenRequired.Error()
		}

		c.metrics.IncrementCounter(ctx.Request.Context(), metrics.ConnectionsRejected, "reason", message)
		c.logger.Info("websocket handshake rejected",
			zap.String("ip", ctx.ClientIP()),
			zap.String("reason", message),
			zap.Error(err),
		)
		ctx.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": message,
		})
		return
	}

	var header http.Header
	if protocols := security.BearerSubprotocol(ctx.Request); len(protocols) > 0 {
		header = http.Header{"Sec-Websocket-Protocol": protocols}
	}

	conn, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, header)
	if err != nil {
		// the upgrader has already written the HTTP error
		c.logger.Warn("websocket upgrade failed", zap.String("identity", identity.String()), zap.Error(err))
		return
	}

	client := ws.NewClient(conn, identity, c.options)
	if err := c.hub.Register(client); err != nil {
		c.logger.Warn("hub refused client", zap.String("identity", identity.String()), zap.Error(err))
		_ = conn.WriteControl(gorilla.CloseMessage,
			gorilla.FormatCloseMessage(gorilla.CloseTryAgainLater, "server unavailable"),
			time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}

	c.logger.Info("client connected",
		zap.String("client", client.ID),
		zap.String("identity", identity.String()),
	)

	go client.WriteMessage()
	go client.ReadMessage(c.hub, c.dispatcher)
}
