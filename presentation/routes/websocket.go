package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/hilthontt/kindred/presentation/controllers/websocket"
)

func WebsocketRoutes(router gin.IRouter, controller websocket.WebSocketController) {
	router.GET("/ws", controller.HandleConnection)
}
