package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/hilthontt/kindred/presentation/controllers/push"
)

func PushRoutes(router *gin.RouterGroup, controller push.PushController) {
	identities := router.Group("/identities/:id")
	{
		identities.POST("/events", controller.EmitToIdentity)
		identities.POST("/conversations", controller.EmitConversationUpdate)
		identities.POST("/disconnect", controller.DisconnectIdentity)
	}

	router.POST("/matches", controller.EmitNewMatch)
	router.POST("/matches/:id/messages", controller.EmitNewMessage)
	router.POST("/events/:id/participants", controller.EmitUserJoinedEvent)
}
