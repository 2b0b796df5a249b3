package dependency

import (
	"github.com/hilthontt/kindred/application/usecases/authorization"
	"github.com/hilthontt/kindred/application/usecases/realtime"
	"github.com/hilthontt/kindred/infrastructure/security"
)

func (c *Container) initUseCases() {
	c.TokenVerifier = security.NewTokenVerifier(c.Config.JWT)
	c.Gate = authorization.NewGate(c.AuthorizationRepo, c.Config.Websocket.AuthTimeout, c.Logger, c.MetricsManager)
	c.Emitter = realtime.NewEmitter(c.Registry, c.Logger, c.MetricsManager)

	c.Logger.Info("Use cases initialized successfully")
}
