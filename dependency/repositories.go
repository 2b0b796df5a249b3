package dependency

import (
	"github.com/hilthontt/kindred/infrastructure/persistence/repository"
)

func (c *Container) initRepositories() {
	c.AuthorizationRepo = repository.NewAuthorizationRepository(c.DB)

	c.Logger.Info("Repositories initialized successfully")
}
