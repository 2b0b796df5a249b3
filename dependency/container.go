package dependency

import (
	"context"
	"fmt"

	"github.com/hilthontt/kindred/application/usecases/authorization"
	"github.com/hilthontt/kindred/application/usecases/realtime"
	"github.com/hilthontt/kindred/domain/repository"
	"github.com/hilthontt/kindred/infrastructure/config"
	"github.com/hilthontt/kindred/infrastructure/logger"
	"github.com/hilthontt/kindred/infrastructure/metrics"
	"github.com/hilthontt/kindred/infrastructure/security"
	"github.com/hilthontt/kindred/infrastructure/websocket"
	"github.com/hilthontt/kindred/presentation/controllers/push"
	wsCtrl "github.com/hilthontt/kindred/presentation/controllers/websocket"
	"github.com/hilthontt/kindred/presentation/middlewares"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/sdk/trace"
	"gorm.io/gorm"
)

type Container struct {
	Config *config.Config
	Logger *logger.Logger

	TracerProvider *trace.TracerProvider
	MetricsManager metrics.Manager

	DB    *gorm.DB
	Redis *redis.Client

	AuthorizationRepo repository.AuthorizationRepository

	TokenVerifier *security.TokenVerifier
	OriginPolicy  *websocket.OriginPolicy
	Validator     *middlewares.DefaultValidator

	Hub       *websocket.Hub
	Backplane websocket.Backplane
	Registry  *realtime.Registry

	Gate    authorization.Gate
	Emitter realtime.Emitter

	WebsocketHandlers   *wsCtrl.Handlers
	WebsocketController wsCtrl.WebSocketController
	PushController      push.PushController

	ctx    context.Context
	cancel context.CancelFunc
}

func NewContainer() (*Container, error) {
	return NewContainerWithConfig(config.GetConfig())
}

func NewContainerWithConfig(cfg *config.Config) (*Container, error) {
	c := &Container{Config: cfg}

	loggerInstance, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("error initializing logger: %w", err)
	}
	c.Logger = loggerInstance

	c.Logger.Info("Initializing Kindred realtime dependencies")

	if err := c.initInfrastructure(); err != nil {
		return nil, fmt.Errorf("error initializing infrastructure: %w", err)
	}

	c.initRepositories()

	if err := c.initWebSocket(); err != nil {
		return nil, fmt.Errorf("error initializing websocket: %w", err)
	}

	c.initUseCases()

	c.initControllers()

	c.Logger.Info("All dependencies initialized successfully")

	return c, nil
}
