package dependency

import (
	"context"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/hilthontt/kindred/infrastructure/cache"
	"github.com/hilthontt/kindred/infrastructure/metrics"
	"github.com/hilthontt/kindred/infrastructure/persistence/database"
	"github.com/hilthontt/kindred/presentation/controllers/push"
	wsCtrl "github.com/hilthontt/kindred/presentation/controllers/websocket"
	"github.com/hilthontt/kindred/presentation/middlewares"
	"github.com/hilthontt/kindred/presentation/routes"
	"go.uber.org/zap"
)

const hubStopTimeout = 5 * time.Second

func (c *Container) initControllers() {
	c.Validator = &middlewares.DefaultValidator{}
	binding.Validator = c.Validator

	c.WebsocketHandlers = wsCtrl.NewHandlers(c.Hub, c.Gate, c.Validator, c.Logger, c.MetricsManager)
	c.WebsocketController = wsCtrl.NewWebSocketController(
		c.Config.Websocket,
		c.TokenVerifier,
		c.Hub,
		c.WebsocketHandlers,
		c.OriginPolicy,
		c.Logger,
		c.MetricsManager,
	)
	c.PushController = push.NewPushController(c.Emitter)

	c.Logger.Info("Controllers initialized successfully")
}

func (c *Container) SetupRouter() *gin.Engine {
	switch c.Config.Server.RunMode {
	case "release", "production":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(sentrygin.New(sentrygin.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         5 * time.Second,
	}))

	router.Use(middlewares.GinLogger(c.Logger))
	router.Use(middlewares.RequestMetrics(c.MetricsManager))
	router.Use(middlewares.CorsMiddleware(c.OriginPolicy))

	router.GET("/health", c.healthCheckHandler)

	c.registerObservabilityRoutes(router)

	routes.WebsocketRoutes(router, c.WebsocketController)

	c.registerInternalRoutes(router)

	c.Logger.Info("Router configured successfully")

	return router
}

func (c *Container) registerInternalRoutes(router *gin.Engine) {
	v1 := router.Group("/internal/v1")
	{
		v1.Use(middlewares.InternalKeyMiddleware(c.Config.Internal.ApiKey, c.Logger))

		v1.Use(func(ctx *gin.Context) {
			if hub := sentrygin.GetHubFromContext(ctx); hub != nil {
				hub.Scope().SetTag("surface", "internal")
			}
			ctx.Next()
		})

		routes.PushRoutes(v1, c.PushController)
	}
}

func (c *Container) healthCheckHandler(ctx *gin.Context) {
	status := http.StatusOK
	body := gin.H{
		"status":      "healthy",
		"time":        time.Now().Format(time.RFC3339),
		"realtime":    c.Registry.Ready(),
		"connections": c.Hub.ClientCount(),
	}
	if !c.Registry.Ready() {
		status = http.StatusServiceUnavailable
		body["status"] = "starting"
	}
	ctx.JSON(status, body)
}

func (c *Container) registerObservabilityRoutes(router *gin.Engine) {
	metricsGroup := router.Group("/observability")
	{
		metrics.GetHandler(metricsGroup, c.MetricsManager, !c.Config.IsProduction())
	}
}

// Shutdown tears the registry down first so late business calls become
// no-ops, then closes every connection and releases the stores.
func (c *Container) Shutdown() error {
	c.Logger.Info("Shutting down dependencies...")

	if c.Registry != nil {
		c.Registry.Teardown()
	}

	if c.cancel != nil {
		c.cancel()
		select {
		case <-c.Hub.Done():
		case <-time.After(hubStopTimeout):
			c.Logger.Warn("hub did not stop in time")
		}
	}

	if c.TracerProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.TracerProvider.Shutdown(ctx); err != nil {
			c.Logger.Error("failed to shutdown tracer provider", zap.Error(err))
		}
	}

	sentry.Flush(2 * time.Second)

	cache.CloseRedis()
	database.CloseDb()

	c.Logger.Info("Dependencies shut down successfully")

	_ = c.Logger.Sync()

	return nil
}
