package dependency

import (
	"context"
	"fmt"
	"time"

	"github.com/hilthontt/kindred/application/usecases/realtime"
	"github.com/hilthontt/kindred/infrastructure/websocket"
	"go.uber.org/zap"
)

// hubReadyTimeout bounds how long startup waits for the backplane
// subscription to be confirmed.
const hubReadyTimeout = 10 * time.Second

func (c *Container) initWebSocket() error {
	if c.Redis != nil {
		c.Backplane = websocket.NewRedisBackplane(c.Redis, c.Config.Backplane.Channel, c.Logger)
	}

	c.Hub = websocket.NewHub(c.Logger, c.MetricsManager, c.Backplane)
	c.OriginPolicy = websocket.NewOriginPolicy(c.Config.Cors.AllowOrigins, c.Logger)

	c.ctx, c.cancel = context.WithCancel(context.Background())

	go c.Hub.Run(c.ctx)

	readyCtx, cancel := context.WithTimeout(c.ctx, hubReadyTimeout)
	defer cancel()
	if err := c.Hub.WaitReady(readyCtx); err != nil {
		c.cancel()
		return fmt.Errorf("websocket hub not ready: %w", err)
	}

	c.Registry = realtime.NewRegistry(c.Logger)
	if err := c.Registry.Init(c.Hub); err != nil {
		return err
	}

	c.Logger.Info("WebSocket components initialized successfully",
		zap.Bool("backplane", c.Backplane != nil),
		zap.Strings("allowOrigins", c.Config.Cors.AllowOrigins),
	)
	return nil
}
