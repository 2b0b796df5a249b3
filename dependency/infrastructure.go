package dependency

import (
	"fmt"

	"github.com/getsentry/sentry-go"
	"github.com/hilthontt/kindred/infrastructure/cache"
	"github.com/hilthontt/kindred/infrastructure/metrics"
	"github.com/hilthontt/kindred/infrastructure/metrics/exporters"
	"github.com/hilthontt/kindred/infrastructure/persistence/database"
	"github.com/hilthontt/kindred/infrastructure/persistence/migration"
	"go.uber.org/zap"
)

func (c *Container) initInfrastructure() error {
	if c.Config.Sentry.Dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:            c.Config.Sentry.Dsn,
			Debug:          c.Config.Sentry.Debug,
			SendDefaultPII: c.Config.Sentry.SendDefaultPII,
			Environment:    c.Config.Server.RunMode,
			Release:        c.Config.Jaeger.ServiceVersion,
		}); err != nil {
			c.Logger.Error("failed to initialize sentry", zap.Error(err))
		}
	}

	if c.Config.Jaeger.Enabled {
		tracerProvider, err := exporters.InitTracer(c.Config)
		if err != nil {
			c.Logger.Error("failed to initialize tracer", zap.Error(err))
			c.Logger.Warn("Using noop tracer provider as fallback")
		} else {
			c.TracerProvider = tracerProvider
			c.Logger.Info("Tracer initialized successfully",
				zap.String("endpoint", c.Config.Jaeger.Endpoint),
				zap.String("service", c.Config.Jaeger.ServiceName),
			)
		}
	}

	if meter, err := exporters.Prometheus(c.Config.Jaeger); err != nil {
		c.Logger.Warn("failed to initialize Prometheus exporter, metrics disabled", zap.Error(err))
		c.MetricsManager = metrics.NewNopManager()
	} else {
		c.MetricsManager = metrics.NewMetricsManager(meter, c.Logger)
	}
	metrics.Register(c.MetricsManager)

	c.Logger.Info("Metrics initialized successfully")

	if err := database.InitDb(c.Config, c.Logger); err != nil {
		return fmt.Errorf("error initializing database: %w", err)
	}
	c.DB = database.GetDb()

	// the REST side owns the postgres schema; the embedded store is ours
	if c.Config.Postgres.Driver == "sqlite" {
		if err := migration.Up1(c.DB); err != nil {
			return fmt.Errorf("error migrating sqlite store: %w", err)
		}
	}

	c.Logger.Info("Database initialized successfully", zap.String("driver", c.Config.Postgres.Driver))

	if c.Config.Backplane.Enabled {
		if err := cache.InitRedis(c.Config); err != nil {
			return fmt.Errorf("error initializing redis: %w", err)
		}
		c.Redis = cache.GetRedis()
		c.Logger.Info("Redis initialized successfully", zap.String("address", c.Config.GetRedisAddress()))
	}

	return nil
}
