package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/hilthontt/kindred/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

// InitRedis connects the process-wide client and pings it.
func InitRedis(cfg *config.Config) error {
	client := NewRedisClient(cfg.Redis, cfg.GetRedisAddress())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("ping redis at %s: %w", cfg.GetRedisAddress(), err)
	}

	redisClient = client
	return nil
}

func NewRedisClient(cfg config.RedisConfig, addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.Db,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
		PoolTimeout:  cfg.PoolTimeout,
	})
}

func GetRedis() *redis.Client {
	return redisClient
}

func CloseRedis() {
	if redisClient != nil {
		_ = redisClient.Close()
		redisClient = nil
	}
}
