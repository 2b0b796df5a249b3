package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hilthontt/kindred/infrastructure/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type FrameOp string

const (
	OpEmit       FrameOp = "emit"
	OpDisconnect FrameOp = "disconnect"
)

// Frame is one hub operation as it travels between nodes.
type Frame struct {
	Node   string          `json:"node"`
	Op     FrameOp         `json:"op"`
	Room   string          `json:"room"`
	Except string          `json:"except,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
	Reason string          `json:"reason,omitempty"`
}

// Backplane carries frames to every node, including the publisher.
// Subscribe calls ready once frames published from then on are guaranteed
// to reach handle.
type Backplane interface {
	Publish(ctx context.Context, f Frame) error
	Subscribe(ctx context.Context, ready func(), handle func(Frame)) error
}

type RedisBackplane struct {
	client  *redis.Client
	channel string
	logger  *logger.Logger
}

func NewRedisBackplane(client *redis.Client, channel string, log *logger.Logger) *RedisBackplane {
	return &RedisBackplane{client: client, channel: channel, logger: log}
}

func (b *RedisBackplane) Publish(ctx context.Context, f Frame) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", b.channel, err)
	}
	return nil
}

// Subscribe blocks until ctx is cancelled, handing every frame to handle.
func (b *RedisBackplane) Subscribe(ctx context.Context, ready func(), handle func(Frame)) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to %s: %w", b.channel, err)
	}

	b.logger.Info("backplane subscribed", zap.String("channel", b.channel))
	ready()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var f Frame
			if err := json.Unmarshal([]byte(msg.Payload), &f); err != nil {
				b.logger.Warn("discarding malformed backplane frame", zap.Error(err))
				continue
			}
			handle(f)
		}
	}
}
