package authorization

import (
	"context"
	"time"

	"github.com/hilthontt/kindred/domain/model"
	"github.com/hilthontt/kindred/domain/repository"
	"github.com/hilthontt/kindred/infrastructure/logger"
	"github.com/hilthontt/kindred/infrastructure/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const DefaultLookupTimeout = 5 * time.Second

// Gate answers whether an identity may join a match or event room. Every call
// reads the store; answers are never cached, so unmatching or withdrawing a
// registration takes effect on the next join attempt.
type Gate interface {
	CanJoinMatch(ctx context.Context, identity model.Identity, matchID int64) bool
	CanJoinEvent(ctx context.Context, identity model.Identity, eventID int64) bool
}

type gate struct {
	repository repository.AuthorizationRepository
	timeout    time.Duration
	logger     *logger.Logger
	metrics    metrics.Manager
	tracer     trace.Tracer
}

func NewGate(
	repository repository.AuthorizationRepository,
	timeout time.Duration,
	logger *logger.Logger,
	metrics metrics.Manager,
) Gate {
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	return &gate{
		repository: repository,
		timeout:    timeout,
		logger:     logger,
		metrics:    metrics,
		tracer:     otel.Tracer("kindred/authorization"),
	}
}

func (g *gate) CanJoinMatch(ctx context.Context, identity model.Identity, matchID int64) bool {
	return g.decide(ctx, "match", identity, matchID, func(ctx context.Context) (bool, error) {
		return g.repository.IsMatchParticipant(ctx, matchID, identity.ID)
	})
}

func (g *gate) CanJoinEvent(ctx context.Context, identity model.Identity, eventID int64) bool {
	return g.decide(ctx, "event", identity, eventID, func(ctx context.Context) (bool, error) {
		return g.repository.IsRegisteredForEvent(ctx, eventID, identity.ID)
	})
}

// decide runs lookup under a bounded context. Lookup failures deny.
func (g *gate) decide(
	ctx context.Context,
	target string,
	identity model.Identity,
	targetID int64,
	lookup func(context.Context) (bool, error),
) bool {
	if identity.Kind != model.KindUser || identity.ID <= 0 || targetID <= 0 {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	ctx, span := g.tracer.Start(ctx, "authorization.CanJoin"+target, trace.WithAttributes(
		attribute.Int64("identity.id", identity.ID),
		attribute.Int64(target+".id", targetID),
	))
	defer span.End()

	start := time.Now()
	allowed, err := lookup(ctx)
	g.metrics.RecordHistogram(ctx, metrics.AuthorizationLatency, time.Since(start).Seconds(), "target", target)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		g.logger.Error("authorization lookup failed",
			zap.String("target", target),
			zap.Int64("targetID", targetID),
			zap.String("identity", identity.String()),
			zap.Error(err),
		)
		return false
	}

	span.SetAttributes(attribute.Bool("allowed", allowed))
	return allowed
}
