package metrics

import (
	"context"
	"sync"

	"github.com/hilthontt/kindred/infrastructure/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

// Manager owns the named instruments of the process. Instruments are created
// once at startup and looked up by name afterwards.
type Manager interface {
	NewCounter(name, desc string)
	NewUpDownCounter(name, desc string)
	NewHistogram(name, desc string, buckets ...float64)
	NewGauge(name, desc string)

	IncrementCounter(ctx context.Context, name string, labels ...string)
	AddUpDownCounter(ctx context.Context, name string, delta int64, labels ...string)
	RecordHistogram(ctx context.Context, name string, value float64, labels ...string)
	SetGauge(name string, value float64, labels ...string)
}

type metricsManager struct {
	meter  metric.Meter
	logger *logger.Logger

	mu         sync.RWMutex
	counters   map[string]metric.Int64Counter
	upDowns    map[string]metric.Int64UpDownCounter
	histograms map[string]metric.Float64Histogram
	gauges     map[string]metric.Float64Gauge
}

func NewMetricsManager(meter metric.Meter, log *logger.Logger) Manager {
	return &metricsManager{
		meter:      meter,
		logger:     log,
		counters:   make(map[string]metric.Int64Counter),
		upDowns:    make(map[string]metric.Int64UpDownCounter),
		histograms: make(map[string]metric.Float64Histogram),
		gauges:     make(map[string]metric.Float64Gauge),
	}
}

// NewNopManager records nothing. Used by tests and when the exporter fails.
func NewNopManager() Manager {
	return NewMetricsManager(noop.NewMeterProvider().Meter("nop"), logger.NewNopLogger())
}

func (m *metricsManager) NewCounter(name, desc string) {
	c, err := m.meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		m.logger.Error("failed to create counter", zap.String("name", name), zap.Error(err))
		return
	}
	m.mu.Lock()
	m.counters[name] = c
	m.mu.Unlock()
}

func (m *metricsManager) NewUpDownCounter(name, desc string) {
	c, err := m.meter.Int64UpDownCounter(name, metric.WithDescription(desc))
	if err != nil {
		m.logger.Error("failed to create up/down counter", zap.String("name", name), zap.Error(err))
		return
	}
	m.mu.Lock()
	m.upDowns[name] = c
	m.mu.Unlock()
}

func (m *metricsManager) NewHistogram(name, desc string, buckets ...float64) {
	opts := []metric.Float64HistogramOption{metric.WithDescription(desc)}
	if len(buckets) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(buckets...))
	}
	h, err := m.meter.Float64Histogram(name, opts...)
	if err != nil {
		m.logger.Error("failed to create histogram", zap.String("name", name), zap.Error(err))
		return
	}
	m.mu.Lock()
	m.histograms[name] = h
	m.mu.Unlock()
}

func (m *metricsManager) NewGauge(name, desc string) {
	g, err := m.meter.Float64Gauge(name, metric.WithDescription(desc))
	if err != nil {
		m.logger.Error("failed to create gauge", zap.String("name", name), zap.Error(err))
		return
	}
	m.mu.Lock()
	m.gauges[name] = g
	m.mu.Unlock()
}

func (m *metricsManager) IncrementCounter(ctx context.Context, name string, labels ...string) {
	m.mu.RLock()
	c, ok := m.counters[name]
	m.mu.RUnlock()
	if !ok {
		m.logger.Debug("unknown counter", zap.String("name", name))
		return
	}
	c.Add(ctx, 1, metric.WithAttributes(toAttributes(labels)...))
}

func (m *metricsManager) AddUpDownCounter(ctx context.Context, name string, delta int64, labels ...string) {
	m.mu.RLock()
	c, ok := m.upDowns[name]
	m.mu.RUnlock()
	if !ok {
		m.logger.Debug("unknown up/down counter", zap.String("name", name))
		return
	}
	c.Add(ctx, delta, metric.WithAttributes(toAttributes(labels)...))
}

func (m *metricsManager) RecordHistogram(ctx context.Context, name string, value float64, labels ...string) {
	m.mu.RLock()
	h, ok := m.histograms[name]
	m.mu.RUnlock()
	if !ok {
		m.logger.Debug("unknown histogram", zap.String("name", name))
		return
	}
	h.Record(ctx, value, metric.WithAttributes(toAttributes(labels)...))
}

func (m *metricsManager) SetGauge(name string, value float64, labels ...string) {
	m.mu.RLock()
	g, ok := m.gauges[name]
	m.mu.RUnlock()
	if !ok {
		return
	}
	g.Record(context.Background(), value, metric.WithAttributes(toAttributes(labels)...))
}

// toAttributes turns "key", "value" pairs into attributes. A trailing key
// without a value is dropped.
func toAttributes(labels []string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(labels)/2)
	for i := 0; i+1 < len(labels); i += 2 {
		attrs = append(attrs, attribute.String(labels[i], labels[i+1]))
	}
	return attrs
}
