package orchestration

import (
	"context"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/koscakluka/huddle-core/core"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

type metrics struct {
	sessions     metric.Int64Counter
	turnFailures metric.Int64Counter
	emergencies  metric.Int64Counter
	turnDuration metric.Float64Histogram
}

func newMetrics() metrics {
	var m metrics
	var err error

	if m.sessions, err = meter.Int64Counter("huddle.sessions",
		metric.WithDescription("Consultations driven to an end, by outcome")); err != nil {
		logger.Warn("failed to create session counter", "error", err)
	}
	if m.turnFailures, err = meter.Int64Counter("huddle.turn.failures",
		metric.WithDescription("Generation failures, by step")); err != nil {
		logger.Warn("failed to create turn failure counter", "error", err)
	}
	if m.emergencies, err = meter.Int64Counter("huddle.emergencies",
		metric.WithDescription("Consultations stopped by the emergency gate")); err != nil {
		logger.Warn("failed to create emergency counter", "error", err)
	}
	if m.turnDuration, err = meter.Float64Histogram("huddle.turn.duration",
		metric.WithDescription("Time spent producing one specialist statement"),
		metric.WithUnit("s")); err != nil {
		logger.Warn("failed to create turn duration histogram", "error", err)
	}

	return m
}

func (m metrics) sessionEnded(ctx context.Context, outcome string) {
	if m.sessions != nil {
		m.sessions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

func (m metrics) turnFailed(ctx context.Context, step string) {
	if m.turnFailures != nil {
		m.turnFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("step", step)))
	}
}

func (m metrics) emergencyFound(ctx context.Context, condition string) {
	if m.emergencies != nil {
		m.emergencies.Add(ctx, 1, metric.WithAttributes(attribute.String("condition", condition)))
	}
}

func (m metrics) turnTook(ctx context.Context, role string, seconds float64) {
	if m.turnDuration != nil {
		m.turnDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("role", role)))
	}
}
