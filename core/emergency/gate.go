// Package emergency screens a case for red flags before any specialist is
// consulted.
package emergency

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

// Message is what the participant is told when a red flag is found.
const Message = "STOP: Please call emergency services (911) immediately or go to the nearest emergency room."

type Result struct {
	IsEmergency bool   `json:"isEmergency"`
	Condition   string `json:"condition,omitempty"`
	Reasoning   string `json:"reasoning,omitempty"`
}

type Classifier interface {
	Classify(ctx context.Context, caseText string) (Result, error)
}

type ClassifierFunc func(ctx context.Context, caseText string) (Result, error)

func (f ClassifierFunc) Classify(ctx context.Context, caseText string) (Result, error) {
	return f(ctx, caseText)
}

// Limiter spaces out calls to rate limited collaborators.
type Limiter interface {
	Acquire(ctx context.Context) error
}

type Gate struct {
	classifier Classifier
	limiter    Limiter

	checks metric.Int64Counter
}

type GateOption func(*Gate)

// WithLimiter makes every check pass the limiter before classifying.
func WithLimiter(limiter Limiter) GateOption {
	return func(g *Gate) {
		g.limiter = limiter
	}
}

func NewGate(classifier Classifier, opts ...GateOption) *Gate {
	g := &Gate{classifier: classifier}
	for _, opt := range opts {
		opt(g)
	}

	checks, err := meter.Int64Counter("emergency.checks",
		metric.WithDescription("Emergency checks by outcome"))
	if err != nil {
		logger.Warn("failed to create emergency check counter", "error", err)
	}
	g.checks = checks
	return g
}

// Check classifies the case text. Failures never block a consultation: an
// error from the limiter or the classifier is logged and reported as not an
// emergency.
func (g *Gate) Check(ctx context.Context, caseText string) Result {
	ctx, span := tracer.Start(ctx, "check emergency")
	defer span.End()

	result, err := g.check(ctx, caseText)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn("emergency check failed, continuing consultation", "error", err)
		g.count(ctx, "failed")
		return Result{}
	}

	span.SetAttributes(attribute.Bool("emergency", result.IsEmergency))
	if result.IsEmergency {
		span.SetAttributes(attribute.String("emergency.condition", result.Condition))
		g.count(ctx, "emergency")
	} else {
		g.count(ctx, "clear")
	}
	return result
}

func (g *Gate) check(ctx context.Context, caseText string) (Result, error) {
	if g.classifier == nil {
		return Result{}, errors.New("no emergency classifier configured")
	}
	if g.limiter != nil {
		if err := g.limiter.Acquire(ctx); err != nil {
			return Result{}, err
		}
	}
	return g.classifier.Classify(ctx, caseText)
}

func (g *Gate) count(ctx context.Context, outcome string) {
	if g.checks == nil {
		return
	}
	g.checks.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
