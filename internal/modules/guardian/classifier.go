package guardian

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/hostguard/guardian-backend/internal/pkg/logger"
)

// ClassifierBackend is a text-completion call returning a JSON-shaped string.
type ClassifierBackend interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// RiskClassifier turns one exchange into a Verdict. It never fails: backend
// and parse errors collapse into FallbackVerdict.
type RiskClassifier struct {
	backend ClassifierBackend
	log     *logger.Logger
	loc     *time.Location
	timeout time.Duration
	metrics Metrics
}

func NewRiskClassifier(backend ClassifierBackend, log *logger.Logger, cfg Config, metrics Metrics) *RiskClassifier {
	cfg = cfg.withDefaults()
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &RiskClassifier{
		backend: backend,
		log:     log.With("service", "RiskClassifier"),
		loc:     cfg.Location,
		timeout: cfg.ClassifierTimeout,
		metrics: metrics,
	}
}

func (c *RiskClassifier) Classify(ctx context.Context, ex Exchange) Verdict {
	if ex.User == nil {
		c.metrics.ObserveClassification(OutcomeSkipped, 0)
		return emptyVerdict()
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "guardian.classify")
	defer span.End()

	start := time.Now()
	if c.backend == nil {
		c.log.Error("No classifier backend configured")
		c.metrics.ObserveClassification(OutcomeFallback, time.Since(start))
		span.SetStatus(codes.Error, "no backend")
		return FallbackVerdict()
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.backend.Complete(callCtx, classifierSystemPrompt, ex.ClassifierInput(c.loc))
	if err != nil {
		c.log.Warn("Classifier call failed, using fallback verdict", "error", err)
		c.metrics.ObserveClassification(OutcomeFallback, time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "backend error")
		return FallbackVerdict()
	}

	v, err := parseVerdict(out)
	if err != nil {
		c.log.Warn("Classifier output unusable, using fallback verdict", "error", err, "output_len", len(out))
		c.metrics.ObserveClassification(OutcomeFallback, time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse error")
		return FallbackVerdict()
	}

	c.metrics.ObserveClassification(OutcomeOK, time.Since(start))
	span.SetAttributes(
		attribute.Float64("guardian.risk_score", v.RiskScore),
		attribute.Bool("guardian.insufficient_info", v.InsufficientInfo),
	)
	return v
}
