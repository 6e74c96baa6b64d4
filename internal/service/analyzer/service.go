package analyzer

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/davidleathers/contact-guardian/internal/domain/errors"
	"github.com/davidleathers/contact-guardian/internal/service/verification"
)

// Observer records analysis outcomes
type Observer interface {
	ObserveAnalysis(risk string, indicators int, d time.Duration)
}

// Service analyzes messages against the live snapshot and signature set
type Service struct {
	analyzer  *Analyzer
	snapshots verification.SnapshotSource
	observer  Observer
	logger    *zap.Logger
	tracer    trace.Tracer
}

// NewService creates an analysis service. observer may be nil.
func NewService(a *Analyzer, snapshots verification.SnapshotSource, observer Observer, logger *zap.Logger) (*Service, error) {
	if a == nil {
		return nil, errors.NewValidationError("MISSING_DEPENDENCY", "analyzer cannot be nil")
	}
	if snapshots == nil {
		return nil, errors.NewValidationError("MISSING_DEPENDENCY", "snapshot source cannot be nil")
	}
	if logger == nil {
		return nil, errors.NewValidationError("MISSING_DEPENDENCY", "logger cannot be nil")
	}
	return &Service{
		analyzer:  a,
		snapshots: snapshots,
		observer:  observer,
		logger:    logger,
		tracer:    otel.Tracer("contact-guardian/analyzer"),
	}, nil
}

// Analyze classifies text. It only fails when no snapshot is loaded.
func (s *Service) Analyze(ctx context.Context, text string) (Result, error) {
	_, span := s.tracer.Start(ctx, "analyzer.Analyze",
		trace.WithAttributes(attribute.Int("message.length", len(text))))
	defer span.End()

	c := s.snapshots.Current()
	if c == nil {
		return Result{}, errors.NewUnavailableError("corpus not loaded")
	}

	start := time.Now()
	res := s.analyzer.Analyze(text, c, s.analyzer.engine.Signatures())
	d := time.Since(start)

	span.SetAttributes(
		attribute.String("analysis.risk", string(res.RiskLevel)),
		attribute.Int("analysis.phones", len(res.PhoneNumbers)),
		attribute.Int("analysis.urls", len(res.URLs)),
		attribute.Int("analysis.indicators", len(res.ThreatIndicators)),
	)
	if s.observer != nil {
		s.observer.ObserveAnalysis(string(res.RiskLevel), len(res.ThreatIndicators), d)
	}

	s.logger.Debug("message analyzed",
		zap.String("risk", string(res.RiskLevel)),
		zap.Int("phones", len(res.PhoneNumbers)),
		zap.Int("urls", len(res.URLs)),
		zap.Int("indicators", len(res.ThreatIndicators)),
		zap.String("corpus_version", c.Version()),
		zap.Duration("duration", d))

	return res, nil
}
