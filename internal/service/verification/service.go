package verification

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/davidleathers/contact-guardian/internal/domain/contact"
	"github.com/davidleathers/contact-guardian/internal/domain/errors"
	"github.com/davidleathers/contact-guardian/internal/domain/threat"
	"github.com/davidleathers/contact-guardian/internal/domain/values"
)

// SnapshotSource supplies the current corpus snapshot
type SnapshotSource interface {
	Current() *contact.Corpus
}

// CacheKey identifies a cached result. Results are only reused for the
// same corpus version and signature generation.
type CacheKey struct {
	CorpusVersion       string
	SignatureGeneration uint64
	Kind                values.ContactKind
	NormalizedValue     string
}

// ResultCache stores verification results. Get returns nil on a miss.
type ResultCache interface {
	Get(ctx context.Context, key CacheKey) (*Result, error)
	Set(ctx context.Context, key CacheKey, res Result) error
}

// Observer records verification outcomes
type Observer interface {
	ObserveVerification(kind, risk, source string, d time.Duration)
	ObserveCache(outcome string)
}

type generationalSource interface {
	Snapshot() (*threat.SignatureSet, uint64)
}

// Service verifies identifiers against the live corpus snapshot
type Service struct {
	engine    *Engine
	snapshots SnapshotSource
	cache     ResultCache
	observer  Observer
	logger    *zap.Logger
	tracer    trace.Tracer
}

// Option configures a Service
type Option func(*Service)

// WithCache enables result caching
func WithCache(c ResultCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithObserver reports outcomes to o
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

// NewService creates a verification service
func NewService(engine *Engine, snapshots SnapshotSource, logger *zap.Logger, opts ...Option) (*Service, error) {
	if engine == nil {
		return nil, errors.NewValidationError("MISSING_DEPENDENCY", "engine cannot be nil")
	}
	if snapshots == nil {
		return nil, errors.NewValidationError("MISSING_DEPENDENCY", "snapshot source cannot be nil")
	}
	if logger == nil {
		return nil, errors.NewValidationError("MISSING_DEPENDENCY", "logger cannot be nil")
	}

	s := &Service{
		engine:    engine,
		snapshots: snapshots,
		logger:    logger,
		tracer:    otel.Tracer("contact-guardian/verification"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Engine returns the underlying engine
func (s *Service) Engine() *Engine {
	return s.engine
}

// Snapshot returns the corpus the next call would use
func (s *Service) Snapshot() *contact.Corpus {
	return s.snapshots.Current()
}

// Verify classifies one identifier against the current snapshot. It only
// fails when no snapshot is loaded yet.
func (s *Service) Verify(ctx context.Context, kind values.ContactKind, value string) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "verification.Verify",
		trace.WithAttributes(attribute.String("contact.kind", string(kind))))
	defer span.End()

	start := time.Now()
	c := s.snapshots.Current()
	if c == nil {
		return Result{}, errors.NewUnavailableError("corpus not loaded")
	}

	sigs, gen := s.signatures()
	normalized, normErr := s.engine.Normalizer().Normalize(kind, value)

	var key CacheKey
	useCache := s.cache != nil && normErr == nil
	if useCache {
		key = CacheKey{
			CorpusVersion:       c.Version(),
			SignatureGeneration: gen,
			Kind:                kind,
			NormalizedValue:     normalized,
		}
		cached, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			s.observeCache("error")
			s.logger.Warn("verification cache read failed", zap.Error(err))
		case cached != nil:
			s.observeCache("hit")
			res := *cached
			res.Value = value
			s.finish(span, res, start)
			return res, nil
		default:
			s.observeCache("miss")
		}
	}

	res := s.engine.VerifyWith(kind, value, c, sigs)

	if useCache {
		if err := s.cache.Set(ctx, key, res); err != nil {
			s.logger.Warn("verification cache write failed", zap.Error(err))
		}
	}

	s.finish(span, res, start)
	return res, nil
}

func (s *Service) signatures() (*threat.SignatureSet, uint64) {
	if g, ok := s.engine.signatures.(generationalSource); ok {
		return g.Snapshot()
	}
	return s.engine.signatures.Current(), 0
}

func (s *Service) finish(span trace.Span, res Result, start time.Time) {
	d := time.Since(start)
	span.SetAttributes(
		attribute.String("verification.risk", string(res.RiskLevel)),
		attribute.String("verification.source", string(res.Source)),
		attribute.Bool("verification.matched", res.Matched),
	)

	if s.observer != nil {
		s.observer.ObserveVerification(string(res.Kind), string(res.RiskLevel), string(res.Source), d)
	}

	s.logger.Debug("identifier verified",
		zap.String("kind", string(res.Kind)),
		zap.String("risk", string(res.RiskLevel)),
		zap.String("source", string(res.Source)),
		zap.Bool("matched", res.Matched),
		zap.String("corpus_version", res.CorpusVersion),
		zap.Duration("duration", d))
}

func (s *Service) observeCache(outcome string) {
	if s.observer != nil {
		s.observer.ObserveCache(outcome)
	}
}
