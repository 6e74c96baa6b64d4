package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Registry holds the OpenTelemetry instruments for the engine
type Registry struct {
	meter metric.Meter

	// Verification
	VerificationDuration metric.Float64Histogram
	VerificationCounter  metric.Int64Counter
	CacheCounter         metric.Int64Counter

	// Message analysis
	AnalysisDuration metric.Float64Histogram
	AnalysisCounter  metric.Int64Counter

	// Corpus
	ReloadCounter  metric.Int64Counter
	ReloadDuration metric.Float64Histogram
	CorpusRecords  metric.Int64ObservableGauge
	SkippedRows    metric.Int64ObservableGauge

	// API
	APIRequestDuration metric.Float64Histogram
	APIRequestCounter  metric.Int64Counter

	mu            sync.RWMutex
	corpusRecords int64
	skippedRows   int64
}

// NewRegistry creates the instruments on the global meter provider
func NewRegistry(meterName string) (*Registry, error) {
	r := &Registry{meter: otel.Meter(meterName)}

	if err := r.initVerificationMetrics(); err != nil {
		return nil, err
	}
	if err := r.initCorpusMetrics(); err != nil {
		return nil, err
	}
	if err := r.initAPIMetrics(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) initVerificationMetrics() error {
	var err error

	r.VerificationDuration, err = r.meter.Float64Histogram(
		"guardian.verification.duration",
		metric.WithDescription("Duration of identifier verification in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50),
	)
	if err != nil {
		return err
	}

	r.VerificationCounter, err = r.meter.Int64Counter(
		"guardian.verification.total",
		metric.WithDescription("Identifiers verified by kind and risk level"),
	)
	if err != nil {
		return err
	}

	r.CacheCounter, err = r.meter.Int64Counter(
		"guardian.verification.cache_total",
		metric.WithDescription("Verification cache lookups by outcome"),
	)
	if err != nil {
		return err
	}

	r.AnalysisDuration, err = r.meter.Float64Histogram(
		"guardian.analysis.duration",
		metric.WithDescription("Duration of message analysis in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 5, 10, 50, 100),
	)
	if err != nil {
		return err
	}

	r.AnalysisCounter, err = r.meter.Int64Counter(
		"guardian.analysis.total",
		metric.WithDescription("Messages analyzed by risk level"),
	)
	return err
}

func (r *Registry) initCorpusMetrics() error {
	var err error

	r.ReloadCounter, err = r.meter.Int64Counter(
		"guardian.corpus.reload_total",
		metric.WithDescription("Corpus reload attempts by result"),
	)
	if err != nil {
		return err
	}

	r.ReloadDuration, err = r.meter.Float64Histogram(
		"guardian.corpus.reload_duration",
		metric.WithDescription("Duration of corpus loads in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 50, 100, 500, 1000, 5000),
	)
	if err != nil {
		return err
	}

	r.CorpusRecords, err = r.meter.Int64ObservableGauge(
		"guardian.corpus.records",
		metric.WithDescription("Records in the active corpus snapshot"),
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			r.mu.RLock()
			defer r.mu.RUnlock()
			o.Observe(r.corpusRecords)
			return nil
		}),
	)
	if err != nil {
		return err
	}

	r.SkippedRows, err = r.meter.Int64ObservableGauge(
		"guardian.corpus.skipped_rows",
		metric.WithDescription("Rows skipped while loading the active snapshot"),
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			r.mu.RLock()
			defer r.mu.RUnlock()
			o.Observe(r.skippedRows)
			return nil
		}),
	)
	return err
}

func (r *Registry) initAPIMetrics() error {
	var err error

	r.APIRequestDuration, err = r.meter.Float64Histogram(
		"guardian.api.request_duration",
		metric.WithDescription("API request duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 50, 100, 500, 1000, 5000),
	)
	if err != nil {
		return err
	}

	r.APIRequestCounter, err = r.meter.Int64Counter(
		"guardian.api.request_total",
		metric.WithDescription("Total number of API requests"),
	)
	return err
}

// SetCorpusSize updates the values reported by the corpus gauges
func (r *Registry) SetCorpusSize(records, skipped int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.corpusRecords = int64(records)
	r.skippedRows = int64(skipped)
}

// RecordVerification records one verification
func (r *Registry) RecordVerification(ctx context.Context, durationMS float64, kind, risk, source string) {
	attrs := metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("risk", risk),
		attribute.String("source", source),
	)
	r.VerificationDuration.Record(ctx, durationMS, attrs)
	r.VerificationCounter.Add(ctx, 1, attrs)
}

// RecordCache records one cache lookup
func (r *Registry) RecordCache(ctx context.Context, outcome string) {
	r.CacheCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordAnalysis records one message analysis
func (r *Registry) RecordAnalysis(ctx context.Context, durationMS float64, risk string) {
	attrs := metric.WithAttributes(attribute.String("risk", risk))
	r.AnalysisDuration.Record(ctx, durationMS, attrs)
	r.AnalysisCounter.Add(ctx, 1, attrs)
}

// RecordReload records one reload attempt
func (r *Registry) RecordReload(ctx context.Context, durationMS float64, result string) {
	attrs := metric.WithAttributes(attribute.String("result", result))
	r.ReloadDuration.Record(ctx, durationMS, attrs)
	r.ReloadCounter.Add(ctx, 1, attrs)
}

// RecordAPIRequest records API request metrics
func (r *Registry) RecordAPIRequest(ctx context.Context, durationMS float64, method, path string, statusCode int) {
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status_code", statusCode),
	)
	r.APIRequestDuration.Record(ctx, durationMS, attrs)
	r.APIRequestCounter.Add(ctx, 1, attrs)
}
