package metrics

import (
	"context"
	"strconv"
	"time"
)

// Recorder fans observations out to the Prometheus collectors and, when
// set, the OpenTelemetry registry. A nil Recorder discards everything.
type Recorder struct {
	prom *Collectors
	otel *Registry
	now  func() time.Time
}

// NewRecorder creates a recorder. Either target may be nil.
func NewRecorder(prom *Collectors, otel *Registry) *Recorder {
	return &Recorder{prom: prom, otel: otel, now: time.Now}
}

// ObserveReload records a corpus reload attempt
func (r *Recorder) ObserveReload(result string, records, skipped int, d time.Duration) {
	if r == nil {
		return
	}
	swapped := result == "success" || result == "fallback"

	if r.prom != nil {
		r.prom.ReloadsTotal.WithLabelValues(result).Inc()
		r.prom.ReloadDuration.Observe(d.Seconds())
		if swapped {
			r.prom.CorpusRecords.Set(float64(records))
			r.prom.CorpusSkipped.Set(float64(skipped))
			r.prom.LastReloadTime.Set(float64(r.now().Unix()))
		}
	}
	if r.otel != nil {
		r.otel.RecordReload(context.Background(), ms(d), result)
		if swapped {
			r.otel.SetCorpusSize(records, skipped)
		}
	}
}

// ObserveVerification records one verification
func (r *Recorder) ObserveVerification(kind, risk, source string, d time.Duration) {
	if r == nil {
		return
	}
	if r.prom != nil {
		r.prom.VerificationsTotal.WithLabelValues(kind, risk, source).Inc()
		r.prom.VerificationDuration.WithLabelValues(kind).Observe(d.Seconds())
	}
	if r.otel != nil {
		r.otel.RecordVerification(context.Background(), ms(d), kind, risk, source)
	}
}

// ObserveCache records a verification cache lookup
func (r *Recorder) ObserveCache(outcome string) {
	if r == nil {
		return
	}
	if r.prom != nil {
		r.prom.CacheLookups.WithLabelValues(outcome).Inc()
	}
	if r.otel != nil {
		r.otel.RecordCache(context.Background(), outcome)
	}
}

// ObserveAnalysis records one message analysis
func (r *Recorder) ObserveAnalysis(risk string, indicators int, d time.Duration) {
	if r == nil {
		return
	}
	if r.prom != nil {
		r.prom.AnalysesTotal.WithLabelValues(risk).Inc()
		r.prom.ThreatIndicators.Observe(float64(indicators))
		r.prom.AnalysisDuration.Observe(d.Seconds())
	}
	if r.otel != nil {
		r.otel.RecordAnalysis(context.Background(), ms(d), risk)
	}
}

// ObserveHTTP records one served request
func (r *Recorder) ObserveHTTP(ctx context.Context, method, handler string, status int, d time.Duration) {
	if r == nil {
		return
	}
	if r.prom != nil {
		r.prom.HTTPRequestsTotal.WithLabelValues(method, handler, strconv.Itoa(status)).Inc()
		r.prom.HTTPRequestDuration.WithLabelValues(method, handler).Observe(d.Seconds())
	}
	if r.otel != nil {
		r.otel.RecordAPIRequest(ctx, ms(d), method, handler, status)
	}
}

// ObserveRateLimited records a rejected request
func (r *Recorder) ObserveRateLimited(limiter string) {
	if r == nil || r.prom == nil {
		return
	}
	r.prom.RateLimited.WithLabelValues(limiter).Inc()
}

// WebsocketConnected adjusts the connected subscriber gauge by delta
func (r *Recorder) WebsocketConnected(delta int) {
	if r == nil || r.prom == nil {
		return
	}
	r.prom.WebsocketClients.Add(float64(delta))
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
