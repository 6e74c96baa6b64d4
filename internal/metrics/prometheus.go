package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "guardian"

// Collectors are the Prometheus series scraped from /metrics
type Collectors struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	RateLimited         *prometheus.CounterVec

	VerificationsTotal   *prometheus.CounterVec
	VerificationDuration *prometheus.HistogramVec
	CacheLookups         *prometheus.CounterVec

	AnalysesTotal    *prometheus.CounterVec
	ThreatIndicators prometheus.Histogram
	AnalysisDuration prometheus.Histogram

	ReloadsTotal     *prometheus.CounterVec
	ReloadDuration   prometheus.Histogram
	CorpusRecords    prometheus.Gauge
	CorpusSkipped    prometheus.Gauge
	LastReloadTime   prometheus.Gauge
	WebsocketClients prometheus.Gauge
}

// NewCollectors registers the collectors on reg. A nil reg uses the
// default registerer.
func NewCollectors(reg prometheus.Registerer) *Collectors {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Collectors{
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "handler", "status"}),

		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"method", "handler"}),

		RateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		}, []string{"limiter"}),

		VerificationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "verification",
			Name:      "total",
			Help:      "Identifiers verified by kind, risk level and source",
		}, []string{"kind", "risk", "source"}),

		VerificationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "verification",
			Name:      "duration_seconds",
			Help:      "Identifier verification latency",
			Buckets:   prometheus.ExponentialBuckets(0.000001, 4, 12),
		}, []string{"kind"}),

		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "verification",
			Name:      "cache_lookups_total",
			Help:      "Verification cache lookups by outcome",
		}, []string{"outcome"}),

		AnalysesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "total",
			Help:      "Messages analyzed by risk level",
		}, []string{"risk"}),

		ThreatIndicators: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "threat_indicators",
			Help:      "Threat indicators reported per message",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		}),

		AnalysisDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "Message analysis latency",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),

		ReloadsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "corpus",
			Name:      "reloads_total",
			Help:      "Corpus reload attempts by result",
		}, []string{"result"}),

		ReloadDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "corpus",
			Name:      "reload_duration_seconds",
			Help:      "Corpus load duration",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),

		CorpusRecords: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "corpus",
			Name:      "records",
			Help:      "Records in the active snapshot",
		}),

		CorpusSkipped: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "corpus",
			Name:      "skipped_rows",
			Help:      "Rows skipped while loading the active snapshot",
		}),

		LastReloadTime: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "corpus",
			Name:      "last_reload_timestamp_seconds",
			Help:      "Unix time of the last snapshot swap",
		}),

		WebsocketClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "websocket_clients",
			Help:      "Connected snapshot event subscribers",
		}),
	}
}
