package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/davidleathers/contact-guardian/internal/domain/contact"
	"github.com/davidleathers/contact-guardian/internal/infrastructure/corpus"
)

// HealthChecker checks the health of a dependency
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) HealthCheckResult
}

// HealthStatus is the outcome of a check
type HealthStatus string

const (
	HealthStatusPass HealthStatus = "pass"
	HealthStatusWarn HealthStatus = "warn"
	HealthStatusFail HealthStatus = "fail"
)

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status       HealthStatus           `json:"status"`
	Message      string                 `json:"message,omitempty"`
	Error        string                 `json:"error,omitempty"`
	ResponseTime time.Duration          `json:"response_time"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	LastChecked  time.Time              `json:"last_checked"`
}

// HealthConfig configures the health service
type HealthConfig struct {
	// CacheDuration is how long check results are reused
	CacheDuration time.Duration
	// Timeout bounds each check
	Timeout        time.Duration
	ServiceName    string
	ServiceVersion string
	Environment    string
}

// DefaultHealthConfig returns default configuration
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		CacheDuration: 5 * time.Second,
		Timeout:       2 * time.Second,
		ServiceName:   "contact-guardian",
	}
}

// HealthResponse is the body of /health
type HealthResponse struct {
	Status      HealthStatus                 `json:"status"`
	ServiceName string                       `json:"service_name"`
	Version     string                       `json:"version,omitempty"`
	Environment string                       `json:"environment,omitempty"`
	Uptime      float64                      `json:"uptime_seconds"`
	Checks      map[string]HealthCheckResult `json:"checks,omitempty"`
}

type cachedResult struct {
	result HealthCheckResult
	at     time.Time
}

// HealthService runs registered checks and serves their aggregate
type HealthService struct {
	mu        sync.RWMutex
	checkers  []HealthChecker
	cache     sync.Map
	config    HealthConfig
	tracer    trace.Tracer
	startTime time.Time
	now       func() time.Time
}

// NewHealthService creates a new health service
func NewHealthService(config HealthConfig) *HealthService {
	if config.Timeout <= 0 {
		config.Timeout = DefaultHealthConfig().Timeout
	}
	return &HealthService{
		config:    config,
		tracer:    otel.Tracer("contact-guardian/health"),
		startTime: time.Now(),
		now:       time.Now,
	}
}

// RegisterChecker adds a checker
func (h *HealthService) RegisterChecker(c HealthChecker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers = append(h.checkers, c)
}

// Check runs every checker and returns the overall status
func (h *HealthService) Check(ctx context.Context) (HealthStatus, map[string]HealthCheckResult) {
	checks := h.runChecks(ctx)
	status := HealthStatusPass
	for _, res := range checks {
		switch res.Status {
		case HealthStatusFail:
			return HealthStatusFail, checks
		case HealthStatusWarn:
			status = HealthStatusWarn
		}
	}
	return status, checks
}

// Handler serves GET /health. It answers 503 when any check fails.
func (h *HealthService) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := h.tracer.Start(r.Context(), "health.check")
		defer span.End()

		status, checks := h.Check(ctx)
		code := http.StatusOK
		if status == HealthStatusFail {
			code = http.StatusServiceUnavailable
		}

		resp := HealthResponse{
			Status:      status,
			ServiceName: h.config.ServiceName,
			Version:     h.config.ServiceVersion,
			Environment: h.config.Environment,
			Uptime:      h.now().Sub(h.startTime).Seconds(),
			Checks:      checks,
		}

		w.Header().Set("Content-Type", "application/health+json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)

		span.SetAttributes(
			attribute.String("health.status", string(status)),
			attribute.Int("health.checks_count", len(checks)),
		)
	}
}

func (h *HealthService) runChecks(ctx context.Context) map[string]HealthCheckResult {
	h.mu.RLock()
	checkers := append([]HealthChecker(nil), h.checkers...)
	h.mu.RUnlock()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]HealthCheckResult, len(checkers))
	)
	for _, c := range checkers {
		if v, ok := h.cache.Load(c.Name()); ok {
			cr := v.(cachedResult)
			if h.now().Sub(cr.at) < h.config.CacheDuration {
				results[c.Name()] = cr.result
				continue
			}
		}

		wg.Add(1)
		go func(c HealthChecker) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
			defer cancel()

			start := h.now()
			res := c.Check(cctx)
			res.ResponseTime = h.now().Sub(start)
			res.LastChecked = start
			h.cache.Store(c.Name(), cachedResult{result: res, at: start})

			mu.Lock()
			results[c.Name()] = res
			mu.Unlock()
		}(c)
	}
	wg.Wait()
	return results
}

// CorpusHealthChecker fails until a snapshot is loaded and warns while the
// built-in sample corpus is being served
type CorpusHealthChecker struct {
	snapshots interface{ Current() *contact.Corpus }
}

// NewCorpusHealthChecker checks the snapshot held by snapshots
func NewCorpusHealthChecker(snapshots interface{ Current() *contact.Corpus }) *CorpusHealthChecker {
	return &CorpusHealthChecker{snapshots: snapshots}
}

func (c *CorpusHealthChecker) Name() string { return "corpus" }

func (c *CorpusHealthChecker) Check(_ context.Context) HealthCheckResult {
	snap := c.snapshots.Current()
	if snap == nil {
		return HealthCheckResult{Status: HealthStatusFail, Message: "corpus not loaded"}
	}

	res := HealthCheckResult{
		Status:  HealthStatusPass,
		Message: "corpus loaded",
		Metadata: map[string]interface{}{
			"version":  snap.Version(),
			"source":   snap.Source(),
			"records":  snap.Len(),
			"built_at": snap.BuiltAt().UTC(),
		},
	}
	if snap.Source() == corpus.SampleSource {
		res.Status = HealthStatusWarn
		res.Message = "serving built-in sample corpus"
	}
	return res
}

// PingFunc checks a remote dependency
type PingFunc func(ctx context.Context) error

// DependencyHealthChecker wraps a ping. Optional dependencies only warn.
type DependencyHealthChecker struct {
	name     string
	ping     PingFunc
	required bool
}

// NewDependencyHealthChecker creates a checker named name
func NewDependencyHealthChecker(name string, ping PingFunc, required bool) *DependencyHealthChecker {
	return &DependencyHealthChecker{name: name, ping: ping, required: required}
}

func (d *DependencyHealthChecker) Name() string { return d.name }

func (d *DependencyHealthChecker) Check(ctx context.Context) HealthCheckResult {
	if err := d.ping(ctx); err != nil {
		status := HealthStatusWarn
		if d.required {
			status = HealthStatusFail
		}
		return HealthCheckResult{Status: status, Message: d.name + " unreachable", Error: err.Error()}
	}
	return HealthCheckResult{Status: HealthStatusPass, Message: d.name + " reachable"}
}
