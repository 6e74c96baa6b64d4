package corpus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/davidleathers/contact-guardian/internal/domain/contact"
	"github.com/davidleathers/contact-guardian/internal/domain/errors"
)

// Event announces that a new snapshot was swapped in
type Event struct {
	Version  string    `json:"version"`
	Source   string    `json:"source"`
	Records  int       `json:"records"`
	Skipped  int       `json:"skipped"`
	Fallback bool      `json:"fallback"`
	At       time.Time `json:"at"`
}

// ReloadObserver receives the outcome of every reload attempt
type ReloadObserver interface {
	ObserveReload(result string, records, skipped int, duration time.Duration)
}

// Store holds the current corpus snapshot. Readers call Current once per
// query and keep working on that snapshot even if a reload swaps in a new one.
type Store struct {
	current    atomic.Pointer[contact.Corpus]
	lastReport atomic.Pointer[LoadReport]

	loader   *Loader
	path     string
	logger   *zap.Logger
	observer ReloadObserver

	reloadMu sync.Mutex

	subsMu sync.RWMutex
	subs   map[int]chan Event
	nextID int
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithReloadObserver reports reload outcomes to o
func WithReloadObserver(o ReloadObserver) StoreOption {
	return func(s *Store) { s.observer = o }
}

// NewStore creates an empty store reading from path. Call Reload to
// populate it.
func NewStore(loader *Loader, path string, logger *zap.Logger, opts ...StoreOption) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		loader: loader,
		path:   path,
		logger: logger,
		subs:   make(map[int]chan Event),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Current returns the active snapshot, or nil before the first load
func (s *Store) Current() *contact.Corpus {
	return s.current.Load()
}

// LastReport returns the report of the snapshot currently served
func (s *Store) LastReport() *LoadReport {
	return s.lastReport.Load()
}

// Path returns the configured source path
func (s *Store) Path() string {
	return s.path
}

// Swap installs c as the current snapshot and notifies subscribers
func (s *Store) Swap(c *contact.Corpus, report *LoadReport) *contact.Corpus {
	prev := s.current.Swap(c)
	if report != nil {
		s.lastReport.Store(report)
	}

	ev := Event{
		Version: c.Version(),
		Source:  c.Source(),
		Records: c.Len(),
		At:      c.BuiltAt(),
	}
	if report != nil {
		ev.Skipped = report.Skipped
		ev.Fallback = report.UsedSample
	}
	s.publish(ev)
	return prev
}

// Reload builds a new snapshot from the source and swaps it in. On failure
// the previous snapshot stays active; if there is none the built-in sample
// corpus is installed and the load error is still returned.
func (s *Store) Reload(ctx context.Context) (*LoadReport, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := time.Now()
	if s.path == "" {
		return s.fallback(ctx, start, errors.NewUnavailableError("no corpus source configured"))
	}

	c, report, err := s.loader.LoadFile(ctx, s.path)
	if err != nil {
		return s.fallback(ctx, start, err)
	}

	if prev := s.Current(); prev != nil && prev.ContentHash() == c.ContentHash() {
		s.logger.Debug("corpus unchanged", zap.String("version", prev.Version()))
		s.observe("unchanged", c.Len(), report.Skipped, time.Since(start))
		return report, nil
	}

	s.Swap(c, report)
	s.observe("success", report.Loaded, report.Skipped, time.Since(start))
	return report, nil
}

func (s *Store) fallback(ctx context.Context, start time.Time, loadErr error) (*LoadReport, error) {
	if prev := s.Current(); prev != nil {
		s.logger.Error("corpus reload failed, keeping previous snapshot",
			zap.String("path", s.path),
			zap.String("version", prev.Version()),
			zap.Error(loadErr))
		s.observe("failed", prev.Len(), 0, time.Since(start))
		return nil, loadErr
	}

	c, report, err := s.loader.Sample(ctx)
	if err != nil {
		s.observe("failed", 0, 0, time.Since(start))
		return nil, errors.NewInternalError("cannot load sample corpus").WithCause(err)
	}

	s.logger.Warn("corpus source unavailable, serving sample corpus",
		zap.String("path", s.path),
		zap.Int("records", c.Len()),
		zap.Error(loadErr))
	s.Swap(c, report)
	s.observe("fallback", report.Loaded, report.Skipped, time.Since(start))
	return report, loadErr
}

func (s *Store) observe(result string, records, skipped int, d time.Duration) {
	if s.observer != nil {
		s.observer.ObserveReload(result, records, skipped, d)
	}
}

// Subscribe returns a channel of snapshot events and a cancel func. Events
// are dropped for subscribers that fall behind by more than buffer events.
func (s *Store) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	s.subsMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
			close(ch)
		})
	}
}

func (s *Store) publish(ev Event) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for id, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			s.logger.Warn("dropping snapshot event for slow subscriber",
				zap.Int("subscriber", id),
				zap.String("version", ev.Version))
		}
	}
}

// RunPeriodic reloads every interval until ctx is done
func (s *Store) RunPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Reload(ctx); err != nil {
				s.logger.Warn("periodic corpus reload failed", zap.Error(err))
			}
		}
	}
}
