package relevance

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/davidleathers/contact-guardian/internal/domain/contact"
	"github.com/davidleathers/contact-guardian/internal/domain/errors"
)

// DefaultContextLimit is the number of entries placed in a context
const DefaultContextLimit = 5

// Generator produces answer text from a prepared context
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// SnapshotSource supplies the current corpus snapshot
type SnapshotSource interface {
	Current() *contact.Corpus
}

// Answer is the assistant's reply to one query
type Answer struct {
	Query     string         `json:"query"`
	Text      string         `json:"text"`
	Context   string         `json:"context"`
	Services  []ServiceEntry `json:"services"`
	Generated bool           `json:"generated"`
}

type entrySet struct {
	corpus  *contact.Corpus
	entries []ServiceEntry
}

// Assistant answers service lookups from the live corpus
type Assistant struct {
	snapshots SnapshotSource
	generator Generator
	limit     int
	logger    *zap.Logger
	tracer    trace.Tracer
	entries   atomic.Pointer[entrySet]
}

// NewAssistant creates an assistant. generator may be nil, in which case
// answers use the fallback text.
func NewAssistant(snapshots SnapshotSource, generator Generator, limit int, logger *zap.Logger) (*Assistant, error) {
	if snapshots == nil {
		return nil, errors.NewValidationError("MISSING_DEPENDENCY", "snapshot source cannot be nil")
	}
	if logger == nil {
		return nil, errors.NewValidationError("MISSING_DEPENDENCY", "logger cannot be nil")
	}
	if limit <= 0 {
		limit = DefaultContextLimit
	}
	return &Assistant{
		snapshots: snapshots,
		generator: generator,
		limit:     limit,
		logger:    logger,
		tracer:    otel.Tracer("contact-guardian/relevance"),
	}, nil
}

// Entries returns the service entries of the current snapshot. They are
// rebuilt only when the snapshot changes.
func (a *Assistant) Entries() ([]ServiceEntry, error) {
	c := a.snapshots.Current()
	if c == nil {
		return nil, errors.NewUnavailableError("corpus not loaded")
	}
	if set := a.entries.Load(); set != nil && set.corpus == c {
		return set.entries, nil
	}

	set := &entrySet{corpus: c, entries: BuildServiceEntries(c)}
	a.entries.Store(set)
	a.logger.Debug("service entries rebuilt",
		zap.String("corpus_version", c.Version()),
		zap.Int("entries", len(set.entries)))
	return set.entries, nil
}

// Search ranks the current entries against query
func (a *Assistant) Search(ctx context.Context, query string, limit int) ([]Scored, error) {
	_, span := a.tracer.Start(ctx, "relevance.Search")
	defer span.End()

	entries, err := a.Entries()
	if err != nil {
		return nil, err
	}
	res := RankScored(query, entries, limit)
	span.SetAttributes(attribute.Int("relevance.results", len(res)))
	return res, nil
}

// Answer ranks services for query and asks the generator for a reply,
// falling back to a fixed rendering when no generator is configured or it
// fails
func (a *Assistant) Answer(ctx context.Context, query string) (Answer, error) {
	ctx, span := a.tracer.Start(ctx, "relevance.Answer")
	defer span.End()

	entries, err := a.Entries()
	if err != nil {
		return Answer{}, err
	}

	matches := Rank(query, entries, a.limit)
	ans := Answer{
		Query:    query,
		Context:  BuildContext(query, matches),
		Services: matches,
	}

	if a.generator != nil {
		text, genErr := a.generator.Generate(ctx, ans.Context)
		if genErr == nil && strings.TrimSpace(text) != "" {
			ans.Text = text
			ans.Generated = true
			span.SetAttributes(attribute.Bool("relevance.generated", true))
			return ans, nil
		}
		a.logger.Warn("generator failed, using fallback answer", zap.Error(genErr))
	}

	ans.Text = FallbackAnswer(query, matches)
	span.SetAttributes(attribute.Bool("relevance.generated", false))
	return ans, nil
}

// FallbackAnswer renders matches without a generator
func FallbackAnswer(query string, matches []ServiceEntry) string {
	var b strings.Builder

	if len(matches) == 0 {
		fmt.Fprintf(&b, "No specific government contacts found for %q.\n\n", query)
		b.WriteString("Emergency services (police, fire, ambulance): 000\n\n")
		b.WriteString("Try asking about:\n")
		b.WriteString("- ATO phone number\n")
		b.WriteString("- Medicare contact\n")
		b.WriteString("- Centrelink services\n")
		b.WriteString("- Hospital emergency\n\n")
		b.WriteString("For urgent matters, always call 000.")
		return b.String()
	}

	fmt.Fprintf(&b, "Found verified government contacts for %q:\n", query)
	for _, e := range matches {
		fmt.Fprintf(&b, "\n%s\n", displayName(e))
		fmt.Fprintf(&b, "Agency: %s\n", e.Agency)
		fmt.Fprintf(&b, "Phone: %s\n", e.PhoneNumber)
		fmt.Fprintf(&b, "Category: %s\n", e.Category)
		fmt.Fprintf(&b, "Region: %s\n", e.Region)
	}
	b.WriteString("\nOnly call numbers listed here. These contacts are verified against official government sources.")
	return b.String()
}
