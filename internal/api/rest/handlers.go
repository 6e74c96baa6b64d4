package rest

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/davidleathers/contact-guardian/internal/domain/contact"
	"github.com/davidleathers/contact-guardian/internal/domain/errors"
	"github.com/davidleathers/contact-guardian/internal/domain/values"
	"github.com/davidleathers/contact-guardian/internal/infrastructure/corpus"
	"github.com/davidleathers/contact-guardian/internal/service/analyzer"
	"github.com/davidleathers/contact-guardian/internal/service/insights"
	"github.com/davidleathers/contact-guardian/internal/service/relevance"
	"github.com/davidleathers/contact-guardian/internal/service/verification"
)

// recentLimit is how many recently verified records the stats endpoint lists
const recentLimit = 10

// Verifier classifies single identifiers
type Verifier interface {
	Verify(ctx context.Context, kind values.ContactKind, value string) (verification.Result, error)
}

// MessageAnalyzer assesses free-text messages
type MessageAnalyzer interface {
	Analyze(ctx context.Context, text string) (analyzer.Result, error)
}

// ServiceFinder ranks and describes government services
type ServiceFinder interface {
	Search(ctx context.Context, query string, limit int) ([]relevance.Scored, error)
	Answer(ctx context.Context, query string) (relevance.Answer, error)
}

// CorpusStore exposes the live snapshot and manual reloads
type CorpusStore interface {
	Current() *contact.Corpus
	Reload(ctx context.Context) (*corpus.LoadReport, error)
	Subscribe(buffer int) (<-chan corpus.Event, func())
}

// SignatureReloader re-reads the threat signature set
type SignatureReloader interface {
	ReloadSignatures(ctx context.Context) (uint64, error)
}

// Handlers serves the v1 API
type Handlers struct {
	*BaseHandler
	verifier   Verifier
	analyzer   MessageAnalyzer
	finder     ServiceFinder
	store      CorpusStore
	signatures SignatureReloader
}

// NewHandlers creates the endpoint handlers
func NewHandlers(base *BaseHandler, verifier Verifier, a MessageAnalyzer, finder ServiceFinder, store CorpusStore) (*Handlers, error) {
	switch {
	case base == nil:
		return nil, errors.NewValidationError("MISSING_DEPENDENCY", "base handler cannot be nil")
	case verifier == nil:
		return nil, errors.NewValidationError("MISSING_DEPENDENCY", "verifier cannot be nil")
	case a == nil:
		return nil, errors.NewValidationError("MISSING_DEPENDENCY", "analyzer cannot be nil")
	case finder == nil:
		return nil, errors.NewValidationError("MISSING_DEPENDENCY", "service finder cannot be nil")
	case store == nil:
		return nil, errors.NewValidationError("MISSING_DEPENDENCY", "corpus store cannot be nil")
	}
	return &Handlers{BaseHandler: base, verifier: verifier, analyzer: a, finder: finder, store: store}, nil
}

// Verify handles POST /api/v1/verify
func (h *Handlers) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	kind, _ := values.ParseContactKind(req.Kind)
	res, err := h.verifier.Verify(r.Context(), kind, req.Value)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeSuccess(w, r, http.StatusOK, res)
}

// AnalyzeMessage handles POST /api/v1/messages/analyze
func (h *Handlers) AnalyzeMessage(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.analyzer.Analyze(r.Context(), req.Text)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeSuccess(w, r, http.StatusOK, res)
}

// SearchServices handles GET /api/v1/services/search?q=...&limit=...
func (h *Handlers) SearchServices(w http.ResponseWriter, r *http.Request) {
	params := SearchParams{Query: r.URL.Query().Get("q"), Limit: DefaultSearchLimit}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, r, errors.NewValidationError("INVALID_LIMIT", "limit must be an integer"))
			return
		}
		params.Limit = n
	}
	if err := h.validate(params); err != nil {
		h.writeError(w, r, err)
		return
	}

	results, err := h.finder.Search(r.Context(), params.Query, params.Limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if results == nil {
		results = []relevance.Scored{}
	}
	h.writeSuccess(w, r, http.StatusOK, SearchResponse{
		Query:   params.Query,
		Count:   len(results),
		Results: results,
	})
}

// AssistantContext handles POST /api/v1/assistant/context
func (h *Handlers) AssistantContext(w http.ResponseWriter, r *http.Request) {
	var req AssistantRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	ans, err := h.finder.Answer(r.Context(), req.Query)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeSuccess(w, r, http.StatusOK, ans)
}

// CorpusStats handles GET /api/v1/corpus/stats
func (h *Handlers) CorpusStats(w http.ResponseWriter, r *http.Request) {
	c, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	h.writeSuccess(w, r, http.StatusOK, StatsResponse{
		Stats:  insights.ComputeStats(c),
		Recent: insights.RecentlyVerified(c, recentLimit),
	})
}

// CorpusConflicts handles GET /api/v1/corpus/conflicts
func (h *Handlers) CorpusConflicts(w http.ResponseWriter, r *http.Request) {
	c, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	conflicts := insights.Conflicts(c)
	if conflicts == nil {
		conflicts = []insights.Conflict{}
	}
	h.writeSuccess(w, r, http.StatusOK, ConflictsResponse{
		CorpusVersion: c.Version(),
		Count:         len(conflicts),
		Conflicts:     conflicts,
	})
}

// ReloadCorpus handles POST /api/v1/corpus/reload. A reload that fell back
// to the sample corpus still answers 200 with a warning.
func (h *Handlers) ReloadCorpus(w http.ResponseWriter, r *http.Request) {
	var prev string
	if c := h.store.Current(); c != nil {
		prev = c.Version()
	}

	report, err := h.store.Reload(r.Context())
	if err != nil && report == nil {
		h.writeError(w, r, err)
		return
	}

	resp := ReloadResponse{PreviousVersion: prev, Report: report}
	if c := h.store.Current(); c != nil {
		resp.CurrentVersion = c.Version()
	}
	resp.Changed = resp.CurrentVersion != prev
	if err != nil {
		resp.Warning = err.Error()
	}

	h.logger.Info("corpus reloaded via api",
		zap.String("request_id", RequestIDFromContext(r.Context())),
		zap.String("previous_version", prev),
		zap.String("current_version", resp.CurrentVersion),
		zap.Bool("changed", resp.Changed))
	h.writeSuccess(w, r, http.StatusOK, resp)
}

// ReloadSignatures handles POST /api/v1/signatures/reload. A failed reload
// keeps the active set.
func (h *Handlers) ReloadSignatures(w http.ResponseWriter, r *http.Request) {
	if h.signatures == nil {
		h.writeError(w, r, errors.NewUnavailableError("signature reload is not configured"))
		return
	}

	gen, err := h.signatures.ReloadSignatures(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Info("signatures reloaded via api",
		zap.String("request_id", RequestIDFromContext(r.Context())),
		zap.Uint64("generation", gen))
	h.writeSuccess(w, r, http.StatusOK, SignatureReloadResponse{Generation: gen})
}

// GetContact handles GET /api/v1/contacts/{id}
func (h *Handlers) GetContact(w http.ResponseWriter, r *http.Request) {
	c, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	rec, found := c.Get(r.PathValue("id"))
	if !found {
		h.writeJSON(w, http.StatusNotFound, ResponseEnvelope{
			Error: &ErrorResponse{Code: "NOT_FOUND", Message: "contact not found"},
			Meta:  h.meta(r),
		})
		return
	}
	h.writeSuccess(w, r, http.StatusOK, rec)
}

// SearchContacts handles GET /api/v1/contacts?q=...
func (h *Handlers) SearchContacts(w http.ResponseWriter, r *http.Request) {
	c, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	q := r.URL.Query().Get("q")
	if q == "" {
		h.writeError(w, r, errors.NewValidationError("MISSING_QUERY", "q is required"))
		return
	}
	records := c.Search(q)
	if records == nil {
		records = []contact.Record{}
	}
	h.writeSuccess(w, r, http.StatusOK, records)
}

func (h *Handlers) snapshot(w http.ResponseWriter, r *http.Request) (*contact.Corpus, bool) {
	c := h.store.Current()
	if c == nil {
		h.writeError(w, r, errors.NewUnavailableError("corpus not loaded"))
		return nil, false
	}
	return c, true
}
