package corpus

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/davidleathers/contact-guardian/internal/domain/contact"
	"github.com/davidleathers/contact-guardian/internal/domain/errors"
	"github.com/davidleathers/contact-guardian/internal/domain/values"
)

const (
	// DefaultMaxRowErrors bounds the row errors kept in a LoadReport
	DefaultMaxRowErrors = 20

	maxLineBytes        = 1 << 20
	cancelCheckInterval = 256
)

// RowError describes one skipped row
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// LoadReport summarizes one load
type LoadReport struct {
	Source      string        `json:"source"`
	Version     string        `json:"version"`
	Loaded      int           `json:"loaded"`
	Skipped     int           `json:"skipped"`
	RowErrors   []RowError    `json:"row_errors,omitempty"`
	Duration    time.Duration `json:"duration"`
	UsedSample  bool          `json:"used_sample,omitempty"`
	CompletedAt time.Time     `json:"completed_at"`
}

// LoaderConfig configures a Loader
type LoaderConfig struct {
	Delimiter    rune
	MaxRowErrors int
	Normalizer   values.Normalizer
}

// Loader parses delimited contact data into a Corpus
type Loader struct {
	delimiter    rune
	maxRowErrors int
	normalizer   values.Normalizer
	logger       *zap.Logger
	now          func() time.Time
}

// NewLoader creates a loader. A zero delimiter means ','.
func NewLoader(cfg LoaderConfig, logger *zap.Logger) *Loader {
	if cfg.Delimiter == 0 {
		cfg.Delimiter = ','
	}
	if cfg.MaxRowErrors <= 0 {
		cfg.MaxRowErrors = DefaultMaxRowErrors
	}
	if cfg.Normalizer.Region.CountryCode == "" && cfg.Normalizer.Region.TrunkPrefix == "" {
		cfg.Normalizer = values.DefaultNormalizer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		delimiter:    cfg.Delimiter,
		maxRowErrors: cfg.MaxRowErrors,
		normalizer:   cfg.Normalizer,
		logger:       logger,
		now:          time.Now,
	}
}

// LoadFile loads a corpus from a file on disk
func (l *Loader) LoadFile(ctx context.Context, path string) (*contact.Corpus, *LoadReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.NewUnavailableError("cannot open corpus source").
			WithDetails(map[string]interface{}{"path": path}).
			WithCause(err)
	}
	defer f.Close()
	return l.Load(ctx, f, path)
}

// Load parses r into a corpus. It fails only when the header is missing
// or lacks a required column, on read errors, or on cancellation. Rows with
// the wrong field count or an identifier that cannot be normalized are
// skipped and reported.
func (l *Loader) Load(ctx context.Context, r io.Reader, source string) (*contact.Corpus, *LoadReport, error) {
	start := l.now()
	hasher := sha256.New()
	scanner := bufio.NewScanner(io.TeeReader(r, hasher))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	report := &LoadReport{Source: source}

	var (
		hdr     header
		haveHdr bool
		records []contact.Record
		lineNo  int
	)

	for scanner.Scan() {
		lineNo++
		if lineNo%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, errors.Wrap(err, "corpus load cancelled")
			}
		}

		line := strings.TrimRight(scanner.Text(), "\r")
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		if !haveHdr {
			hdr = parseHeader(line, l.delimiter)
			if missing := hdr.missing(); len(missing) > 0 {
				return nil, nil, errors.NewParseError("MISSING_COLUMNS", lineNo,
					fmt.Sprintf("header is missing required columns: %s", strings.Join(missing, ", "))).
					WithDetails(map[string]interface{}{"line": lineNo, "missing": missing})
			}
			haveHdr = true
			continue
		}

		rec, reason := l.parseRow(hdr, splitLine(line, l.delimiter))
		if reason != "" {
			report.Skipped++
			if len(report.RowErrors) < l.maxRowErrors {
				report.RowErrors = append(report.RowErrors, RowError{Line: lineNo, Reason: reason})
			}
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, errors.NewParseError("READ_FAILED", lineNo+1, "cannot read corpus source").WithCause(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "corpus load cancelled")
	}
	if !haveHdr {
		return nil, nil, errors.NewParseError("MISSING_HEADER", 0, "corpus source has no header row")
	}

	builtAt := l.now()
	c := contact.NewCorpus(records, source, hex.EncodeToString(hasher.Sum(nil)), builtAt)

	report.Loaded = len(records)
	report.Version = c.Version()
	report.Duration = builtAt.Sub(start)
	report.CompletedAt = builtAt

	l.logger.Info("corpus loaded",
		zap.String("source", source),
		zap.String("version", c.Version()),
		zap.Int("loaded", report.Loaded),
		zap.Int("skipped", report.Skipped),
		zap.Duration("duration", report.Duration))
	if report.Skipped > 0 {
		l.logger.Warn("corpus rows skipped",
			zap.String("source", source),
			zap.Int("skipped", report.Skipped),
			zap.Any("first_errors", report.RowErrors))
	}

	return c, report, nil
}

// parseRow builds a record from one row. A non-empty reason means the row
// must be skipped.
func (l *Loader) parseRow(h header, row []string) (contact.Record, string) {
	if len(row) != h.fields {
		return contact.Record{}, fmt.Sprintf("expected %d fields, got %d", h.fields, len(row))
	}

	kind, ok := values.ParseContactKind(h.get(row, ColContactType))
	if !ok {
		kind = values.KindGeneral
	}

	rec, err := contact.NewRecord(l.normalizer, h.get(row, ColContactID), kind, h.get(row, ColContactValue))
	if err != nil {
		return contact.Record{}, err.Error()
	}

	rec.OrganizationName = h.get(row, ColOrganizationName)
	rec.OrganizationType = values.ParseOrganizationType(h.get(row, ColOrganizationType))
	rec.RiskLevel = values.ParseRiskLevel(h.get(row, ColRiskLevel))
	rec.SetConfidence(parseFloat(h.get(row, ColConfidenceScore)))
	rec.PriorityScore = parseFloat(h.get(row, ColPriorityScore))
	rec.Category = h.get(row, ColCategory)
	rec.Notes = h.get(row, ColNotes)
	rec.SourceAgent = h.get(row, ColSourceAgent)
	rec.SourceURL = h.get(row, ColSourceURL)
	rec.Services = h.get(row, ColServices)
	rec.Address = h.get(row, ColAddress)
	rec.Suburb = h.get(row, ColSuburb)
	rec.State = h.get(row, ColState)
	rec.Postcode = h.get(row, ColPostcode)
	rec.VerifiedDate = parseDate(h.get(row, ColVerifiedDate))

	rec.Region = h.get(row, ColGeographicRegion)
	if rec.Region == "" {
		rec.Region = rec.State
	}

	return rec, ""
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
