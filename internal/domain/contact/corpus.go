package contact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/davidleathers/contact-guardian/internal/domain/values"
)

type indexKey struct {
	kind       values.ContactKind
	normalized string
}

// Corpus is an immutable, versioned collection of records. All accessors
// return copies, so a Corpus can be shared freely between goroutines.
type Corpus struct {
	version string
	hash    string
	source  string
	builtAt time.Time
	records []Record

	byKindAndNormalizedValue map[indexKey][]int
	byKind                   map[values.ContactKind][]int
	byRiskLevel              map[values.RiskLevel][]int
	byID                     map[string]int
}

// NewCorpus indexes records in the given order. contentHash identifies the
// source bytes; when empty a fingerprint of the records is used instead.
func NewCorpus(records []Record, source, contentHash string, builtAt time.Time) *Corpus {
	if contentHash == "" {
		contentHash = Fingerprint(records)
	}

	c := &Corpus{
		hash:                     contentHash,
		source:                   source,
		builtAt:                  builtAt.UTC(),
		records:                  make([]Record, len(records)),
		byKindAndNormalizedValue: make(map[indexKey][]int),
		byKind:                   make(map[values.ContactKind][]int),
		byRiskLevel:              make(map[values.RiskLevel][]int),
		byID:                     make(map[string]int, len(records)),
	}
	copy(c.records, records)

	for i := range c.records {
		r := &c.records[i]
		if r.RiskLevel == "" {
			r.RiskLevel = values.RiskUnknown
		}
		if r.OrganizationType == "" {
			r.OrganizationType = values.OrgUnknown
		}

		key := indexKey{kind: r.Kind, normalized: r.NormalizedValue}
		c.byKindAndNormalizedValue[key] = append(c.byKindAndNormalizedValue[key], i)
		c.byKind[r.Kind] = append(c.byKind[r.Kind], i)
		c.byRiskLevel[r.RiskLevel] = append(c.byRiskLevel[r.RiskLevel], i)
		if _, exists := c.byID[r.ID]; !exists {
			c.byID[r.ID] = i
		}
	}

	short := contentHash
	if len(short) > 12 {
		short = short[:12]
	}
	c.version = fmt.Sprintf("%s-%d", short, c.builtAt.UnixNano())
	return c
}

// HashContent returns the hex sha256 of raw source bytes
func HashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Fingerprint hashes the identifying fields of records in order
func Fingerprint(records []Record) string {
	h := sha256.New()
	for _, r := range records {
		fmt.Fprintf(h, "%s\x1f%s\x1f%s\x1f%s\x1f%s\n",
			r.ID, r.Kind, r.NormalizedValue, r.RiskLevel, r.OrganizationName)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Version identifies this snapshot: content hash prefix plus build time
func (c *Corpus) Version() string { return c.version }

// ContentHash is the full hash of the source the corpus was built from
func (c *Corpus) ContentHash() string { return c.hash }

// Source names where the records came from
func (c *Corpus) Source() string { return c.source }

// BuiltAt is when the snapshot was indexed
func (c *Corpus) BuiltAt() time.Time { return c.builtAt }

// Len returns the number of records
func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.records)
}

// Records returns every record in corpus order
func (c *Corpus) Records() []Record {
	if c == nil {
		return nil
	}
	out := make([]Record, len(c.records))
	copy(out, c.records)
	return out
}

// Each calls fn for every record in corpus order until fn returns false
func (c *Corpus) Each(fn func(Record) bool) {
	if c == nil {
		return
	}
	for _, r := range c.records {
		if !fn(r) {
			return
		}
	}
}

// Lookup returns the records whose normalized value equals normalized
func (c *Corpus) Lookup(kind values.ContactKind, normalized string) []Record {
	if c == nil {
		return nil
	}
	return c.collect(c.byKindAndNormalizedValue[indexKey{kind: kind, normalized: normalized}])
}

// First returns the first record in corpus order with the exact normalized value
func (c *Corpus) First(kind values.ContactKind, normalized string) (Record, bool) {
	if c == nil {
		return Record{}, false
	}
	idx := c.byKindAndNormalizedValue[indexKey{kind: kind, normalized: normalized}]
	if len(idx) == 0 {
		return Record{}, false
	}
	return c.records[idx[0]], true
}

// FindFirst returns the first record of kind, in corpus order, for which
// match reports true
func (c *Corpus) FindFirst(kind values.ContactKind, match func(Record) bool) (Record, bool) {
	if c == nil {
		return Record{}, false
	}
	for _, i := range c.byKind[kind] {
		if match(c.records[i]) {
			return c.records[i], true
		}
	}
	return Record{}, false
}

// OfKind returns the records of one kind in corpus order
func (c *Corpus) OfKind(kind values.ContactKind) []Record {
	if c == nil {
		return nil
	}
	return c.collect(c.byKind[kind])
}

// ByRiskLevel returns the records with one risk level in corpus order
func (c *Corpus) ByRiskLevel(risk values.RiskLevel) []Record {
	if c == nil {
		return nil
	}
	return c.collect(c.byRiskLevel[risk])
}

// CountByRiskLevel returns the number of records with one risk level
func (c *Corpus) CountByRiskLevel(risk values.RiskLevel) int {
	if c == nil {
		return 0
	}
	return len(c.byRiskLevel[risk])
}

// Get returns the first record with the given id
func (c *Corpus) Get(id string) (Record, bool) {
	if c == nil {
		return Record{}, false
	}
	i, ok := c.byID[id]
	if !ok {
		return Record{}, false
	}
	return c.records[i], true
}

// Search returns records whose organization name, value, services, or
// category contains the query, case-insensitively
func (c *Corpus) Search(query string) []Record {
	query = strings.ToLower(strings.TrimSpace(query))
	if c == nil || query == "" {
		return nil
	}

	var out []Record
	for _, r := range c.records {
		if strings.Contains(strings.ToLower(r.OrganizationName), query) ||
			strings.Contains(strings.ToLower(r.Value), query) ||
			strings.Contains(strings.ToLower(r.Services), query) ||
			strings.Contains(strings.ToLower(r.Category), query) {
			out = append(out, r)
		}
	}
	return out
}

func (c *Corpus) collect(idx []int) []Record {
	if len(idx) == 0 {
		return nil
	}
	out := make([]Record, len(idx))
	for i, j := range idx {
		out[i] = c.records[j]
	}
	return out
}
