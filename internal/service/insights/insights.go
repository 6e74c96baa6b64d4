package insights

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/davidleathers/contact-guardian/internal/domain/contact"
	"github.com/davidleathers/contact-guardian/internal/domain/values"
)

// Stats summarizes one corpus snapshot
type Stats struct {
	CorpusVersion string         `json:"corpus_version"`
	Total         int            `json:"total"`
	ByKind        map[string]int `json:"by_kind"`
	ByRiskLevel   map[string]int `json:"by_risk_level"`
	ByCategory    map[string]int `json:"by_category"`
	ByRegion      map[string]int `json:"by_region"`
	Verified      int            `json:"verified"`
	Threats       int            `json:"threats"`
	// SafetyRate is the percentage of records that are safe
	SafetyRate decimal.Decimal `json:"safety_rate"`
}

// ComputeStats counts the records of c
func ComputeStats(c *contact.Corpus) Stats {
	s := Stats{
		ByKind:      make(map[string]int),
		ByRiskLevel: make(map[string]int),
		ByCategory:  make(map[string]int),
		ByRegion:    make(map[string]int),
		SafetyRate:  decimal.Zero,
	}
	if c == nil {
		return s
	}

	s.CorpusVersion = c.Version()
	safe := 0
	c.Each(func(r contact.Record) bool {
		s.Total++
		s.ByKind[string(r.Kind)]++
		s.ByRiskLevel[string(r.RiskLevel)]++
		if r.Category != "" {
			s.ByCategory[r.Category]++
		}
		if r.Region != "" {
			s.ByRegion[r.Region]++
		}
		if r.IsVerified() {
			s.Verified++
		}
		if r.IsThreat() {
			s.Threats++
		}
		if r.IsSafe() {
			safe++
		}
		return true
	})

	if s.Total > 0 {
		s.SafetyRate = decimal.NewFromInt(int64(safe)).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(int64(s.Total))).
			Round(2)
	}
	return s
}

// Conflict is an identifier that appears both as safe and as a threat
type Conflict struct {
	Kind            values.ContactKind `json:"kind"`
	NormalizedValue string             `json:"normalized_value"`
	SafeRecords     []contact.Record   `json:"safe_records"`
	ThreatRecords   []contact.Record   `json:"threat_records"`
}

// Conflicts lists identifiers with both safe and threat records, in the
// order they first appear in the corpus
func Conflicts(c *contact.Corpus) []Conflict {
	if c == nil {
		return []Conflict{}
	}

	type key struct {
		kind  values.ContactKind
		value string
	}
	var order []key
	groups := make(map[key]*Conflict)

	c.Each(func(r contact.Record) bool {
		if !r.IsSafe() && r.RiskLevel != values.RiskThreat {
			return true
		}
		k := key{r.Kind, r.NormalizedValue}
		g, ok := groups[k]
		if !ok {
			g = &Conflict{Kind: r.Kind, NormalizedValue: r.NormalizedValue}
			groups[k] = g
			order = append(order, k)
		}
		if r.IsSafe() {
			g.SafeRecords = append(g.SafeRecords, r)
		} else {
			g.ThreatRecords = append(g.ThreatRecords, r)
		}
		return true
	})

	out := []Conflict{}
	for _, k := range order {
		g := groups[k]
		if len(g.SafeRecords) > 0 && len(g.ThreatRecords) > 0 {
			out = append(out, *g)
		}
	}
	return out
}

// RecentlyVerified returns up to limit dated records, newest first. Records
// verified on the same instant keep corpus order.
func RecentlyVerified(c *contact.Corpus, limit int) []contact.Record {
	if c == nil || limit <= 0 {
		return []contact.Record{}
	}

	dated := []contact.Record{}
	c.Each(func(r contact.Record) bool {
		if !r.VerifiedDate.IsZero() {
			dated = append(dated, r)
		}
		return true
	})

	sort.SliceStable(dated, func(i, j int) bool {
		return dated[i].VerifiedDate.After(dated[j].VerifiedDate)
	})
	if len(dated) > limit {
		dated = dated[:limit]
	}
	return dated
}
