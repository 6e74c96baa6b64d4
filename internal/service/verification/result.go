package verification

import (
	"github.com/davidleathers/contact-guardian/internal/domain/values"
)

// Source says what produced a result
type Source string

// Result sources
const (
	SourceCorpus    Source = "corpus"
	SourceHeuristic Source = "heuristic"
	SourceNone      Source = "none"
)

// Result is the classification of one identifier
type Result struct {
	Kind             values.ContactKind      `json:"kind"`
	Value            string                  `json:"value"`
	NormalizedValue  string                  `json:"normalized_value,omitempty"`
	Matched          bool                    `json:"matched"`
	RiskLevel        values.RiskLevel        `json:"risk_level"`
	OrganizationName string                  `json:"organization_name,omitempty"`
	OrganizationType values.OrganizationType `json:"organization_type"`
	ConfidenceScore  float64                 `json:"confidence_score"`
	Services         string                  `json:"services,omitempty"`
	Message          string                  `json:"message"`
	RecordID         string                  `json:"record_id,omitempty"`
	Source           Source                  `json:"source"`
	CorpusVersion    string                  `json:"corpus_version,omitempty"`
}

// IsSafe reports whether the identifier classified as safe
func (r Result) IsSafe() bool {
	return r.RiskLevel.IsSafe()
}

// IsThreat reports whether the identifier classified as threat or suspicious
func (r Result) IsThreat() bool {
	return r.RiskLevel.IsThreat()
}
