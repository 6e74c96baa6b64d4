package contact

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/contact-guardian/internal/domain/errors"
	"github.com/davidleathers/contact-guardian/internal/domain/values"
)

// VerifiedConfidence is the confidence at which a safe record counts as verified
const VerifiedConfidence = 0.7

// Record is one verified or flagged identity entry
type Record struct {
	ID               string                  `json:"id"`
	Kind             values.ContactKind      `json:"kind"`
	Value            string                  `json:"value"`
	NormalizedValue  string                  `json:"normalized_value"`
	OrganizationName string                  `json:"organization_name"`
	OrganizationType values.OrganizationType `json:"organization_type"`
	RiskLevel        values.RiskLevel        `json:"risk_level"`
	ConfidenceScore  float64                 `json:"confidence_score"`
	PriorityScore    float64                 `json:"priority_score"`
	Region           string                  `json:"region,omitempty"`
	Category         string                  `json:"category,omitempty"`
	Notes            string                  `json:"notes,omitempty"`
	VerifiedDate     time.Time               `json:"verified_date,omitempty"`
	SourceAgent      string                  `json:"source_agent,omitempty"`

	// Descriptive columns carried through from the source
	Services  string `json:"services,omitempty"`
	SourceURL string `json:"source_url,omitempty"`
	Address   string `json:"address,omitempty"`
	Suburb    string `json:"suburb,omitempty"`
	State     string `json:"state,omitempty"`
	Postcode  string `json:"postcode,omitempty"`
}

// NewRecord creates a record with its normalized value filled in.
// The record starts with unknown risk and organization type; an empty id
// is replaced with a generated UUID.
func NewRecord(n values.Normalizer, id string, kind values.ContactKind, value string) (Record, error) {
	if kind == "" {
		return Record{}, errors.NewValidationError("INVALID_KIND", "contact kind cannot be empty")
	}

	normalized, err := n.Normalize(kind, value)
	if err != nil {
		return Record{}, err
	}

	if id == "" {
		id = uuid.NewString()
	}

	return Record{
		ID:               id,
		Kind:             kind,
		Value:            value,
		NormalizedValue:  normalized,
		OrganizationType: values.OrgUnknown,
		RiskLevel:        values.RiskUnknown,
	}, nil
}

// SetConfidence stores a confidence score clamped to [0, 1]
func (r *Record) SetConfidence(score float64) {
	switch {
	case math.IsNaN(score), score < 0:
		r.ConfidenceScore = 0
	case score > 1:
		r.ConfidenceScore = 1
	default:
		r.ConfidenceScore = score
	}
}

// IsSafe reports whether the record marks a legitimate contact
func (r Record) IsSafe() bool {
	return r.RiskLevel.IsSafe()
}

// IsThreat reports whether the record marks a threat or suspicious contact
func (r Record) IsThreat() bool {
	return r.RiskLevel.IsThreat()
}

// IsVerified reports whether the record is safe with a confidence of at
// least VerifiedConfidence
func (r Record) IsVerified() bool {
	return r.IsSafe() && r.ConfidenceScore >= VerifiedConfidence
}
