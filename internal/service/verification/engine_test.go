package verification

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/contact-guardian/internal/domain/contact"
	"github.com/davidleathers/contact-guardian/internal/domain/threat"
	"github.com/davidleathers/contact-guardian/internal/domain/values"
)

type recordSpec struct {
	id, kind, value, org, risk, notes string
	confidence                        float64
}

func buildCorpus(t *testing.T, specs ...recordSpec) *contact.Corpus {
	t.Helper()
	records := make([]contact.Record, 0, len(specs))
	for _, s := range specs {
		r, err := contact.NewRecord(values.DefaultNormalizer, s.id, values.ContactKind(s.kind), s.value)
		require.NoError(t, err)
		r.OrganizationName = s.org
		r.RiskLevel = values.ParseRiskLevel(s.risk)
		r.Notes = s.notes
		r.Services = "services of " + s.org
		r.SetConfidence(s.confidence)
		if r.RiskLevel.IsThreat() {
			r.OrganizationType = values.OrgThreat
		} else {
			r.OrganizationType = values.OrgGovernment
		}
		records = append(records, r)
	}
	return contact.NewCorpus(records, "test", "", time.Unix(1, 0))
}

func testCorpus(t *testing.T) *contact.Corpus {
	return buildCorpus(t,
		recordSpec{id: "ato", kind: "phone", value: "13 28 61", org: "Australian Taxation Office", risk: "safe", confidence: 0.95},
		recordSpec{id: "sa", kind: "phone", value: "02 6219 5555", org: "Services Australia", risk: "safe", confidence: 0.9},
		recordSpec{id: "scam", kind: "phone", value: "1900 123 456", org: "Known Scam Number", risk: "threat", notes: "Premium rate number - SCAM", confidence: 1},
		recordSpec{id: "nsw-mail", kind: "email", value: "enquiries@service.nsw.gov.au", org: "Service NSW", risk: "safe", confidence: 0.95},
		recordSpec{id: "phish", kind: "email", value: "scammer@phishing-site.com", org: "Known Phishing Email", risk: "threat", notes: "Known phishing email - SCAM", confidence: 1},
		recordSpec{id: "nsw-web", kind: "website", value: "https://www.service.nsw.gov.au", org: "Service NSW", risk: "safe", confidence: 0.95},
		recordSpec{id: "lifeline", kind: "organization", value: "Lifeline Australia", org: "Lifeline", risk: "safe", confidence: 0.8},
	)
}

func newTestEngine() *Engine {
	return NewEngine(values.DefaultNormalizer, threat.NewHolder(nil))
}

func TestEngine_Verify(t *testing.T) {
	c := testCorpus(t)
	e := newTestEngine()

	tests := []struct {
		name     string
		kind     values.ContactKind
		value    string
		validate func(t *testing.T, r Result)
	}{
		{
			name:  "safe phone exact match",
			kind:  values.KindPhone,
			value: "13 28 61",
			validate: func(t *testing.T, r Result) {
				assert.True(t, r.Matched)
				assert.True(t, r.IsSafe())
				assert.Equal(t, "Australian Taxation Office", r.OrganizationName)
				assert.Equal(t, values.OrgGovernment, r.OrganizationType)
				assert.Equal(t, 0.95, r.ConfidenceScore)
				assert.Equal(t, "services of Australian Taxation Office", r.Services)
				assert.Equal(t, "verified safe for Australian Taxation Office", r.Message)
				assert.Equal(t, "ato", r.RecordID)
				assert.Equal(t, SourceCorpus, r.Source)
				assert.Equal(t, c.Version(), r.CorpusVersion)
			},
		},
		{
			name:  "international form matches domestic record",
			kind:  values.KindPhone,
			value: "+61 2 6219 5555",
			validate: func(t *testing.T, r Result) {
				assert.True(t, r.Matched)
				assert.Equal(t, "sa", r.RecordID)
			},
		},
		{
			name:  "local number matches by suffix",
			kind:  values.KindPhone,
			value: "6219 5555",
			validate: func(t *testing.T, r Result) {
				assert.True(t, r.Matched)
				assert.Equal(t, "sa", r.RecordID)
			},
		},
		{
			name:  "too short for suffix match",
			kind:  values.KindPhone,
			value: "219 5555",
			validate: func(t *testing.T, r Result) {
				assert.False(t, r.Matched)
				assert.Equal(t, values.RiskUnknown, r.RiskLevel)
			},
		},
		{
			name:  "threat phone record",
			kind:  values.KindPhone,
			value: "1900123456",
			validate: func(t *testing.T, r Result) {
				assert.True(t, r.Matched)
				assert.True(t, r.IsThreat())
				assert.Equal(t, values.RiskThreat, r.RiskLevel)
				assert.Equal(t, "flagged as threat: Premium rate number - SCAM", r.Message)
			},
		},
		{
			name:  "premium rate prefix without record",
			kind:  values.KindPhone,
			value: "1902 555 000",
			validate: func(t *testing.T, r Result) {
				assert.False(t, r.Matched)
				assert.Equal(t, values.RiskSuspicious, r.RiskLevel)
				assert.True(t, r.IsThreat())
				assert.Equal(t, SourceHeuristic, r.Source)
				assert.Equal(t, 0.0, r.ConfidenceScore)
			},
		},
		{
			name:  "foreign number sharing the premium digits",
			kind:  values.KindPhone,
			value: "+1 905 555 1234",
			validate: func(t *testing.T, r Result) {
				assert.False(t, r.Matched)
				assert.Equal(t, values.RiskUnknown, r.RiskLevel)
				assert.Equal(t, SourceNone, r.Source)
			},
		},
		{
			name:  "unknown phone",
			kind:  values.KindPhone,
			value: "0400 000 000",
			validate: func(t *testing.T, r Result) {
				assert.False(t, r.Matched)
				assert.Equal(t, values.RiskUnknown, r.RiskLevel)
				assert.Equal(t, SourceNone, r.Source)
				assert.Equal(t, 0.0, r.ConfidenceScore)
				assert.NotEmpty(t, r.Message)
			},
		},
		{
			name:  "email exact match is case insensitive",
			kind:  values.KindEmail,
			value: "Enquiries@Service.NSW.gov.au",
			validate: func(t *testing.T, r Result) {
				assert.True(t, r.Matched)
				assert.Equal(t, "nsw-mail", r.RecordID)
			},
		},
		{
			name:  "threat email record",
			kind:  values.KindEmail,
			value: "scammer@phishing-site.com",
			validate: func(t *testing.T, r Result) {
				assert.True(t, r.Matched)
				assert.Equal(t, values.RiskThreat, r.RiskLevel)
			},
		},
		{
			name:  "government email domain heuristic",
			kind:  values.KindEmail,
			value: "someone@health.gov.au",
			validate: func(t *testing.T, r Result) {
				assert.True(t, r.Matched)
				assert.Equal(t, values.RiskSafe, r.RiskLevel)
				assert.Equal(t, 0.8, r.ConfidenceScore)
				assert.Equal(t, "Government Domain", r.OrganizationName)
				assert.Equal(t, values.OrgGovernment, r.OrganizationType)
				assert.Equal(t, SourceHeuristic, r.Source)
			},
		},
		{
			name:  "scam email domain heuristic",
			kind:  values.KindEmail,
			value: "help@auspost-tracking.info",
			validate: func(t *testing.T, r Result) {
				assert.False(t, r.Matched)
				assert.Equal(t, values.RiskThreat, r.RiskLevel)
				assert.Equal(t, 0.0, r.ConfidenceScore)
				assert.Equal(t, values.OrgThreat, r.OrganizationType)
			},
		},
		{
			name:  "malformed email",
			kind:  values.KindEmail,
			value: "a@b@c.com",
			validate: func(t *testing.T, r Result) {
				assert.False(t, r.Matched)
				assert.Equal(t, values.RiskUnknown, r.RiskLevel)
				assert.Empty(t, r.NormalizedValue)
				assert.True(t, strings.HasPrefix(r.Message, "unable to verify"))
			},
		},
		{
			name:  "website exact after normalization",
			kind:  values.KindWebsite,
			value: "HTTP://service.nsw.gov.au/",
			validate: func(t *testing.T, r Result) {
				assert.True(t, r.Matched)
				assert.Equal(t, "nsw-web", r.RecordID)
			},
		},
		{
			name:  "website page contains record",
			kind:  values.KindWebsite,
			value: "https://www.service.nsw.gov.au/transaction/renew",
			validate: func(t *testing.T, r Result) {
				assert.True(t, r.Matched)
				assert.Equal(t, "nsw-web", r.RecordID)
			},
		},
		{
			name:  "government website heuristic",
			kind:  values.KindWebsite,
			value: "https://www.my.gov.au",
			validate: func(t *testing.T, r Result) {
				assert.True(t, r.Matched)
				assert.Equal(t, values.RiskSafe, r.RiskLevel)
				assert.Equal(t, "Government Website", r.OrganizationName)
			},
		},
		{
			name:  "scam website heuristic",
			kind:  values.KindWebsite,
			value: "http://mygov-au.com/login",
			validate: func(t *testing.T, r Result) {
				assert.Equal(t, values.RiskThreat, r.RiskLevel)
				assert.Equal(t, SourceHeuristic, r.Source)
			},
		},
		{
			name:  "lookalike government host is not government",
			kind:  values.KindWebsite,
			value: "https://ato.gov.au.refund-portal.example",
			validate: func(t *testing.T, r Result) {
				assert.Equal(t, values.RiskUnknown, r.RiskLevel)
			},
		},
		{
			name:  "organization exact",
			kind:  values.KindOrganization,
			value: "  lifeline   AUSTRALIA ",
			validate: func(t *testing.T, r Result) {
				assert.True(t, r.Matched)
				assert.Equal(t, "lifeline", r.RecordID)
			},
		},
		{
			name:  "organization has no fuzzy matching",
			kind:  values.KindOrganization,
			value: "Lifeline",
			validate: func(t *testing.T, r Result) {
				assert.False(t, r.Matched)
				assert.Equal(t, values.RiskUnknown, r.RiskLevel)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := e.Verify(tt.kind, tt.value, c)
			assert.Equal(t, tt.kind, r.Kind)
			assert.Equal(t, tt.value, r.Value)
			tt.validate(t, r)
		})
	}
}

func TestEngine_RecordRoundTrip(t *testing.T) {
	c := testCorpus(t)
	e := newTestEngine()

	for _, rec := range c.Records() {
		r := e.Verify(rec.Kind, rec.Value, c)
		require.True(t, r.Matched, "record %s", rec.ID)
		assert.Equal(t, rec.RiskLevel, r.RiskLevel, "record %s", rec.ID)
		assert.Equal(t, rec.OrganizationName, r.OrganizationName, "record %s", rec.ID)
	}
}

func TestEngine_InternationalEquivalence(t *testing.T) {
	c := buildCorpus(t, recordSpec{id: "m", kind: "phone", value: "0412 345 678", org: "Bank", risk: "safe", confidence: 1})
	e := newTestEngine()

	a := e.Verify(values.KindPhone, "+61412345678", c)
	b := e.Verify(values.KindPhone, "0412345678", c)
	assert.Equal(t, a.RiskLevel, b.RiskLevel)
	assert.Equal(t, a.RecordID, b.RecordID)
	assert.True(t, a.Matched)
}

func TestEngine_ExactMatchBeatsEarlierSuffixMatch(t *testing.T) {
	c := buildCorpus(t,
		recordSpec{id: "suffix", kind: "phone", value: "0299998888", org: "Suffix Org", risk: "threat"},
		recordSpec{id: "exact", kind: "phone", value: "99998888", org: "Exact Org", risk: "safe"},
	)
	r := newTestEngine().Verify(values.KindPhone, "9999 8888", c)
	assert.Equal(t, "exact", r.RecordID)
}

func TestEngine_DuplicateValuesFirstWins(t *testing.T) {
	c := buildCorpus(t,
		recordSpec{id: "first", kind: "phone", value: "1800 020 103", org: "First", risk: "safe"},
		recordSpec{id: "second", kind: "phone", value: "1800020103", org: "Second", risk: "threat"},
	)
	r := newTestEngine().Verify(values.KindPhone, "1800-020-103", c)
	assert.Equal(t, "first", r.RecordID)
}

func TestEngine_NilCorpus(t *testing.T) {
	r := newTestEngine().Verify(values.KindPhone, "1900 000 000", nil)
	assert.Equal(t, values.RiskSuspicious, r.RiskLevel)
	assert.Empty(t, r.CorpusVersion)
}

func TestEngine_SignatureSwap(t *testing.T) {
	holder := threat.NewHolder(nil)
	e := NewEngine(values.DefaultNormalizer, holder)
	c := buildCorpus(t)

	assert.Equal(t, values.RiskUnknown, e.Verify(values.KindPhone, "0055 123 456", c).RiskLevel)

	next := threat.Default()
	next.PremiumRatePrefixes = []string{"190", "0055"}
	_, err := holder.Swap(next)
	require.NoError(t, err)

	assert.Equal(t, values.RiskSuspicious, e.Verify(values.KindPhone, "0055 123 456", c).RiskLevel)
}
