package analyzer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/davidleathers/contact-guardian/internal/domain/contact"
	"github.com/davidleathers/contact-guardian/internal/domain/errors"
	"github.com/davidleathers/contact-guardian/internal/domain/threat"
	"github.com/davidleathers/contact-guardian/internal/domain/values"
	"github.com/davidleathers/contact-guardian/internal/service/verification"
)

func testCorpus(t *testing.T) *contact.Corpus {
	t.Helper()
	add := func(id, value, org string, risk values.RiskLevel) contact.Record {
		r, err := contact.NewRecord(values.DefaultNormalizer, id, values.KindPhone, value)
		require.NoError(t, err)
		r.OrganizationName = org
		r.RiskLevel = risk
		r.SetConfidence(0.95)
		return r
	}
	records := []contact.Record{
		add("ato", "13 28 61", "Australian Taxation Office", values.RiskSafe),
		add("sa", "02 6219 5555", "Services Australia", values.RiskSafe),
		add("scam", "1900 123 456", "Known Scam Number", values.RiskThreat),
	}
	return contact.NewCorpus(records, "test", "", time.Unix(1, 0))
}

func newTestAnalyzer() *Analyzer {
	return New(verification.NewEngine(values.DefaultNormalizer, threat.NewHolder(nil)))
}

func TestAnalyzer_Analyze(t *testing.T) {
	c := testCorpus(t)
	a := newTestAnalyzer()

	tests := []struct {
		name       string
		text       string
		risk       values.RiskLevel
		phones     []string
		urls       []string
		indicators []string
	}{
		{
			name:   "known scam number with keyword",
			text:   "Your tax refund is ready, call 1900 123 456 now",
			risk:   values.RiskThreat,
			phones: []string{"1900 123 456"},
			urls:   []string{},
			indicators: []string{
				"Known scam number: 1900 123 456",
				"Scam keyword: 'tax refund'",
			},
		},
		{
			name:       "quiet message",
			text:       "See you at lunch tomorrow",
			risk:       values.RiskUnknown,
			phones:     []string{},
			urls:       []string{},
			indicators: []string{},
		},
		{
			name:       "agency named with unverified number",
			text:       "This is the ATO, please call 0412 345 678 today",
			risk:       values.RiskThreat,
			phones:     []string{"0412 345 678"},
			urls:       []string{},
			indicators: []string{"ATO impersonation - unverified number"},
		},
		{
			name:       "agency named with its verified number",
			text:       "The ATO can be reached on 13 28 61",
			risk:       values.RiskSafe,
			phones:     []string{"13 28 61"},
			urls:       []string{},
			indicators: []string{},
		},
		{
			name:       "agency term inside a longer token",
			text:       "Message from ATOffice: call 0412 345 678",
			risk:       values.RiskThreat,
			phones:     []string{"0412 345 678"},
			urls:       []string{},
			indicators: []string{"ATO impersonation - unverified number"},
		},
		{
			name:       "shortened link",
			text:       "Check https://bit.ly/abc123.",
			risk:       values.RiskThreat,
			phones:     []string{},
			urls:       []string{"https://bit.ly/abc123"},
			indicators: []string{"Suspicious URL: https://bit.ly/abc123"},
		},
		{
			name:       "legitimate domain",
			text:       "Visit www.ato.gov.au for details",
			risk:       values.RiskSafe,
			phones:     []string{},
			urls:       []string{"www.ato.gov.au"},
			indicators: []string{},
		},
		{
			name:       "keyword escalates a safe number",
			text:       "Urgent action needed, call 13 28 61",
			risk:       values.RiskSuspicious,
			phones:     []string{"13 28 61"},
			urls:       []string{},
			indicators: []string{"Scam keyword: 'urgent action'"},
		},
		{
			name:       "phishing link beats a safe number",
			text:       "Call 13 28 61 or visit http://at0.gov.au/login",
			risk:       values.RiskThreat,
			phones:     []string{"13 28 61"},
			urls:       []string{"http://at0.gov.au/login"},
			indicators: []string{"Suspicious URL: http://at0.gov.au/login"},
		},
		{
			name:       "premium rate prefix",
			text:       "Call 1902 555 555",
			risk:       values.RiskSuspicious,
			phones:     []string{"1902 555 555"},
			urls:       []string{},
			indicators: []string{"Suspicious number: 1902 555 555"},
		},
		{
			name:       "international duplicate dropped",
			text:       "Call 0412 345 678 or +61 4 1234 5678",
			risk:       values.RiskUnknown,
			phones:     []string{"0412 345 678"},
			urls:       []string{},
			indicators: []string{},
		},
		{
			name:       "trailing punctuation trimmed",
			text:       "Go to (www.example.com/path).",
			risk:       values.RiskUnknown,
			phones:     []string{},
			urls:       []string{"www.example.com/path"},
			indicators: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := a.Analyze(tt.text, c, nil)
			assert.Equal(t, tt.risk, res.RiskLevel)
			assert.Equal(t, tt.phones, res.PhoneNumbers)
			assert.Equal(t, tt.urls, res.URLs)
			assert.Equal(t, tt.indicators, res.ThreatIndicators)
			assert.NotEmpty(t, res.Details)
		})
	}
}

func TestAnalyzer_QuietMessageDetails(t *testing.T) {
	res := newTestAnalyzer().Analyze("nothing to see here", testCorpus(t), nil)
	assert.Equal(t, NoThreatsDetails, res.Details)
	assert.False(t, res.IsThreat())
}

func TestAnalyzer_FirstThreatStopsPhoneChecks(t *testing.T) {
	res := newTestAnalyzer().Analyze("Call 1900 123 456 or 13 28 61", testCorpus(t), nil)

	assert.Equal(t, values.RiskThreat, res.RiskLevel)
	assert.Equal(t, []string{"1900 123 456", "13 28 61"}, res.PhoneNumbers)
	require.Len(t, res.PhoneVerifications, 1)
	assert.Equal(t, "scam", res.PhoneVerifications[0].RecordID)
}

func TestAnalyzer_SafeDetailsNameOrganization(t *testing.T) {
	res := newTestAnalyzer().Analyze("Ring 02 6219 5555", testCorpus(t), nil)
	assert.Equal(t, values.RiskSafe, res.RiskLevel)
	assert.Contains(t, res.Details, "Services Australia")
}

func TestAnalyzer_SignatureSetSwap(t *testing.T) {
	c := testCorpus(t)
	a := newTestAnalyzer()
	custom := &threat.SignatureSet{
		ShortenerDomains:   []string{"t.co"},
		PhishingIndicators: []string{"t.co"},
	}

	res := a.Analyze("see t.co/xyz", c, custom)
	assert.Equal(t, []string{"t.co/xyz"}, res.URLs)
	assert.Equal(t, values.RiskThreat, res.RiskLevel)

	res = a.Analyze("see t.co/xyz", c, threat.Default())
	assert.Empty(t, res.URLs)
	assert.Equal(t, values.RiskUnknown, res.RiskLevel)
}

func TestAnalyzer_NilCorpus(t *testing.T) {
	res := newTestAnalyzer().Analyze("This is the ATO, call 0412 345 678", nil, nil)
	assert.Equal(t, values.RiskThreat, res.RiskLevel)
}

type staticSnapshots struct{ c *contact.Corpus }

func (s staticSnapshots) Current() *contact.Corpus { return s.c }

type countingObserver struct{ calls atomic.Int64 }

func (o *countingObserver) ObserveAnalysis(risk string, indicators int, d time.Duration) {
	o.calls.Add(1)
}

func TestNewService_Validation(t *testing.T) {
	logger := zaptest.NewLogger(t)
	a := newTestAnalyzer()

	_, err := NewService(nil, staticSnapshots{}, nil, logger)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	_, err = NewService(a, nil, nil, logger)
	assert.Error(t, err)

	_, err = NewService(a, staticSnapshots{}, nil, nil)
	assert.Error(t, err)
}

func TestService_Analyze(t *testing.T) {
	logger := zaptest.NewLogger(t)
	obs := &countingObserver{}

	svc, err := NewService(newTestAnalyzer(), staticSnapshots{c: testCorpus(t)}, obs, logger)
	require.NoError(t, err)

	res, err := svc.Analyze(context.Background(), "Your tax refund is ready, call 1900 123 456 now")
	require.NoError(t, err)
	assert.Equal(t, values.RiskThreat, res.RiskLevel)
	assert.Equal(t, int64(1), obs.calls.Load())
}

func TestService_Analyze_NoSnapshot(t *testing.T) {
	svc, err := NewService(newTestAnalyzer(), staticSnapshots{}, nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = svc.Analyze(context.Background(), "hello")
	assert.True(t, errors.IsType(err, errors.ErrorTypeUnavailable))
}
