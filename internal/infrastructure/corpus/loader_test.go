package corpus

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/davidleathers/contact-guardian/internal/domain/errors"
	"github.com/davidleathers/contact-guardian/internal/domain/values"
)

const testHeader = "contact_id,contact_type,contact_value,organization_name,organization_type,source_agent,source_url,address,suburb,state,postcode,services,verified_date,confidence_score,notes,risk_level,priority_score,geographic_region,category"

func newTestLoader(t *testing.T) *Loader {
	t.Helper()
	return NewLoader(LoaderConfig{}, zaptest.NewLogger(t))
}

func TestLoader_Load(t *testing.T) {
	data := strings.Join([]string{
		testHeader,
		`ato_1,phone,13 28 61,Australian Taxation Office,government,gov_agent,https://ato.gov.au,"Level 1, 2 Constitution Ave",Canberra,ACT,2600,"Tax, super and GST enquiries",2025-08-30,0.95,Main line,safe,0.8,,Official Services`,
		`scam_1,phone,1900 123 456,Known Scam Number,scam,threat_agent,,,,,,,2025-08-29T10:00:00Z,1.4,Premium rate - SCAM,THREAT,1,National,Scam`,
		``,
		`bad_fields,phone,0412 345 678,Too Few`,
		`bad_value,email,not-an-email,Broken,unknown,,,,,,,,,,,,,,`,
		`,fax,Some Org Listing,Unknown Kind Org,,,,,,,,,,abc,,,,,`,
	}, "\n") + "\n"

	c, report, err := newTestLoader(t).Load(context.Background(), strings.NewReader(data), "test.csv")
	require.NoError(t, err)
	require.NotNil(t, c)

	assert.Equal(t, 3, report.Loaded)
	assert.Equal(t, 2, report.Skipped)
	require.Len(t, report.RowErrors, 2)
	assert.Equal(t, 5, report.RowErrors[0].Line)
	assert.Contains(t, report.RowErrors[0].Reason, "expected 19 fields")
	assert.Equal(t, 6, report.RowErrors[1].Line)
	assert.Equal(t, c.Version(), report.Version)

	ato, ok := c.Get("ato_1")
	require.True(t, ok)
	assert.Equal(t, values.KindPhone, ato.Kind)
	assert.Equal(t, "132861", ato.NormalizedValue)
	assert.Equal(t, values.RiskSafe, ato.RiskLevel)
	assert.Equal(t, values.OrgGovernment, ato.OrganizationType)
	assert.Equal(t, "Level 1, 2 Constitution Ave", ato.Address)
	assert.Equal(t, "Tax, super and GST enquiries", ato.Services)
	assert.Equal(t, "ACT", ato.Region, "falls back to state")
	assert.Equal(t, 0.95, ato.ConfidenceScore)
	assert.Equal(t, 0.8, ato.PriorityScore)
	assert.Equal(t, time.Date(2025, 8, 30, 0, 0, 0, 0, time.UTC), ato.VerifiedDate)

	scam, ok := c.Get("scam_1")
	require.True(t, ok)
	assert.Equal(t, values.RiskThreat, scam.RiskLevel)
	assert.Equal(t, values.OrgThreat, scam.OrganizationType)
	assert.Equal(t, 1.0, scam.ConfidenceScore, "clamped")
	assert.Equal(t, "National", scam.Region)

	general := c.OfKind(values.KindGeneral)
	require.Len(t, general, 1)
	assert.NotEmpty(t, general[0].ID)
	assert.Equal(t, "some org listing", general[0].NormalizedValue)
	assert.Equal(t, values.RiskUnknown, general[0].RiskLevel)
	assert.Equal(t, 0.0, general[0].ConfidenceScore)
}

func TestLoader_HeaderByName(t *testing.T) {
	data := "\ufeffcontact_type,contact_value,risk_level\r\nphone,1800 020 103,safe\r\n"

	c, report, err := newTestLoader(t).Load(context.Background(), strings.NewReader(data), "crlf.csv")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Loaded)
	_, ok := c.First(values.KindPhone, "1800020103")
	assert.True(t, ok)
}

func TestLoader_Cancelled(t *testing.T) {
	var b strings.Builder
	b.WriteString("contact_type,contact_value\n")
	for i := 0; i < 1000; i++ {
		b.WriteString("phone,0412 345 678\n")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := newTestLoader(t).Load(ctx, strings.NewReader(b.String()), "big.csv")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoader_RowErrorsBounded(t *testing.T) {
	var b strings.Builder
	b.WriteString("contact_type,contact_value\n")
	for i := 0; i < 50; i++ {
		b.WriteString("phone,no digits here\n")
	}

	l := NewLoader(LoaderConfig{MaxRowErrors: 5}, zaptest.NewLogger(t))
	c, report, err := l.Load(context.Background(), strings.NewReader(b.String()), "junk.csv")
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 50, report.Skipped)
	assert.Len(t, report.RowErrors, 5)
}

func TestLoader_ContentHash(t *testing.T) {
	data := "contact_type,contact_value\nphone,0412 345 678\n"
	l := newTestLoader(t)

	a, _, err := l.Load(context.Background(), strings.NewReader(data), "a")
	require.NoError(t, err)
	b, _, err := l.Load(context.Background(), strings.NewReader(data), "b")
	require.NoError(t, err)
	other, _, err := l.Load(context.Background(), strings.NewReader(data+"phone,0299998888\n"), "c")
	require.NoError(t, err)

	assert.Equal(t, a.ContentHash(), b.ContentHash())
	assert.NotEqual(t, a.ContentHash(), other.ContentHash())
}

func TestLoader_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.csv")
	require.NoError(t, os.WriteFile(path, sampleContacts, 0o600))

	c, report, err := newTestLoader(t).LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 5, c.Len())
	assert.Equal(t, path, report.Source)

	_, _, err = newTestLoader(t).LoadFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeUnavailable))
}

func TestLoader_Sample(t *testing.T) {
	c, report, err := newTestLoader(t).Sample(context.Background())
	require.NoError(t, err)
	assert.True(t, report.UsedSample)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, SampleSource, c.Source())
	assert.Equal(t, 5, c.Len())

	r, ok := c.First(values.KindPhone, "1900123456")
	require.True(t, ok)
	assert.Equal(t, values.RiskThreat, r.RiskLevel)

	r, ok = c.First(values.KindWebsite, "service.nsw.gov.au")
	require.True(t, ok)
	assert.Equal(t, "Service NSW", r.OrganizationName)
}
