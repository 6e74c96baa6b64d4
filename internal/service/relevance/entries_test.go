package relevance

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/contact-guardian/internal/domain/contact"
	"github.com/davidleathers/contact-guardian/internal/domain/values"
)

func record(t *testing.T, id string, kind values.ContactKind, value, org, services string, risk values.RiskLevel) contact.Record {
	t.Helper()
	r, err := contact.NewRecord(values.DefaultNormalizer, id, kind, value)
	require.NoError(t, err)
	r.OrganizationName = org
	r.Services = services
	r.RiskLevel = risk
	r.SetConfidence(0.9)
	return r
}

func testCorpus(t *testing.T) *contact.Corpus {
	t.Helper()
	return contact.NewCorpus([]contact.Record{
		record(t, "ato", values.KindPhone, "13 28 61", "Australian Taxation Office", "Individual tax enquiries", values.RiskSafe),
		record(t, "scam", values.KindPhone, "1900 123 456", "Known Scam Number", "", values.RiskThreat),
		record(t, "mail", values.KindEmail, "enquiries@service.nsw.gov.au", "Service NSW", "", values.RiskSafe),
		record(t, "travel", values.KindPhone, "1300 555 135", "Smartraveller", "Consular emergency travel advice", values.RiskSafe),
	}, "test", "", time.Unix(1, 0))
}

func TestExtractKeywords(t *testing.T) {
	assert.Equal(t,
		[]string{"tax", "office", "open", "returns"},
		ExtractKeywords("The tax office is open Monday to Friday for tax returns"))

	assert.Len(t, ExtractKeywords("alpha bravo charlie delta echo foxtrot golf hotel india"), MaxKeywords)
	assert.Empty(t, ExtractKeywords(""))
}

func TestBuildServiceEntries(t *testing.T) {
	entries := BuildServiceEntries(testCorpus(t))
	require.Len(t, entries, 2)

	ato := entries[0]
	assert.Equal(t, "ato", ato.ID)
	assert.Equal(t, "Individual tax enquiries", ato.ServiceName)
	assert.Equal(t, "Australian Taxation Office", ato.Agency)
	assert.Equal(t, "13 28 61", ato.PhoneNumber)
	assert.Equal(t, "Official Services", ato.Category)
	assert.Equal(t, "Federal", ato.Region)
	assert.Equal(t,
		[]string{"individual", "tax", "australian", "taxation", "office", "ato"},
		ato.Keywords)

	assert.Equal(t, "travel", entries[1].ID)
	assert.Nil(t, BuildServiceEntries(nil))
}

func TestNewServiceEntry_Defaults(t *testing.T) {
	long := strings.Repeat("x", 120)
	e := NewServiceEntry(contact.Record{ID: "1", Services: long})

	assert.Equal(t, "Unknown Agency", e.Agency)
	assert.Equal(t, strings.Repeat("x", MaxServiceNameLength)+"...", e.ServiceName)
}

func TestBuildContext(t *testing.T) {
	entries := BuildServiceEntries(testCorpus(t))
	ctx := BuildContext("call ato", entries[:1])

	assert.Contains(t, ctx, `User Query: "call ato"`)
	assert.Contains(t, ctx, "1. Individual tax enquiries")
	assert.Contains(t, ctx, "Phone: 13 28 61")
	assert.Contains(t, BuildContext("nothing", nil), "(none found)")
}
