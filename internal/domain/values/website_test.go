package values

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://www.service.nsw.gov.au", "service.nsw.gov.au"},
		{"HTTP://WWW.ATO.GOV.AU/", "ato.gov.au"},
		{"www.my.gov.au/login//", "my.gov.au/login"},
		{"https://www.www.example.com", "example.com"},
		{"  bit.ly/abc  ", "bit.ly/abc"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeURL(tt.in), "input %q", tt.in)
		assert.Equal(t, tt.want, NormalizeURL(NormalizeURL(tt.in)), "idempotent for %q", tt.in)
	}
}

func TestURLHost(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"ato.gov.au/individuals?x=1", "ato.gov.au"},
		{"ato.gov.au@evil.example/path", "evil.example"},
		{"localhost:8080/health", "localhost"},
		{"example.com.", "example.com"},
		{"example.com#top", "example.com"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, URLHost(tt.in), "input %q", tt.in)
	}
}

func TestHasDomainSuffix(t *testing.T) {
	suffixes := []string{".gov.au", "commbank.com.au"}

	tests := []struct {
		host string
		want bool
	}{
		{"ato.gov.au", true},
		{"gov.au", true},
		{"commbank.com.au", true},
		{"netbank.commbank.com.au", true},
		{"fakecommbank.com.au", false},
		{"ato.gov.au.evil.example", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HasDomainSuffix(tt.host, suffixes), "host %q", tt.host)
	}
}

func TestContainsAny(t *testing.T) {
	frag, ok := ContainsAny("ato-gov.com/refund", []string{"mygov-au", "ATO-GOV"})
	assert.True(t, ok)
	assert.Equal(t, "ATO-GOV", frag)

	_, ok = ContainsAny("ato.gov.au", []string{"", "ato-gov"})
	assert.False(t, ok)
}
