package values

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/contact-guardian/internal/domain/errors"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		expected string
		wantErr  bool
	}{
		{
			name:     "already normalized",
			email:    "enquiries@service.nsw.gov.au",
			expected: "enquiries@service.nsw.gov.au",
		},
		{
			name:     "mixed case with whitespace",
			email:    "  Enquiries@Service.NSW.gov.au ",
			expected: "enquiries@service.nsw.gov.au",
		},
		{
			name:    "empty",
			email:   "   ",
			wantErr: true,
		},
		{
			name:    "missing at sign",
			email:   "enquiries.service.nsw.gov.au",
			wantErr: true,
		},
		{
			name:    "two at signs",
			email:   "a@b@example.com",
			wantErr: true,
		},
		{
			name:    "empty local part",
			email:   "@example.com",
			wantErr: true,
		},
		{
			name:    "empty domain",
			email:   "someone@",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeEmail(tt.email)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsType(err, errors.ErrorTypeNormalization))
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestEmailDomain(t *testing.T) {
	assert.Equal(t, "ato.gov.au", EmailDomain("info@ato.gov.au"))
	assert.Equal(t, "", EmailDomain("no-at-sign"))
}
