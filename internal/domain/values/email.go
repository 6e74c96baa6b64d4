package values

import (
	"strings"

	"github.com/davidleathers/contact-guardian/internal/domain/errors"
)

// NormalizeEmail lowercases and trims an address. It fails unless the
// address has exactly one "@" with text on both sides.
func NormalizeEmail(raw string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return "", errors.NewNormalizationError(string(KindEmail), raw, "email address cannot be empty")
	}

	switch strings.Count(normalized, "@") {
	case 0:
		return "", errors.NewNormalizationError(string(KindEmail), raw, "missing @")
	case 1:
	default:
		return "", errors.NewNormalizationError(string(KindEmail), raw, "more than one @")
	}

	local, domain, _ := strings.Cut(normalized, "@")
	if local == "" || domain == "" {
		return "", errors.NewNormalizationError(string(KindEmail), raw, "empty local part or domain")
	}
	return normalized, nil
}

// EmailDomain returns the part of a normalized address after the "@"
func EmailDomain(normalized string) string {
	_, domain, found := strings.Cut(normalized, "@")
	if !found {
		return ""
	}
	return domain
}
