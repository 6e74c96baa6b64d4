package values

import (
	"strings"

	"github.com/davidleathers/contact-guardian/internal/domain/errors"
)

// Normalizer canonicalizes identifiers of every kind for one phone region
type Normalizer struct {
	Region PhoneRegion
}

// DefaultNormalizer uses the Australian phone region
var DefaultNormalizer = Normalizer{Region: AustraliaRegion}

// Normalize returns the comparable form of raw for its kind. A value that
// cannot be canonicalized yields a normalization AppError.
func (n Normalizer) Normalize(kind ContactKind, raw string) (string, error) {
	switch kind {
	case KindPhone:
		normalized := n.Region.Normalize(raw)
		if normalized == "" {
			return "", errors.NewNormalizationError(string(kind), raw, "no digits")
		}
		return normalized, nil
	case KindEmail:
		return NormalizeEmail(raw)
	case KindWebsite:
		normalized := NormalizeURL(raw)
		if URLHost(normalized) == "" {
			return "", errors.NewNormalizationError(string(kind), raw, "no host")
		}
		return normalized, nil
	case KindOrganization, KindGeneral:
		normalized := NormalizeText(raw)
		if normalized == "" {
			return "", errors.NewNormalizationError(string(kind), raw, "empty value")
		}
		return normalized, nil
	default:
		return "", errors.NewNormalizationError(string(kind), raw, "unsupported contact kind")
	}
}

// Normalize canonicalizes with the default region
func Normalize(kind ContactKind, raw string) (string, error) {
	return DefaultNormalizer.Normalize(kind, raw)
}

// NormalizeText lowercases and collapses whitespace
func NormalizeText(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(raw)), " ")
}
