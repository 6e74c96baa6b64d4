package values

import (
	"strings"
)

// MinSuffixMatchLength is the shortest digit run that may match another
// number by suffix. Local-format input ("9876 5432") is accepted against a
// stored national number as long as it carries at least this many digits.
const MinSuffixMatchLength = 8

// PhoneRegion describes how international forms of a home-country number
// map onto the domestic dialling form.
type PhoneRegion struct {
	// CountryCode without the leading "+", e.g. "61". Must not start with 0.
	CountryCode string
	// TrunkPrefix replaces the country code, e.g. "0".
	TrunkPrefix string
}

// AustraliaRegion maps +61 and 0061 onto the leading-zero domestic form
var AustraliaRegion = PhoneRegion{CountryCode: "61", TrunkPrefix: "0"}

// Normalize strips everything except digits and a leading "+", then maps a
// home-country international prefix ("+61", "0061", or a bare "61" on an
// over-long number) onto the trunk prefix. Numbers for other countries keep
// their prefix. The result is "" when the input holds no digits.
//
// Normalize is idempotent: the mapped form always starts with the trunk
// prefix followed by a non-zero digit, which matches none of the prefix
// rules again.
func (r PhoneRegion) Normalize(raw string) string {
	cleaned := cleanPhoneNumber(raw)
	if cleaned == "" {
		return ""
	}
	if r.CountryCode == "" {
		return cleaned
	}

	switch {
	case strings.HasPrefix(cleaned, "+"+r.CountryCode):
		return r.domestic(cleaned[1+len(r.CountryCode):])
	case strings.HasPrefix(cleaned, "00"+r.CountryCode):
		return r.domestic(cleaned[2+len(r.CountryCode):])
	case strings.HasPrefix(cleaned, r.CountryCode) && len(cleaned) > 10:
		return r.domestic(cleaned[len(r.CountryCode):])
	}
	return cleaned
}

// domestic prefixes the national significant number with the trunk prefix,
// dropping a trunk zero the caller already wrote after the country code
// ("+61 (0)2 ...").
func (r PhoneRegion) domestic(national string) string {
	return r.TrunkPrefix + strings.TrimLeft(national, "0")
}

// NormalizePhone normalizes a phone number for the Australian region
func NormalizePhone(raw string) string {
	return AustraliaRegion.Normalize(raw)
}

// PhoneDigits drops the leading "+" of a normalized number
func PhoneDigits(normalized string) string {
	return strings.TrimPrefix(normalized, "+")
}

// PhonesEquivalent compares two normalized numbers. They are equivalent when
// their digit sequences are equal, or when one is a suffix of the other and
// the shorter has at least MinSuffixMatchLength digits.
func PhonesEquivalent(a, b string) bool {
	a, b = PhoneDigits(a), PhoneDigits(b)
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}

	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) < MinSuffixMatchLength {
		return false
	}
	return strings.HasSuffix(longer, shorter)
}

// HasAnyPrefix reports whether a normalized number starts with any prefix.
// Numbers still carrying a "+" are foreign and never match a domestic prefix.
func HasAnyPrefix(normalized string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(normalized, p) {
			return true
		}
	}
	return false
}

// FormatAustralian renders a normalized number in the spacing people expect
// to read: "1800 020 103", "02 9999 9999", "13 28 61". Anything it does not
// recognize is returned unchanged.
func FormatAustralian(normalized string) string {
	digits := PhoneDigits(normalized)
	if digits != normalized {
		return normalized
	}

	switch {
	case len(digits) == 10 && (strings.HasPrefix(digits, "1800") ||
		strings.HasPrefix(digits, "1300") || strings.HasPrefix(digits, "1900")):
		return digits[:4] + " " + digits[4:7] + " " + digits[7:]
	case len(digits) == 10 && strings.HasPrefix(digits, "04"):
		return digits[:4] + " " + digits[4:7] + " " + digits[7:]
	case len(digits) == 10 && strings.HasPrefix(digits, "0"):
		return digits[:2] + " " + digits[2:6] + " " + digits[6:]
	case len(digits) == 6 && strings.HasPrefix(digits, "13"):
		return digits[:2] + " " + digits[2:4] + " " + digits[4:]
	}
	return normalized
}

// cleanPhoneNumber keeps digits, and a "+" only when it leads the result
func cleanPhoneNumber(number string) string {
	var b strings.Builder
	b.Grow(len(number))
	for _, char := range number {
		switch {
		case char >= '0' && char <= '9':
			b.WriteRune(char)
		case char == '+' && b.Len() == 0:
			b.WriteRune(char)
		}
	}

	cleaned := b.String()
	if cleaned == "+" {
		return ""
	}
	return cleaned
}
