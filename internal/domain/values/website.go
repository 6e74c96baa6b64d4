package values

import (
	"strings"
)

var urlPrefixes = []string{"http://", "https://", "www."}

// NormalizeURL lowercases a URL, strips scheme and "www." prefixes, and
// drops trailing slashes.
func NormalizeURL(raw string) string {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	for {
		stripped := normalized
		for _, prefix := range urlPrefixes {
			stripped = strings.TrimPrefix(stripped, prefix)
		}
		if stripped == normalized {
			break
		}
		normalized = stripped
	}
	return strings.TrimRight(normalized, "/")
}

// URLHost extracts the host of a normalized URL. Credentials before an "@"
// are dropped, so "ato.gov.au@evil.example" resolves to "evil.example".
func URLHost(normalized string) string {
	host := normalized
	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	if i := strings.LastIndex(host, "@"); i >= 0 {
		host = host[i+1:]
	}
	if i := strings.Index(host, ":"); i >= 0 {
		host = host[:i]
	}
	return strings.TrimSuffix(host, ".")
}

// HasDomainSuffix reports whether host equals a suffix or ends with it on a
// label boundary. Suffixes may be written with or without a leading dot.
func HasDomainSuffix(host string, suffixes []string) bool {
	if host == "" {
		return false
	}
	for _, s := range suffixes {
		s = strings.TrimPrefix(strings.ToLower(s), ".")
		if s == "" {
			continue
		}
		if host == s || strings.HasSuffix(host, "."+s) {
			return true
		}
	}
	return false
}

// ContainsAny reports the first fragment contained in s, if any
func ContainsAny(s string, fragments []string) (string, bool) {
	for _, f := range fragments {
		if f != "" && strings.Contains(s, strings.ToLower(f)) {
			return f, true
		}
	}
	return "", false
}
