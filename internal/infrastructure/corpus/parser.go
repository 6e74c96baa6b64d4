package corpus

import (
	"strings"
)

// Column names of the contact corpus
const (
	ColContactID        = "contact_id"
	ColContactType      = "contact_type"
	ColContactValue     = "contact_value"
	ColOrganizationName = "organization_name"
	ColOrganizationType = "organization_type"
	ColSourceAgent      = "source_agent"
	ColSourceURL        = "source_url"
	ColAddress          = "address"
	ColSuburb           = "suburb"
	ColState            = "state"
	ColPostcode         = "postcode"
	ColServices         = "services"
	ColVerifiedDate     = "verified_date"
	ColConfidenceScore  = "confidence_score"
	ColNotes            = "notes"
	ColRiskLevel        = "risk_level"
	ColPriorityScore    = "priority_score"
	ColGeographicRegion = "geographic_region"
	ColCategory         = "category"
)

// Columns lists every known column in canonical order
var Columns = []string{
	ColContactID, ColContactType, ColContactValue, ColOrganizationName,
	ColOrganizationType, ColSourceAgent, ColSourceURL, ColAddress, ColSuburb,
	ColState, ColPostcode, ColServices, ColVerifiedDate, ColConfidenceScore,
	ColNotes, ColRiskLevel, ColPriorityScore, ColGeographicRegion, ColCategory,
}

var requiredColumns = []string{ColContactType, ColContactValue}

// splitLine splits one line on delim. A double quote toggles quoted mode;
// delimiters inside quotes are literal and quote characters are dropped.
// Fields are trimmed of surrounding whitespace.
func splitLine(line string, delim rune) []string {
	var (
		fields   []string
		field    strings.Builder
		inQuotes bool
	)
	for _, ch := range line {
		switch {
		case ch == '"':
			inQuotes = !inQuotes
		case ch == delim && !inQuotes:
			fields = append(fields, strings.TrimSpace(field.String()))
			field.Reset()
		default:
			field.WriteRune(ch)
		}
	}
	return append(fields, strings.TrimSpace(field.String()))
}

// header maps column names to field positions
type header struct {
	index  map[string]int
	fields int
}

func parseHeader(line string, delim rune) header {
	names := splitLine(line, delim)
	h := header{index: make(map[string]int, len(names)), fields: len(names)}
	for i, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, dup := h.index[name]; !dup {
			h.index[name] = i
		}
	}
	return h
}

// missing returns the required columns the header does not name
func (h header) missing() []string {
	var out []string
	for _, col := range requiredColumns {
		if _, ok := h.index[col]; !ok {
			out = append(out, col)
		}
	}
	return out
}

// get returns the named field of a row, or "" when the column is absent
func (h header) get(row []string, column string) string {
	i, ok := h.index[column]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}
