package relevance

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/davidleathers/contact-guardian/internal/domain/contact"
	"github.com/davidleathers/contact-guardian/internal/domain/values"
)

const (
	// MaxKeywords caps the tags taken from one text
	MaxKeywords = 8
	// MaxServiceNameLength truncates long service descriptions
	MaxServiceNameLength = 100

	defaultAgency   = "Unknown Agency"
	defaultCategory = "Official Services"
	defaultRegion   = "Federal"
)

var (
	keywordPattern = regexp.MustCompile(`\b[a-z]{3,}\b`)

	stopWords = map[string]struct{}{
		"the": {}, "and": {}, "for": {}, "are": {}, "was": {}, "were": {},
		"hours": {}, "operation": {}, "business": {}, "monday": {}, "friday": {},
		"government": {}, "federal": {}, "information": {}, "enquiries": {},
		"general": {}, "service": {}, "services": {},
	}
)

// searchTerms adds common query words for well-known organizations
var searchTerms = []struct {
	triggers []string
	terms    []string
}{
	{triggers: []string{"tax", "ato"}, terms: []string{"ato", "tax", "taxation"}},
	{triggers: []string{"hospital", "health"}, terms: []string{"hospital", "health", "medical"}},
	{triggers: []string{"medicare"}, terms: []string{"medicare", "health"}},
	{triggers: []string{"centrelink"}, terms: []string{"centrelink", "welfare", "benefits"}},
}

// ServiceEntry is a ranking document built from one safe phone record
type ServiceEntry struct {
	ID              string   `json:"id"`
	ServiceName     string   `json:"service_name"`
	Agency          string   `json:"agency"`
	PhoneNumber     string   `json:"phone_number"`
	Category        string   `json:"category"`
	Region          string   `json:"region"`
	Keywords        []string `json:"keywords"`
	ConfidenceScore float64  `json:"confidence_score"`
}

// BuildServiceEntries derives entries from the corpus's safe phone records,
// keeping corpus order
func BuildServiceEntries(c *contact.Corpus) []ServiceEntry {
	if c == nil {
		return nil
	}

	var entries []ServiceEntry
	for _, r := range c.OfKind(values.KindPhone) {
		if !r.IsSafe() {
			continue
		}
		entries = append(entries, NewServiceEntry(r))
	}
	return entries
}

// NewServiceEntry builds the entry for one record
func NewServiceEntry(r contact.Record) ServiceEntry {
	agency := strings.TrimSpace(r.OrganizationName)
	if agency == "" {
		agency = defaultAgency
	}

	keywords := ExtractKeywords(r.Services)
	keywords = append(keywords, ExtractKeywords(agency)...)
	keywords = append(keywords, organizationTerms(agency, r.Services)...)

	return ServiceEntry{
		ID:              r.ID,
		ServiceName:     truncate(r.Services, MaxServiceNameLength),
		Agency:          agency,
		PhoneNumber:     values.FormatAustralian(r.NormalizedValue),
		Category:        orDefault(r.Category, defaultCategory),
		Region:          orDefault(r.Region, defaultRegion),
		Keywords:        dedupe(keywords),
		ConfidenceScore: r.ConfidenceScore,
	}
}

// ExtractKeywords returns up to MaxKeywords distinct words of three or
// more letters, skipping stop words
func ExtractKeywords(text string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, w := range keywordPattern.FindAllString(strings.ToLower(text), -1) {
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
		if len(out) == MaxKeywords {
			break
		}
	}
	return out
}

func organizationTerms(agency, services string) []string {
	org := strings.ToLower(agency)
	desc := strings.ToLower(services)

	var out []string
	for _, st := range searchTerms {
		for _, trigger := range st.triggers {
			if strings.Contains(org, trigger) || strings.Contains(desc, trigger) {
				out = append(out, st.terms...)
				break
			}
		}
	}
	return out
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}
