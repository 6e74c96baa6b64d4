package analyzer

import (
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/davidleathers/contact-guardian/internal/domain/contact"
	"github.com/davidleathers/contact-guardian/internal/domain/threat"
	"github.com/davidleathers/contact-guardian/internal/domain/values"
	"github.com/davidleathers/contact-guardian/internal/service/verification"
)

// NoThreatsDetails is reported when no rule fired
const NoThreatsDetails = "No specific threats detected. Always verify sender independently."

// phonePatterns are tried in order: domestic mobile, domestic landline,
// toll free, 13xx short codes, then +61 international.
var phonePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{4}\s?\d{3}\s?\d{3}\b`),
	regexp.MustCompile(`\b\d{2}\s?\d{4}\s?\d{4}\b`),
	regexp.MustCompile(`\b1[38]00\s?\d{3}\s?\d{3}\b`),
	regexp.MustCompile(`\b13\s?\d{2}\s?\d{2}\b`),
	regexp.MustCompile(`\+61\s?\d\s?\d{4}\s?\d{4}`),
}

const urlTrailing = `.,;:!?)"'`

// Result is the outcome of analyzing one message. The extraction lists are
// populated whatever the final risk level.
type Result struct {
	PhoneNumbers       []string              `json:"phone_numbers"`
	URLs               []string              `json:"urls"`
	ThreatIndicators   []string              `json:"threat_indicators"`
	RiskLevel          values.RiskLevel      `json:"risk_level"`
	Details            string                `json:"details"`
	PhoneVerifications []verification.Result `json:"phone_verifications,omitempty"`
}

// IsThreat reports whether the message should be treated as dangerous
func (r Result) IsThreat() bool {
	return r.RiskLevel.IsThreat()
}

// compiled holds the regular expressions derived from one signature set
type compiled struct {
	sigs *threat.SignatureSet
	urls *regexp.Regexp
}

// Analyzer classifies free text. It is safe for concurrent use.
type Analyzer struct {
	engine *verification.Engine
	cache  atomic.Pointer[compiled]
}

// New creates an analyzer that verifies extracted numbers with engine
func New(engine *verification.Engine) *Analyzer {
	return &Analyzer{engine: engine}
}

// Analyze classifies text against a corpus snapshot and a signature set.
// A nil set uses the built-in signatures.
func (a *Analyzer) Analyze(text string, c *contact.Corpus, sigs *threat.SignatureSet) Result {
	if sigs == nil {
		sigs = a.engine.Signatures()
	}
	comp := a.compile(sigs)

	res := Result{
		PhoneNumbers:     a.extractPhones(text),
		URLs:             extractURLs(text, comp.urls),
		ThreatIndicators: []string{},
		RiskLevel:        values.RiskUnknown,
	}
	var notes []string

	// Phones: the first threat wins and stops further checks
	for _, phone := range res.PhoneNumbers {
		v := a.engine.VerifyWith(values.KindPhone, phone, c, sigs)
		res.PhoneVerifications = append(res.PhoneVerifications, v)

		switch {
		case v.RiskLevel == values.RiskThreat:
			res.RiskLevel = values.RiskThreat
			res.ThreatIndicators = append(res.ThreatIndicators, "Known scam number: "+phone)
		case v.RiskLevel == values.RiskSuspicious:
			res.RiskLevel = escalate(res.RiskLevel)
			res.ThreatIndicators = append(res.ThreatIndicators, "Suspicious number: "+phone)
		case v.IsSafe():
			if res.RiskLevel == values.RiskUnknown || res.RiskLevel == values.RiskSafe {
				res.RiskLevel = values.RiskSafe
			}
			notes = append(notes, fmt.Sprintf("Verified number: %s (%s)", phone, v.OrganizationName))
		}
		if res.RiskLevel == values.RiskThreat {
			break
		}
	}

	for _, u := range res.URLs {
		lower := strings.ToLower(u)
		if _, ok := values.ContainsAny(lower, sigs.PhishingIndicators); ok {
			res.RiskLevel = values.RiskThreat
			res.ThreatIndicators = append(res.ThreatIndicators, "Suspicious URL: "+u)
			continue
		}
		if values.HasDomainSuffix(values.URLHost(values.NormalizeURL(u)), sigs.LegitimateDomainSuffixes) {
			if res.RiskLevel == values.RiskUnknown || res.RiskLevel == values.RiskSafe {
				res.RiskLevel = values.RiskSafe
			}
			notes = append(notes, "Legitimate domain: "+u)
		}
	}

	lowerText := strings.ToLower(text)
	for _, kw := range sigs.ScamKeywords {
		if kw == "" || !strings.Contains(lowerText, kw) {
			continue
		}
		res.ThreatIndicators = append(res.ThreatIndicators, fmt.Sprintf("Scam keyword: '%s'", kw))
		res.RiskLevel = escalate(res.RiskLevel)
	}

	if len(res.PhoneNumbers) > 0 {
		for _, rule := range sigs.ImpersonationRules {
			if _, ok := values.ContainsAny(lowerText, rule.AgencyTerms); !ok {
				continue
			}
			if verifiesTo(res.PhoneVerifications, rule.OrganizationFragment) {
				continue
			}
			res.RiskLevel = values.RiskThreat
			res.ThreatIndicators = append(res.ThreatIndicators, rule.Reason)
		}
	}

	lines := append(append([]string{}, res.ThreatIndicators...), notes...)
	if len(lines) == 0 {
		res.RiskLevel = values.RiskUnknown
		res.Details = NoThreatsDetails
	} else {
		res.Details = strings.Join(lines, "\n")
	}
	return res
}

// escalate raises any non-threat level to suspicious
func escalate(level values.RiskLevel) values.RiskLevel {
	if level == values.RiskThreat {
		return level
	}
	return values.RiskSuspicious
}

// verifiesTo reports whether any number verified safe to an organization
// whose name contains fragment
func verifiesTo(results []verification.Result, fragment string) bool {
	fragment = strings.ToLower(fragment)
	for _, v := range results {
		if v.IsSafe() && strings.Contains(strings.ToLower(v.OrganizationName), fragment) {
			return true
		}
	}
	return false
}

type span struct{ start, end int }

// extractPhones returns numbers in pattern order, then position. Matches
// overlapping an accepted one or duplicating its normalized form are dropped.
func (a *Analyzer) extractPhones(text string) []string {
	var (
		accepted []span
		seen     = make(map[string]struct{})
		out      = []string{}
	)
	norm := a.engine.Normalizer()

	for _, re := range phonePatterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			s := span{loc[0], loc[1]}
			if overlaps(accepted, s) {
				continue
			}
			match := text[s.start:s.end]
			key, err := norm.Normalize(values.KindPhone, match)
			if err != nil {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			accepted = append(accepted, s)
			out = append(out, match)
		}
	}
	return out
}

func overlaps(spans []span, s span) bool {
	for _, o := range spans {
		if s.start < o.end && o.start < s.end {
			return true
		}
	}
	return false
}

func extractURLs(text string, re *regexp.Regexp) []string {
	out := []string{}
	for _, m := range re.FindAllString(text, -1) {
		m = strings.TrimRight(m, urlTrailing)
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}

// compile returns the expressions for sigs, rebuilding them when the set
// has been swapped
func (a *Analyzer) compile(sigs *threat.SignatureSet) *compiled {
	if c := a.cache.Load(); c != nil && c.sigs == sigs {
		return c
	}

	c := &compiled{sigs: sigs, urls: urlPattern(sigs.ShortenerDomains)}
	a.cache.Store(c)
	return c
}

func urlPattern(shorteners []string) *regexp.Regexp {
	alts := []string{`https?://\S+`, `www\.\S+`}
	if len(shorteners) > 0 {
		quoted := make([]string, 0, len(shorteners))
		for _, s := range shorteners {
			if s != "" {
				quoted = append(quoted, regexp.QuoteMeta(s))
			}
		}
		if len(quoted) > 0 {
			alts = append(alts, `\b(?:`+strings.Join(quoted, "|")+`)/\S+`)
		}
	}
	return regexp.MustCompile(`(?i)(?:` + strings.Join(alts, "|") + `)`)
}
