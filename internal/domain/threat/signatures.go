package threat

import (
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/davidleathers/contact-guardian/internal/domain/errors"
)

// ImpersonationRule flags messages that name an agency while offering only
// numbers that do not verify to that agency
type ImpersonationRule struct {
	Name string `yaml:"name" json:"name"`
	// AgencyTerms are matched case-insensitively as substrings of the message
	AgencyTerms []string `yaml:"agency_terms" json:"agency_terms"`
	// OrganizationFragment must appear in the organization name of a safe
	// number for the message to pass
	OrganizationFragment string `yaml:"organization_fragment" json:"organization_fragment"`
	Reason               string `yaml:"reason" json:"reason"`
}

// SignatureSet holds the fixed signatures the heuristics run against. A set
// is never modified after construction; replace it whole through a Holder.
type SignatureSet struct {
	ScamKeywords             []string            `yaml:"scam_keywords" json:"scam_keywords"`
	LegitimateDomainSuffixes []string            `yaml:"legitimate_domain_suffixes" json:"legitimate_domain_suffixes"`
	GovernmentDomainSuffixes []string            `yaml:"government_domain_suffixes" json:"government_domain_suffixes"`
	ScamDomainFragments      []string            `yaml:"scam_domain_fragments" json:"scam_domain_fragments"`
	PhishingIndicators       []string            `yaml:"phishing_indicators" json:"phishing_indicators"`
	ShortenerDomains         []string            `yaml:"shortener_domains" json:"shortener_domains"`
	PremiumRatePrefixes      []string            `yaml:"premium_rate_prefixes" json:"premium_rate_prefixes"`
	ImpersonationRules       []ImpersonationRule `yaml:"impersonation_rules" json:"impersonation_rules"`
}

// Default returns the built-in signature set
func Default() *SignatureSet {
	return &SignatureSet{
		ScamKeywords: []string{
			"tax refund", "claim your", "urgent action", "suspend", "verify account",
			"click here", "limited time", "congratulations", "you've won", "act now",
			"confirm details", "update payment", "unusual activity", "security alert",
		},
		LegitimateDomainSuffixes: []string{
			"gov.au", "ato.gov.au", "servicesaustralia.gov.au", "health.gov.au",
			"commbank.com.au", "westpac.com.au", "nab.com.au", "anz.com.au",
		},
		GovernmentDomainSuffixes: []string{
			".gov.au", ".gov",
			".nsw.gov.au", ".vic.gov.au", ".qld.gov.au", ".wa.gov.au",
			".sa.gov.au", ".tas.gov.au", ".act.gov.au", ".nt.gov.au",
		},
		ScamDomainFragments: []string{
			"auspost-tracking", "australia-post", "mygovau", "mygov-au", "ato-gov", "centrelink-au",
		},
		PhishingIndicators: []string{
			"bit.ly", "tinyurl", "shorturl", "ow.ly",
			"commonwea1th", "commonwelth",
			"at0.gov", "ato-gov", "ato.net",
		},
		ShortenerDomains:    []string{"bit.ly", "tinyurl.com", "shorturl.at", "ow.ly"},
		PremiumRatePrefixes: []string{"190"},
		ImpersonationRules: []ImpersonationRule{
			{
				Name:                 "ato",
				AgencyTerms:          []string{"ato", "australian tax", "australian taxation office"},
				OrganizationFragment: "tax",
				Reason:               "ATO impersonation - unverified number",
			},
		},
	}
}

// Load decodes a YAML signature file. Lists present in the file replace
// the corresponding defaults; absent lists keep them.
func Load(r io.Reader) (*SignatureSet, error) {
	set := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(set); err != nil && err != io.EOF {
		return nil, errors.NewParseError("INVALID_SIGNATURES", 0, "cannot decode signature set").WithCause(err)
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return set.normalized(), nil
}

// LoadFile reads a YAML signature file from disk
func LoadFile(path string) (*SignatureSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewInternalError("cannot open signature file").WithCause(err)
	}
	defer f.Close()
	return Load(f)
}

// Validate checks the set is usable by the heuristics
func (s *SignatureSet) Validate() error {
	for i, rule := range s.ImpersonationRules {
		if len(rule.AgencyTerms) == 0 {
			return errors.NewValidationError("INVALID_IMPERSONATION_RULE", "impersonation rule has no agency terms").
				WithDetails(map[string]interface{}{"index": i, "name": rule.Name})
		}
		if strings.TrimSpace(rule.Reason) == "" {
			return errors.NewValidationError("INVALID_IMPERSONATION_RULE", "impersonation rule has no reason").
				WithDetails(map[string]interface{}{"index": i, "name": rule.Name})
		}
	}
	return nil
}

// normalized returns a copy with every matcher lowercased and blank
// entries dropped
func (s *SignatureSet) normalized() *SignatureSet {
	out := &SignatureSet{
		ScamKeywords:             lowerAll(s.ScamKeywords),
		LegitimateDomainSuffixes: lowerAll(s.LegitimateDomainSuffixes),
		GovernmentDomainSuffixes: lowerAll(s.GovernmentDomainSuffixes),
		ScamDomainFragments:      lowerAll(s.ScamDomainFragments),
		PhishingIndicators:       lowerAll(s.PhishingIndicators),
		ShortenerDomains:         lowerAll(s.ShortenerDomains),
		PremiumRatePrefixes:      lowerAll(s.PremiumRatePrefixes),
	}
	for _, rule := range s.ImpersonationRules {
		out.ImpersonationRules = append(out.ImpersonationRules, ImpersonationRule{
			Name:                 rule.Name,
			AgencyTerms:          lowerAll(rule.AgencyTerms),
			OrganizationFragment: strings.ToLower(strings.TrimSpace(rule.OrganizationFragment)),
			Reason:               strings.TrimSpace(rule.Reason),
		})
	}
	return out
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Holder publishes the current signature set. Readers take the pointer once
// per query and never observe a partially replaced set.
type Holder struct {
	current atomic.Pointer[generation]
	mu      sync.Mutex
}

type generation struct {
	set *SignatureSet
	gen uint64
}

// NewHolder creates a holder seeded with set, or the defaults when nil
func NewHolder(set *SignatureSet) *Holder {
	if set == nil {
		set = Default()
	}
	h := &Holder{}
	h.current.Store(&generation{set: set.normalized(), gen: 1})
	return h
}

// Current returns the active set
func (h *Holder) Current() *SignatureSet {
	return h.current.Load().set
}

// Snapshot returns the active set with its generation. The generation
// increases by one on every swap.
func (h *Holder) Snapshot() (*SignatureSet, uint64) {
	g := h.current.Load()
	return g.set, g.gen
}

// Swap installs a lowercased copy of set and returns the previous one
func (h *Holder) Swap(set *SignatureSet) (*SignatureSet, error) {
	prev, _, err := h.install(set)
	return prev, err
}

// ReloadFile re-reads the signature file at path and installs it. An empty
// path reinstalls the defaults. On error the active set is kept. It returns
// the new generation.
func (h *Holder) ReloadFile(path string) (uint64, error) {
	set := Default()
	if path != "" {
		var err error
		if set, err = LoadFile(path); err != nil {
			return 0, err
		}
	}
	_, gen, err := h.install(set)
	return gen, err
}

func (h *Holder) install(set *SignatureSet) (*SignatureSet, uint64, error) {
	if set == nil {
		return nil, 0, errors.NewValidationError("INVALID_SIGNATURES", "signature set cannot be nil")
	}
	if err := set.Validate(); err != nil {
		return nil, 0, err
	}
	next := set.normalized()

	h.mu.Lock()
	defer h.mu.Unlock()
	prev := h.current.Load()
	h.current.Store(&generation{set: next, gen: prev.gen + 1})
	return prev.set, prev.gen + 1, nil
}
