package verification

import (
	"fmt"
	"strings"

	"github.com/davidleathers/contact-guardian/internal/domain/contact"
	"github.com/davidleathers/contact-guardian/internal/domain/threat"
	"github.com/davidleathers/contact-guardian/internal/domain/values"
)

// Heuristic confidences
const (
	GovernmentDomainConfidence = 0.8
)

// SignatureSource supplies the active signature set
type SignatureSource interface {
	Current() *threat.SignatureSet
}

// Engine classifies identifiers against a corpus snapshot. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	normalizer values.Normalizer
	signatures SignatureSource
}

// NewEngine creates an engine. A nil source uses the built-in signatures.
func NewEngine(normalizer values.Normalizer, signatures SignatureSource) *Engine {
	if signatures == nil {
		signatures = threat.NewHolder(nil)
	}
	return &Engine{normalizer: normalizer, signatures: signatures}
}

// Normalizer returns the engine's normalizer
func (e *Engine) Normalizer() values.Normalizer {
	return e.normalizer
}

// Signatures returns the active signature set
func (e *Engine) Signatures() *threat.SignatureSet {
	return e.signatures.Current()
}

// Verify classifies one identifier using the active signature set
func (e *Engine) Verify(kind values.ContactKind, raw string, c *contact.Corpus) Result {
	return e.VerifyWith(kind, raw, c, e.signatures.Current())
}

// VerifyWith classifies one identifier against an explicit signature set.
// Not finding the identifier is a classification, never an error.
func (e *Engine) VerifyWith(kind values.ContactKind, raw string, c *contact.Corpus, sigs *threat.SignatureSet) Result {
	res := Result{
		Kind:             kind,
		Value:            raw,
		RiskLevel:        values.RiskUnknown,
		OrganizationType: values.OrgUnknown,
		Source:           SourceNone,
	}
	if c != nil {
		res.CorpusVersion = c.Version()
	}

	normalized, err := e.normalizer.Normalize(kind, raw)
	if err != nil {
		res.Message = fmt.Sprintf("unable to verify: %v", err)
		return res
	}
	res.NormalizedValue = normalized

	if rec, ok := findRecord(c, kind, normalized); ok {
		return fromRecord(res, rec)
	}

	if sigs == nil {
		sigs = threat.Default()
	}

	switch kind {
	case values.KindEmail:
		if h, ok := domainHeuristic(res, values.EmailDomain(normalized), sigs, "Government Domain", "email"); ok {
			return h
		}
	case values.KindWebsite:
		if h, ok := domainHeuristic(res, values.URLHost(normalized), sigs, "Government Website", "website"); ok {
			return h
		}
	case values.KindPhone:
		if values.HasAnyPrefix(normalized, sigs.PremiumRatePrefixes) {
			res.RiskLevel = values.RiskSuspicious
			res.Source = SourceHeuristic
			res.Message = "number matches a premium-rate scam pattern"
			return res
		}
	}

	res.Message = fmt.Sprintf("%s is not in the directory; verify independently", kind)
	return res
}

// findRecord locates the first matching record in corpus order
func findRecord(c *contact.Corpus, kind values.ContactKind, normalized string) (contact.Record, bool) {
	if c == nil {
		return contact.Record{}, false
	}

	if rec, ok := c.First(kind, normalized); ok {
		return rec, true
	}

	switch kind {
	case values.KindPhone:
		return c.FindFirst(kind, func(r contact.Record) bool {
			return values.PhonesEquivalent(r.NormalizedValue, normalized)
		})
	case values.KindWebsite:
		return c.FindFirst(kind, func(r contact.Record) bool {
			return strings.Contains(r.NormalizedValue, normalized) ||
				strings.Contains(normalized, r.NormalizedValue)
		})
	}
	return contact.Record{}, false
}

func fromRecord(res Result, rec contact.Record) Result {
	res.Matched = true
	res.RiskLevel = rec.RiskLevel
	res.OrganizationName = rec.OrganizationName
	res.OrganizationType = rec.OrganizationType
	res.ConfidenceScore = rec.ConfidenceScore
	res.Services = rec.Services
	res.RecordID = rec.ID
	res.Source = SourceCorpus

	if rec.IsSafe() {
		res.Message = fmt.Sprintf("verified safe for %s", rec.OrganizationName)
	} else {
		res.Message = fmt.Sprintf("flagged as %s: %s", rec.RiskLevel, rec.Notes)
	}
	return res
}

func domainHeuristic(res Result, domain string, sigs *threat.SignatureSet, govName, noun string) (Result, bool) {
	if domain == "" {
		return res, false
	}

	if values.HasDomainSuffix(domain, sigs.GovernmentDomainSuffixes) {
		res.Matched = true
		res.RiskLevel = values.RiskSafe
		res.OrganizationName = govName
		res.OrganizationType = values.OrgGovernment
		res.ConfidenceScore = GovernmentDomainConfidence
		res.Source = SourceHeuristic
		res.Message = fmt.Sprintf("likely safe: %s is on a government domain", noun)
		return res, true
	}

	if frag, ok := values.ContainsAny(domain, sigs.ScamDomainFragments); ok {
		res.RiskLevel = values.RiskThreat
		res.OrganizationType = values.OrgThreat
		res.Source = SourceHeuristic
		res.Message = fmt.Sprintf("%s domain matches known scam pattern %q", noun, frag)
		return res, true
	}

	return res, false
}
