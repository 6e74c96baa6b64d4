package values

import (
	"strings"
)

// ContactKind identifies what an identifier is
type ContactKind string

// Supported contact kinds
const (
	KindPhone        ContactKind = "phone"
	KindEmail        ContactKind = "email"
	KindWebsite      ContactKind = "website"
	KindOrganization ContactKind = "organization"
	KindGeneral      ContactKind = "general"
)

var supportedKinds = map[ContactKind]bool{
	KindPhone:        true,
	KindEmail:        true,
	KindWebsite:      true,
	KindOrganization: true,
	KindGeneral:      true,
}

// ParseContactKind maps a source string onto a ContactKind. The second
// return is false when the string names no supported kind.
func ParseContactKind(s string) (ContactKind, bool) {
	kind := ContactKind(strings.ToLower(strings.TrimSpace(s)))
	if supportedKinds[kind] {
		return kind, true
	}
	return "", false
}

// AllContactKinds returns every supported kind in declaration order
func AllContactKinds() []ContactKind {
	return []ContactKind{KindPhone, KindEmail, KindWebsite, KindOrganization, KindGeneral}
}

func (k ContactKind) String() string {
	return string(k)
}

// RiskLevel is the engine's classification output
type RiskLevel string

// Risk levels
const (
	RiskSafe       RiskLevel = "safe"
	RiskThreat     RiskLevel = "threat"
	RiskSuspicious RiskLevel = "suspicious"
	RiskUnknown    RiskLevel = "unknown"
)

// ParseRiskLevel maps a source string onto a RiskLevel. Empty or
// unrecognized input is RiskUnknown.
func ParseRiskLevel(s string) RiskLevel {
	switch RiskLevel(strings.ToLower(strings.TrimSpace(s))) {
	case RiskSafe:
		return RiskSafe
	case RiskThreat:
		return RiskThreat
	case RiskSuspicious:
		return RiskSuspicious
	default:
		return RiskUnknown
	}
}

// AllRiskLevels returns every risk level in severity-independent order
func AllRiskLevels() []RiskLevel {
	return []RiskLevel{RiskSafe, RiskThreat, RiskSuspicious, RiskUnknown}
}

// IsSafe reports whether the level is safe
func (r RiskLevel) IsSafe() bool {
	return r == RiskSafe
}

// IsThreat reports whether the level warrants a warning
func (r RiskLevel) IsThreat() bool {
	return r == RiskThreat || r == RiskSuspicious
}

func (r RiskLevel) String() string {
	if r == "" {
		return string(RiskUnknown)
	}
	return string(r)
}

// OrganizationType classifies the organization behind a record
type OrganizationType string

// Organization types
const (
	OrgGovernment OrganizationType = "government"
	OrgHospital   OrganizationType = "hospital"
	OrgCharity    OrganizationType = "charity"
	OrgThreat     OrganizationType = "threat"
	OrgUnknown    OrganizationType = "unknown"
)

// ParseOrganizationType maps a source string onto an OrganizationType.
// Scraped threat rows label themselves "scam"; those fold into OrgThreat.
func ParseOrganizationType(s string) OrganizationType {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "government":
		return OrgGovernment
	case "hospital":
		return OrgHospital
	case "charity":
		return OrgCharity
	case "threat", "scam":
		return OrgThreat
	default:
		return OrgUnknown
	}
}

func (o OrganizationType) String() string {
	if o == "" {
		return string(OrgUnknown)
	}
	return string(o)
}
