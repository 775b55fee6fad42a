package models

import (
	"strings"
)

// ClauseCategory represents the area of a tenancy agreement a clause belongs to
type ClauseCategory string

const (
	CategorySecurityDeposit ClauseCategory = "security_deposit"
	CategoryRent            ClauseCategory = "rent"
	CategoryTermination     ClauseCategory = "termination"
	CategoryMaintenance     ClauseCategory = "maintenance"
	CategoryPrivacy         ClauseCategory = "privacy"
	CategoryPets            ClauseCategory = "pets"
	CategorySubletting      ClauseCategory = "subletting"
	CategoryUtilities       ClauseCategory = "utilities"
	CategoryOther           ClauseCategory = "other"
)

// ClauseCategories lists every category in prompt/display order
var ClauseCategories = []ClauseCategory{
	CategorySecurityDeposit,
	CategoryRent,
	CategoryTermination,
	CategoryMaintenance,
	CategoryPrivacy,
	CategoryPets,
	CategorySubletting,
	CategoryUtilities,
	CategoryOther,
}

// Valid reports whether c is a member of the taxonomy
func (c ClauseCategory) Valid() bool {
	for _, known := range ClauseCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Label returns a human-readable name for the category
func (c ClauseCategory) Label() string {
	labels := map[ClauseCategory]string{
		CategorySecurityDeposit: "Security Deposit",
		CategoryRent:            "Rent",
		CategoryTermination:     "Termination",
		CategoryMaintenance:     "Maintenance & Repairs",
		CategoryPrivacy:         "Privacy & Entry",
		CategoryPets:            "Pets",
		CategorySubletting:      "Subletting & Assignment",
		CategoryUtilities:       "Utilities",
		CategoryOther:           "Other",
	}
	if label, ok := labels[c]; ok {
		return label
	}
	return string(c)
}

// ParseClauseCategory maps a loosely formatted category onto the taxonomy.
// Unknown values return CategoryOther and false.
func ParseClauseCategory(s string) (ClauseCategory, bool) {
	c := ClauseCategory(canonicalToken(s))
	if c.Valid() {
		return c, true
	}
	return CategoryOther, false
}

// Severity represents how risky a flagged clause is for the tenant
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Severities lists every severity from least to most severe
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh}

// Valid reports whether s is a member of the taxonomy
func (s Severity) Valid() bool {
	return s == SeverityLow || s == SeverityMedium || s == SeverityHigh
}

// Weight returns the risk score contribution of a clause with this severity
func (s Severity) Weight() int {
	switch s {
	case SeverityHigh:
		return 25
	case SeverityMedium:
		return 15
	default:
		return 5
	}
}

// ParseSeverity maps a loosely formatted severity onto the taxonomy.
// Unknown values return SeverityLow and false.
func ParseSeverity(s string) (Severity, bool) {
	sev := Severity(canonicalToken(s))
	if sev.Valid() {
		return sev, true
	}
	return SeverityLow, false
}

// canonicalToken lowercases and joins words with underscores ("Security Deposit" -> "security_deposit")
func canonicalToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", " ")
	return strings.Join(strings.Fields(s), "_")
}
