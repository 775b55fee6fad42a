package service

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"leaseguard-backend/models"

	"gopkg.in/yaml.v3"
)

//go:embed clause_patterns.yaml
var defaultPatternLibrary []byte

// excerpt window around a keyword hit, in bytes
const (
	excerptBefore = 100
	excerptAfter  = 200
)

// patternLibrary is the YAML document layout of a clause pattern library
type patternLibrary struct {
	Patterns []models.ClausePattern `yaml:"patterns"`
}

type compiledPattern struct {
	pattern  models.ClausePattern
	matchers []*regexp.Regexp
}

// KeywordAnalyzer is the deterministic fallback used when remote analysis is unusable.
// It matches a fixed library of clause patterns by keyword and never calls the network.
type KeywordAnalyzer struct {
	patterns []compiledPattern
}

// NewKeywordAnalyzer creates a keyword analyzer from the embedded pattern library
func NewKeywordAnalyzer() (*KeywordAnalyzer, error) {
	return NewKeywordAnalyzerFromYAML(defaultPatternLibrary)
}

// NewKeywordAnalyzerFromYAML creates a keyword analyzer from a YAML pattern library
func NewKeywordAnalyzerFromYAML(data []byte) (*KeywordAnalyzer, error) {
	var library patternLibrary
	if err := yaml.Unmarshal(data, &library); err != nil {
		return nil, fmt.Errorf("failed to parse pattern library: %w", err)
	}
	if len(library.Patterns) == 0 {
		return nil, errors.New("pattern library contains no patterns")
	}

	seen := make(map[string]bool, len(library.Patterns))
	compiled := make([]compiledPattern, 0, len(library.Patterns))
	for i, p := range library.Patterns {
		if p.ID == "" {
			return nil, fmt.Errorf("pattern %d: id is required", i)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("pattern %q: duplicate id", p.ID)
		}
		seen[p.ID] = true
		if !p.Category.Valid() {
			return nil, fmt.Errorf("pattern %q: unknown category %q", p.ID, p.Category)
		}
		if !p.Severity.Valid() {
			return nil, fmt.Errorf("pattern %q: unknown severity %q", p.ID, p.Severity)
		}
		if len(p.Keywords) == 0 {
			return nil, fmt.Errorf("pattern %q: at least one keyword is required", p.ID)
		}

		matchers := make([]*regexp.Regexp, 0, len(p.Keywords))
		for _, keyword := range p.Keywords {
			// Case-insensitive, whitespace-tolerant literal match; offsets stay valid in the original text
			words := strings.Fields(keyword)
			for j, w := range words {
				words[j] = regexp.QuoteMeta(w)
			}
			matchers = append(matchers, regexp.MustCompile(`(?i)`+strings.Join(words, `\s+`)))
		}
		compiled = append(compiled, compiledPattern{pattern: p, matchers: matchers})
	}

	return &KeywordAnalyzer{patterns: compiled}, nil
}

// Patterns returns a copy of the loaded clause patterns
func (a *KeywordAnalyzer) Patterns() []models.ClausePattern {
	patterns := make([]models.ClausePattern, 0, len(a.patterns))
	for _, cp := range a.patterns {
		p := cp.pattern
		p.Keywords = append([]string(nil), cp.pattern.Keywords...)
		patterns = append(patterns, p)
	}
	return patterns
}

// AnalyzeContractWithKeywords flags every pattern with at least one keyword hit
// and returns a result in the canonical shape
func (a *KeywordAnalyzer) AnalyzeContractWithKeywords(ctx context.Context, text string) (*models.AnalysisResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyContract
	}
	if len(a.patterns) == 0 {
		return nil, errors.New("keyword analyzer has no patterns loaded")
	}

	flagged := make([]models.FlaggedClause, 0)
	for _, cp := range a.patterns {
		start, end, found := firstMatch(text, cp.matchers)
		if !found {
			continue
		}

		clause := cp.pattern
		clause.Keywords = append([]string(nil), cp.pattern.Keywords...)
		flagged = append(flagged, models.FlaggedClause{
			Clause:      clause,
			MatchedText: excerpt(text, start, end),
			Position:    start,
		})
	}

	sort.SliceStable(flagged, func(i, j int) bool {
		return flagged[i].Position < flagged[j].Position
	})

	score := 0
	malicious := 0
	for _, fc := range flagged {
		score += fc.Clause.Severity.Weight()
		if fc.Clause.IsMalicious {
			score += 10
			malicious++
		}
	}

	return &models.AnalysisResult{
		Summary:          keywordSummary(len(flagged), malicious),
		KeyDetails:       extractKeyDetails(text),
		FlaggedClauses:   flagged,
		OverallRiskScore: models.ClampRiskScore(score),
		Recommendations:  keywordRecommendations(flagged),
		Source:           models.SourceKeyword,
	}, nil
}

// firstMatch returns the earliest hit of any matcher
func firstMatch(text string, matchers []*regexp.Regexp) (int, int, bool) {
	start, end := -1, -1
	for _, re := range matchers {
		loc := re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		if start == -1 || loc[0] < start {
			start, end = loc[0], loc[1]
		}
	}
	return start, end, start != -1
}

// excerpt returns the text around a hit, bounded to MaxMatchedTextLength runes
func excerpt(text string, start, end int) string {
	from := start - excerptBefore
	if from < 0 {
		from = 0
	}
	to := end + excerptAfter
	if to > len(text) {
		to = len(text)
	}
	for from > 0 && !utf8.RuneStart(text[from]) {
		from--
	}
	for to < len(text) && !utf8.RuneStart(text[to]) {
		to++
	}

	snippet := strings.Join(strings.Fields(text[from:to]), " ")
	return models.TruncateRunes(snippet, models.MaxMatchedTextLength)
}

func keywordSummary(flagged, malicious int) string {
	if flagged == 0 {
		return "Keyword analysis did not match any known problematic clause patterns. " +
			"AI analysis was unavailable, so this automated check may miss unusual wording; review the full agreement before signing."
	}
	return fmt.Sprintf("Keyword analysis flagged %d potentially concerning clause(s), %d of which may be unenforceable under the BC Residential Tenancy Act. "+
		"AI analysis was unavailable, so these results come from pattern matching only; review each flagged clause in context.", flagged, malicious)
}

var categoryRecommendations = map[models.ClauseCategory]string{
	models.CategorySecurityDeposit: "Confirm the security deposit is no more than half of one month's rent and is fully refundable (RTA s. 19, s. 38).",
	models.CategoryRent:            "Check that rent increases follow the annual limit with three months' written notice, and that any late fee is $25 or less.",
	models.CategoryTermination:     "Make sure the landlord can only end the tenancy with proper notice on the approved RTB form.",
	models.CategoryMaintenance:     "Keep repair obligations with the landlord; you are only responsible for damage you or your guests cause (RTA s. 32).",
	models.CategoryPrivacy:         "Insist on at least 24 hours' written notice before the landlord enters, except in emergencies (RTA s. 29).",
	models.CategoryPets:            "Confirm the pet damage deposit is capped at half of one month's rent and that no monthly pet fees apply.",
	models.CategorySubletting:      "Ask for wording that consent to sublet or assign will not be unreasonably withheld (RTA s. 34).",
	models.CategoryUtilities:       "Get the utilities included in rent, and the method for sharing any others, written into the agreement.",
	models.CategoryOther:           "Remove any term that waives your rights under the Residential Tenancy Act; such terms have no effect (RTA s. 5).",
}

const generalRecommendation = "Contact the Residential Tenancy Branch or a tenant advocacy service if you are unsure about any clause before signing."

// keywordRecommendations returns one recommendation per flagged category in discovery order
func keywordRecommendations(flagged []models.FlaggedClause) []string {
	recommendations := make([]string, 0, models.MaxRecommendations)
	seen := make(map[models.ClauseCategory]bool)
	for _, fc := range flagged {
		if len(recommendations) == models.MaxRecommendations-1 {
			break
		}
		category := fc.Clause.Category
		if seen[category] {
			continue
		}
		seen[category] = true
		if rec, ok := categoryRecommendations[category]; ok {
			recommendations = append(recommendations, rec)
		}
	}
	return append(recommendations, generalRecommendation)
}

var (
	amountPattern = `\$\s?([\d,]+(?:\.\d{2})?)`
	monthPattern  = `(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+\d{4}`

	keyDetailExtractors = []struct {
		label    string
		category models.ClauseCategory
		re       *regexp.Regexp
		prefix   string
	}{
		{"Monthly Rent", models.CategoryRent, regexp.MustCompile(`(?i)\brent\b[^$\n]{0,40}` + amountPattern), "$"},
		{"Security Deposit", models.CategorySecurityDeposit, regexp.MustCompile(`(?i)security\s+deposit[^$\n]{0,40}` + amountPattern), "$"},
		{"Pet Damage Deposit", models.CategoryPets, regexp.MustCompile(`(?i)pet\s+(?:damage\s+)?deposit[^$\n]{0,40}` + amountPattern), "$"},
		{"Start Date", models.CategoryOther, regexp.MustCompile(`(?i)(?:commenc\w*|start\w*|begin\w*)[^\n]{0,30}?(` + monthPattern + `|\d{4}-\d{2}-\d{2})`), ""},
		{"Notice Period", models.CategoryTermination, regexp.MustCompile(`(?i)\b(\d+\s+(?:days?|weeks?|months?)|one\s+(?:full\s+)?month)(?:'|’)?s?\s+(?:written\s+)?notice`), ""},
	}
)

// extractKeyDetails pulls common facts from the text; absent facts are "N/A"
func extractKeyDetails(text string) []models.KeyDetail {
	details := make([]models.KeyDetail, 0, len(keyDetailExtractors))
	for _, extractor := range keyDetailExtractors {
		value := models.NotAvailable
		if m := extractor.re.FindStringSubmatch(text); len(m) > 1 {
			value = extractor.prefix + strings.Join(strings.Fields(m[1]), " ")
		}
		details = append(details, models.KeyDetail{
			Label:    extractor.label,
			Value:    value,
			Category: extractor.category,
		})
	}
	return details
}
