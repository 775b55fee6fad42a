package models

const (
	// MaxMatchedTextLength bounds the contract excerpt kept per flagged clause (in runes)
	MaxMatchedTextLength = 300

	// MaxRecommendations caps the recommendation list of a result
	MaxRecommendations = 5

	// NotAvailable is the value of a key detail the contract does not state
	NotAvailable = "N/A"
)

// AnalysisSource names the path that produced a result
type AnalysisSource string

const (
	SourceAI      AnalysisSource = "ai"
	SourceKeyword AnalysisSource = "keyword"
)

// ClausePattern describes a type of contract clause
type ClausePattern struct {
	ID             string         `json:"id" yaml:"id"`
	Category       ClauseCategory `json:"category" yaml:"category"`
	Name           string         `json:"name" yaml:"name"`
	Description    string         `json:"description" yaml:"description"`
	Explanation    string         `json:"explanation" yaml:"explanation"`
	Keywords       []string       `json:"keywords" yaml:"keywords"` // Always empty for clauses found by the AI path
	IsMalicious    bool           `json:"isMalicious" yaml:"isMalicious"`
	Severity       Severity       `json:"severity" yaml:"severity"`
	LegalReference string         `json:"legalReference,omitempty" yaml:"legalReference,omitempty"`
}

// FlaggedClause represents an occurrence of a ClausePattern in a specific contract
type FlaggedClause struct {
	Clause      ClausePattern `json:"clause"`
	MatchedText string        `json:"matchedText"`
	Position    int           `json:"position"` // Best-effort offset, the model may estimate it
}

// KeyDetail represents an extracted fact such as the rent amount or notice period
type KeyDetail struct {
	Label    string         `json:"label"`
	Value    string         `json:"value"`
	Category ClauseCategory `json:"category"`
}

// AnalysisResult is the canonical output of one analysis run
type AnalysisResult struct {
	Summary          string          `json:"summary"`
	KeyDetails       []KeyDetail     `json:"keyDetails"`
	FlaggedClauses   []FlaggedClause `json:"flaggedClauses"`
	OverallRiskScore int             `json:"overallRiskScore"`
	Recommendations  []string        `json:"recommendations"`
	Source           AnalysisSource  `json:"source,omitempty"`
	Truncated        bool            `json:"truncated"`
}

// ClampRiskScore bounds a score to [0, 100]
func ClampRiskScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// TruncateRunes cuts s to at most n runes
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
