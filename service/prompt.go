package service

import (
	"fmt"
	"strings"

	"leaseguard-backend/models"
)

// BuildAnalysisPrompt builds the fixed analysis prompt with the contract text appended last
func BuildAnalysisPrompt(contractText string) string {
	categories := make([]string, 0, len(models.ClauseCategories))
	for _, c := range models.ClauseCategories {
		categories = append(categories, string(c))
	}
	severities := make([]string, 0, len(models.Severities))
	for _, s := range models.Severities {
		severities = append(severities, string(s))
	}
	categoryEnum := strings.Join(categories, "|")

	return fmt.Sprintf(`You are an expert in British Columbia residential tenancy law. Analyze the residential tenancy agreement below for a prospective tenant.

TASK:
Identify clauses that are risky for the tenant or unlawful under the British Columbia Residential Tenancy Act (SBC 2002, c. 78) and the Residential Tenancy Regulation. A clause is malicious (isMalicious: true) only when it is likely unenforceable or contrary to the Act, not merely unfavourable. Cite the relevant section of the Act in legalReference when one applies.

Extract the key facts of the agreement: monthly rent, security deposit, pet damage deposit, start date, end date or term, landlord and tenant names, and notice period. Use "N/A" as the value when the agreement does not state a fact.

OUTPUT SCHEMA:
{
  "summary": "string, 2-4 sentence plain-language overview",
  "keyDetails": [
    {"label": "string", "value": "string", "category": "%s"}
  ],
  "flaggedClauses": [
    {
      "clause": {
        "id": "string, short snake_case identifier",
        "category": "%s",
        "name": "string",
        "description": "string",
        "explanation": "string, why this matters to the tenant",
        "isMalicious": boolean,
        "severity": "%s",
        "legalReference": "string, e.g. RTA s. 19"
      },
      "matchedText": "string, verbatim excerpt from the agreement, at most %d characters",
      "position": number
    }
  ],
  "overallRiskScore": number between 0 and 100,
  "recommendations": ["string, at most %d items"]
}

OUTPUT REQUIREMENTS:
- Respond with pure JSON matching the schema above
- Do not wrap the JSON in markdown code fences
- Do not add any text before or after the JSON
- Use only the category and severity values listed in the schema

TENANCY AGREEMENT:
%s`,
		categoryEnum,
		categoryEnum,
		strings.Join(severities, "|"),
		models.MaxMatchedTextLength,
		models.MaxRecommendations,
		contractText,
	)
}
