package service

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"leaseguard-backend/models"
)

// NormalizeAnalysis converts a raw model response into the canonical AnalysisResult.
// Nothing in the payload is trusted: every field is type-checked and coerced, unknown
// categories and severities fall back to "other" and "low", the risk score is clamped
// to [0, 100] and recommendations are capped. Missing summary or score is an error.
func NormalizeAnalysis(raw RawAnalysis) (*models.AnalysisResult, error) {
	if raw == nil {
		return nil, &MalformedResultError{Field: "", Message: "is empty"}
	}

	summary, ok := asString(raw["summary"])
	if !ok || strings.TrimSpace(summary) == "" {
		return nil, &MalformedResultError{Field: "summary", Message: "is missing"}
	}

	scoreValue, present := raw["overallRiskScore"]
	if !present || scoreValue == nil {
		return nil, &MalformedResultError{Field: "overallRiskScore", Message: "is missing"}
	}
	score, err := asInt(scoreValue)
	if err != nil {
		return nil, &MalformedResultError{Field: "overallRiskScore", Message: err.Error()}
	}

	keyDetails, err := normalizeKeyDetails(raw["keyDetails"])
	if err != nil {
		return nil, err
	}

	flagged, err := normalizeFlaggedClauses(raw["flaggedClauses"])
	if err != nil {
		return nil, err
	}

	recommendations, err := normalizeRecommendations(raw["recommendations"])
	if err != nil {
		return nil, err
	}

	return &models.AnalysisResult{
		Summary:          strings.TrimSpace(summary),
		KeyDetails:       keyDetails,
		FlaggedClauses:   flagged,
		OverallRiskScore: models.ClampRiskScore(score),
		Recommendations:  recommendations,
		Source:           models.SourceAI,
	}, nil
}

func normalizeKeyDetails(value any) ([]models.KeyDetail, error) {
	details := make([]models.KeyDetail, 0)
	if value == nil {
		return details, nil
	}

	items, ok := value.([]any)
	if !ok {
		return nil, &MalformedResultError{Field: "keyDetails", Message: "is not an array"}
	}

	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, &MalformedResultError{Field: fmt.Sprintf("keyDetails[%d]", i), Message: "is not an object"}
		}

		label, _ := asString(obj["label"])
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}

		detailValue, _ := asString(obj["value"])
		detailValue = strings.TrimSpace(detailValue)
		if detailValue == "" {
			detailValue = models.NotAvailable
		}

		categoryText, _ := asString(obj["category"])
		category, _ := models.ParseClauseCategory(categoryText)

		details = append(details, models.KeyDetail{
			Label:    label,
			Value:    detailValue,
			Category: category,
		})
	}
	return details, nil
}

func normalizeFlaggedClauses(value any) ([]models.FlaggedClause, error) {
	flagged := make([]models.FlaggedClause, 0)
	if value == nil {
		return flagged, nil
	}

	items, ok := value.([]any)
	if !ok {
		return nil, &MalformedResultError{Field: "flaggedClauses", Message: "is not an array"}
	}

	for i, item := range items {
		field := fmt.Sprintf("flaggedClauses[%d]", i)
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, &MalformedResultError{Field: field, Message: "is not an object"}
		}
		clauseObj, ok := obj["clause"].(map[string]any)
		if !ok {
			return nil, &MalformedResultError{Field: field + ".clause", Message: "is missing or not an object"}
		}

		clause := normalizeClausePattern(clauseObj, i)

		matchedText, _ := asString(obj["matchedText"])
		position := 0
		if p, err := asInt(obj["position"]); err == nil && p > 0 {
			position = p
		}

		flagged = append(flagged, models.FlaggedClause{
			Clause:      clause,
			MatchedText: models.TruncateRunes(strings.TrimSpace(matchedText), models.MaxMatchedTextLength),
			Position:    position,
		})
	}
	return flagged, nil
}

func normalizeClausePattern(obj map[string]any, index int) models.ClausePattern {
	categoryText, _ := asString(obj["category"])
	category, _ := models.ParseClauseCategory(categoryText)

	severityText, _ := asString(obj["severity"])
	severity, _ := models.ParseSeverity(severityText)

	id, _ := asString(obj["id"])
	id = strings.TrimSpace(id)
	if id == "" {
		id = fmt.Sprintf("clause-%d", index+1)
	}

	name, _ := asString(obj["name"])
	name = strings.TrimSpace(name)
	if name == "" {
		name = category.Label() + " clause"
	}

	description, _ := asString(obj["description"])
	explanation, _ := asString(obj["explanation"])
	legalReference, _ := asString(obj["legalReference"])

	return models.ClausePattern{
		ID:             id,
		Category:       category,
		Name:           name,
		Description:    strings.TrimSpace(description),
		Explanation:    strings.TrimSpace(explanation),
		Keywords:       []string{}, // the model never supplies keywords
		IsMalicious:    asBool(obj["isMalicious"]),
		Severity:       severity,
		LegalReference: strings.TrimSpace(legalReference),
	}
}

func normalizeRecommendations(value any) ([]string, error) {
	recommendations := make([]string, 0, models.MaxRecommendations)
	if value == nil {
		return recommendations, nil
	}

	items, ok := value.([]any)
	if !ok {
		return nil, &MalformedResultError{Field: "recommendations", Message: "is not an array"}
	}

	for _, item := range items {
		if len(recommendations) == models.MaxRecommendations {
			break
		}
		text, ok := item.(string)
		if !ok || strings.TrimSpace(text) == "" {
			continue
		}
		recommendations = append(recommendations, strings.TrimSpace(text))
	}
	return recommendations, nil
}

// asString accepts strings and renders scalar values; objects and arrays are rejected
func asString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

// asInt coerces numbers and numeric strings ("72", "72.5", "72%") to a rounded int
func asInt(value any) (int, error) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case int:
		return v, nil
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("is not numeric")
		}
		f = parsed
	case string:
		trimmed := strings.TrimSuffix(strings.TrimSpace(v), "%")
		parsed, err := strconv.ParseFloat(strings.TrimSpace(trimmed), 64)
		if err != nil {
			return 0, fmt.Errorf("is not numeric")
		}
		f = parsed
	default:
		return 0, fmt.Errorf("is not numeric")
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("is not a finite number")
	}
	f = math.Round(f)
	if f > math.MaxInt32 {
		return math.MaxInt32, nil
	}
	if f < math.MinInt32 {
		return math.MinInt32, nil
	}
	return int(f), nil
}

// asBool accepts booleans, "true"/"yes" strings and non-zero numbers
func asBool(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "1":
			return true
		}
	case float64:
		return v != 0
	}
	return false
}
