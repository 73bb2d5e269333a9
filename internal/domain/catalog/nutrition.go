package catalog

import (
	"encoding/json"
	"strings"

	"github.com/grocery/backend/internal/domain/shared"
)

// NutritionScore is a Nutri-Score style grade from A (best) to E (worst).
// The zero value means the product has not been rated.
type NutritionScore string

const (
	NutritionScoreA       NutritionScore = "A"
	NutritionScoreB       NutritionScore = "B"
	NutritionScoreC       NutritionScore = "C"
	NutritionScoreD       NutritionScore = "D"
	NutritionScoreE       NutritionScore = "E"
	NutritionScoreUnrated NutritionScore = ""
)

// AllNutritionScores lists the rated grades in report order
func AllNutritionScores() []NutritionScore {
	return []NutritionScore{
		NutritionScoreA,
		NutritionScoreB,
		NutritionScoreC,
		NutritionScoreD,
		NutritionScoreE,
	}
}

// ParseNutritionScore normalizes a grade. Blank input yields NutritionScoreUnrated.
func ParseNutritionScore(s string) (NutritionScore, error) {
	score := NutritionScore(strings.ToUpper(strings.TrimSpace(s)))
	if score.IsValid() {
		return score, nil
	}
	return NutritionScoreUnrated, shared.NewDomainError("INVALID_NUTRITION_SCORE", "Nutrition score must be one of A, B, C, D, E")
}

// NormalizeNutritionScore is the lenient variant used for imported data:
// anything outside A-E becomes unrated.
func NormalizeNutritionScore(s string) NutritionScore {
	score, err := ParseNutritionScore(s)
	if err != nil {
		return NutritionScoreUnrated
	}
	return score
}

// IsValid returns true for A-E and for the unrated value
func (s NutritionScore) IsValid() bool {
	switch s {
	case NutritionScoreA, NutritionScoreB, NutritionScoreC, NutritionScoreD, NutritionScoreE, NutritionScoreUnrated:
		return true
	}
	return false
}

// IsRated returns true when a grade is present
func (s NutritionScore) IsRated() bool {
	return s != NutritionScoreUnrated
}

// Label returns the human readable rating used in listings
func (s NutritionScore) Label() string {
	switch s {
	case NutritionScoreA:
		return "Excellent"
	case NutritionScoreB:
		return "Good"
	case NutritionScoreC:
		return "Fair"
	case NutritionScoreD:
		return "Poor"
	case NutritionScoreE:
		return "Very Poor"
	default:
		return "Not Rated"
	}
}

// String returns the grade or "N/A"
func (s NutritionScore) String() string {
	if s == NutritionScoreUnrated {
		return "N/A"
	}
	return string(s)
}

// NutritionalInfo is free-form nutrition data stored as a JSON object.
// Keys are whatever the source provided (OFF nutriments, per-100g summaries, ...).
type NutritionalInfo map[string]any

// ParseNutritionalInfo decodes a raw JSON object. Empty input and "null" yield nil.
func ParseNutritionalInfo(raw []byte) (NutritionalInfo, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var info NutritionalInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, shared.NewDomainError("INVALID_NUTRITIONAL_INFO", "Nutritional info must be a JSON object")
	}
	return info, nil
}

// JSON encodes the info, returning nil for an empty value
func (n NutritionalInfo) JSON() ([]byte, error) {
	if n == nil {
		return nil, nil
	}
	return json.Marshal(n)
}
