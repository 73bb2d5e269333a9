package openfoodfacts

import (
	"encoding/json"
	"strconv"
	"strings"

	catalogapp "github.com/grocery/backend/internal/application/catalog"
	"github.com/grocery/backend/internal/domain/catalog"
)

// SearchResponse is the subset of the search.pl JSON payload we read
type SearchResponse struct {
	Products []RawProduct `json:"products"`
}

// RawProduct is one search hit as returned by Open Food Facts.
// Only the fields used by enrichment and catalog import are decoded.
type RawProduct struct {
	Code             string         `json:"code"`
	ProductName      string         `json:"product_name"`
	Brands           string         `json:"brands"`
	ImageURL         string         `json:"image_url"`
	ImageFrontURL    string         `json:"image_front_url"`
	Categories       string         `json:"categories"`
	NutritionGradeFR string         `json:"nutrition_grade_fr"`
	NutriscoreGrade  string         `json:"nutriscore_grade"`
	ServingSize      any            `json:"serving_size"`
	Nutriments       map[string]any `json:"nutriments"`
}

// Grade returns the upper-cased nutrition grade, preferring nutriscore_grade
func (p RawProduct) Grade() string {
	grade := p.NutriscoreGrade
	if strings.TrimSpace(grade) == "" {
		grade = p.NutritionGradeFR
	}
	return strings.ToUpper(strings.TrimSpace(grade))
}

// Image returns the front image when present, else the generic image
func (p RawProduct) Image() string {
	if img := strings.TrimSpace(p.ImageFrontURL); img != "" {
		return img
	}
	return strings.TrimSpace(p.ImageURL)
}

// FirstCategory returns the first entry of the comma separated category list
func (p RawProduct) FirstCategory() string {
	first, _, _ := strings.Cut(p.Categories, ",")
	return truncate(strings.TrimSpace(first), 255)
}

// Summary is the compact nutrition record stored on a product after enrichment
func (p RawProduct) Summary() catalog.NutritionalInfo {
	nutriments := p.Nutriments
	if nutriments == nil {
		nutriments = map[string]any{}
	}
	return catalog.NutritionalInfo{
		"nutriments":   nutriments,
		"serving_size": p.ServingSize,
		"product_name": p.ProductName,
	}
}

// per100gFields maps the stored key to the OFF nutriment keys, first match wins
var per100gFields = []struct {
	key     string
	sources []string
}{
	{"energy_kcal_100g", []string{"energy-kcal_100g", "energy_kcal_100g"}},
	{"proteins_100g", []string{"proteins_100g"}},
	{"fat_100g", []string{"fat_100g"}},
	{"carbohydrates_100g", []string{"carbohydrates_100g"}},
	{"sugars_100g", []string{"sugars_100g"}},
	{"fiber_100g", []string{"fiber_100g"}},
	{"salt_100g", []string{"salt_100g"}},
}

// Per100g extracts the per-100g values used by imported products.
// Missing or unparsable values are reported as 0.
func (p RawProduct) Per100g() catalog.NutritionalInfo {
	info := make(catalog.NutritionalInfo, len(per100gFields))
	for _, field := range per100gFields {
		value := 0.0
		for _, src := range field.sources {
			if v, ok := toFloat(p.Nutriments[src]); ok {
				value = v
				break
			}
		}
		info[field.key] = value
	}
	return info
}

// ProductCandidate is a search hit mapped onto catalog fields
type ProductCandidate = catalogapp.ProductCandidate

// Candidate maps a hit onto catalog fields. Grades outside A-E become unrated.
func (p RawProduct) Candidate() ProductCandidate {
	return ProductCandidate{
		Name:            truncate(strings.TrimSpace(p.ProductName), 255),
		Brand:           truncate(strings.TrimSpace(p.Brands), 255),
		Barcode:         truncate(strings.TrimSpace(p.Code), 100),
		ImageURL:        truncate(p.Image(), 500),
		Category:        p.FirstCategory(),
		NutritionScore:  catalog.NormalizeNutritionScore(p.Grade()),
		NutritionalInfo: p.Per100g(),
		HasNutriments:   len(p.Nutriments) > 0,
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
