package seeding

import (
	"context"
	"fmt"
	"strings"

	"github.com/grocery/backend/internal/domain/catalog"
)

// ScoreGroup is one section of the product listing
type ScoreGroup struct {
	Score    catalog.NutritionScore
	Products []catalog.Product
}

// ListProducts prints the catalog grouped by nutrition score, A through E
// followed by unrated products, and returns the groups.
func (s *Seeder) ListProducts(ctx context.Context) ([]ScoreGroup, error) {
	products, err := s.allProducts(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	order := append(catalog.AllNutritionScores(), catalog.NutritionScoreUnrated)
	byScore := make(map[catalog.NutritionScore][]catalog.Product, len(order))
	for _, p := range products {
		byScore[p.NutritionScore] = append(byScore[p.NutritionScore], p)
	}

	rule := strings.Repeat("=", 80)
	s.printf("%s", rule)
	s.printf("PRODUCTS BY NUTRITION SCORE")
	s.printf("%s", rule)

	groups := make([]ScoreGroup, 0, len(order))
	for _, score := range order {
		group := byScore[score]
		if len(group) == 0 {
			continue
		}
		groups = append(groups, ScoreGroup{Score: score, Products: group})

		s.printf("")
		s.printf("Score %s - %s (%d products)", score, score.Label(), len(group))
		s.printf("%s", strings.Repeat("-", 80))
		for _, p := range group {
			s.printf("  %-40s %-20s $%8s  qty %d", p.Name, p.Brand, p.Price.StringFixed(2), p.Quantity)
		}
	}

	s.printf("")
	s.printf("%s", rule)
	s.printf("Total products: %d", len(products))
	for _, g := range groups {
		s.printf("  %s: %d", g.Score, len(g.Products))
	}
	return groups, nil
}
