package search

import (
	"github.com/distrivet/asistente-backend/internal/models"
)

// Ambiguous reports whether a scoring result is too close to call: a top
// candidate with at least two plausible alternatives behind it.
func Ambiguous(res *Result) bool {
	return res.Top != nil && len(res.Similares) >= 2
}

// ShortlistFor returns the candidates to offer in a clarification round,
// skipping products already shown in earlier rounds, bounded to limit.
// The top candidate leads the list.
func ShortlistFor(sc *models.SearchContext, res *Result, limit int) []models.Product {
	var out []models.Product
	add := func(p models.Product) {
		if len(out) < limit && !sc.Shown(p.ID) {
			out = append(out, p)
		}
	}
	if res.Top != nil {
		add(*res.Top)
	}
	for _, p := range res.Similares {
		add(p)
	}
	return out
}
