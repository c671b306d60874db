// Package search owns the multi-turn query context and the catalog
// scoring used to turn free text into a recommendation.
package search

import (
	"sort"
	"strings"

	"github.com/distrivet/asistente-backend/internal/models"
	"github.com/distrivet/asistente-backend/internal/nlu"
)

const maxSimilares = 3

// Result is the outcome of scoring one query against the catalog.
// Top == nil signals the caller to use the generic "browse similar"
// framing instead of a confident single recommendation.
type Result struct {
	Top       *models.Product
	Similares []models.Product
	Fallback  bool
}

type scored struct {
	product models.Product
	score   float64
}

// Score ranks candidates against the query tokens: +2 per token found in
// the concatenated searchable fields, +1 more when the product name
// starts with the token, plus stock/1000 so that token relevance
// dominates and ties resolve toward availability.
func Score(tokens []string, candidates []models.Product) []models.Product {
	ranked := make([]scored, 0, len(candidates))
	for _, p := range candidates {
		haystack := strings.ToLower(strings.Join([]string{
			p.Nombre, p.Marca, p.Presentacion, p.Droga, p.Accion,
		}, " "))
		nombre := strings.ToLower(p.Nombre)

		s := 0.0
		for _, tok := range tokens {
			if strings.Contains(haystack, tok) {
				s += 2
			}
			if strings.HasPrefix(nombre, tok) {
				s++
			}
		}
		s += float64(p.Stock) / 1000.0
		ranked = append(ranked, scored{product: p, score: s})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	out := make([]models.Product, len(ranked))
	for i, r := range ranked {
		out[i] = r.product
	}
	return out
}

// Catalog is the read-only slice of the store the engine needs.
type Catalog interface {
	SearchProducts(term string) ([]models.Product, error)
	TopStockProducts(n int) ([]models.Product, error)
}

// Run fetches candidates for the query terms, scores them and splits the
// ranking into top + similares. With zero matches it falls back to the
// most-available visible products system-wide.
func Run(catalog Catalog, terms nlu.Terms) (*Result, error) {
	tokens := append([]string{}, terms.Must...)
	tokens = append(tokens, terms.Should...)

	seen := make(map[uint]bool)
	var candidates []models.Product
	for _, tok := range tokens {
		found, err := catalog.SearchProducts(tok)
		if err != nil {
			return nil, err
		}
		for _, p := range found {
			if seen[p.ID] || excluded(p, terms.Negate) {
				continue
			}
			seen[p.ID] = true
			candidates = append(candidates, p)
		}
	}

	if len(candidates) == 0 {
		fallback, err := catalog.TopStockProducts(maxSimilares)
		if err != nil {
			return nil, err
		}
		return &Result{Similares: fallback, Fallback: true}, nil
	}

	ranked := Score(tokens, candidates)
	res := &Result{Top: &ranked[0]}
	rest := ranked[1:]
	if len(rest) > maxSimilares {
		rest = rest[:maxSimilares]
	}
	res.Similares = rest
	return res, nil
}

func excluded(p models.Product, negate []string) bool {
	haystack := strings.ToLower(strings.Join([]string{
		p.Nombre, p.Marca, p.Presentacion, p.Droga, p.Accion,
	}, " "))
	for _, tok := range negate {
		if strings.Contains(haystack, tok) {
			return true
		}
	}
	return false
}
