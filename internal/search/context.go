package search

import (
	"regexp"
	"strings"

	"github.com/distrivet/asistente-backend/internal/models"
	"github.com/distrivet/asistente-backend/internal/nlu"
)

// Phrases that explicitly open a new search regardless of prior context.
var freshCues = regexp.MustCompile(`\b(busco|necesito|ahora quiero|otra cosa|empecemos de nuevo|nueva busqueda|nueva búsqueda)\b`)

// IsFresh decides whether a query turn starts a new term context or
// extends the prior one. Fresh when the text carries a new-search cue,
// when there is no prior query, or when the turn brings its own topic
// (non-empty new must terms) sharing nothing with the accumulated must
// bucket (topic kill). Refinement-only turns ("y que sea en gotas")
// contribute no must terms and always merge.
func IsFresh(sc *models.SearchContext, text string, terms nlu.Terms) bool {
	if sc == nil || sc.LastQuery == "" {
		return true
	}
	lower := strings.ToLower(text)
	if freshCues.MatchString(lower) {
		return true
	}
	if len(sc.Must) == 0 || len(terms.Must) == 0 {
		return false
	}
	for _, term := range sc.Must {
		if strings.Contains(lower, term) {
			return false
		}
	}
	return true
}

// Accumulate applies the reset-vs-merge policy for one query turn and
// returns the context to score against. On a merge the new terms are
// unioned into the existing buckets, deduplicated; signals, asked axes
// and the hop counter survive.
func Accumulate(sc *models.SearchContext, text string, terms nlu.Terms) *models.SearchContext {
	if IsFresh(sc, text, terms) {
		sc = models.NewSearchContext()
		sc.Must = terms.Must
		sc.Should = terms.Should
		sc.Negate = terms.Negate
		sc.LastQuery = text
		return sc
	}

	sc.Must = union(sc.Must, terms.Must)
	sc.Should = union(sc.Should, terms.Should)
	sc.Negate = union(sc.Negate, terms.Negate)
	sc.LastQuery = text
	return sc
}

// Terms rebuilds the bucket view the scoring engine consumes.
func Terms(sc *models.SearchContext) nlu.Terms {
	return nlu.Terms{Must: sc.Must, Should: sc.Should, Negate: sc.Negate}
}

func union(base, extra []string) []string {
	seen := make(map[string]bool, len(base))
	for _, t := range base {
		seen[t] = true
	}
	for _, t := range extra {
		if !seen[t] {
			seen[t] = true
			base = append(base, t)
		}
	}
	return base
}
