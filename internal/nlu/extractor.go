// Package nlu holds the language-understanding collaborators: search-term
// extraction from free text and guarded answer generation over an allowed
// product set.
package nlu

import (
	"context"
	"strings"

	"github.com/distrivet/asistente-backend/internal/models"
)

// Terms buckets the extracted search vocabulary of one query turn.
type Terms struct {
	Must   []string `json:"must"`
	Should []string `json:"should"`
	Negate []string `json:"negate"`
}

// TermExtractor turns free text into search term buckets.
type TermExtractor interface {
	Extract(text string) (Terms, error)
}

// AnswerGenerator produces a short reply constrained to the supplied
// product set. Implementations must never invent catalog facts.
type AnswerGenerator interface {
	GuardedAnswer(ctx context.Context, query string, allowed []models.Product) (string, error)
}

// Spanish filler vocabulary stripped before bucketing.
var stopwords = map[string]bool{
	"a": true, "al": true, "algo": true, "algun": true, "algún": true,
	"busco": true, "como": true, "con": true, "de": true, "del": true,
	"el": true, "en": true, "es": true, "la": true, "las": true,
	"le": true, "lo": true, "los": true, "me": true, "mi": true,
	"necesito": true, "o": true, "para": true, "pero": true, "por": true,
	"que": true, "qué": true, "quiero": true, "se": true, "sea": true,
	"si": true, "sin": true, "tenes": true, "tenés": true, "tengo": true,
	"tiene": true, "tienen": true, "un": true, "una": true, "uno": true,
	"y": true, "ya": true,
}

// negation markers: the following token lands in the negate bucket.
var negationMarkers = map[string]bool{"sin": true, "menos": true, "excepto": true, "no": true}

// soft qualifiers land in should rather than must.
var softQualifiers = map[string]bool{
	"barato": true, "economico": true, "económico": true, "chico": true,
	"grande": true, "liquido": true, "líquido": true, "gotas": true,
	"comprimidos": true, "inyectable": true, "pipeta": true, "polvo": true,
}

// HeuristicExtractor is the default, rule-based term extractor. It is used
// directly in development and as the fallback when no model-backed
// extractor is configured.
type HeuristicExtractor struct{}

func NewHeuristicExtractor() *HeuristicExtractor {
	return &HeuristicExtractor{}
}

// Extract lowercases, tokenizes and buckets the text. Tokens after a
// negation marker go to negate, soft qualifiers to should, the rest to
// must.
func (e *HeuristicExtractor) Extract(text string) (Terms, error) {
	var terms Terms
	seen := make(map[string]bool)
	negateNext := false

	for _, tok := range Tokenize(text) {
		if negationMarkers[tok] {
			negateNext = true
			continue
		}
		if stopwords[tok] || seen[tok] {
			negateNext = false
			continue
		}
		seen[tok] = true

		switch {
		case negateNext:
			terms.Negate = append(terms.Negate, tok)
		case softQualifiers[tok]:
			terms.Should = append(terms.Should, tok)
		default:
			terms.Must = append(terms.Must, tok)
		}
		negateNext = false
	}
	return terms, nil
}

// Tokenize splits text into lowercase word tokens, dropping punctuation.
func Tokenize(text string) []string {
	lower := strings.ToLower(text)
	return strings.FieldsFunc(lower, func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z':
			return false
		case r >= '0' && r <= '9':
			return false
		case r == 'á' || r == 'é' || r == 'í' || r == 'ó' || r == 'ú' || r == 'ñ' || r == 'ü':
			return false
		}
		return true
	})
}
