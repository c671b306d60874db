package nlu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractBucketsTerms(t *testing.T) {
	e := NewHeuristicExtractor()

	terms, err := e.Extract("busco un antiparasitario para perros sin pipeta")
	assert.NoError(t, err)
	assert.Equal(t, []string{"antiparasitario", "perros"}, terms.Must)
	assert.Equal(t, []string{"pipeta"}, terms.Negate)
	assert.Empty(t, terms.Should)
}

func TestExtractSoftQualifiers(t *testing.T) {
	e := NewHeuristicExtractor()

	terms, err := e.Extract("algo para otitis que sea en gotas")
	assert.NoError(t, err)
	assert.Equal(t, []string{"otitis"}, terms.Must)
	assert.Equal(t, []string{"gotas"}, terms.Should)
}

func TestExtractDeduplicates(t *testing.T) {
	e := NewHeuristicExtractor()

	terms, err := e.Extract("otitis otitis gatos")
	assert.NoError(t, err)
	assert.Equal(t, []string{"otitis", "gatos"}, terms.Must)
}

func TestTokenizeKeepsAccents(t *testing.T) {
	assert.Equal(t, []string{"antibiótico", "inyección", "500mg"}, Tokenize("antibiótico, inyección (500mg)"))
}
