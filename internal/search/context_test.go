package search

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/distrivet/asistente-backend/internal/models"
	"github.com/distrivet/asistente-backend/internal/nlu"
)

func extract(t *testing.T, text string) nlu.Terms {
	t.Helper()
	terms, err := nlu.NewHeuristicExtractor().Extract(text)
	assert.NoError(t, err)
	return terms
}

func TestFreshWhenNoPriorQuery(t *testing.T) {
	assert.True(t, IsFresh(nil, "otitis en gatos", extract(t, "otitis en gatos")))

	sc := models.NewSearchContext()
	assert.True(t, IsFresh(sc, "otitis en gatos", extract(t, "otitis en gatos")))
}

func TestFreshOnTopicKill(t *testing.T) {
	sc := models.NewSearchContext()
	sc.Must = []string{"otitis"}
	sc.LastQuery = "algo para otitis"

	text := "busco antiparasitario"
	assert.True(t, IsFresh(sc, text, extract(t, text)))
}

func TestContinuationOnRefinement(t *testing.T) {
	sc := models.NewSearchContext()
	sc.Must = []string{"otitis"}
	sc.LastQuery = "algo para otitis"

	text := "y que sea en gotas"
	terms := extract(t, text)
	assert.False(t, IsFresh(sc, text, terms))

	merged := Accumulate(sc, text, terms)
	assert.Equal(t, []string{"otitis"}, merged.Must)
	assert.Equal(t, []string{"gotas"}, merged.Should)
	assert.Equal(t, "y que sea en gotas", merged.LastQuery)
}

func TestAccumulateResetsOnFresh(t *testing.T) {
	sc := models.NewSearchContext()
	sc.Must = []string{"otitis"}
	sc.LastQuery = "algo para otitis"
	sc.Hops = 2
	sc.MarkShown(7, 9)

	text := "busco antiparasitario"
	fresh := Accumulate(sc, text, extract(t, text))
	assert.Equal(t, []string{"antiparasitario"}, fresh.Must)
	assert.Zero(t, fresh.Hops)
	assert.Empty(t, fresh.LastShownIDs)
}

func TestAccumulateMergesDeduplicated(t *testing.T) {
	sc := models.NewSearchContext()
	sc.Must = []string{"otitis", "gatos"}
	sc.LastQuery = "otitis gatos"

	text := "para gatos adultos"
	merged := Accumulate(sc, text, extract(t, text))
	assert.Equal(t, []string{"otitis", "gatos", "adultos"}, merged.Must)
}
