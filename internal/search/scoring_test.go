package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distrivet/asistente-backend/internal/models"
	"github.com/distrivet/asistente-backend/internal/nlu"
)

type fakeCatalog struct {
	products []models.Product
}

func (f *fakeCatalog) SearchProducts(term string) ([]models.Product, error) {
	var out []models.Product
	for _, p := range f.products {
		if !p.Visible || p.Discontinuado {
			continue
		}
		haystack := strings.ToLower(p.Nombre + " " + p.Marca + " " + p.Presentacion + " " + p.Droga + " " + p.Accion)
		if strings.Contains(haystack, strings.ToLower(term)) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeCatalog) TopStockProducts(n int) ([]models.Product, error) {
	var visible []models.Product
	for _, p := range f.products {
		if p.Visible && !p.Discontinuado {
			visible = append(visible, p)
		}
	}
	for i := 0; i < len(visible); i++ {
		for j := i + 1; j < len(visible); j++ {
			if visible[j].Stock > visible[i].Stock {
				visible[i], visible[j] = visible[j], visible[i]
			}
		}
	}
	if len(visible) > n {
		visible = visible[:n]
	}
	return visible, nil
}

func product(id uint, nombre, droga string, stock int) models.Product {
	p := models.Product{Nombre: nombre, Droga: droga, Stock: stock, Visible: true}
	p.ID = id
	return p
}

func TestPrefixMatchOutranksEqualTokenCount(t *testing.T) {
	withPrefix := product(1, "Otimax gotas", "gentamicina", 10)
	withoutPrefix := product(2, "Vetcare otimax plus", "gentamicina", 10)

	ranked := Score([]string{"otimax"}, []models.Product{withoutPrefix, withPrefix})
	assert.Equal(t, uint(1), ranked[0].ID)
}

func TestStockBreaksTies(t *testing.T) {
	lowStock := product(1, "Pulguicida A", "fipronil", 5)
	highStock := product(2, "Pulguicida B", "fipronil", 900)

	ranked := Score([]string{"fipronil"}, []models.Product{lowStock, highStock})
	assert.Equal(t, uint(2), ranked[0].ID)
}

func TestTokenRelevanceDominatesStock(t *testing.T) {
	relevant := product(1, "Antiparasitario total", "ivermectina", 0)
	popular := product(2, "Shampoo neutro", "", 999)

	ranked := Score([]string{"antiparasitario"}, []models.Product{popular, relevant})
	assert.Equal(t, uint(1), ranked[0].ID)
}

func TestRunSplitsTopAndSimilares(t *testing.T) {
	catalog := &fakeCatalog{products: []models.Product{
		product(1, "Otimax gotas", "gentamicina otitis", 50),
		product(2, "Oticure", "otitis", 30),
		product(3, "Otisol plus", "otitis", 20),
		product(4, "Otifin", "otitis", 10),
		product(5, "Otiderm", "otitis", 5),
	}}

	res, err := Run(catalog, nlu.Terms{Must: []string{"otitis"}})
	require.NoError(t, err)
	require.NotNil(t, res.Top)
	assert.False(t, res.Fallback)
	assert.Len(t, res.Similares, 3)
}

func TestRunFallbackOnZeroMatches(t *testing.T) {
	catalog := &fakeCatalog{products: []models.Product{
		product(1, "Otimax gotas", "otitis", 50),
		product(2, "Oticure", "otitis", 90),
	}}

	res, err := Run(catalog, nlu.Terms{Must: []string{"tractor"}})
	require.NoError(t, err)
	assert.Nil(t, res.Top)
	assert.True(t, res.Fallback)
	require.Len(t, res.Similares, 2)
	// fallback ordered by descending stock
	assert.Equal(t, uint(2), res.Similares[0].ID)
}

func TestRunRespectsNegate(t *testing.T) {
	catalog := &fakeCatalog{products: []models.Product{
		product(1, "Antipulgas pipeta", "fipronil", 50),
		product(2, "Antipulgas comprimidos", "fipronil", 30),
	}}

	res, err := Run(catalog, nlu.Terms{Must: []string{"antipulgas"}, Negate: []string{"pipeta"}})
	require.NoError(t, err)
	require.NotNil(t, res.Top)
	assert.Equal(t, uint(2), res.Top.ID)
	assert.Empty(t, res.Similares)
}

func TestShortlistSkipsAlreadyShown(t *testing.T) {
	sc := models.NewSearchContext()
	sc.MarkShown(2)

	top := product(1, "Otimax", "otitis", 10)
	res := &Result{Top: &top, Similares: []models.Product{
		product(2, "Oticure", "otitis", 5),
		product(3, "Otisol", "otitis", 5),
	}}

	shortlist := ShortlistFor(sc, res, 3)
	require.Len(t, shortlist, 2)
	assert.Equal(t, uint(1), shortlist[0].ID)
	assert.Equal(t, uint(3), shortlist[1].ID)
}
