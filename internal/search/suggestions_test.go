package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beastfood/pkg/models"
)

func TestBankLookupFoldsAccentsAndCase(t *testing.T) {
	b := newTestBank(t)
	require.Greater(t, b.Len(), 5)

	out := b.Lookup("  Churrascaria perto  ")
	require.NotEmpty(t, out)
	for _, c := range out {
		assert.Equal(t, models.SourceLocalSuggestions, c.Source)
		assert.Equal(t, "SP", c.State)
	}

	assert.NotEmpty(t, b.Lookup("AÇAÍ"))
	assert.Empty(t, b.Lookup("xyzzy"))
	assert.Empty(t, b.Lookup("   "))
}

func TestParseBankRejectsEmptyKey(t *testing.T) {
	_, err := ParseBank([]byte("suggestions:\n  - key: \"\"\n    templates: []\n"), "Franca", "SP")
	assert.Error(t, err)

	_, err = LoadBank("/does/not/exist.yaml", "Franca", "SP")
	assert.Error(t, err)
}

func TestFallbackIsReproducibleForSeed(t *testing.T) {
	a := NewFallback("Franca", "SP", 42).Generate("hamburguer artesanal", models.SearchFilters{MaxPrice: 2})
	b := NewFallback("Franca", "SP", 42).Generate("hamburguer artesanal", models.SearchFilters{MaxPrice: 2})

	require.Len(t, a, 3)
	for i := range a {
		assert.Equal(t, a[i].Name, b[i].Name)
		assert.Equal(t, a[i].Address, b[i].Address)
		assert.Contains(t, a[i].Name, "Hamburguer Artesanal")
		assert.LessOrEqual(t, a[i].PriceLevel, 2)
		assert.Equal(t, models.SourceFallback, a[i].Source)
		assert.True(t, a[i].IsTargetCity)
	}
}

func TestGuessCategory(t *testing.T) {
	assert.Equal(t, "bakery", guessCategory("padaria", ""))
	assert.Equal(t, "cafe", guessCategory("Café colonial", ""))
	assert.Equal(t, "bar", guessCategory("boteco", ""))
	assert.Equal(t, "restaurant", guessCategory("sushi", ""))
	assert.Equal(t, "pub", guessCategory("sushi", " Pub "))
	assert.Equal(t, "sushi", guessCategory("xyzzy", "sushi"))
}
