package links

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_DefaultSources(t *testing.T) {
	got := NewResolver(nil).BuildLinks("derivative of x^2 & co")

	require.Len(t, got, 3)
	assert.Equal(t, "Habr", got[0].Site)
	assert.Equal(t, "https://habr.com/ru/search/?q=derivative+of+x%5E2+%26+co", got[0].URL)
	assert.Equal(t, got[0].URL, got[0].DisplayURL)
	assert.Equal(t, "CyberLeninka", got[1].Site)
	assert.Equal(t, "https://cyberleninka.ru/search?q=derivative+of+x%5E2+%26+co", got[1].URL)
	assert.Equal(t, "Google Scholar", got[2].Site)
	assert.Equal(t, "https://scholar.google.com/scholar?q=derivative+of+x%5E2+%26+co", got[2].URL)
}

func TestResolver_EmptyQueryStillReturnsEverySource(t *testing.T) {
	got := NewResolver(nil).BuildLinks("")
	require.Len(t, got, 3)
	assert.Equal(t, "https://habr.com/ru/search/?q=", got[0].URL)
}

func TestResolver_CustomSources(t *testing.T) {
	r := NewResolver([]Source{{Site: "Wiki", Prefix: "https://en.wikipedia.org/w/index.php?search="}})
	got := r.BuildLinks("производная")

	require.Len(t, got, 1)
	assert.Equal(t, "https://en.wikipedia.org/w/index.php?search=%D0%BF%D1%80%D0%BE%D0%B8%D0%B7%D0%B2%D0%BE%D0%B4%D0%BD%D0%B0%D1%8F", got[0].URL)
}
