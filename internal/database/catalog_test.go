package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProductFilter_Where(t *testing.T) {
	t.Run("no filters", func(t *testing.T) {
		where, args := ProductFilter{}.where()
		assert.Empty(t, where)
		assert.Empty(t, args)
	})

	t.Run("search escapes like wildcards", func(t *testing.T) {
		where, args := ProductFilter{Search: `50%_off\now`, ActiveOnly: true}.where()
		assert.Equal(t, " WHERE p.active AND (p.name ILIKE $1 OR p.description ILIKE $1)", where)
		assert.Equal(t, []any{`%50\%\_off\\now%`}, args)
	})

	t.Run("category and search are numbered in order", func(t *testing.T) {
		where, args := ProductFilter{CategorySlug: "shoes", Search: "run"}.where()
		assert.Equal(t, " WHERE c.slug = $1 AND (p.name ILIKE $2 OR p.description ILIKE $2)", where)
		assert.Equal(t, []any{"shoes", "%run%"}, args)
	})
}
