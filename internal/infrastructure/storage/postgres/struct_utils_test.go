package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bottega/internal/domain/catalogs/product"
	"bottega/internal/domain/finance"
)

func TestExtractDBColumnsFlattensEmbedded(t *testing.T) {
	cols := ExtractDBColumns[product.Product]()

	assert.Contains(t, cols, "id")
	assert.Contains(t, cols, "version")
	assert.Contains(t, cols, "name")
	assert.Contains(t, cols, "cost_price")
	assert.NotContains(t, cols, "-", "db:\"-\" fields are skipped")

	// Variants live in their own table.
	for _, c := range cols {
		assert.NotEqual(t, "variants", c)
	}
}

func TestStructToMap(t *testing.T) {
	p := product.NewProduct("Cappotto", "Donna")
	m := StructToMap(p)

	assert.Equal(t, p.ID, m["id"])
	assert.Equal(t, "Cappotto", m["name"])
	assert.Equal(t, 1, m["version"])
	_, hasVariants := m["variants"]
	assert.False(t, hasVariants)
}

func TestStructToMapNonStruct(t *testing.T) {
	assert.Nil(t, StructToMap(42))
}

func TestExtractDBColumnsRecord(t *testing.T) {
	cols := ExtractDBColumns[finance.Record]()
	assert.Contains(t, cols, "invoice_id")
	assert.Contains(t, cols, "is_editable")
}
