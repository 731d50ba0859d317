package knowledge

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smallnest/brandrag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "brand_data.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("full record", func(t *testing.T) {
		path := writeSource(t, `{
			"brand": {
				"name": "TerraGrow",
				"tagline": "Soil first",
				"description": "Microbial soil enhancer",
				"benefits": ["Better yield", "Less fertilizer"],
				"purchase_links": ["https://example.com/shop"]
			},
			"products": [
				{"crop": "rice", "applications": ["basal dose"], "mechanism": "nitrogen fixation"}
			],
			"mechanism": {"microbes": ["Azotobacter: fixes nitrogen"]},
			"faqs": [{"q": "Is it organic?", "a": "Yes."}]
		}`)

		rec, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "TerraGrow", rec.Brand.Name)
		assert.Len(t, rec.Products, 1)
		assert.Equal(t, "rice", rec.Products[0].Crop)
		assert.Equal(t, []string{"Azotobacter: fixes nitrogen"}, rec.Mechanism.Microbes)
		assert.Equal(t, "Is it organic?", rec.FAQs[0].Question)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
		assert.ErrorIs(t, err, brandrag.ErrSourceNotFound)
	})

	t.Run("invalid json", func(t *testing.T) {
		path := writeSource(t, `{"brand": `)
		_, err := Load(path)
		assert.ErrorIs(t, err, brandrag.ErrMalformedKnowledge)
	})

	t.Run("missing brand name", func(t *testing.T) {
		path := writeSource(t, `{"brand": {"tagline": "no name"}}`)
		_, err := Load(path)
		assert.ErrorIs(t, err, brandrag.ErrMalformedKnowledge)
	})

	t.Run("blank brand name", func(t *testing.T) {
		path := writeSource(t, `{"brand": {"name": "   "}}`)
		_, err := Load(path)
		assert.ErrorIs(t, err, brandrag.ErrMalformedKnowledge)
	})

	t.Run("optional collections default to empty", func(t *testing.T) {
		path := writeSource(t, `{"brand": {"name": "TerraGrow"}}`)
		rec, err := Load(path)
		require.NoError(t, err)
		assert.NotNil(t, rec.Products)
		assert.Empty(t, rec.Products)
		assert.NotNil(t, rec.FAQs)
		assert.Empty(t, rec.FAQs)
		assert.NotNil(t, rec.Mechanism.Microbes)
		assert.NotNil(t, rec.Brand.Benefits)
		assert.NotNil(t, rec.Brand.PurchaseLinks)
	})
}

func TestSummary(t *testing.T) {
	t.Run("minimal record", func(t *testing.T) {
		rec := &Record{Brand: Brand{Name: "TerraGrow"}}
		rec.normalize()
		s := rec.Summary()
		assert.Contains(t, s, "Brand Knowledge Base for: TerraGrow")
		assert.Contains(t, s, "Total product/crop entries: 0")
		assert.NotContains(t, s, "Tagline:")
		assert.NotContains(t, s, "Key Benefits:")
	})

	t.Run("crop preview is capped with ellipsis", func(t *testing.T) {
		rec := &Record{Brand: Brand{Name: "TerraGrow"}}
		for i := 0; i < 15; i++ {
			rec.Products = append(rec.Products, Product{Crop: fmt.Sprintf("crop%02d", i)})
		}
		rec.normalize()
		s := rec.Summary()
		assert.Contains(t, s, "Total product/crop entries: 15")
		assert.Contains(t, s, "crop11")
		assert.NotContains(t, s, "crop12")
		assert.Contains(t, s, ", ...")
	})

	t.Run("benefits are capped at eight", func(t *testing.T) {
		rec := &Record{Brand: Brand{Name: "TerraGrow"}}
		for i := 0; i < 10; i++ {
			rec.Brand.Benefits = append(rec.Brand.Benefits, fmt.Sprintf("benefit %d", i))
		}
		rec.normalize()
		s := rec.Summary()
		assert.Contains(t, s, "- benefit 7")
		assert.NotContains(t, s, "- benefit 8")
	})

	t.Run("deterministic", func(t *testing.T) {
		rec := &Record{
			Brand:    Brand{Name: "TerraGrow", Tagline: "Soil first", Description: "Microbial soil enhancer"},
			Products: []Product{{Crop: "rice"}, {Crop: "wheat"}},
		}
		rec.normalize()
		first := rec.Summary()
		assert.Equal(t, first, rec.Summary())
		assert.Equal(t, strings.Count(first, "\n")+1, len(strings.Split(first, "\n")))
	})
}
