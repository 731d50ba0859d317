// Package knowledge loads and validates the structured brand knowledge
// document and builds the cached knowledge-base summary.
package knowledge

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/smallnest/brandrag"
)

// DefaultSource is the knowledge document location used when none is given,
// resolved relative to the working directory.
const DefaultSource = "brand_data.json"

// Record is the validated, normalized in-memory form of the knowledge
// document. Optional collections are always non-nil after Load so downstream
// decomposition never branches on absence.
type Record struct {
	Brand     Brand     `json:"brand"`
	Products  []Product `json:"products"`
	Mechanism Mechanism `json:"mechanism"`
	FAQs      []FAQ     `json:"faqs"`
}

// Brand holds the brand identity fields. Name is required.
type Brand struct {
	Name          string   `json:"name"`
	Tagline       string   `json:"tagline"`
	Description   string   `json:"description"`
	Benefits      []string `json:"benefits"`
	PurchaseLinks []string `json:"purchase_links"`
}

// Product is one product/crop entry.
type Product struct {
	Crop         string   `json:"crop"`
	Applications []string `json:"applications"`
	Mechanism    string   `json:"mechanism"`
}

// Mechanism holds the optional global microbe/function notes.
type Mechanism struct {
	Microbes []string `json:"microbes"`
}

// FAQ is one question/answer pair. The short JSON keys match the knowledge
// document format.
type FAQ struct {
	Question string `json:"q"`
	Answer   string `json:"a"`
}

// Load reads and validates a knowledge document.
//
// A missing file maps to brandrag.ErrSourceNotFound. Unparseable JSON or a
// missing brand name maps to brandrag.ErrMalformedKnowledge. All optional
// collections default to empty, deliberately, so partial knowledge bases
// still build.
func Load(source string) (*Record, error) {
	if source == "" {
		source = DefaultSource
	}

	data, err := os.ReadFile(source)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", brandrag.ErrSourceNotFound, source)
		}
		return nil, fmt.Errorf("reading %s: %w", source, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", brandrag.ErrMalformedKnowledge, source, err)
	}

	if strings.TrimSpace(rec.Brand.Name) == "" {
		return nil, fmt.Errorf("%w: brand.name is required", brandrag.ErrMalformedKnowledge)
	}

	rec.normalize()
	return &rec, nil
}

// normalize replaces nil optional slices with empty ones.
func (r *Record) normalize() {
	if r.Brand.Benefits == nil {
		r.Brand.Benefits = []string{}
	}
	if r.Brand.PurchaseLinks == nil {
		r.Brand.PurchaseLinks = []string{}
	}
	if r.Products == nil {
		r.Products = []Product{}
	}
	if r.Mechanism.Microbes == nil {
		r.Mechanism.Microbes = []string{}
	}
	if r.FAQs == nil {
		r.FAQs = []FAQ{}
	}
}

const (
	maxSummaryCrops    = 12
	maxSummaryBenefits = 8
)

// Summary builds the deterministic high-level overview of the knowledge base.
// It is computed once per build and served verbatim to every query's prompt
// construction, independent of retrieval.
func (r *Record) Summary() string {
	parts := []string{
		fmt.Sprintf("Brand Knowledge Base for: %s", r.Brand.Name),
	}
	if r.Brand.Tagline != "" {
		parts = append(parts, fmt.Sprintf("Tagline: %s", r.Brand.Tagline))
	}
	if r.Brand.Description != "" {
		parts = append(parts, fmt.Sprintf("Description: %s", r.Brand.Description))
	}

	parts = append(parts, fmt.Sprintf("Total product/crop entries: %d", len(r.Products)))
	if len(r.Products) > 0 {
		crops := make([]string, 0, maxSummaryCrops)
		for i, p := range r.Products {
			if i == maxSummaryCrops {
				break
			}
			crop := p.Crop
			if crop == "" {
				crop = "N/A"
			}
			crops = append(crops, crop)
		}
		preview := strings.Join(crops, ", ")
		if len(r.Products) > maxSummaryCrops {
			preview += ", ..."
		}
		parts = append(parts, fmt.Sprintf("Crops/segments covered: %s", preview))
	}

	if len(r.Brand.Benefits) > 0 {
		parts = append(parts, "Key Benefits:")
		for i, b := range r.Brand.Benefits {
			if i == maxSummaryBenefits {
				break
			}
			parts = append(parts, fmt.Sprintf("- %s", b))
		}
	}

	return strings.Join(parts, "\n")
}
