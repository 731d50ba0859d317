// Package decompose turns a validated knowledge record into atomic, typed
// documents ready for embedding.
//
// Granularity drives retrieval quality: one oversized document buries the
// answer in noise, one fragment per field loses context. The policy is one
// overview document for the brand, one document per product and per FAQ, and
// mechanism notes as their own documents, with anything above the length
// bound split into overlapping sub-chunks.
package decompose

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/smallnest/brandrag"
	"github.com/smallnest/brandrag/knowledge"
	"github.com/smallnest/brandrag/splitter"
)

// Decomposer emits atomic documents from a knowledge record.
type Decomposer struct {
	split brandrag.TextSplitter
}

// Option configures the Decomposer.
type Option func(*Decomposer)

// WithSplitter replaces the default recursive character splitter.
func WithSplitter(s brandrag.TextSplitter) Option {
	return func(d *Decomposer) {
		d.split = s
	}
}

// New creates a Decomposer with the default chunking policy.
func New(opts ...Option) *Decomposer {
	d := &Decomposer{
		split: splitter.New(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decompose emits documents in deterministic order: brand overview, mechanism
// notes, products in source order, FAQs in source order. The ordering only
// matters for reproducibility of the index contents, not for ranking.
func (d *Decomposer) Decompose(rec *knowledge.Record) []brandrag.Document {
	var docs []brandrag.Document

	docs = d.emit(docs, brandrag.DocumentTypeBrandOverview, brandOverviewText(rec.Brand), nil)

	if len(rec.Mechanism.Microbes) > 0 {
		lines := []string{"Microbial Mechanism & Functions:"}
		for _, m := range rec.Mechanism.Microbes {
			lines = append(lines, "- "+m)
		}
		docs = d.emit(docs, brandrag.DocumentTypeMechanism, strings.Join(lines, "\n"), nil)
	}

	for _, p := range rec.Products {
		docs = d.emit(docs, brandrag.DocumentTypeProduct, productText(p), map[string]any{
			"crop": p.Crop,
		})
	}

	for i, faq := range rec.FAQs {
		q := strings.TrimSpace(faq.Question)
		a := strings.TrimSpace(faq.Answer)
		if q == "" && a == "" {
			// No retrievable signal.
			continue
		}
		text := fmt.Sprintf("Q: %s\nA: %s", q, a)
		docs = d.emit(docs, brandrag.DocumentTypeFAQ, text, map[string]any{
			"id": i + 1,
		})
	}

	return docs
}

// emit appends one document per chunk of text. Chunks inherit the parent's
// type and metadata; empty text emits nothing.
func (d *Decomposer) emit(docs []brandrag.Document, typ brandrag.DocumentType, text string, metadata map[string]any) []brandrag.Document {
	chunks := d.split.SplitText(text)
	for i, chunk := range chunks {
		md := make(map[string]any, len(metadata)+1)
		for k, v := range metadata {
			md[k] = v
		}
		if len(chunks) > 1 {
			md["chunk"] = i
		}
		if len(md) == 0 {
			md = nil
		}
		docs = append(docs, brandrag.Document{
			ID:       uuid.NewString(),
			Type:     typ,
			Content:  chunk,
			Metadata: md,
		})
	}
	return docs
}

func brandOverviewText(b knowledge.Brand) string {
	lines := []string{
		"Brand: " + b.Name,
		"Tagline: " + b.Tagline,
		"Description: " + b.Description,
	}
	if len(b.Benefits) > 0 {
		lines = append(lines, "Benefits:")
		for _, benefit := range b.Benefits {
			lines = append(lines, "- "+benefit)
		}
	}
	if len(b.PurchaseLinks) > 0 {
		lines = append(lines, "Purchase Links:")
		for _, link := range b.PurchaseLinks {
			lines = append(lines, "- "+link)
		}
	}
	return strings.Join(lines, "\n")
}

func productText(p knowledge.Product) string {
	lines := []string{"Crop/Product: " + p.Crop}
	if len(p.Applications) > 0 {
		lines = append(lines, "Applications:")
		for _, a := range p.Applications {
			lines = append(lines, "- "+a)
		}
	}
	if p.Mechanism != "" {
		lines = append(lines, "Mechanism: "+p.Mechanism)
	}
	return strings.Join(lines, "\n")
}
