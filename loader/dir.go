// Package loader provides supplemental document sources that enrich the
// structured knowledge base with scraped content, either from local files or
// from web pages.
package loader

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/smallnest/brandrag"
)

// Dir loads scraped documents from a directory. Plain .txt files are taken
// verbatim; .md files are rendered and stripped down to their text content.
// A missing directory is not an error, it simply yields no documents.
type Dir struct {
	path   string
	logger brandrag.Logger
}

var _ brandrag.DocumentLoader = (*Dir)(nil)

// NewDir creates a loader over the given directory.
func NewDir(path string, logger brandrag.Logger) *Dir {
	if logger == nil {
		logger = brandrag.NopLogger{}
	}
	return &Dir{path: path, logger: logger}
}

// Load reads every .txt and .md file in the directory, non-recursively.
func (d *Dir) Load(ctx context.Context) ([]brandrag.Document, error) {
	entries, err := os.ReadDir(d.path)
	if errors.Is(err, fs.ErrNotExist) {
		d.logger.Debug("scraped content directory %s does not exist, skipping", d.path)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read scraped content directory: %w", err)
	}

	var docs []brandrag.Document
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".txt" && ext != ".md" {
			continue
		}

		raw, err := os.ReadFile(filepath.Join(d.path, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}

		text := string(raw)
		if ext == ".md" {
			text = markdownToText(text)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		docs = append(docs, brandrag.Document{
			ID:       uuid.NewString(),
			Type:     brandrag.DocumentTypeScraped,
			Content:  text,
			Metadata: map[string]any{"source": entry.Name()},
		})
	}
	d.logger.Debug("loaded %d scraped documents from %s", len(docs), d.path)
	return docs, nil
}

// markdownToText renders markdown to HTML and strips every tag, leaving the
// readable text.
func markdownToText(md string) string {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	rendered := markdown.ToHTML([]byte(md), p, renderer)

	stripped := bluemonday.StrictPolicy().Sanitize(string(rendered))
	return html.UnescapeString(stripped)
}
