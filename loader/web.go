package loader

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/smallnest/brandrag"
)

// Web loads scraped documents from a fixed set of URLs, typically the
// brand's public pages. Script, style, and noscript elements are dropped and
// the remaining body text is collapsed to single spaces.
type Web struct {
	urls   []string
	client *http.Client
	logger brandrag.Logger
}

var _ brandrag.DocumentLoader = (*Web)(nil)

// NewWeb creates a loader for the given URLs. A nil client gets a default
// with a 30 second timeout.
func NewWeb(urls []string, client *http.Client, logger brandrag.Logger) *Web {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = brandrag.NopLogger{}
	}
	return &Web{urls: urls, client: client, logger: logger}
}

// Load fetches every URL and extracts its visible text. A page that fails to
// fetch is logged and skipped so one dead link does not sink the rebuild.
func (w *Web) Load(ctx context.Context) ([]brandrag.Document, error) {
	var docs []brandrag.Document
	for _, url := range w.urls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := w.fetch(ctx, url)
		if err != nil {
			w.logger.Warn("skipping %s: %v", url, err)
			continue
		}
		if text == "" {
			continue
		}

		docs = append(docs, brandrag.Document{
			ID:       uuid.NewString(),
			Type:     brandrag.DocumentTypeScraped,
			Content:  text,
			Metadata: map[string]any{"source": url},
		})
	}
	w.logger.Debug("loaded %d scraped documents from %d pages", len(docs), len(w.urls))
	return docs, nil
}

func (w *Web) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	doc.Find("script, style, noscript").Remove()
	text := doc.Find("body").Text()
	return strings.Join(strings.Fields(text), " "), nil
}
