// Package feed discovers candidate handles from an HTTP feed.
//
// The feed is treated as an unordered stream of raw strings with no
// uniqueness guarantee; the pipeline's enqueue gate owns deduplication.
package feed

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/repscrub/repscrub/internal/ports"
)

// HTTPFeed implements ports.HandleSource by polling a single URL.
//
// HTML responses are parsed with goquery and candidates are the text of
// elements matching the configured CSS selector. Anything else is treated
// as plain text, one candidate per line.
type HTTPFeed struct {
	url      string
	selector string
	client   ports.HTTPClient
	log      zerolog.Logger
}

// NewHTTPFeed creates a feed source for the given URL. selector is the CSS
// selector used for HTML responses.
func NewHTTPFeed(url, selector string, client ports.HTTPClient, log zerolog.Logger) *HTTPFeed {
	return &HTTPFeed{url: url, selector: selector, client: client, log: log}
}

// Fetch retrieves the feed once and extracts candidate handle strings.
func (f *HTTPFeed) Fetch(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "repscrub/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned %s", resp.Status)
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		doc, err := goquery.NewDocumentFromReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("parse feed document: %w", err)
		}

		var candidates []string
		doc.Find(f.selector).Each(func(_ int, sel *goquery.Selection) {
			if text := strings.TrimSpace(sel.Text()); text != "" {
				candidates = append(candidates, text)
			}
		})
		return candidates, nil
	}

	var candidates []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			candidates = append(candidates, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read feed body: %w", err)
	}
	return candidates, nil
}
