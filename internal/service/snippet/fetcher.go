package snippet

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

const (
	// NoSnippet is returned when a page has neither a description nor a paragraph.
	NoSnippet = "No snippet available."
	// FetchFailed is returned when the page cannot be fetched or parsed.
	FetchFailed = "Failed to fetch snippet."
)

// Config configures the page fetcher.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Fetcher describes web pages in one short line.
type Fetcher struct {
	userAgent  string
	timeout    time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

// NewFetcher creates a snippet fetcher. A nil httpClient uses http.DefaultClient.
func NewFetcher(cfg Config, httpClient *http.Client, logger *zap.Logger) *Fetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	return &Fetcher{
		userAgent:  cfg.UserAgent,
		timeout:    cfg.Timeout,
		httpClient: httpClient,
		logger:     logger.Named("snippet"),
	}
}

// Snippet prefers the page's meta description, then its first paragraph.
// Any failure collapses into FetchFailed.
func (f *Fetcher) Snippet(ctx context.Context, url string) string {
	page, err := f.fetch(ctx, url)
	if err != nil {
		f.logger.Debug("snippet fetch failed", zap.String("url", url), zap.Error(err))
		return FetchFailed
	}

	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return FetchFailed
	}
	return Extract(doc)
}

// Extract picks the description text out of a parsed document.
func Extract(doc *html.Node) string {
	if description := metaDescription(doc); description != "" {
		return description
	}
	if p := findFirst(doc, func(n *html.Node) bool { return n.Data == "p" }); p != nil {
		return textContent(p)
	}
	return NoSnippet
}

func (f *Fetcher) fetch(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// Error pages are still parsed; they often carry a usable description.
	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	return string(body), nil
}

func metaDescription(doc *html.Node) string {
	meta := findFirst(doc, func(n *html.Node) bool {
		return n.Data == "meta" && strings.EqualFold(attr(n, "name"), "description")
	})
	if meta == nil {
		return ""
	}
	return strings.TrimSpace(attr(meta, "content"))
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
