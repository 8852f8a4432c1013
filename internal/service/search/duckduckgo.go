package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

const redirectPrefix = "//duckduckgo.com/l/?uddg="

// Config configures the web search client.
type Config struct {
	URL       string
	UserAgent string
	Timeout   time.Duration
}

// DuckDuckGo queries the DuckDuckGo HTML endpoint and returns result URLs.
type DuckDuckGo struct {
	endpoint   string
	userAgent  string
	timeout    time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

// NewDuckDuckGo creates a web search client. A nil httpClient uses http.DefaultClient.
func NewDuckDuckGo(cfg Config, httpClient *http.Client, logger *zap.Logger) *DuckDuckGo {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.URL == "" {
		cfg.URL = "https://html.duckduckgo.com/html/"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &DuckDuckGo{
		endpoint:   cfg.URL,
		userAgent:  cfg.UserAgent,
		timeout:    cfg.Timeout,
		httpClient: httpClient,
		logger:     logger.Named("search"),
	}
}

// Top returns at most n result URLs in ranking order.
func (d *DuckDuckGo) Top(ctx context.Context, query string, n int) ([]string, error) {
	if n <= 0 || strings.TrimSpace(query) == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.endpoint+"?q="+url.QueryEscape(query), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	urls, err := ParseResults(string(body), n)
	if err != nil {
		return nil, err
	}
	d.logger.Debug("web search finished", zap.String("query", query), zap.Int("results", len(urls)))
	return urls, nil
}

// ParseResults extracts up to max result links from a DuckDuckGo HTML page.
func ParseResults(page string, max int) ([]string, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var urls []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(urls) >= max {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" && hasClass(n, "result__a") {
			if link := cleanLink(attr(n, "href")); link != "" {
				urls = append(urls, link)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return urls, nil
}

// cleanLink unwraps DuckDuckGo redirect links and drops anything that is not absolute http(s).
func cleanLink(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, redirectPrefix) {
		u, err := url.Parse(href)
		if err != nil {
			return ""
		}
		href = u.Query().Get("uddg")
	}

	if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
		return ""
	}
	return href
}

func hasClass(n *html.Node, class string) bool {
	for _, field := range strings.Fields(attr(n, "class")) {
		if field == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
