package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/zhouzirui/wikichat/internal/model/lookup"
)

// ErrPageNotFound is returned when a topic resolves to no page.
var ErrPageNotFound = errors.New("wikipedia page not found")

// Config configures the MediaWiki client.
type Config struct {
	APIURL    string
	UserAgent string
	Timeout   time.Duration
}

// Client talks to the MediaWiki action API.
type Client struct {
	apiURL     string
	userAgent  string
	timeout    time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates an encyclopedia client. A nil httpClient uses http.DefaultClient.
func NewClient(cfg Config, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0"
	}

	return &Client{
		apiURL:     cfg.APIURL,
		userAgent:  cfg.UserAgent,
		timeout:    cfg.Timeout,
		httpClient: httpClient,
		logger:     logger.Named("wiki"),
	}
}

type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

type apiPage struct {
	PageID    int    `json:"pageid"`
	Title     string `json:"title"`
	Missing   bool   `json:"missing"`
	Invalid   bool   `json:"invalid"`
	Extract   string `json:"extract"`
	PageProps struct {
		Disambiguation *string `json:"disambiguation"`
	} `json:"pageprops"`
	ImageInfo []struct {
		URL string `json:"url"`
	} `json:"imageinfo"`
}

type parseResponse struct {
	Error *apiError `json:"error"`
	Parse struct {
		Title string `json:"title"`
		Text  string `json:"text"`
	} `json:"parse"`
}

type apiResponse struct {
	Error *apiError `json:"error"`
	Query struct {
		SearchInfo struct {
			Suggestion string `json:"suggestion"`
		} `json:"searchinfo"`
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
		Pages []apiPage `json:"pages"`
	} `json:"query"`
}

// Summary returns the first sentences of the page best matching topic.
func (c *Client) Summary(ctx context.Context, topic string, sentences int) lookup.SummaryResult {
	title, err := c.resolveTitle(ctx, topic)
	if err != nil {
		if errors.Is(err, ErrPageNotFound) {
			return lookup.NotFound()
		}
		return lookup.Failed(err)
	}

	params := url.Values{}
	params.Set("prop", "extracts|pageprops")
	params.Set("ppprop", "disambiguation")
	params.Set("explaintext", "1")
	params.Set("exsentences", strconv.Itoa(sentences))
	params.Set("redirects", "1")
	params.Set("titles", title)

	resp, err := c.query(ctx, params)
	if err != nil {
		return lookup.Failed(err)
	}

	page, ok := firstPage(resp)
	if !ok {
		return lookup.NotFound()
	}

	if page.PageProps.Disambiguation != nil {
		options, err := c.disambiguationOptions(ctx, page.Title)
		if err != nil {
			return lookup.Failed(err)
		}
		c.logger.Debug("ambiguous topic", zap.String("title", page.Title), zap.Int("options", len(options)))
		if len(options) == 0 {
			return lookup.NotFound()
		}
		return lookup.Ambiguous(options)
	}

	return lookup.Found(strings.TrimSpace(page.Extract))
}

// ImageFor returns the first renderable image URL of the page best matching topic.
func (c *Client) ImageFor(ctx context.Context, topic string) (string, error) {
	title, err := c.resolveTitle(ctx, topic)
	if err != nil {
		return "", err
	}

	params := url.Values{}
	params.Set("generator", "images")
	params.Set("gimlimit", "50")
	params.Set("prop", "imageinfo")
	params.Set("iiprop", "url")
	params.Set("redirects", "1")
	params.Set("titles", title)

	resp, err := c.query(ctx, params)
	if err != nil {
		return "", err
	}

	for _, page := range resp.Query.Pages {
		for _, info := range page.ImageInfo {
			if lookup.IsImageURL(info.URL) {
				return info.URL, nil
			}
		}
	}
	return "", nil
}

// resolveTitle maps free text to a page title using the search suggestion when present.
func (c *Client) resolveTitle(ctx context.Context, topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", ErrPageNotFound
	}

	params := url.Values{}
	params.Set("list", "search")
	params.Set("srsearch", topic)
	params.Set("srlimit", "1")
	params.Set("srinfo", "suggestion")
	params.Set("srprop", "")

	resp, err := c.query(ctx, params)
	if err != nil {
		return "", err
	}

	if suggestion := strings.TrimSpace(resp.Query.SearchInfo.Suggestion); suggestion != "" {
		return suggestion, nil
	}
	if len(resp.Query.Search) == 0 {
		return "", ErrPageNotFound
	}
	return resp.Query.Search[0].Title, nil
}

// disambiguationOptions lists the entries of a disambiguation page in page
// order: the first article link of every list item.
func (c *Client) disambiguationOptions(ctx context.Context, title string) ([]string, error) {
	params := url.Values{}
	params.Set("page", title)
	params.Set("prop", "text")
	params.Set("redirects", "1")

	var resp parseResponse
	if err := c.call(ctx, "parse", params, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("wikipedia api error %s: %s", resp.Error.Code, resp.Error.Info)
	}

	doc, err := html.Parse(strings.NewReader(resp.Parse.Text))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page html: %w", err)
	}
	return listOptions(doc), nil
}

func listOptions(doc *html.Node) []string {
	var options []string
	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "li" && !strings.Contains(attr(n, "class"), "tocsection") {
			if text := firstArticleLink(n); text != "" && !seen[text] {
				seen[text] = true
				options = append(options, text)
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return options
}

// firstArticleLink returns the text of the first link into the article namespace.
func firstArticleLink(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "a" {
		href := attr(n, "href")
		if strings.HasPrefix(href, "/wiki/") && !strings.Contains(href, ":") {
			return strings.Join(strings.Fields(textOf(n)), " ")
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if text := firstArticleLink(child); text != "" {
			return text
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		sb.WriteString(textOf(child))
	}
	return sb.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func firstPage(resp *apiResponse) (apiPage, bool) {
	if len(resp.Query.Pages) == 0 {
		return apiPage{}, false
	}
	page := resp.Query.Pages[0]
	if page.Missing || page.Invalid {
		return apiPage{}, false
	}
	return page, true
}

func (c *Client) query(ctx context.Context, params url.Values) (*apiResponse, error) {
	var decoded apiResponse
	if err := c.call(ctx, "query", params, &decoded); err != nil {
		return nil, err
	}
	if decoded.Error != nil {
		return nil, fmt.Errorf("wikipedia api error %s: %s", decoded.Error.Code, decoded.Error.Info)
	}
	return &decoded, nil
}

func (c *Client) call(ctx context.Context, action string, params url.Values, out any) error {
	params.Set("action", action)
	params.Set("format", "json")
	params.Set("formatversion", "2")

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
