package search

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultsPage = `<html><body>
<div class="results">
  <div class="result results_links results_links_deep web-result">
    <h2 class="result__title"><a rel="nofollow" class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2Fdoc%2F&amp;rut=abc">Documentation</a></h2>
    <a class="result__snippet" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2Fdoc%2F">The Go docs</a>
  </div>
  <div class="result results_links results_links_deep web-result">
    <h2 class="result__title"><a class="result__a" href="https://pkg.go.dev/">Packages</a></h2>
  </div>
  <div class="result results_links results_links_deep web-result">
    <h2 class="result__title"><a class="result__a" href="/relative/ad">Ad</a></h2>
  </div>
  <div class="result results_links results_links_deep web-result">
    <h2 class="result__title"><a class="result__a" href="https://go.dev/blog/">Blog</a></h2>
  </div>
  <div class="result results_links results_links_deep web-result">
    <h2 class="result__title"><a class="result__a" href="https://tour.golang.org/">Tour</a></h2>
  </div>
</div>
</body></html>`

func TestParseResults(t *testing.T) {
	urls, err := ParseResults(resultsPage, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://go.dev/doc/", "https://pkg.go.dev/", "https://go.dev/blog/"}, urls)
}

func TestParseResultsKeepsTargetQuery(t *testing.T) {
	page := `<a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fwatch%3Fv%3D1%26list%3D2&amp;rut=abc">Video</a>`

	urls, err := ParseResults(page, 3)

	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/watch?v=1&list=2"}, urls)
}

func TestParseResultsEmptyPage(t *testing.T) {
	urls, err := ParseResults(`<html><body><div class="no-results">No results.</div></body></html>`, 3)
	require.NoError(t, err)
	assert.Empty(t, urls)
}

func TestTopQueriesEndpoint(t *testing.T) {
	var gotQuery, gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotAgent = r.Header.Get("User-Agent")
		_, _ = io.WriteString(w, resultsPage)
	}))
	defer srv.Close()

	client := NewDuckDuckGo(Config{URL: srv.URL}, srv.Client(), nil)
	urls, err := client.Top(context.Background(), "golang docs", 2)

	require.NoError(t, err)
	assert.Equal(t, []string{"https://go.dev/doc/", "https://pkg.go.dev/"}, urls)
	assert.Equal(t, "golang docs", gotQuery)
	assert.Equal(t, "Mozilla/5.0", gotAgent)
}

func TestTopHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewDuckDuckGo(Config{URL: srv.URL}, srv.Client(), nil)
	_, err := client.Top(context.Background(), "golang", 3)

	assert.ErrorContains(t, err, "HTTP 429")
}

func TestTopSkipsEmptyQuery(t *testing.T) {
	client := NewDuckDuckGo(Config{URL: "http://127.0.0.1:0"}, nil, nil)
	urls, err := client.Top(context.Background(), "  ", 3)
	require.NoError(t, err)
	assert.Nil(t, urls)
}
