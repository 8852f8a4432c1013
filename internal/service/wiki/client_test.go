package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/wikichat/internal/model/lookup"
)

// fakeAPI answers the handful of MediaWiki queries the client issues.
type fakeAPI struct {
	search     map[string]string // srsearch -> first title
	suggestion map[string]string
	pages      map[string]string // title -> JSON page object
	html       map[string]string // title -> rendered page HTML
	images     map[string]string // title -> JSON pages array
	userAgent  string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f.userAgent = r.Header.Get("User-Agent")
	w.Header().Set("Content-Type", "application/json")

	switch {
	case q.Get("action") == "parse":
		body, _ := json.Marshal(map[string]any{
			"parse": map[string]string{"title": q.Get("page"), "text": f.html[q.Get("page")]},
		})
		_, _ = w.Write(body)
	case q.Get("list") == "search":
		term := q.Get("srsearch")
		suggestion := f.suggestion[term]
		title, ok := f.search[term]
		results := "[]"
		if ok {
			results = fmt.Sprintf(`[{"ns":0,"title":%q}]`, title)
		}
		fmt.Fprintf(w, `{"query":{"searchinfo":{"suggestion":%q},"search":%s}}`, suggestion, results)
	case q.Get("generator") == "images":
		pages, ok := f.images[q.Get("titles")]
		if !ok {
			pages = "[]"
		}
		fmt.Fprintf(w, `{"query":{"pages":%s}}`, pages)
	case q.Get("prop") == "extracts|pageprops":
		page, ok := f.pages[q.Get("titles")]
		if !ok {
			page = fmt.Sprintf(`{"title":%q,"missing":true}`, q.Get("titles"))
		}
		if q.Get("exsentences") != "2" {
			http.Error(w, "unexpected sentence count", http.StatusBadRequest)
			return
		}
		fmt.Fprintf(w, `{"query":{"pages":[%s]}}`, page)
	default:
		fmt.Fprint(w, `{"error":{"code":"badquery","info":"unsupported"}}`)
	}
}

func newTestClient(t *testing.T, api http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return NewClient(Config{APIURL: srv.URL, UserAgent: "wikichat-test", Timeout: 2 * time.Second}, srv.Client(), nil)
}

func TestSummaryFound(t *testing.T) {
	api := &fakeAPI{
		search: map[string]string{"golang": "Go (programming language)"},
		pages: map[string]string{
			"Go (programming language)": `{"pageid":1,"title":"Go (programming language)","extract":"Go is a language. It is compiled."}`,
		},
	}
	client := newTestClient(t, api)

	result := client.Summary(context.Background(), "golang", 2)

	require.Equal(t, lookup.SummaryFound, result.Kind)
	assert.Equal(t, "Go is a language. It is compiled.", result.Text)
	assert.Equal(t, "wikichat-test", api.userAgent)
}

func TestSummaryUsesSuggestion(t *testing.T) {
	api := &fakeAPI{
		suggestion: map[string]string{"albert einstien": "albert einstein"},
		pages: map[string]string{
			"albert einstein": `{"pageid":2,"title":"Albert Einstein","extract":"Albert Einstein was a physicist."}`,
		},
	}
	client := newTestClient(t, api)

	result := client.Summary(context.Background(), "albert einstien", 2)

	require.Equal(t, lookup.SummaryFound, result.Kind)
	assert.Contains(t, result.Text, "physicist")
}

func TestSummaryNotFound(t *testing.T) {
	client := newTestClient(t, &fakeAPI{})

	result := client.Summary(context.Background(), "qwxzlkj", 2)
	assert.Equal(t, lookup.SummaryNotFound, result.Kind)

	result = client.Summary(context.Background(), "   ", 2)
	assert.Equal(t, lookup.SummaryNotFound, result.Kind)
}

func TestSummaryMissingPageIsNotFound(t *testing.T) {
	api := &fakeAPI{search: map[string]string{"ghost": "Ghost page"}}
	client := newTestClient(t, api)

	result := client.Summary(context.Background(), "ghost", 2)
	assert.Equal(t, lookup.SummaryNotFound, result.Kind)
}

func TestSummaryAmbiguous(t *testing.T) {
	api := &fakeAPI{
		search: map[string]string{"mercury": "Mercury"},
		pages: map[string]string{
			"Mercury": `{"pageid":3,"title":"Mercury","extract":"Mercury may refer to:","pageprops":{"disambiguation":""}}`,
		},
		html: map[string]string{
			"Mercury": `<div class="mw-parser-output"><p><b>Mercury</b> may refer to:</p>
<div id="toc"><ul><li class="toclevel-1 tocsection-1"><a href="#Science"><span>Science</span></a></li></ul></div>
<ul>
<li><a href="/wiki/Mercury_(planet)" title="Mercury (planet)">Mercury (planet)</a>, the closest planet to the Sun</li>
<li><a href="/wiki/Mercury_(element)" title="Mercury (element)">Mercury (element)</a>, a chemical element</li>
<li><a href="/wiki/Mercury_(planet)">Mercury (planet)</a> again</li>
<li>Singer <a href="/wiki/Freddie_Mercury">Freddie Mercury</a></li>
<li><a href="/wiki/Help:Disambiguation">Help</a></li>
</ul></div>`,
		},
	}
	client := newTestClient(t, api)

	result := client.Summary(context.Background(), "mercury", 2)

	require.Equal(t, lookup.SummaryAmbiguous, result.Kind)
	assert.Equal(t, []string{"Mercury (planet)", "Mercury (element)", "Freddie Mercury"}, result.Options)
}

func TestSummaryAmbiguousWithoutOptionsIsNotFound(t *testing.T) {
	api := &fakeAPI{
		search: map[string]string{"empty": "Empty"},
		pages: map[string]string{
			"Empty": `{"pageid":4,"title":"Empty","extract":"","pageprops":{"disambiguation":""}}`,
		},
		html: map[string]string{"Empty": `<div><p>Nothing listed.</p></div>`},
	}
	client := newTestClient(t, api)

	result := client.Summary(context.Background(), "empty", 2)
	assert.Equal(t, lookup.SummaryNotFound, result.Kind)
}

func TestSummaryHTTPErrorIsFailed(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))

	result := client.Summary(context.Background(), "golang", 2)

	require.Equal(t, lookup.SummaryFailed, result.Kind)
	assert.ErrorContains(t, result.Err, "502")
}

func TestSummaryAPIErrorIsFailed(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"error":{"code":"maxlag","info":"Waiting for a database server"}}`)
	}))

	result := client.Summary(context.Background(), "golang", 2)

	require.Equal(t, lookup.SummaryFailed, result.Kind)
	assert.ErrorContains(t, result.Err, "maxlag")
}

func TestImageForPicksFirstRenderableImage(t *testing.T) {
	api := &fakeAPI{
		search: map[string]string{"cat": "Cat"},
		images: map[string]string{
			"Cat": `[
				{"title":"File:Cat map.svg","imageinfo":[{"url":"https://upload.wikimedia.org/Cat_map.svg"}]},
				{"title":"File:Cat poster 1.jpg","imageinfo":[{"url":"https://upload.wikimedia.org/Cat_poster_1.JPG"}]},
				{"title":"File:Kitten.png","imageinfo":[{"url":"https://upload.wikimedia.org/Kitten.png"}]}
			]`,
		},
	}
	client := newTestClient(t, api)

	url, err := client.ImageFor(context.Background(), "cat")

	require.NoError(t, err)
	assert.Equal(t, "https://upload.wikimedia.org/Cat_poster_1.JPG", url)
}

func TestImageForWithoutImages(t *testing.T) {
	api := &fakeAPI{search: map[string]string{"void": "Void"}}
	client := newTestClient(t, api)

	url, err := client.ImageFor(context.Background(), "void")
	require.NoError(t, err)
	assert.Empty(t, url)

	_, err = client.ImageFor(context.Background(), "nothing at all")
	assert.True(t, errors.Is(err, ErrPageNotFound))
}
