package router

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"go.uber.org/zap"

	"github.com/zhouzirui/wikichat/internal/model/lookup"
)

// Encyclopedia looks up topic summaries and images.
type Encyclopedia interface {
	Summary(ctx context.Context, topic string, sentences int) lookup.SummaryResult
	// ImageFor returns "" or an error when no image is available; both mean not found.
	ImageFor(ctx context.Context, topic string) (string, error)
}

// WebSearch returns result URLs for a query.
type WebSearch interface {
	Top(ctx context.Context, query string, n int) ([]string, error)
}

// PageSnippets describes a page in one short line. It never fails; failures are
// folded into placeholder text.
type PageSnippets interface {
	Snippet(ctx context.Context, url string) string
}

// Options tunes the lookup strategies.
type Options struct {
	SummarySentences int
	SearchResults    int
}

// DefaultOptions mirrors the fixed lookup sizes: 2 summary sentences, 3 search results.
func DefaultOptions() Options {
	return Options{SummarySentences: 2, SearchResults: 3}
}

const (
	nodeClassify = "classify"
	nodeGreeting = "greeting"
	nodeIdentity = "identity"
	nodeFarewell = "farewell"
	nodeImage    = "image"
	nodeLookup   = "lookup"
)

var errLookupAborted = errors.New("the lookup could not be completed")

// intent is what the classify step decides about one utterance.
type intent struct {
	Route     string
	Utterance string
	Subject   string
}

// Router maps one utterance to one response string.
type Router struct {
	wiki     Encyclopedia
	search   WebSearch
	snippets PageSnippets
	opts     Options
	logger   *zap.Logger
	graph    compose.Runnable[string, string]
}

// New compiles the dispatch graph. Every adapter is required.
func New(ctx context.Context, wiki Encyclopedia, search WebSearch, snippets PageSnippets, opts Options, logger *zap.Logger) (*Router, error) {
	if wiki == nil || search == nil || snippets == nil {
		return nil, fmt.Errorf("router: encyclopedia, search and snippet adapters are required")
	}
	if opts.SummarySentences <= 0 {
		opts.SummarySentences = DefaultOptions().SummarySentences
	}
	if opts.SearchResults <= 0 {
		opts.SearchResults = DefaultOptions().SearchResults
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Router{
		wiki:     wiki,
		search:   search,
		snippets: snippets,
		opts:     opts,
		logger:   logger,
	}

	graph, err := r.compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile router graph: %w", err)
	}
	r.graph = graph
	return r, nil
}

func (r *Router) compile(ctx context.Context) (compose.Runnable[string, string], error) {
	g := compose.NewGraph[string, string]()

	nodes := map[string]*compose.Lambda{
		nodeClassify: compose.InvokableLambda(r.classify),
		nodeGreeting: compose.InvokableLambda(fixedReply(replyGreeting)),
		nodeIdentity: compose.InvokableLambda(fixedReply(replyIdentity)),
		nodeFarewell: compose.InvokableLambda(fixedReply(replyFarewell)),
		nodeImage:    compose.InvokableLambda(r.imageReply),
		nodeLookup:   compose.InvokableLambda(r.lookupReply),
	}
	for key, node := range nodes {
		if err := g.AddLambdaNode(key, node); err != nil {
			return nil, err
		}
	}

	if err := g.AddEdge(compose.START, nodeClassify); err != nil {
		return nil, err
	}

	targets := []string{nodeGreeting, nodeIdentity, nodeFarewell, nodeImage, nodeLookup}
	endNodes := make(map[string]bool, len(targets))
	for _, key := range targets {
		endNodes[key] = true
	}
	branch := compose.NewGraphBranch(func(_ context.Context, in intent) (string, error) {
		return in.Route, nil
	}, endNodes)
	if err := g.AddBranch(nodeClassify, branch); err != nil {
		return nil, err
	}

	for _, key := range targets {
		if err := g.AddEdge(key, compose.END); err != nil {
			return nil, err
		}
	}

	return g.Compile(ctx, compose.WithGraphName("response_router"))
}

// Respond never fails: every adapter error is turned into user-facing text.
// Graph failures, including recovered panics, are logged in full and shown
// only as a short fixed cause.
func (r *Router) Respond(ctx context.Context, utterance string) string {
	reply, err := r.graph.Invoke(ctx, utterance)
	if err != nil {
		r.logger.Error("router graph failed", zap.Error(err))
		return fmt.Sprintf(replyGenericError, errLookupAborted)
	}
	return reply
}

// Classify exposes the routing decision; used by tooling and tests.
func Classify(utterance string) (route, subject string) {
	lower := strings.ToLower(utterance)

	switch {
	case strings.Contains(lower, "hello") || strings.Contains(lower, "hi"):
		return nodeGreeting, ""
	case strings.Contains(lower, "your name"):
		return nodeIdentity, ""
	case strings.Contains(lower, "bye"):
		return nodeFarewell, ""
	case strings.Contains(lower, "image of"):
		idx := strings.LastIndex(lower, "image of")
		return nodeImage, strings.TrimSpace(lower[idx+len("image of"):])
	default:
		return nodeLookup, ""
	}
}

func (r *Router) classify(_ context.Context, utterance string) (intent, error) {
	route, subject := Classify(utterance)
	r.logger.Debug("utterance classified", zap.String("route", route), zap.String("subject", subject))
	return intent{Route: route, Utterance: utterance, Subject: subject}, nil
}

func fixedReply(text string) func(context.Context, intent) (string, error) {
	return func(context.Context, intent) (string, error) {
		return text, nil
	}
}

func (r *Router) imageReply(ctx context.Context, in intent) (string, error) {
	url, err := r.wiki.ImageFor(ctx, in.Subject)
	if err != nil {
		r.logger.Info("image lookup failed", zap.String("subject", in.Subject), zap.Error(err))
		return fmt.Sprintf(replyImageMissing, in.Subject), nil
	}
	if !lookup.IsImageURL(url) {
		return fmt.Sprintf(replyImageMissing, in.Subject), nil
	}
	return fmt.Sprintf(replyImageFound, in.Subject, strings.TrimSpace(url)), nil
}

func (r *Router) lookupReply(ctx context.Context, in intent) (string, error) {
	result := r.wiki.Summary(ctx, in.Utterance, r.opts.SummarySentences)
	r.logger.Debug("summary lookup", zap.Stringer("kind", result.Kind))

	switch result.Kind {
	case lookup.SummaryFound:
		return fmt.Sprintf(replySummary, result.Text), nil
	case lookup.SummaryAmbiguous:
		options := result.Options
		if len(options) == 0 {
			return r.searchReply(ctx, in.Utterance), nil
		}
		if len(options) > maxSuggestions {
			options = options[:maxSuggestions]
		}
		return fmt.Sprintf(replyAmbiguous, strings.Join(options, ", ")), nil
	case lookup.SummaryNotFound:
		return r.searchReply(ctx, in.Utterance), nil
	default:
		err := result.Err
		if err == nil {
			err = fmt.Errorf("unknown lookup result %s", result.Kind)
		}
		r.logger.Warn("summary lookup failed", zap.Error(err))
		return fmt.Sprintf(replyGenericError, err), nil
	}
}

func (r *Router) searchReply(ctx context.Context, query string) string {
	urls, err := r.search.Top(ctx, query, r.opts.SearchResults)
	if err != nil {
		r.logger.Warn("web search failed", zap.Error(err))
		return fmt.Sprintf(replySearchError, err)
	}
	if len(urls) == 0 {
		return replyNothingFound
	}

	var builder strings.Builder
	builder.WriteString(replySearchHeader)
	for _, url := range urls {
		snippet := r.snippets.Snippet(ctx, url)
		fmt.Fprintf(&builder, replySearchItem, url, snippet)
	}
	return builder.String()
}
