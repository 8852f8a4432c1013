// Package bootstrap assembles the lookup adapters and services from configuration.
package bootstrap

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/zhouzirui/wikichat/internal/config"
	speechModel "github.com/zhouzirui/wikichat/internal/model/speech"
	chatService "github.com/zhouzirui/wikichat/internal/service/chat"
	"github.com/zhouzirui/wikichat/internal/service/router"
	"github.com/zhouzirui/wikichat/internal/service/search"
	"github.com/zhouzirui/wikichat/internal/service/snippet"
	"github.com/zhouzirui/wikichat/internal/service/speech"
	"github.com/zhouzirui/wikichat/internal/service/wiki"
)

// NewRouter builds the response router over the live Wikipedia, search and page adapters.
func NewRouter(ctx context.Context, cfg config.LookupConfig, httpClient *http.Client, logger *zap.Logger) (*router.Router, error) {
	wikiClient := wiki.NewClient(wiki.Config{
		APIURL:    cfg.WikiAPIURL,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.Timeout,
	}, httpClient, logger)

	searchClient := search.NewDuckDuckGo(search.Config{
		URL:       cfg.SearchURL,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.Timeout,
	}, httpClient, logger)

	fetcher := snippet.NewFetcher(snippet.Config{
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.SnippetTimeout,
	}, httpClient, logger)

	return router.New(ctx, wikiClient, searchClient, fetcher, router.Options{
		SummarySentences: cfg.SummarySentences,
		SearchResults:    cfg.SearchResults,
	}, logger)
}

// NewTranscriber returns nil when speech credentials are absent, which
// disables spoken input everywhere.
func NewTranscriber(cfg config.SpeechConfig, logger *zap.Logger) chatService.Transcriber {
	if !cfg.Enabled {
		logger.Info("speech credentials not configured, spoken input disabled")
		return nil
	}

	svc := speech.NewService(&speechModel.SpeechConfig{
		AppID:          cfg.AppID,
		AccessToken:    cfg.AccessToken,
		APIKey:         cfg.APIKey,
		Region:         cfg.Region,
		BaseURL:        cfg.BaseURL,
		ConcurrentMode: cfg.ConcurrentMode,
		ASRModel:       cfg.ASRModel,
		ASRLanguage:    cfg.ASRLanguage,
		Timeout:        cfg.Timeout,
		CaptureSeconds: cfg.CaptureSeconds,
	}, logger)
	logger.Info("speech service initialized", zap.Int("captureSeconds", svc.CaptureSeconds()))
	return svc
}

// NewChatService wires a chat service to a freshly built router.
func NewChatService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*chatService.Service, error) {
	responder, err := NewRouter(ctx, cfg.Lookup, nil, logger)
	if err != nil {
		return nil, err
	}
	return chatService.NewService(responder, logger), nil
}
