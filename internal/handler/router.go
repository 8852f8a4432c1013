package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/wikichat/internal/handler/chat"
	"github.com/zhouzirui/wikichat/internal/handler/speech"
	"github.com/zhouzirui/wikichat/internal/handler/stream"
	middlewarePkg "github.com/zhouzirui/wikichat/internal/middleware"
	chatService "github.com/zhouzirui/wikichat/internal/service/chat"
	"github.com/zhouzirui/wikichat/pkg/utils"
)

// NewRouter wires HTTP routes to core services. transcriber may be nil when
// speech input is not configured.
func NewRouter(chatSvc *chatService.Service, transcriber chatService.Transcriber, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	chatHandler := chat.New(chatSvc, transcriber, logger)
	streamHandler := stream.New(chatSvc, logger)
	speechHandler := speech.New(transcriber, chatSvc, logger)

	r.Route("/api", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)
		streamHandler.RegisterRoutes(api)
		speechHandler.RegisterRoutes(api)
	})

	return r
}
