package stream

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	chatHandler "github.com/zhouzirui/wikichat/internal/handler/chat"
	chatService "github.com/zhouzirui/wikichat/internal/service/chat"
	"github.com/zhouzirui/wikichat/pkg/utils"
)

// Handler runs one turn per request and reports it as Server-Sent Events.
type Handler struct {
	chatSvc *chatService.Service
	logger  *zap.Logger
}

// New creates a new stream handler
func New(chatSvc *chatService.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{chatSvc: chatSvc, logger: logger.Named("handler.stream")}
}

// StreamResponse represents a streaming response chunk
type StreamResponse struct {
	Event     string                    `json:"event"`
	SessionID string                    `json:"sessionId,omitempty"`
	Content   string                    `json:"content,omitempty"`
	Turn      *chatHandler.TurnResponse `json:"turn,omitempty"`
	Finished  bool                      `json:"finished,omitempty"`
	Error     string                    `json:"error,omitempty"`
	Status    int                       `json:"status,omitempty"`
}

// RegisterRoutes mounts GET /stream/{sessionID}?message=...
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream/{sessionID}", h.handleStream)
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "sessionID")
	message := r.URL.Query().Get("message")

	if strings.TrimSpace(message) == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}
	if _, err := h.chatSvc.GetSession(ctx, sessionID); err != nil {
		chatHandler.RespondServiceError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	utils.SetupSSEHeaders(w)

	h.send(w, flusher, StreamResponse{Event: "start", SessionID: sessionID, Content: message})

	result, err := h.chatSvc.Turn(ctx, sessionID, message)
	if err != nil {
		h.logger.Info("stream turn failed", zap.String("session", sessionID), zap.Error(err))
		h.send(w, flusher, StreamResponse{
			Event:     "error",
			SessionID: sessionID,
			Error:     err.Error(),
			Status:    chatHandler.StatusFor(err),
		})
		return
	}

	turn := chatHandler.NewTurnResponse(sessionID, result)
	h.send(w, flusher, StreamResponse{
		Event:     "message",
		SessionID: sessionID,
		Content:   result.Bot.Content,
		Turn:      &turn,
	})
	h.send(w, flusher, StreamResponse{Event: "end", SessionID: sessionID, Finished: true})
}

func (h *Handler) send(w http.ResponseWriter, flusher http.Flusher, response StreamResponse) {
	utils.SendSSEEvent(w, flusher, response.Event, response)
}
