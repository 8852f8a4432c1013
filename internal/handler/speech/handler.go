package speech

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	chatservice "github.com/zhouzirui/wikichat/internal/service/chat"
	"github.com/zhouzirui/wikichat/pkg/utils"
)

const maxAudioBytes = 32 << 20

// Handler 语音服务的HTTP处理器
type Handler struct {
	transcriber chatservice.Transcriber
	chatSvc     *chatservice.Service
	logger      *zap.Logger
}

// New 创建语音处理器。transcriber 为 nil 表示未配置语音识别。
func New(transcriber chatservice.Transcriber, chatSvc *chatservice.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		transcriber: transcriber,
		chatSvc:     chatSvc,
		logger:      logger.Named("handler.speech"),
	}
}

// RegisterRoutes 注册语音相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/speech", func(speechRouter chi.Router) {
		speechRouter.Post("/transcribe", h.handleTranscribe)
		speechRouter.Get("/health", h.handleHealth)

		ws := NewWebSocketHandler(h.transcriber, h.chatSvc, h.logger)
		ws.RegisterWebSocketRoutes(speechRouter)
	})
}

type transcribeResponse struct {
	SessionID string `json:"sessionId,omitempty"`
	Kind      string `json:"kind"`
	Text      string `json:"text,omitempty"`
	Error     string `json:"error,omitempty"`
}

// handleTranscribe 只做识别，不产生对话轮次
func (h *Handler) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if h.transcriber == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, chatservice.ErrSpeechDisabled.Error())
		return
	}

	if err := r.ParseMultipartForm(maxAudioBytes); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("audio")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to read audio file")
		return
	}

	sessionID := r.FormValue("sessionId")
	result := h.transcriber.Transcribe(r.Context(), sessionID, audio)

	resp := transcribeResponse{SessionID: sessionID, Kind: result.Kind.String(), Text: result.Text}
	if !result.OK() {
		resp.Error = result.Message
		h.logger.Info("transcription rejected", zap.String("kind", resp.Kind))
		utils.RespondJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := map[string]any{"enabled": h.transcriber != nil}
	utils.RespondJSON(w, http.StatusOK, status)
}
