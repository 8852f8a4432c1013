package chat

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/wikichat/internal/model/chat"
	chatService "github.com/zhouzirui/wikichat/internal/service/chat"
	"github.com/zhouzirui/wikichat/internal/view"
	"github.com/zhouzirui/wikichat/pkg/utils"
)

// maxUploadBytes bounds multipart turn uploads.
const maxUploadBytes = 32 << 20

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc     *chatService.Service
	transcriber chatService.Transcriber
	logger      *zap.Logger
}

// New 创建聊天处理器。transcriber 为 nil 时语音输入不可用。
func New(chatSvc *chatService.Service, transcriber chatService.Transcriber, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		chatSvc:     chatSvc,
		transcriber: transcriber,
		logger:      logger.Named("handler.chat"),
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/sessions", func(sessions chi.Router) {
		sessions.Post("/", h.handleCreateSession)
		sessions.Get("/", h.handleListSessions)
		sessions.Delete("/{sessionID}", h.handleEndSession)
		sessions.Get("/{sessionID}/transcript", h.handleTranscript)
		sessions.Get("/{sessionID}/history", h.handleHistory)
		sessions.Post("/{sessionID}/turns", h.handleTurn)
	})
}

// TurnResponse is the body returned for a completed turn.
type TurnResponse struct {
	SessionID string       `json:"sessionId"`
	User      chat.Message `json:"user"`
	Bot       chat.Message `json:"bot"`
	Bubble    view.Bubble  `json:"bubble"`
}

// NewTurnResponse renders a turn result for transport.
func NewTurnResponse(sessionID string, result chatService.TurnResult) TurnResponse {
	bubbles := view.Transcript([]chat.Message{result.Bot})
	return TurnResponse{
		SessionID: sessionID,
		User:      result.User,
		Bot:       result.Bot,
		Bubble:    bubbles[0],
	}
}

type historyResponse struct {
	SessionID string              `json:"sessionId"`
	Entries   []view.SidebarEntry `json:"entries"`
	Empty     string              `json:"emptyText,omitempty"`
}

type transcriptResponse struct {
	SessionID string        `json:"sessionId"`
	Bubbles   []view.Bubble `json:"bubbles"`
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.chatSvc.CreateSession(r.Context())
	if err != nil {
		RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, session)
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{"sessions": h.chatSvc.ListSessions(r.Context())})
}

func (h *Handler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if err := h.chatSvc.EndSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		RespondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	messages, err := h.chatSvc.Transcript(r.Context(), sessionID)
	if err != nil {
		RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, transcriptResponse{
		SessionID: sessionID,
		Bubbles:   view.Transcript(messages),
	})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	history, err := h.chatSvc.History(r.Context(), sessionID)
	if err != nil {
		RespondServiceError(w, err)
		return
	}

	resp := historyResponse{SessionID: sessionID, Entries: view.Sidebar(history)}
	if len(resp.Entries) == 0 {
		resp.Empty = view.EmptyHistory
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}

// handleTurn 接受 JSON {"text"} 或 multipart（text 字段 + audio 文件）
func (h *Handler) handleTurn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "sessionID")

	if _, err := h.chatSvc.GetSession(ctx, sessionID); err != nil {
		RespondServiceError(w, err)
		return
	}

	typed, audio, err := readTurnInput(r)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	utterance, err := chatService.ResolveUtterance(ctx, h.transcriber, sessionID, typed, audio)
	if err != nil {
		RespondServiceError(w, err)
		return
	}

	result, err := h.chatSvc.Turn(ctx, sessionID, utterance)
	if err != nil {
		RespondServiceError(w, err)
		return
	}

	h.logger.Debug("turn served", zap.String("session", sessionID), zap.Bool("spoken", len(audio) > 0))
	utils.RespondJSON(w, http.StatusOK, NewTurnResponse(sessionID, result))
}

func readTurnInput(r *http.Request) (string, []byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var payload struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			return "", nil, errors.New("invalid request body")
		}
		return payload.Text, nil, nil
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return "", nil, errors.New("failed to parse multipart form")
	}
	defer r.MultipartForm.RemoveAll()

	typed := r.FormValue("text")
	file, _, err := r.FormFile("audio")
	if errors.Is(err, http.ErrMissingFile) {
		return typed, nil, nil
	}
	if err != nil {
		return "", nil, errors.New("invalid audio upload")
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		return "", nil, errors.New("failed to read audio upload")
	}
	return typed, audio, nil
}

// StatusFor maps service errors to HTTP status codes.
func StatusFor(err error) int {
	var transcriptionErr *chatService.TranscriptionError
	switch {
	case errors.Is(err, chatService.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, chatService.ErrEmptyUtterance):
		return http.StatusBadRequest
	case errors.Is(err, chatService.ErrTurnPending),
		errors.Is(err, chatService.ErrNoPendingTurn),
		errors.Is(err, chatService.ErrHistoryOutOfStep):
		return http.StatusConflict
	case errors.Is(err, chatService.ErrSpeechDisabled):
		return http.StatusServiceUnavailable
	case errors.As(err, &transcriptionErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// RespondServiceError writes err with the status StatusFor picks.
func RespondServiceError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	utils.RespondError(w, status, strings.TrimSpace(message))
}
