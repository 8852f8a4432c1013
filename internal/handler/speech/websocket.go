package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	chatHandler "github.com/zhouzirui/wikichat/internal/handler/chat"
	chatservice "github.com/zhouzirui/wikichat/internal/service/chat"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
	// JSON envelope around a base64 audio payload
	frameOverhead = 64 << 10
)

// WebSocketHandler 通过 WebSocket 接收文本或语音并执行对话轮次
type WebSocketHandler struct {
	transcriber chatservice.Transcriber
	chatSvc     *chatservice.Service
	upgrader    websocket.Upgrader
	maxAudio    int
	logger      *zap.Logger
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(transcriber chatservice.Transcriber, chatSvc *chatservice.Service, logger *zap.Logger) *WebSocketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocketHandler{
		transcriber: transcriber,
		chatSvc:     chatSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		maxAudio: maxAudioBytes,
		logger:   logger,
	}
}

// frameLimit bounds one inbound frame. JSON audio frames carry base64, which
// is a third larger than the audio itself; the audio cap is enforced on the buffer.
func frameLimit(maxAudio int) int64 {
	return int64(base64.StdEncoding.EncodedLen(maxAudio) + frameOverhead)
}

// RegisterWebSocketRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
}

// AudioMessage 音频消息；AudioData 以 base64 传输
type AudioMessage struct {
	AudioData []byte `json:"audioData"`
	Text      string `json:"text,omitempty"`
	IsFinal   bool   `json:"isFinal"`
}

// TextMessage 文本消息
type TextMessage struct {
	Text string `json:"text"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type connectionState struct {
	sessionID string
	buffer    bytes.Buffer
	typed     string
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if _, err := h.chatSvc.GetSession(r.Context(), sessionID); err != nil {
		chatHandler.RespondServiceError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Info("websocket connected", zap.String("session", sessionID))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadLimit(frameLimit(h.maxAudio))
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})
	go h.pingLoop(ctx, conn)

	state := &connectionState{sessionID: sessionID}
	h.send(conn, sessionID, "connected", map[string]any{"speech": h.transcriber != nil})

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Info("websocket read error", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

		// 二进制帧直接作为音频片段缓存
		if messageType == websocket.BinaryMessage {
			h.bufferAudio(conn, state, data)
			continue
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.sendError(conn, sessionID, "invalid message", http.StatusBadRequest)
			continue
		}
		if msg.SessionID != "" && msg.SessionID != sessionID {
			h.sendError(conn, sessionID, "session mismatch", http.StatusBadRequest)
			continue
		}
		h.handleMessage(ctx, conn, state, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, conn *websocket.Conn, state *connectionState, msg *inboundMessage) {
	switch msg.Type {
	case "text":
		var text TextMessage
		if err := json.Unmarshal(msg.Data, &text); err != nil {
			h.sendError(conn, state.sessionID, "invalid text payload", http.StatusBadRequest)
			return
		}
		h.runTurn(ctx, conn, state, text.Text, nil)
	case "audio":
		var audio AudioMessage
		if err := json.Unmarshal(msg.Data, &audio); err != nil {
			h.sendError(conn, state.sessionID, "invalid audio payload", http.StatusBadRequest)
			return
		}
		h.bufferAudio(conn, state, audio.AudioData)
		if audio.Text != "" {
			state.typed = audio.Text
		}
		if audio.IsFinal {
			h.flushAudio(ctx, conn, state)
		}
	case "audio_end":
		h.flushAudio(ctx, conn, state)
	default:
		h.sendError(conn, state.sessionID, "unsupported message type: "+msg.Type, http.StatusBadRequest)
	}
}

func (h *WebSocketHandler) bufferAudio(conn *websocket.Conn, state *connectionState, chunk []byte) {
	if state.buffer.Len()+len(chunk) > h.maxAudio {
		state.buffer.Reset()
		h.sendError(conn, state.sessionID, "audio buffer overflow", http.StatusRequestEntityTooLarge)
		return
	}
	state.buffer.Write(chunk)
}

func (h *WebSocketHandler) flushAudio(ctx context.Context, conn *websocket.Conn, state *connectionState) {
	audio := append([]byte(nil), state.buffer.Bytes()...)
	typed := state.typed
	state.buffer.Reset()
	state.typed = ""

	if len(audio) == 0 {
		h.sendError(conn, state.sessionID, "no audio received", http.StatusBadRequest)
		return
	}
	h.runTurn(ctx, conn, state, typed, audio)
}

func (h *WebSocketHandler) runTurn(ctx context.Context, conn *websocket.Conn, state *connectionState, typed string, audio []byte) {
	utterance, err := chatservice.ResolveUtterance(ctx, h.transcriber, state.sessionID, typed, audio)
	if err != nil {
		var transcriptionErr *chatservice.TranscriptionError
		if errors.As(err, &transcriptionErr) {
			h.send(conn, state.sessionID, "transcription", map[string]any{
				"kind":    transcriptionErr.Result.Kind.String(),
				"message": transcriptionErr.Result.Message,
			})
		}
		h.sendError(conn, state.sessionID, err.Error(), chatHandler.StatusFor(err))
		return
	}
	if len(audio) > 0 {
		h.send(conn, state.sessionID, "transcription", map[string]any{"kind": "recognized", "text": utterance})
	}

	result, err := h.chatSvc.Turn(ctx, state.sessionID, utterance)
	if err != nil {
		h.sendError(conn, state.sessionID, err.Error(), chatHandler.StatusFor(err))
		return
	}
	h.send(conn, state.sessionID, "turn", chatHandler.NewTurnResponse(state.sessionID, result))
}

func (h *WebSocketHandler) send(conn *websocket.Conn, sessionID, kind string, data interface{}) {
	msg := outgoingMessage{
		Type:      kind,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Debug("websocket write failed", zap.String("type", kind), zap.Error(err))
	}
}

func (h *WebSocketHandler) sendError(conn *websocket.Conn, sessionID, message string, status int) {
	h.send(conn, sessionID, "error", map[string]any{"message": message, "status": status})
}

// pingLoop 定期发送ping消息
func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
