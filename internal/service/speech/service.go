package speech

import (
	"bytes"
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/wikichat/internal/model/speech"
)

// Recognizer turns one audio buffer into text.
type Recognizer interface {
	Recognize(ctx context.Context, req *speech.ASRRequest) (*speech.ASRResponse, error)
}

// Service 语音输入：截取录音窗口并调用 ASR
type Service struct {
	recognizer     Recognizer
	captureSeconds int
	timeout        time.Duration
	language       string
	logger         *zap.Logger
}

// NewService 创建基于火山引擎 ASR 的语音服务
func NewService(config *speech.SpeechConfig, logger *zap.Logger) *Service {
	return NewServiceWithRecognizer(NewVolcengineASRClient(config, logger), config, logger)
}

// NewServiceWithRecognizer allows swapping the recognizer, e.g. in tests.
func NewServiceWithRecognizer(recognizer Recognizer, config *speech.SpeechConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		recognizer:     recognizer,
		captureSeconds: 5,
		timeout:        30 * time.Second,
		logger:         logger.Named("speech"),
	}
	if config != nil {
		if config.CaptureSeconds > 0 {
			s.captureSeconds = config.CaptureSeconds
		}
		if config.Timeout > 0 {
			s.timeout = time.Duration(config.Timeout) * time.Second
		}
		s.language = config.ASRLanguage
	}
	return s
}

// CaptureSeconds is the length of one listening window.
func (s *Service) CaptureSeconds() int {
	return s.captureSeconds
}

// Transcribe 识别一个录音窗口。失败不会返回 error，而是体现在 Transcription.Kind 中。
func (s *Service) Transcribe(ctx context.Context, sessionID string, audio []byte) speech.Transcription {
	if len(audio) == 0 {
		return speech.NotUnderstood()
	}

	clipped := ClipToWindow(audio, s.captureSeconds)
	if len(clipped) < len(audio) {
		s.logger.Debug("audio clipped to capture window",
			zap.Int("received", len(audio)),
			zap.Int("kept", len(clipped)),
			zap.Int("seconds", s.captureSeconds))
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.recognizer.Recognize(ctx, &speech.ASRRequest{
		SessionID: sessionID,
		AudioData: bytes.NewReader(clipped),
		Format:    AudioFormat(clipped),
		Language:  s.language,
	})
	if err != nil {
		s.logger.Warn("transcription failed", zap.String("session", sessionID), zap.Error(err))
		return speech.RequestFailed(err)
	}

	text := strings.TrimSpace(resp.Text)
	s.logger.Debug("transcription finished",
		zap.String("session", sessionID),
		zap.String("requestId", resp.RequestID),
		zap.Int64("durationMs", resp.Duration),
		zap.Time("createdAt", resp.CreatedAt))
	if text == "" {
		return speech.NotUnderstood()
	}
	return speech.RecognizedText(text)
}
