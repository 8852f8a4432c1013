package chat

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/wikichat/internal/model/chat"
	"github.com/zhouzirui/wikichat/internal/model/speech"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSpeechDisabled  = errors.New("speech input is not configured")
)

// Responder produces the bot reply for one utterance.
type Responder interface {
	Respond(ctx context.Context, utterance string) string
}

// Transcriber turns one capture window into an utterance.
type Transcriber interface {
	Transcribe(ctx context.Context, sessionID string, audio []byte) speech.Transcription
}

// TranscriptionError reports a capture that produced no utterance.
type TranscriptionError struct {
	Result speech.Transcription
}

func (e *TranscriptionError) Error() string {
	return e.Result.Message
}

// TurnResult is the message pair one turn appended.
type TurnResult struct {
	User chat.Message `json:"user"`
	Bot  chat.Message `json:"bot"`
}

type sessionState struct {
	session chat.Session
	turn    sync.Mutex
	log     *Log
}

// Service encapsulates conversation state management.
type Service struct {
	mu        sync.RWMutex
	sessions  map[string]*sessionState
	responder Responder
	logger    *zap.Logger
}

// NewService bootstraps the in-memory chat service.
func NewService(responder Responder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		sessions:  make(map[string]*sessionState),
		responder: responder,
		logger:    logger.Named("chat"),
	}
}

// CreateSession starts an empty conversation.
func (s *Service) CreateSession(_ context.Context) (chat.Session, error) {
	session := chat.Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = &sessionState{session: session, log: NewLog(session.ID)}
	s.mu.Unlock()

	s.logger.Info("session created", zap.String("session", session.ID))
	return session, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	state, err := s.lookup(sessionID)
	if err != nil {
		return chat.Session{}, err
	}
	return state.session, nil
}

// EndSession discards the session and its log.
func (s *Service) EndSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, sessionID)
	s.logger.Info("session ended", zap.String("session", sessionID))
	return nil
}

// ListSessions returns live sessions, oldest first.
func (s *Service) ListSessions(_ context.Context) []chat.Session {
	s.mu.RLock()
	sessions := make([]chat.Session, 0, len(s.sessions))
	for _, state := range s.sessions {
		sessions = append(sessions, state.session)
	}
	s.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions
}

// Turn records the utterance, asks the responder and records the reply.
// A session runs one turn at a time; a second concurrent turn gets ErrTurnPending.
func (s *Service) Turn(ctx context.Context, sessionID, utterance string) (TurnResult, error) {
	if strings.TrimSpace(utterance) == "" {
		return TurnResult{}, ErrEmptyUtterance
	}

	state, err := s.lookup(sessionID)
	if err != nil {
		return TurnResult{}, err
	}

	if !state.turn.TryLock() {
		return TurnResult{}, ErrTurnPending
	}
	defer state.turn.Unlock()

	user, err := state.log.AppendUser(utterance)
	if err != nil {
		return TurnResult{}, err
	}

	started := time.Now()
	answer := s.responder.Respond(ctx, utterance)

	bot, err := state.log.Reply(answer)
	if err != nil {
		return TurnResult{}, err
	}

	s.logger.Debug("turn completed",
		zap.String("session", sessionID),
		zap.Duration("elapsed", time.Since(started)))
	return TurnResult{User: user, Bot: bot}, nil
}

// Transcript returns stored messages for the provided session.
func (s *Service) Transcript(_ context.Context, sessionID string) ([]chat.Message, error) {
	state, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return state.log.Messages(), nil
}

// History returns the session's history entries in insertion order.
func (s *Service) History(_ context.Context, sessionID string) ([]chat.HistoryEntry, error) {
	state, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return state.log.History(), nil
}

func (s *Service) lookup(sessionID string) (*sessionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return state, nil
}

// ResolveUtterance picks the utterance for a request that may carry typed
// text, audio, or both. Audio wins when present: a recognized transcription
// replaces the typed text, and a failed one yields a *TranscriptionError with
// no fallback to the text.
func ResolveUtterance(ctx context.Context, transcriber Transcriber, sessionID, typed string, audio []byte) (string, error) {
	if len(audio) > 0 {
		if transcriber == nil {
			return "", ErrSpeechDisabled
		}
		result := transcriber.Transcribe(ctx, sessionID, audio)
		if !result.OK() {
			return "", &TranscriptionError{Result: result}
		}
		return result.Text, nil
	}

	if strings.TrimSpace(typed) == "" {
		return "", ErrEmptyUtterance
	}
	return typed, nil
}
