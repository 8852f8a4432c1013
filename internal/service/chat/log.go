package chat

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/wikichat/internal/model/chat"
)

var (
	ErrEmptyUtterance   = errors.New("utterance is empty")
	ErrTurnPending      = errors.New("previous turn is still awaiting a reply")
	ErrNoPendingTurn    = errors.New("no user message is awaiting a reply")
	ErrHistoryOutOfStep = errors.New("history entry does not match a completed turn")
)

// Log is the append-only conversation of one session. Messages alternate
// strictly user, bot, user, bot and every completed pair has one history entry.
type Log struct {
	mu        sync.RWMutex
	sessionID string
	messages  []chat.Message
	history   []chat.HistoryEntry
}

// NewLog returns an empty log.
func NewLog(sessionID string) *Log {
	return &Log{
		sessionID: sessionID,
		messages:  make([]chat.Message, 0, 16),
		history:   make([]chat.HistoryEntry, 0, 8),
	}
}

// AppendUser opens a turn. The previous turn must already have its history entry.
func (l *Log) AppendUser(text string) (chat.Message, error) {
	if strings.TrimSpace(text) == "" {
		return chat.Message{}, ErrEmptyUtterance
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pendingLocked() {
		return chat.Message{}, ErrTurnPending
	}
	if len(l.history) != len(l.messages)/2 {
		return chat.Message{}, ErrHistoryOutOfStep
	}
	return l.appendLocked(chat.RoleUser, text), nil
}

// AppendBot answers the pending user message.
func (l *Log) AppendBot(text string) (chat.Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.pendingLocked() {
		return chat.Message{}, ErrNoPendingTurn
	}
	return l.appendLocked(chat.RoleBot, text), nil
}

// RecordHistory appends the sidebar entry for the most recently completed turn.
func (l *Log) RecordHistory(query, answer string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.recordLocked(query, answer)
}

// Reply appends the bot message and its history entry under one lock, so
// readers never observe a completed pair without its entry.
func (l *Log) Reply(answer string) (chat.Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.pendingLocked() {
		return chat.Message{}, ErrNoPendingTurn
	}
	query := l.messages[len(l.messages)-1].Content
	bot := l.appendLocked(chat.RoleBot, answer)
	if err := l.recordLocked(query, answer); err != nil {
		l.messages = l.messages[:len(l.messages)-1]
		return chat.Message{}, err
	}
	return bot, nil
}

// Messages returns a copy in insertion order.
func (l *Log) Messages() []chat.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	copied := make([]chat.Message, len(l.messages))
	copy(copied, l.messages)
	return copied
}

// History returns a copy in insertion order.
func (l *Log) History() []chat.HistoryEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	copied := make([]chat.HistoryEntry, len(l.history))
	copy(copied, l.history)
	return copied
}

func (l *Log) pendingLocked() bool {
	n := len(l.messages)
	return n > 0 && l.messages[n-1].Role == chat.RoleUser
}

func (l *Log) appendLocked(role chat.Role, content string) chat.Message {
	message := chat.Message{
		ID:        uuid.NewString(),
		SessionID: l.sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	l.messages = append(l.messages, message)
	return message
}

func (l *Log) recordLocked(query, answer string) error {
	if l.pendingLocked() || len(l.history)+1 != len(l.messages)/2 {
		return ErrHistoryOutOfStep
	}
	l.history = append(l.history, chat.HistoryEntry{Query: query, Answer: answer})
	return nil
}
