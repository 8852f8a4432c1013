// Package tui is the terminal chat screen: transcript on the left, search
// history on the right, input box at the bottom.
package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"

	chatService "github.com/zhouzirui/wikichat/internal/service/chat"
	"github.com/zhouzirui/wikichat/internal/view"
)

const placeholder = "Ask me anything... (Enter to send, Esc to quit)"

// Options tunes the screen. Zero values fall back to defaults.
type Options struct {
	// MarkdownStyle is a glamour standard style name or AutoStyle.
	MarkdownStyle string
	Logger        *zap.Logger
}

// turnDoneMsg carries the outcome of a turn run off the UI goroutine.
type turnDoneMsg struct {
	result chatService.TurnResult
	err    error
}

// Model is the bubbletea model of one chat session.
type Model struct {
	ctx       context.Context
	svc       *chatService.Service
	sessionID string

	input    textinput.Model
	viewport viewport.Model
	renderer *glamour.TermRenderer
	styles   Styles
	style    string
	logger   *zap.Logger

	bubbles []view.Bubble
	sidebar []view.SidebarEntry

	width     int
	height    int
	chatWidth int
	sideWidth int
	ready     bool
	pending   bool
	err       error
}

// New creates a screen bound to an existing session.
func New(ctx context.Context, svc *chatService.Service, sessionID string, opts Options) Model {
	input := textinput.New()
	input.Placeholder = placeholder
	input.Prompt = "› "
	input.Focus()

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	style := opts.MarkdownStyle
	if style == "" {
		style = AutoStyle
	}

	return Model{
		ctx:       ctx,
		svc:       svc,
		sessionID: sessionID,
		input:     input,
		styles:    DefaultStyles(),
		style:     style,
		logger:    logger.Named("tui"),
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc, tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case turnDoneMsg:
		m.pending = false
		m.input.Placeholder = placeholder
		if msg.err != nil {
			m.err = msg.err
			m.logger.Warn("turn failed", zap.String("session", m.sessionID), zap.Error(msg.err))
			return m, nil
		}
		m.err = nil
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// submit runs the typed utterance as one turn. Only one turn is in flight at a time.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.pending {
		return m, nil
	}

	m.pending = true
	m.err = nil
	m.input.Reset()
	m.input.Placeholder = "Looking that up..."

	ctx, svc, sessionID := m.ctx, m.svc, m.sessionID
	return m, func() tea.Msg {
		result, err := svc.Turn(ctx, sessionID, text)
		return turnDoneMsg{result: result, err: err}
	}
}

// refresh reloads transcript and history from the log and redraws both panes.
func (m *Model) refresh() {
	messages, err := m.svc.Transcript(m.ctx, m.sessionID)
	if err != nil {
		m.err = err
		return
	}
	history, err := m.svc.History(m.ctx, m.sessionID)
	if err != nil {
		m.err = err
		return
	}

	m.bubbles = view.Transcript(messages)
	m.sidebar = view.Sidebar(history)
	if m.ready {
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
	}
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height

	m.sideWidth = sidebarWidth
	if width < sidebarWidth*2 {
		m.sideWidth = max(width/3, minSidebarWidth)
	}
	m.chatWidth = max(width-m.sideWidth-paneBorder*2, 1)
	vpHeight := max(height-headerHeight-inputHeight-footerHeight-paneBorder, 1)

	if !m.ready {
		m.viewport = viewport.New(m.chatWidth, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = m.chatWidth
		m.viewport.Height = vpHeight
	}
	m.input.Width = max(width-6, 1)

	renderer, err := NewRenderer(m.style, m.chatWidth-2)
	if err != nil {
		m.logger.Warn("markdown renderer unavailable", zap.Error(err))
		renderer = nil
	}
	m.renderer = renderer
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

// Err reports the last turn failure shown in the footer.
func (m Model) Err() error {
	return m.err
}

func isSessionGone(err error) bool {
	return errors.Is(err, chatService.ErrSessionNotFound)
}
