package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chatService "github.com/zhouzirui/wikichat/internal/service/chat"
	"github.com/zhouzirui/wikichat/internal/view"
)

type echoResponder struct{}

func (echoResponder) Respond(_ context.Context, utterance string) string {
	if utterance == "picture" {
		return "🖼️ Here's an image from Wikipedia for 'cat':\nhttps://upload.example/cat.jpg"
	}
	return "answer to " + utterance
}

func newTestModel(t *testing.T) (Model, *chatService.Service) {
	t.Helper()
	svc := chatService.NewService(echoResponder{}, nil)
	session, err := svc.CreateSession(context.Background())
	require.NoError(t, err)

	m := New(context.Background(), svc, session.ID, Options{MarkdownStyle: "notty"})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return updated.(Model), svc
}

func typeAndSubmit(t *testing.T, m Model, text string) Model {
	t.Helper()
	m.input.SetValue(text)

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m = updated.(Model)
	assert.True(t, m.pending)

	updated, _ = m.Update(cmd())
	return updated.(Model)
}

func TestViewBeforeWindowSize(t *testing.T) {
	m := New(context.Background(), chatService.NewService(echoResponder{}, nil), "s", Options{})
	assert.Equal(t, "Initializing...", m.View())
}

func TestWindowSizeLaysOutPanes(t *testing.T) {
	m, _ := newTestModel(t)

	assert.True(t, m.ready)
	assert.Equal(t, sidebarWidth, m.sideWidth)
	assert.Equal(t, 120-sidebarWidth-paneBorder*2, m.chatWidth)
	assert.Contains(t, m.View(), view.EmptyHistory)

	// narrow terminals shrink the sidebar instead of panicking
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 30, Height: 5})
	narrow := updated.(Model)
	assert.Equal(t, minSidebarWidth, narrow.sideWidth)
	assert.GreaterOrEqual(t, narrow.viewport.Height, 1)
}

func TestSubmitRunsTurnAndRefreshes(t *testing.T) {
	m, _ := newTestModel(t)

	m = typeAndSubmit(t, m, "  hello there ")

	assert.False(t, m.pending)
	assert.NoError(t, m.Err())
	require.Len(t, m.bubbles, 2)
	assert.Equal(t, "hello there", m.bubbles[0].Text)
	assert.Equal(t, "answer to hello there", m.bubbles[1].Text)
	require.Len(t, m.sidebar, 1)
	assert.Equal(t, "1. hello there", m.sidebar[0].Label())

	screen := m.View()
	assert.Contains(t, screen, "answer to hello there")
	assert.NotContains(t, screen, view.EmptyHistory)
	assert.Empty(t, m.input.Value())
}

func TestSidebarListsNewestFirst(t *testing.T) {
	m, _ := newTestModel(t)

	m = typeAndSubmit(t, m, "first")
	m = typeAndSubmit(t, m, "second")

	require.Len(t, m.sidebar, 2)
	assert.Equal(t, "second", m.sidebar[0].Query)
	assert.Equal(t, "first", m.sidebar[1].Query)

	side := m.renderSidebar()
	assert.Less(t, strings.Index(side, "1. second"), strings.Index(side, "2. first"))
}

func TestImageReplyShowsCaptionAndLink(t *testing.T) {
	m, _ := newTestModel(t)

	m = typeAndSubmit(t, m, "picture")

	require.Len(t, m.bubbles, 2)
	assert.Equal(t, "https://upload.example/cat.jpg", m.bubbles[1].ImageURL)
	transcript := m.renderTranscript()
	assert.Contains(t, transcript, "Here's an image from Wikipedia for 'cat':")
	assert.Contains(t, transcript, "https://upload.example/cat.jpg")
}

func TestEmptyInputIsIgnored(t *testing.T) {
	m, _ := newTestModel(t)
	m.input.SetValue("   ")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.False(t, updated.(Model).pending)
}

func TestEnterWhilePendingIsIgnored(t *testing.T) {
	m, _ := newTestModel(t)
	m.pending = true
	m.input.SetValue("again")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
}

func TestTurnOnEndedSession(t *testing.T) {
	m, svc := newTestModel(t)
	require.NoError(t, svc.EndSession(context.Background(), m.sessionID))

	m = typeAndSubmit(t, m, "hello")

	assert.ErrorIs(t, m.Err(), chatService.ErrSessionNotFound)
	assert.Contains(t, m.View(), "Session ended")
	assert.Empty(t, m.bubbles)
}

func TestQuitKeys(t *testing.T) {
	m, _ := newTestModel(t)

	for _, key := range []tea.KeyType{tea.KeyEsc, tea.KeyCtrlC} {
		_, cmd := m.Update(tea.KeyMsg{Type: key})
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
	}
}

func TestRenderMarkdownWithoutRenderer(t *testing.T) {
	assert.Equal(t, "plain", RenderMarkdown(nil, "plain"))
}
