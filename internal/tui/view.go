package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zhouzirui/wikichat/internal/model/chat"
	"github.com/zhouzirui/wikichat/internal/view"
)

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	header := m.styles.Header.Render(fmt.Sprintf("wikichat · session %s", shortID(m.sessionID)))

	chatPane := m.styles.ChatPane.Width(m.chatWidth).Render(m.viewport.View())
	sidebar := m.styles.Sidebar.
		Width(m.sideWidth - 2).
		Height(m.viewport.Height).
		Render(m.renderSidebar())
	body := lipgloss.JoinHorizontal(lipgloss.Top, chatPane, sidebar)

	input := m.styles.Input.Width(max(m.width-4, 1)).Render(m.input.View())

	return lipgloss.JoinVertical(lipgloss.Left, header, body, input, m.renderFooter())
}

func (m Model) renderTranscript() string {
	if len(m.bubbles) == 0 {
		return m.styles.Muted.Render("Say hello, or ask about any topic.")
	}

	var sb strings.Builder
	for _, b := range m.bubbles {
		switch b.Role {
		case chat.RoleUser:
			sb.WriteString(m.styles.UserName.Render("You") + "\n")
			sb.WriteString(b.Text)
			sb.WriteString("\n")
		default:
			sb.WriteString(m.styles.BotName.Render("Bot") + "\n")
			if b.ImageURL != "" {
				sb.WriteString(m.styles.Caption.Render(b.Text) + "\n")
				sb.WriteString(m.styles.Link.Render(b.ImageURL) + "\n")
				continue
			}
			sb.WriteString(strings.TrimRight(RenderMarkdown(m.renderer, b.Text), "\n"))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func (m Model) renderSidebar() string {
	var sb strings.Builder
	sb.WriteString(m.styles.SidebarHead.Render("Search History"))
	sb.WriteString("\n")

	if len(m.sidebar) == 0 {
		sb.WriteString(m.styles.Muted.Render(view.EmptyHistory))
		return sb.String()
	}

	width := max(m.sideWidth-4, 1)
	for _, entry := range m.sidebar {
		sb.WriteString(m.styles.EntryLabel.Width(width).Render(entry.Label()))
		sb.WriteString("\n")
		sb.WriteString(m.styles.EntryAnswer.Width(width).Render(entry.Answer))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) renderFooter() string {
	switch {
	case m.err != nil && isSessionGone(m.err):
		return m.styles.Error.Render("Session ended. Press Esc to quit.")
	case m.err != nil:
		return m.styles.Error.Render("Error: " + m.err.Error())
	case m.pending:
		return m.styles.Muted.Render("Looking that up...")
	default:
		return m.styles.Muted.Render("Enter to send · PgUp/PgDn to scroll · Esc to quit")
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
