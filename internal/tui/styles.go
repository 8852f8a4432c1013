package tui

import "github.com/charmbracelet/lipgloss"

const (
	sidebarWidth    = 36
	minSidebarWidth = 16
	headerHeight    = 1
	inputHeight     = 3
	footerHeight    = 1
	paneBorder      = 2
)

// Styles groups the lipgloss styles of the chat screen.
type Styles struct {
	Header      lipgloss.Style
	ChatPane    lipgloss.Style
	Sidebar     lipgloss.Style
	SidebarHead lipgloss.Style
	EntryLabel  lipgloss.Style
	EntryAnswer lipgloss.Style
	Muted       lipgloss.Style
	UserName    lipgloss.Style
	BotName     lipgloss.Style
	Caption     lipgloss.Style
	Link        lipgloss.Style
	Input       lipgloss.Style
	Error       lipgloss.Style
}

// DefaultStyles returns the palette used by the chat screen.
func DefaultStyles() Styles {
	primary := lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}
	accent := lipgloss.AdaptiveColor{Light: "#047857", Dark: "#34D399"}
	muted := lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	border := lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#374151"}

	return Styles{
		Header:      lipgloss.NewStyle().Bold(true).Foreground(primary).Padding(0, 1),
		ChatPane:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(border),
		Sidebar:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(border).Padding(0, 1),
		SidebarHead: lipgloss.NewStyle().Bold(true).Foreground(primary).MarginBottom(1),
		EntryLabel:  lipgloss.NewStyle().Bold(true),
		EntryAnswer: lipgloss.NewStyle().Foreground(muted).MarginBottom(1),
		Muted:       lipgloss.NewStyle().Foreground(muted),
		UserName:    lipgloss.NewStyle().Bold(true).Foreground(primary).MarginTop(1),
		BotName:     lipgloss.NewStyle().Bold(true).Foreground(accent).MarginTop(1),
		Caption:     lipgloss.NewStyle().Italic(true),
		Link:        lipgloss.NewStyle().Underline(true).Foreground(primary),
		Input:       lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(primary).Padding(0, 1),
		Error:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444")),
	}
}
