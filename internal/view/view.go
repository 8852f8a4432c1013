// Package view turns the conversation log into what chat surfaces draw.
package view

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/wikichat/internal/model/chat"
	"github.com/zhouzirui/wikichat/internal/model/lookup"
)

const (
	// EmptyHistory is shown in place of an empty sidebar.
	EmptyHistory = "No search history yet."
	// MaxAnswerRunes bounds sidebar answers before the ellipsis.
	MaxAnswerRunes = 200
	ellipsis       = "..."
)

// Bubble is one rendered transcript entry. ImageURL is set for image replies,
// in which case Text holds only the caption line.
type Bubble struct {
	Role     chat.Role `json:"role"`
	Text     string    `json:"text"`
	ImageURL string    `json:"imageUrl,omitempty"`
}

// SidebarEntry is one numbered history line, most recent first.
type SidebarEntry struct {
	Number int    `json:"number"`
	Query  string `json:"query"`
	Answer string `json:"answer"`
}

// Transcript renders messages in display order.
func Transcript(messages []chat.Message) []Bubble {
	bubbles := make([]Bubble, 0, len(messages))
	for _, m := range messages {
		bubble := Bubble{Role: m.Role, Text: m.Content}
		if m.Role == chat.RoleBot && strings.Contains(m.Content, lookup.ImageCaptionMarker) {
			lines := strings.Split(m.Content, "\n")
			if len(lines) > 1 {
				bubble.Text = lines[0]
				bubble.ImageURL = strings.TrimSpace(lines[len(lines)-1])
			}
		}
		bubbles = append(bubbles, bubble)
	}
	return bubbles
}

// Sidebar lists history newest first with long answers shortened.
func Sidebar(history []chat.HistoryEntry) []SidebarEntry {
	entries := make([]SidebarEntry, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		entries = append(entries, SidebarEntry{
			Number: len(entries) + 1,
			Query:  history[i].Query,
			Answer: Truncate(history[i].Answer, MaxAnswerRunes),
		})
	}
	return entries
}

// Truncate keeps the first max runes of s and marks the cut with "...".
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + ellipsis
}

// Label formats a sidebar entry as a single line of text.
func (e SidebarEntry) Label() string {
	return fmt.Sprintf("%d. %s", e.Number, e.Query)
}
