package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/zhouzirui/wikichat/internal/tui"
	"github.com/zhouzirui/wikichat/internal/view"
)

func runRepl(ctx context.Context) error {
	svc, sessionID, err := newSession(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = svc.EndSession(context.Background(), sessionID) }()

	model := tui.New(ctx, svc, sessionID, tui.Options{MarkdownStyle: markdownStyle, Logger: logger})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("chat screen: %w", err)
	}
	logger.Info("chat screen closed", zap.String("session", sessionID))
	return nil
}

func runAsk(ctx context.Context, out io.Writer, args []string) error {
	svc, sessionID, err := newSession(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = svc.EndSession(context.Background(), sessionID) }()

	result, err := svc.Turn(ctx, sessionID, strings.Join(args, " "))
	if err != nil {
		return err
	}

	messages, err := svc.Transcript(ctx, sessionID)
	if err != nil {
		return err
	}
	bubbles := view.Transcript(messages)
	reply := bubbles[len(bubbles)-1]

	if reply.ImageURL != "" {
		_, err = fmt.Fprintf(out, "%s\n%s\n", reply.Text, reply.ImageURL)
		return err
	}
	if plain {
		_, err = fmt.Fprintln(out, result.Bot.Content)
		return err
	}

	renderer, err := tui.NewRenderer(markdownStyle, 80)
	if err != nil {
		renderer = nil
	}
	_, err = fmt.Fprint(out, tui.RenderMarkdown(renderer, reply.Text))
	return err
}
