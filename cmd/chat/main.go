package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zhouzirui/wikichat/internal/bootstrap"
	"github.com/zhouzirui/wikichat/internal/config"
	"github.com/zhouzirui/wikichat/internal/logging"
	chatService "github.com/zhouzirui/wikichat/internal/service/chat"
)

var (
	logFile       string
	markdownStyle string
	plain         bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "chat",
	Short: "Terminal client for the Wikipedia chat bot",
	Long: `chat answers greetings, fetches Wikipedia summaries and images, and falls
back to web search results when Wikipedia has no page for a topic.

Run without arguments to start the interactive screen.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		logger, err = logging.NewToFile(cfg.Log, logFile)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		zap.ReplaceGlobals(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRepl(cmd.Context())
	},
}

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start the interactive chat screen",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRepl(cmd.Context())
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <text...>",
	Short: "Run a single turn and print the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAsk(cmd.Context(), cmd.OutOrStdout(), args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to this file (disabled when empty)")
	rootCmd.PersistentFlags().StringVar(&markdownStyle, "style", "auto", "glamour style for bot replies (auto, dark, light, notty)")
	askCmd.Flags().BoolVar(&plain, "plain", false, "print the reply without markdown rendering")

	rootCmd.AddCommand(replCmd, askCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// newSession wires a fresh chat service and opens its only session.
func newSession(ctx context.Context) (*chatService.Service, string, error) {
	svc, err := bootstrap.NewChatService(ctx, cfg, logger)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build response router: %w", err)
	}
	session, err := svc.CreateSession(ctx)
	if err != nil {
		return nil, "", err
	}
	return svc, session.ID, nil
}
