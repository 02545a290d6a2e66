package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gwi.com/prompt-relay/internal/api"
	"gwi.com/prompt-relay/internal/auth"
	"gwi.com/prompt-relay/internal/config"
	"gwi.com/prompt-relay/internal/core"
	"gwi.com/prompt-relay/internal/llm"
	"gwi.com/prompt-relay/internal/logging"
	"gwi.com/prompt-relay/internal/mail"
	"gwi.com/prompt-relay/internal/store"
)

const pendingRegistrations = 10000

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "prompt-relay",
		Short:        "Relay prompts to hosted language models and keep the history",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.String("port", "", "HTTP port (env HTTP_PORT)")
	flags.String("database-url", "", "postgres:// or sqlite:// URL (env DATABASE_URL)")
	flags.String("log-level", "", "DEBUG, INFO, WARN or ERROR (env LOG_LEVEL)")
	flags.Bool("auth", true, "require login and email verification (env AUTH_ENABLED)")

	root.AddCommand(newMigrateCmd(), newHistoryCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.LoadConfig(cmd.Flags())
			logger := logging.New(os.Stdout, cfg.LogLevel)

			st, err := store.NewSQLStore(cmd.Context(), cfg.DatabaseURL, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			logger.Info(cmd.Context(), "database is up to date", "dialect", st.Dialect())
			return nil
		},
	}
}

func newHistoryCmd() *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print stored turns, oldest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.LoadConfig(cmd.Flags())
			ctx := cmd.Context()
			// keep stdout for the listing
			logger := logging.New(cmd.ErrOrStderr(), cfg.LogLevel)

			st, err := store.NewSQLStore(ctx, cfg.DatabaseURL, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			var owner *int64
			if username != "" {
				u, err := st.GetUserByUsername(ctx, username)
				if err != nil {
					return fmt.Errorf("user %q: %w", username, err)
				}
				owner = &u.ID
			}

			records, err := st.ListHistory(ctx, owner)
			if err != nil {
				return err
			}
			printHistory(cmd, records)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "user", "", "only turns owned by this username")
	return cmd
}

func printHistory(cmd *cobra.Command, records []store.HistoryRecord) {
	out := cmd.OutOrStdout()
	for _, rec := range records {
		fmt.Fprintf(out, "#%d %s\n> %s\n", rec.ID, rec.CreatedAt.Format(time.RFC3339), rec.Prompt)
		for _, col := range []string{store.ColumnHuggingFace, store.ColumnClaude, store.ColumnGemini} {
			if text := rec.Output(col); text != "" {
				fmt.Fprintf(out, "[%s] %s\n", col, text)
			}
		}
		fmt.Fprintln(out)
	}
}

func runServer(cmd *cobra.Command) error {
	cfg := config.LoadConfig(cmd.Flags())
	logger := logging.New(os.Stdout, cfg.LogLevel)
	ctx := cmd.Context()

	if !cfg.EnvFileLoaded {
		logger.Debug(ctx, "no .env file found, reading the environment only")
	}
	for _, problem := range cfg.Validate() {
		logger.Error(ctx, "configuration problem", "problem", problem)
	}

	// Initialize database store
	dbStore, err := store.NewSQLStore(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error(ctx, "failed to initialize database", "error", err)
		return err
	}
	defer dbStore.Close()

	primary, closePrimary := buildPrimary(ctx, cfg, logger)
	defer closePrimary()

	relay := core.NewRelayService(dbStore, primary, buildSecondaries(cfg, logger), logger)

	var (
		authService *core.AuthService
		sessions    *api.SessionManager
	)
	if cfg.AuthEnabled {
		pending, err := auth.NewPendingStore(pendingRegistrations)
		if err != nil {
			return err
		}
		authService = core.NewAuthService(dbStore, pending, buildMailer(cfg), logger)
		sessions = api.NewSessionManager(sessionSecret(cfg, logger), logger)
	}

	pages, err := api.NewPages(logger)
	if err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}
	router := api.NewRouter(api.NewAPIHandler(relay, authService, sessions, pages, cfg.AuthEnabled, logger))

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // streamed replies stay open while the model writes
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "starting server", "addr", serverAddr, "auth", cfg.AuthEnabled)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		logger.Error(ctx, "could not listen", "addr", serverAddr, "error", err)
		return err
	}
	logger.Info(ctx, "shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "server forced to shutdown", "error", err)
		return err
	}
	logger.Info(ctx, "server exited gracefully")
	return nil
}

// buildPrimary falls back to a provider that fails every stream when the
// Gemini client cannot be created, so the server still starts.
func buildPrimary(ctx context.Context, cfg *config.Config, logger logging.Logger) (llm.Streamer, func()) {
	gemini, err := llm.NewGemini(ctx, cfg.GoogleAPIKey, cfg.GeminiModel, logger)
	if err != nil {
		logger.Error(ctx, "gemini is unavailable", "error", err)
		return llm.NewUnavailable(llm.ProviderGemini, err), func() {}
	}
	return gemini, gemini.Close
}

func buildSecondaries(cfg *config.Config, logger logging.Logger) []llm.Completer {
	var out []llm.Completer
	for _, name := range cfg.SecondaryProviders {
		switch name {
		case llm.ProviderHuggingFace:
			out = append(out, llm.NewHuggingFace(cfg.HuggingFaceToken, cfg.HuggingFaceBaseURL,
				cfg.HuggingFaceModel, cfg.HuggingFaceMaxTokens, logger))
		case llm.ProviderClaude:
			out = append(out, llm.NewClaude(cfg.AnthropicAPIKey, "", cfg.ClaudeModel, cfg.ClaudeMaxTokens, logger))
		}
	}
	return out
}

func buildMailer(cfg *config.Config) mail.Sender {
	if cfg.SMTPHost == "" {
		return mail.UnconfiguredSender{}
	}
	return mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom)
}

// sessionSecret returns SECRET_KEY or, when unset, a random key that lives as
// long as the process.
func sessionSecret(cfg *config.Config, logger logging.Logger) []byte {
	if cfg.SecretKey != "" {
		return []byte(cfg.SecretKey)
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		logger.Error(context.Background(), "failed to generate session key", "error", err)
	}
	return key
}
