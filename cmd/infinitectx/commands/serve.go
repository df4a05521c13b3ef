// ABOUTME: Serve command starts the HTTP streaming server
// ABOUTME: Wires config, backend, transcript store, and graceful shutdown
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/infinitecontext/infinitectx/internal/config"
	"github.com/infinitecontext/infinitectx/internal/llm"
	"github.com/infinitecontext/infinitectx/internal/server"
	"github.com/infinitecontext/infinitectx/internal/transcript"
)

var (
	serveAddr          string
	serveNoTranscripts bool
)

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP streaming server",
		Long: `Start the HTTP server.

POST /api/chat accepts a chat request; infinite mode streams one JSON
line per settled chunk, default mode answers in a single body.

Examples:
  infinitectx serve
  infinitectx serve --addr :9090
  infinitectx serve --no-transcripts`,
		RunE: runServe,
	}

	cmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides LISTEN_ADDR)")
	cmd.Flags().BoolVar(&serveNoTranscripts, "no-transcripts", false, "Disable transcript persistence")

	return cmd
}

// newLogger builds the tint-backed slog logger honoring global flags
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if quiet {
		level = slog.LevelWarn
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}

func runServe(cmd *cobra.Command, args []string) error {
	// Load .env file if it exists (for API keys)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if serveAddr != "" {
		cfg.ListenAddr = serveAddr
	}

	logger := newLogger()

	backend, err := llm.New(cfg.Backend, llm.Config{
		APIKey:     cfg.OpenAIKey,
		Model:      cfg.Model,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Timeout:    cfg.Timeout,
	})
	if err != nil {
		return fmt.Errorf("initializing backend: %w", err)
	}

	var transcripts server.TranscriptSink
	if !serveNoTranscripts {
		store, err := transcript.NewStore(&transcript.Config{
			Host:     cfg.CharmHost,
			DBName:   cfg.CharmDBName,
			Debounce: cfg.TranscriptDebounce,
			AutoSync: true,
		})
		if err != nil {
			logger.Warn("transcript store unavailable, continuing without persistence", "error", err)
		} else {
			transcripts = store
			defer func() {
				if err := store.Close(); err != nil {
					logger.Warn("closing transcript store", "error", err)
				}
			}()
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, backend, transcripts, logger)
	return srv.Run(ctx)
}
