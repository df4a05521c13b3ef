// ABOUTME: HTTP server exposing the chunk-dispatch-merge pipeline at /api/chat
// ABOUTME: Default mode answers in one JSON body; infinite mode streams NDJSON records
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/infinitecontext/infinitectx/internal/config"
	"github.com/infinitecontext/infinitectx/internal/core"
	"github.com/infinitecontext/infinitectx/internal/llm"
	"github.com/infinitecontext/infinitectx/internal/models"
	"github.com/infinitecontext/infinitectx/internal/stream"
)

// TranscriptSink records finished exchanges. The server treats it as
// fire-and-forget; persistence failures never fail a request.
type TranscriptSink interface {
	Append(chatID, role, text string) (models.Transcript, error)
}

// Server routes chat requests into the pipeline.
type Server struct {
	cfg         *config.Config
	backend     llm.Backend
	chunker     *core.Chunker
	dispatcher  *core.Dispatcher
	transcripts TranscriptSink
	logger      *slog.Logger
	mux         *http.ServeMux
}

// New builds a server around a backend. transcripts may be nil when
// persistence is disabled.
func New(cfg *config.Config, backend llm.Backend, transcripts TranscriptSink, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:         cfg,
		backend:     backend,
		chunker:     core.NewChunker(cfg.ChunkWords),
		dispatcher:  core.NewDispatcher(backend, cfg.MaxConcurrent, logger),
		transcripts: transcripts,
		logger:      logger,
		mux:         http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /api/chat", s.handleChat)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	return s
}

// Handler returns the server's routing mux.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves on the configured address until ctx is cancelled, then
// shuts down gracefully so in-flight streams can finish.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.ListenAddr, Handler: s.mux}

	errs := make(chan error, 1)
	go func() { errs <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", s.cfg.ListenAddr)

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// singleResponse is the body for non-streamed answers.
type singleResponse struct {
	Response string `json:"response"`
	Mode     string `json:"mode"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintln(w, `{"status":"ok"}`)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()
	logger := s.logger.With("request_id", requestID)

	var env models.RequestEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := env.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	chatID := r.Header.Get("X-Chat-Id")

	if env.Mode != models.ModeInfinite {
		if len(env.Message) > s.cfg.DefaultModeMaxChars {
			writeJSONError(w, http.StatusBadRequest,
				fmt.Sprintf("message exceeds %d characters; use infinite mode for large inputs", s.cfg.DefaultModeMaxChars))
			return
		}
		s.serveSingle(w, r, env, chatID, logger)
		return
	}

	units := s.chunker.Chunk(env)
	if len(units) == 0 {
		// Nothing to split across calls; answer like default mode.
		s.serveSingle(w, r, env, chatID, logger)
		return
	}

	logger.Info("dispatching batch",
		"units", len(units),
		"mode", env.Mode,
		"max_concurrent", s.cfg.MaxConcurrent)

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	ctx := r.Context()
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	emitter := stream.NewEmitter(w)
	reassembler := core.NewReassembler()
	emit := func(res models.UnitResult) error {
		reassembler.Fold(res)
		return emitter.Chunk(res)
	}

	summary, err := s.dispatcher.Dispatch(ctx, units, emit)
	if err != nil {
		logger.Warn("batch aborted", "error", err, "emitted", reassembler.Len())
		_ = emitter.Error(llm.UserMessage(err), err.Error())
		return
	}

	if err := emitter.Complete(summary.TotalProcessed, summary.ErrorCount); err != nil {
		logger.Warn("client went away before summary", "error", err)
		return
	}

	logger.Info("batch complete",
		"total_processed", summary.TotalProcessed,
		"error_count", summary.ErrorCount)
	s.record(chatID, env.Message, reassembler.Render(), logger)
}

// serveSingle answers with one inference call and a plain JSON body.
func (s *Server) serveSingle(w http.ResponseWriter, r *http.Request, env models.RequestEnvelope, chatID string, logger *slog.Logger) {
	prompt := env.Message
	if text := strings.TrimSpace(env.FullText); text != "" {
		prompt = fmt.Sprintf("%s\n\n%s", env.Message, text)
	}

	response, err := s.backend.Generate(r.Context(), prompt, nil)
	if err != nil {
		status := http.StatusBadGateway
		if llm.IsRateLimited(err) {
			status = http.StatusTooManyRequests
		}
		logger.Warn("single-shot call failed", "error", err)
		writeJSONError(w, status, llm.UserMessage(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(singleResponse{Response: response, Mode: string(models.ModeDefault)})
	s.record(chatID, env.Message, response, logger)
}

// record persists the exchange when a transcript sink is wired.
func (s *Server) record(chatID, userText, assistantText string, logger *slog.Logger) {
	if s.transcripts == nil || assistantText == "" {
		return
	}
	t, err := s.transcripts.Append(chatID, "user", userText)
	if err != nil {
		logger.Warn("transcript write failed", "error", err)
		return
	}
	if _, err := s.transcripts.Append(t.ChatID, "assistant", assistantText); err != nil {
		logger.Warn("transcript write failed", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message})
}
