// ABOUTME: Process command runs the chunked pipeline from the terminal
// ABOUTME: Streams NDJSON records to stdout or prints the merged composite
package commands

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/infinitecontext/infinitectx/internal/config"
	"github.com/infinitecontext/infinitectx/internal/core"
	"github.com/infinitecontext/infinitectx/internal/llm"
	"github.com/infinitecontext/infinitectx/internal/models"
	"github.com/infinitecontext/infinitectx/internal/stream"
)

var (
	processFile   string
	processImages []string
	processFrames []string
	processMerge  bool
)

// NewProcessCmd creates the process command
func NewProcessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process [request]",
		Short: "Run inputs through the chunked pipeline",
		Long: `Run a document, images, or video frames through the pipeline.

The request text is applied to every chunk. Without --merge each chunk
result is printed as one JSON line the moment it settles; with --merge
the chunks are reassembled in order and printed as one composite.

Examples:
  infinitectx process "summarize this" --file book.txt
  infinitectx process "what's in these?" --image a.png --image b.jpg
  infinitectx process "describe the scene" --frame f1.jpg --frame f2.jpg --merge
  cat book.txt | infinitectx process "summarize this" --merge`,
		Args: cobra.MaximumNArgs(1),
		RunE: runProcess,
	}

	cmd.Flags().StringVar(&processFile, "file", "", "Text file to process (stdin if omitted)")
	cmd.Flags().StringArrayVar(&processImages, "image", nil, "Image file to attach (repeatable)")
	cmd.Flags().StringArrayVar(&processFrames, "frame", nil, "Video frame file to attach (repeatable)")
	cmd.Flags().BoolVar(&processMerge, "merge", false, "Reassemble chunk results into one composite")

	return cmd
}

func runProcess(cmd *cobra.Command, args []string) error {
	// Load .env for API keys
	_ = godotenv.Load()

	if len(args) == 0 {
		return fmt.Errorf("no request text provided")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	env, err := buildEnvelope(cmd, args[0])
	if err != nil {
		return err
	}

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

	logger := newLogger()
	chunker := core.NewChunker(cfg.ChunkWords)
	dispatcher := core.NewDispatcher(backend, cfg.MaxConcurrent, logger)

	units := chunker.Chunk(env)
	if len(units) == 0 {
		// Nothing to split; one direct call.
		response, err := backend.Generate(cmd.Context(), env.Message, nil)
		if err != nil {
			return fmt.Errorf("%s: %w", llm.UserMessage(err), err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), response)
		return nil
	}

	if verbose {
		logger.Debug("dispatching batch", "units", len(units))
	}

	emitter := stream.NewEmitter(cmd.OutOrStdout())
	reassembler := core.NewReassembler()
	emit := func(res models.UnitResult) error {
		reassembler.Fold(res)
		if processMerge {
			return nil
		}
		return emitter.Chunk(res)
	}

	summary, err := dispatcher.Dispatch(cmd.Context(), units, emit)
	if err != nil {
		if !processMerge {
			_ = emitter.Error(llm.UserMessage(err), err.Error())
		}
		return fmt.Errorf("%s: %w", llm.UserMessage(err), err)
	}

	if processMerge {
		fmt.Fprintln(cmd.OutOrStdout(), reassembler.Render())
		if !quiet && summary.ErrorCount > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d chunks failed\n", summary.ErrorCount, summary.TotalProcessed)
		}
		return nil
	}
	return emitter.Complete(summary.TotalProcessed, summary.ErrorCount)
}

// buildEnvelope normalizes flags, args, and stdin into the extraction
// shapes and hands them to the shared envelope builder.
func buildEnvelope(cmd *cobra.Command, message string) (models.RequestEnvelope, error) {
	var doc *models.DocumentExtract
	if processFile != "" {
		data, err := os.ReadFile(processFile)
		if err != nil {
			return models.RequestEnvelope{}, fmt.Errorf("reading file: %w", err)
		}
		doc = &models.DocumentExtract{
			Text:     string(data),
			FileName: filepath.Base(processFile),
		}
	} else if len(processImages) == 0 && len(processFrames) == 0 {
		// No named sources: text comes from stdin.
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return models.RequestEnvelope{}, fmt.Errorf("reading stdin: %w", err)
		}
		doc = &models.DocumentExtract{Text: strings.TrimSpace(string(data))}
	}

	var images []models.ImageExtract
	for _, path := range processImages {
		data, err := os.ReadFile(path)
		if err != nil {
			return models.RequestEnvelope{}, fmt.Errorf("reading image: %w", err)
		}
		images = append(images, models.ImageExtract{
			Data:     base64.StdEncoding.EncodeToString(data),
			MimeType: mediaTypeFor(path),
			FileName: filepath.Base(path),
		})
	}

	var video *models.VideoExtract
	if len(processFrames) > 0 {
		video = &models.VideoExtract{}
		for _, path := range processFrames {
			data, err := os.ReadFile(path)
			if err != nil {
				return models.RequestEnvelope{}, fmt.Errorf("reading frame: %w", err)
			}
			video.Screenshots = append(video.Screenshots, base64.StdEncoding.EncodeToString(data))
			video.FileName = filepath.Base(path)
		}
	}

	return models.Envelope(message, doc, images, video), nil
}

// mediaTypeFor guesses a MIME type from the file extension.
func mediaTypeFor(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "image/jpeg"
}
