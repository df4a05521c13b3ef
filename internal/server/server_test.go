// ABOUTME: Tests for the /api/chat HTTP surface
// ABOUTME: Covers validation, default-mode single shot, NDJSON streaming, and rate-limit aborts
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/infinitecontext/infinitectx/internal/config"
	"github.com/infinitecontext/infinitectx/internal/llm"
	"github.com/infinitecontext/infinitectx/internal/models"
	"github.com/infinitecontext/infinitectx/internal/stream"
)

func testConfig() *config.Config {
	return &config.Config{
		ChunkWords:          5,
		MaxConcurrent:       4,
		DefaultModeMaxChars: 40,
		RequestTimeout:      time.Minute,
		ListenAddr:          ":0",
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, backend llm.Backend, transcripts TranscriptSink) *httptest.Server {
	t.Helper()
	srv := New(testConfig(), backend, transcripts, quietLogger())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postChat(t *testing.T, ts *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/chat", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/chat failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, &scriptedBackend{}, nil)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

// scriptedBackend implements llm.Backend with a per-call script.
type scriptedBackend struct {
	mu    sync.Mutex
	calls int

	// fn decides the outcome of each call; nil echoes the prompt.
	fn func(call int, prompt string) (string, error)
}

func (s *scriptedBackend) Generate(_ context.Context, prompt string, media *llm.Media) (string, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	fn := s.fn
	s.mu.Unlock()

	if fn == nil {
		return "echo: " + prompt, nil
	}
	return fn(call, prompt)
}

func (s *scriptedBackend) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestChat_MissingMessageRejected(t *testing.T) {
	ts := newTestServer(t, &scriptedBackend{}, nil)

	resp := postChat(t, ts, `{"mode":"default"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Error == "" {
		t.Error("expected an error message in the body")
	}
}

func TestChat_UnknownModeRejected(t *testing.T) {
	ts := newTestServer(t, &scriptedBackend{}, nil)

	resp := postChat(t, ts, `{"message":"hi","mode":"turbo"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestChat_DefaultModeSingleShot(t *testing.T) {
	backend := &scriptedBackend{}
	ts := newTestServer(t, backend, nil)

	resp := postChat(t, ts, `{"message":"short question","mode":"default"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Response string `json:"response"`
		Mode     string `json:"mode"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Mode != "default" {
		t.Errorf("mode = %q, want default", body.Mode)
	}
	if body.Response != "echo: short question" {
		t.Errorf("response = %q", body.Response)
	}
	if got := backend.callCount(); got != 1 {
		t.Errorf("backend calls = %d, want 1", got)
	}
}

func TestChat_DefaultModeMessageTooLong(t *testing.T) {
	ts := newTestServer(t, &scriptedBackend{}, nil)

	long := strings.Repeat("x", 41)
	resp := postChat(t, ts, fmt.Sprintf(`{"message":%q,"mode":"default"}`, long))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if !strings.Contains(body.Error, "infinite") {
		t.Errorf("error should point at infinite mode, got %q", body.Error)
	}
}

func TestChat_InfiniteModeZeroUnitsFallsBack(t *testing.T) {
	backend := &scriptedBackend{}
	ts := newTestServer(t, backend, nil)

	// No fullText, images, or video: nothing to chunk.
	resp := postChat(t, ts, `{"message":"just chat","mode":"infinite"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if got := backend.callCount(); got != 1 {
		t.Errorf("backend calls = %d, want 1", got)
	}
}

// readStream consumes the NDJSON body into typed records.
func readStream(t *testing.T, body io.Reader) (chunks []models.UnitResult, summary *models.CompleteData, failure *models.ErrorData) {
	t.Helper()
	r := stream.NewReader(body, quietLogger())
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return
		}
		if err != nil {
			t.Fatalf("reading stream: %v", err)
		}
		switch rec.Type {
		case models.RecordChunk:
			data, err := rec.ChunkResult()
			if err != nil {
				t.Fatalf("decoding chunk: %v", err)
			}
			chunks = append(chunks, data)
		case models.RecordComplete:
			data, err := rec.Summary()
			if err != nil {
				t.Fatalf("decoding summary: %v", err)
			}
			summary = &data
		case models.RecordError:
			data, err := rec.Failure()
			if err != nil {
				t.Fatalf("decoding failure: %v", err)
			}
			failure = &data
		}
	}
}

func TestChat_InfiniteModeStreamsAllChunks(t *testing.T) {
	backend := &scriptedBackend{}
	ts := newTestServer(t, backend, nil)

	// 12 words with ChunkWords=5 -> 3 units.
	fullText := strings.Repeat("word ", 12)
	resp := postChat(t, ts, fmt.Sprintf(`{"message":"summarize","mode":"infinite","fullText":%q}`, fullText))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/x-ndjson" {
		t.Errorf("Content-Type = %q, want application/x-ndjson", ct)
	}

	chunks, summary, failure := readStream(t, resp.Body)
	if failure != nil {
		t.Fatalf("unexpected error record: %+v", failure)
	}
	if len(chunks) != 3 {
		t.Fatalf("chunk records = %d, want 3", len(chunks))
	}
	seen := make(map[int]bool)
	for _, c := range chunks {
		if c.TotalUnits != 3 {
			t.Errorf("totalChunks = %d, want 3", c.TotalUnits)
		}
		if c.Status != models.StatusComplete {
			t.Errorf("status = %q, want complete", c.Status)
		}
		if c.ErrorMessage != "" {
			t.Errorf("error = %q, want empty", c.ErrorMessage)
		}
		if seen[c.Index] {
			t.Errorf("duplicate chunkNumber %d", c.Index)
		}
		seen[c.Index] = true
	}
	if summary == nil {
		t.Fatal("missing complete record")
	}
	if summary.TotalProcessed != 3 || summary.ErrorCount != 0 {
		t.Errorf("summary = %+v, want {3 0}", *summary)
	}
}

func TestChat_InfiniteModeContainsUnitFailure(t *testing.T) {
	backend := &scriptedBackend{
		fn: func(call int, prompt string) (string, error) {
			if strings.Contains(prompt, "Part 2 text") {
				return "", &llm.BackendError{Message: "model exploded"}
			}
			return "ok", nil
		},
	}
	ts := newTestServer(t, backend, nil)

	fullText := strings.Repeat("word ", 12)
	resp := postChat(t, ts, fmt.Sprintf(`{"message":"summarize","mode":"infinite","fullText":%q}`, fullText))

	chunks, summary, failure := readStream(t, resp.Body)
	if failure != nil {
		t.Fatalf("contained failure must not abort the stream: %+v", failure)
	}
	if len(chunks) != 3 {
		t.Fatalf("chunk records = %d, want 3", len(chunks))
	}

	var errored int
	for _, c := range chunks {
		if c.Status == models.StatusError {
			errored++
			if c.ErrorMessage == "" {
				t.Error("error chunk should carry a message")
			}
			if c.ResponseText != "" {
				t.Errorf("error chunk response = %q, want empty", c.ResponseText)
			}
		}
	}
	if errored != 1 {
		t.Errorf("errored chunks = %d, want 1", errored)
	}
	if summary == nil {
		t.Fatal("missing complete record")
	}
	if summary.TotalProcessed != 3 || summary.ErrorCount != 1 {
		t.Errorf("summary = %+v, want {3 1}", *summary)
	}
}

func TestChat_InfiniteModeRateLimitAborts(t *testing.T) {
	backend := &scriptedBackend{
		fn: func(call int, prompt string) (string, error) {
			return "", fmt.Errorf("quota gone: %w", llm.ErrRateLimited)
		},
	}
	ts := newTestServer(t, backend, nil)

	fullText := strings.Repeat("word ", 12)
	resp := postChat(t, ts, fmt.Sprintf(`{"message":"summarize","mode":"infinite","fullText":%q}`, fullText))

	_, summary, failure := readStream(t, resp.Body)
	if failure == nil {
		t.Fatal("expected a terminal error record")
	}
	if failure.Message != "Rate limit reached" {
		t.Errorf("message = %q, want %q", failure.Message, "Rate limit reached")
	}
	if summary != nil {
		t.Errorf("aborted batch must not emit a complete record, got %+v", *summary)
	}
}

func TestChat_SingleShotRateLimitIs429(t *testing.T) {
	backend := &scriptedBackend{
		fn: func(call int, prompt string) (string, error) {
			return "", llm.ErrRateLimited
		},
	}
	ts := newTestServer(t, backend, nil)

	resp := postChat(t, ts, `{"message":"hi","mode":"default"}`)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
}

type memorySink struct {
	mu      sync.Mutex
	appends []string
}

func (m *memorySink) Append(chatID, role, text string) (models.Transcript, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if chatID == "" {
		chatID = "generated"
	}
	m.appends = append(m.appends, role+":"+text)
	return models.Transcript{ChatID: chatID}, nil
}

func TestChat_RecordsTranscript(t *testing.T) {
	sink := &memorySink{}
	ts := newTestServer(t, &scriptedBackend{}, sink)

	resp := postChat(t, ts, `{"message":"short question","mode":"default"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	io.Copy(io.Discard, resp.Body)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.appends) != 2 {
		t.Fatalf("appends = %d, want 2 (user + assistant)", len(sink.appends))
	}
	if sink.appends[0] != "user:short question" {
		t.Errorf("first append = %q", sink.appends[0])
	}
	if !strings.HasPrefix(sink.appends[1], "assistant:") {
		t.Errorf("second append = %q", sink.appends[1])
	}
}
