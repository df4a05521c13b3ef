// ABOUTME: Emitter serializes pipeline records as newline-delimited JSON
// ABOUTME: One self-contained line per record, flushed as soon as it is written
package stream

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/infinitecontext/infinitectx/internal/models"
)

// Emitter appends one independently parseable JSON line per record to
// the outbound stream, in completion order. JSON string escaping keeps
// every line intact regardless of newlines or quotes in generated text.
type Emitter struct {
	mu    sync.Mutex
	enc   *json.Encoder
	flush func()
}

// NewEmitter wraps a writer. If the writer supports http.Flusher each
// record is pushed to the client immediately rather than sitting in the
// response buffer until the handler returns.
func NewEmitter(w io.Writer) *Emitter {
	e := &Emitter{enc: json.NewEncoder(w)}
	e.enc.SetEscapeHTML(false)
	if f, ok := w.(http.Flusher); ok {
		e.flush = f.Flush
	}
	return e
}

func (e *Emitter) emit(record any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.enc.Encode(record); err != nil {
		return err
	}
	if e.flush != nil {
		e.flush()
	}
	return nil
}

// Chunk writes one settled unit result.
func (e *Emitter) Chunk(res models.UnitResult) error {
	return e.emit(models.ChunkRecord{
		Type: models.RecordChunk,
		Data: models.NewChunkData(res),
	})
}

// Complete writes the terminal summary record.
func (e *Emitter) Complete(totalProcessed, errorCount int) error {
	return e.emit(models.CompleteRecord{
		Type: models.RecordComplete,
		Data: models.CompleteData{TotalProcessed: totalProcessed, ErrorCount: errorCount},
	})
}

// Error writes a batch-fatal record and ends the logical stream; no
// chunk records for the batch may follow it.
func (e *Emitter) Error(message, details string) error {
	return e.emit(models.ErrorRecord{
		Type: models.RecordError,
		Data: models.ErrorData{Message: message, Error: details},
	})
}
