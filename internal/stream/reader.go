// ABOUTME: Consumer-side parsing of the newline-delimited record stream
// ABOUTME: Malformed lines are skipped with a warning, never crash reassembly
package stream

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/infinitecontext/infinitectx/internal/models"
)

// maxLineSize bounds one record; generated text for a 500-word unit
// fits comfortably under this.
const maxLineSize = 4 * 1024 * 1024

// Record is one parsed stream line with its payload still raw, decoded
// on demand by type.
type Record struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Reader walks a record stream line by line.
type Reader struct {
	scanner *bufio.Scanner
	logger  *slog.Logger
}

// NewReader wraps an NDJSON stream.
func NewReader(r io.Reader, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Reader{scanner: scanner, logger: logger}
}

// Next returns the next well-formed record, skipping lines that fail to
// parse. Returns io.EOF when the stream ends.
func (r *Reader) Next() (*Record, error) {
	for r.scanner.Scan() {
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" {
			continue
		}

		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			r.logger.Warn("skipping malformed stream record", "error", err)
			continue
		}
		if rec.Type == "" {
			r.logger.Warn("skipping stream record with no type")
			continue
		}
		return &rec, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// ChunkResult decodes a chunk record's payload into a UnitResult.
func (rec *Record) ChunkResult() (models.UnitResult, error) {
	if rec.Type != models.RecordChunk {
		return models.UnitResult{}, fmt.Errorf("record type %q is not a chunk", rec.Type)
	}
	var data models.ChunkData
	if err := json.Unmarshal(rec.Data, &data); err != nil {
		return models.UnitResult{}, fmt.Errorf("decoding chunk payload: %w", err)
	}
	return models.UnitResultFromChunk(data), nil
}

// Summary decodes a complete record's payload.
func (rec *Record) Summary() (models.CompleteData, error) {
	if rec.Type != models.RecordComplete {
		return models.CompleteData{}, fmt.Errorf("record type %q is not a summary", rec.Type)
	}
	var data models.CompleteData
	if err := json.Unmarshal(rec.Data, &data); err != nil {
		return models.CompleteData{}, fmt.Errorf("decoding summary payload: %w", err)
	}
	return data, nil
}

// Failure decodes an error record's payload.
func (rec *Record) Failure() (models.ErrorData, error) {
	if rec.Type != models.RecordError {
		return models.ErrorData{}, fmt.Errorf("record type %q is not an error", rec.Type)
	}
	var data models.ErrorData
	if err := json.Unmarshal(rec.Data, &data); err != nil {
		return models.ErrorData{}, fmt.Errorf("decoding error payload: %w", err)
	}
	return data, nil
}
