// ABOUTME: Stream record types for the newline-delimited JSON response
// ABOUTME: Wire shapes are byte-compatible with existing chat clients
package models

// Record type tags on the outbound stream.
const (
	RecordChunk    = "chunk"
	RecordComplete = "complete"
	RecordError    = "error"
)

// ChunkData is the payload of one "chunk" record. Error is a pointer so
// successful chunks serialize with an explicit null, matching clients
// that distinguish null from absent.
type ChunkData struct {
	ChunkNumber int     `json:"chunkNumber"`
	TotalChunks int     `json:"totalChunks"`
	Response    string  `json:"response"`
	Error       *string `json:"error"`
	Status      string  `json:"status"`
}

// CompleteData is the payload of the terminal "complete" record.
type CompleteData struct {
	TotalProcessed int `json:"totalProcessed"`
	ErrorCount     int `json:"errorCount"`
}

// ErrorData is the payload of a batch-fatal "error" record. Message is
// the human-readable summary; Error carries backend text for diagnostics.
type ErrorData struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// ChunkRecord wraps one settled unit for the stream.
type ChunkRecord struct {
	Type string    `json:"type"`
	Data ChunkData `json:"data"`
}

// CompleteRecord wraps the batch summary.
type CompleteRecord struct {
	Type string       `json:"type"`
	Data CompleteData `json:"data"`
}

// ErrorRecord wraps a batch-fatal failure.
type ErrorRecord struct {
	Type string    `json:"type"`
	Data ErrorData `json:"data"`
}

// NewChunkData converts a UnitResult into its wire representation.
func NewChunkData(res UnitResult) ChunkData {
	data := ChunkData{
		ChunkNumber: res.Index,
		TotalChunks: res.TotalUnits,
		Response:    res.ResponseText,
		Status:      string(res.Status),
	}
	if res.Status == StatusError {
		msg := res.ErrorMessage
		data.Error = &msg
	}
	return data
}

// UnitResultFromChunk reverses NewChunkData on the consumer side.
func UnitResultFromChunk(data ChunkData) UnitResult {
	res := UnitResult{
		Index:        data.ChunkNumber,
		TotalUnits:   data.TotalChunks,
		ResponseText: data.Response,
		Status:       UnitStatus(data.Status),
	}
	if data.Error != nil {
		res.ErrorMessage = *data.Error
	}
	return res
}
