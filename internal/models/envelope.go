// ABOUTME: RequestEnvelope is the external request shape accepted by the pipeline
// ABOUTME: Field names match the wire format used by existing clients
package models

import (
	"errors"
	"strings"
)

// Mode selects between the chunked pipeline and a single direct call.
type Mode string

const (
	ModeInfinite Mode = "infinite"
	ModeDefault  Mode = "default"
)

// IsValid reports whether the mode is one of the known request modes.
func (m Mode) IsValid() bool {
	return m == ModeInfinite || m == ModeDefault
}

// InlineData is a base64 media payload with its MIME type.
type InlineData struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
}

// ImageAttachment wraps one inline image, matching the client wire shape.
type ImageAttachment struct {
	InlineData InlineData `json:"inlineData"`
}

// VideoAttachment carries the representative frames sampled from an
// uploaded video by the extraction service.
type VideoAttachment struct {
	Screenshots []string `json:"screenshots"`
	FileName    string   `json:"fileName,omitempty"`
	FileType    string   `json:"fileType,omitempty"`
}

// RequestEnvelope is the full external request. Message is the
// instruction common to all units; FullText, Images and Video are the
// optional oversized sources that get chunked.
type RequestEnvelope struct {
	Message  string            `json:"message"`
	Mode     Mode              `json:"mode"`
	FullText string            `json:"fullText,omitempty"`
	Images   []ImageAttachment `json:"images,omitempty"`
	Video    *VideoAttachment  `json:"video,omitempty"`
}

// ErrMissingMessage rejects envelopes with no instruction text.
var ErrMissingMessage = errors.New("message is required")

// Validate checks the envelope before any chunking happens.
func (r *RequestEnvelope) Validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return ErrMissingMessage
	}
	if r.Mode != "" && !r.Mode.IsValid() {
		return errors.New("mode must be \"infinite\" or \"default\"")
	}
	return nil
}

// HasSources reports whether any chunkable source is attached.
func (r *RequestEnvelope) HasSources() bool {
	if strings.TrimSpace(r.FullText) != "" {
		return true
	}
	if len(r.Images) > 0 {
		return true
	}
	return r.Video != nil && len(r.Video.Screenshots) > 0
}
