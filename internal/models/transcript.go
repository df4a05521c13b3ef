// ABOUTME: Transcript is the chat history shape handed to the persistence layer
// ABOUTME: Stored as a whole document; the store coalesces rapid rewrites
package models

import "time"

// TranscriptMessage is one entry in a chat transcript.
type TranscriptMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Transcript is the latest full state of one chat. The persistence
// layer always writes the whole transcript, never a delta.
type Transcript struct {
	ChatID    string              `json:"chat_id"`
	Messages  []TranscriptMessage `json:"messages"`
	UpdatedAt time.Time           `json:"updated_at"`
}
