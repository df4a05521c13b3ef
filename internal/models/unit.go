// ABOUTME: WorkUnit represents one dispatchable piece of an oversized request
// ABOUTME: Units are created once by the chunker and never mutated afterwards
package models

// UnitKind identifies what a work unit carries and which prompt
// template applies to it.
type UnitKind string

const (
	UnitKindText       UnitKind = "TEXT"
	UnitKindImage      UnitKind = "IMAGE"
	UnitKindVideoFrame UnitKind = "VIDEO_FRAME"
)

// IsValid reports whether the kind is one of the known unit kinds.
func (k UnitKind) IsValid() bool {
	switch k {
	case UnitKindText, UnitKindImage, UnitKindVideoFrame:
		return true
	}
	return false
}

// FramePosition describes where a video frame sits within its source
// video. It is embedded in the unit's prompt so the model knows the
// temporal role of the frame it is looking at.
type FramePosition string

const (
	FrameBeginning FramePosition = "beginning"
	FrameMiddle    FramePosition = "middle"
	FrameEnd       FramePosition = "end"
)

// WorkUnit is one bounded piece of a chunked request. Index is 1-based
// and TotalUnits is identical across every unit of one batch; both are
// fixed before any dispatch begins.
type WorkUnit struct {
	Index      int      `json:"index"`
	TotalUnits int      `json:"total_units"`
	Kind       UnitKind `json:"kind"`

	// Prompt is the fully rendered instruction text for this unit.
	// It is self-sufficient: no unit's prompt references another.
	Prompt string `json:"prompt"`

	// TextSlice holds the unit's share of the long text. Empty for
	// media units.
	TextSlice string `json:"text_slice,omitempty"`

	// MediaData is a base64 payload for image and video-frame units,
	// tagged with its media type.
	MediaData string `json:"media_data,omitempty"`
	MediaType string `json:"media_type,omitempty"`

	// FramePos is set only for video-frame units.
	FramePos FramePosition `json:"frame_pos,omitempty"`
}

// HasMedia reports whether the unit carries an inline media payload.
func (u WorkUnit) HasMedia() bool {
	return u.MediaData != ""
}
