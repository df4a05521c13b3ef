// ABOUTME: Chunker partitions an oversized request into ordered work units
// ABOUTME: Word-group text slices, then images, then video frames; totals fixed up front
package core

import (
	"strings"

	"github.com/infinitecontext/infinitectx/internal/models"
)

// DefaultChunkWords is the word-group size used when none is configured.
const DefaultChunkWords = 500

// frameMediaType is what the extraction service emits for screenshots.
const frameMediaType = "image/jpeg"

// Chunker splits a request's sources into bounded work units.
type Chunker struct {
	words int
}

// NewChunker constructs a chunker with the given word-group size.
func NewChunker(words int) *Chunker {
	if words <= 0 {
		words = DefaultChunkWords
	}
	return &Chunker{words: words}
}

// Chunk partitions every attached source into one ordered unit sequence:
// text groups first, then images in input order, then one unit per video
// frame. TotalUnits is stamped into every unit before any dispatch and
// never recomputed. An envelope with no chunkable content yields nil,
// which callers must treat as "fall back to single-shot".
func (c *Chunker) Chunk(env models.RequestEnvelope) []models.WorkUnit {
	slices := groupWords(env.FullText, c.words)

	var frames []string
	if env.Video != nil {
		frames = env.Video.Screenshots
	}

	total := len(slices) + len(env.Images) + len(frames)
	if total == 0 {
		return nil
	}

	units := make([]models.WorkUnit, 0, total)

	for _, slice := range slices {
		unit := models.WorkUnit{
			Index:      len(units) + 1,
			TotalUnits: total,
			Kind:       models.UnitKindText,
			TextSlice:  slice,
		}
		unit.Prompt = BuildUnitPrompt(unit, env.Message)
		units = append(units, unit)
	}

	for _, img := range env.Images {
		unit := models.WorkUnit{
			Index:      len(units) + 1,
			TotalUnits: total,
			Kind:       models.UnitKindImage,
			MediaData:  img.InlineData.Data,
			MediaType:  img.InlineData.MimeType,
		}
		unit.Prompt = BuildUnitPrompt(unit, env.Message)
		units = append(units, unit)
	}

	for i, frame := range frames {
		unit := models.WorkUnit{
			Index:      len(units) + 1,
			TotalUnits: total,
			Kind:       models.UnitKindVideoFrame,
			MediaData:  frame,
			MediaType:  frameMediaType,
			FramePos:   framePosition(i, len(frames)),
		}
		unit.Prompt = BuildUnitPrompt(unit, env.Message)
		units = append(units, unit)
	}

	return units
}

// groupWords splits text on whitespace and regroups it into fixed-size
// word groups, preserving order. The final group may be shorter.
func groupWords(text string, size int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	groups := make([]string, 0, (len(words)+size-1)/size)
	for start := 0; start < len(words); start += size {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		groups = append(groups, strings.Join(words[start:end], " "))
	}
	return groups
}

// framePosition maps a frame's position in the sampled set to its
// temporal role within the source video.
func framePosition(i, n int) models.FramePosition {
	switch {
	case i == 0:
		return models.FrameBeginning
	case i == n-1:
		return models.FrameEnd
	default:
		return models.FrameMiddle
	}
}
