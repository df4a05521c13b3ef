// ABOUTME: Renders per-unit instruction text from the chunk-context templates
// ABOUTME: Every prompt is self-sufficient; no unit references another unit's content
package core

import (
	"fmt"

	"github.com/infinitecontext/infinitectx/internal/models"
)

const textUnitTemplate = `You are processing part %d of %d of a larger document that was split because it exceeds a single context window. The other parts are being processed the same way and the answers will be merged afterwards. Do not write an introduction, greeting, or summary of what you are about to do; answer the request for this part only.

Request: %s

Part %d text:
%s`

const imageUnitTemplate = `You are looking at attachment %d of %d from a single request. The other attachments are being processed the same way and the answers will be merged afterwards. Do not write an introduction or greeting; answer the request for this attachment only.

Request: %s`

const videoFrameTemplate = `You are looking at frame %d of %d sampled from a video. This frame was taken from the %s of the video. The other frames are being processed the same way and the answers will be merged afterwards. Do not write an introduction or greeting; answer the request for this frame only.

Request: %s`

// BuildUnitPrompt renders the instruction text for one work unit. Text
// units embed their slice; media units carry the payload out of band
// and only describe their position.
func BuildUnitPrompt(unit models.WorkUnit, userRequest string) string {
	switch unit.Kind {
	case models.UnitKindImage:
		return fmt.Sprintf(imageUnitTemplate, unit.Index, unit.TotalUnits, userRequest)
	case models.UnitKindVideoFrame:
		return fmt.Sprintf(videoFrameTemplate, unit.Index, unit.TotalUnits, unit.FramePos, userRequest)
	default:
		return fmt.Sprintf(textUnitTemplate, unit.Index, unit.TotalUnits, userRequest, unit.Index, unit.TextSlice)
	}
}
