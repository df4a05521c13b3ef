// ABOUTME: Normalized shapes produced by the upload extraction service
// ABOUTME: The chunker consumes these without knowing the original file format
package models

// DocumentExtract is the extraction result for text documents (PDFs
// and plain text uploads).
type DocumentExtract struct {
	Text      string `json:"text"`
	PageCount int    `json:"pageCount"`
	FileName  string `json:"fileName"`
	FileSize  string `json:"fileSize"`
}

// ImageExtract is the extraction result for a single image upload.
type ImageExtract struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
	FileName string `json:"fileName"`
	FileSize string `json:"fileSize"`
}

// VideoExtract is the extraction result for a video upload: a small
// fixed set of representative frames plus the source duration.
type VideoExtract struct {
	Screenshots []string `json:"screenshots"`
	Duration    string   `json:"duration"`
	FileName    string   `json:"fileName"`
}

// Envelope builds a chunked-mode request from extracted sources. Any
// nil source contributes nothing.
func Envelope(message string, doc *DocumentExtract, images []ImageExtract, video *VideoExtract) RequestEnvelope {
	env := RequestEnvelope{
		Message: message,
		Mode:    ModeInfinite,
	}
	if doc != nil {
		env.FullText = doc.Text
	}
	for _, img := range images {
		env.Images = append(env.Images, ImageAttachment{
			InlineData: InlineData{Data: img.Data, MimeType: img.MimeType},
		})
	}
	if video != nil && len(video.Screenshots) > 0 {
		env.Video = &VideoAttachment{
			Screenshots: video.Screenshots,
			FileName:    video.FileName,
		}
	}
	return env
}
