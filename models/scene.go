package models

// ImageStatus tracks a scene's progress through the image generation stage.
type ImageStatus string

const (
	ImagePending    ImageStatus = "pending"
	ImageGenerating ImageStatus = "generating"
	ImageCompleted  ImageStatus = "completed"
	ImageError      ImageStatus = "error"
)

// VideoStatus tracks a scene's progress through the video generation stage.
// It starts at "none" and may only leave "none" once the scene's image
// stage has completed.
type VideoStatus string

const (
	VideoNone       VideoStatus = "none"
	VideoGenerating VideoStatus = "generating"
	VideoCompleted  VideoStatus = "completed"
	VideoError      VideoStatus = "error"
)

// Scene is one narrated segment of a storyboard together with its derived
// visual artifacts. The ID is assigned at segmentation time, matches
// narration order and is the sole correlation key across stages.
type Scene struct {
	ID           int     `json:"id"`
	Text         string  `json:"text"`
	VisualPrompt string  `json:"visual_prompt"`
	Duration     float64 `json:"duration"` // seconds, one decimal

	ImageStatus ImageStatus `json:"image_status"`
	VideoStatus VideoStatus `json:"video_status"`

	ImageURL string `json:"image_url,omitempty"`
	VideoURL string `json:"video_url,omitempty"`

	// CachedClipPath points at a locally cached copy of the video clip,
	// kept so stitching survives upstream URL expiry. Best effort only.
	CachedClipPath string `json:"-"`

	ImageRetries int    `json:"image_retries,omitempty"`
	VideoRetries int    `json:"video_retries,omitempty"`
	LastError    string `json:"last_error,omitempty"`
}
