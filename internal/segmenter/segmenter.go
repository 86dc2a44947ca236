package segmenter

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"storythingy/storyboard-api/models"
)

const (
	// MinSceneSeconds is the duration floor applied to every scene before rescaling.
	MinSceneSeconds = 3.0
	// WordsPerMinute is the assumed narration pace.
	WordsPerMinute = 140.0
	// MinTotalSeconds and MaxTotalSeconds bound the storyboard's aggregate duration.
	MinTotalSeconds = 30.0
	MaxTotalSeconds = 90.0
)

// Chunk is one narration chunk produced by the upstream text analysis:
// the exact script substring to narrate plus a visual prompt describing
// what the scene should depict.
type Chunk struct {
	Text         string `json:"text"`
	VisualPrompt string `json:"visual_prompt"`
}

// ChunkSource splits a script into narration chunks. Implementations live
// at the gateway boundary (chat-model backed, with a deterministic
// sentence-splitting fallback).
type ChunkSource interface {
	Chunks(ctx context.Context, script string) ([]Chunk, error)
}

// MalformedSegmentationError reports an unusable chunk list. The caller
// must treat it as unrecoverable for the current script.
type MalformedSegmentationError struct {
	Reason string
}

func (e *MalformedSegmentationError) Error() string {
	return fmt.Sprintf("malformed segmentation: %s", e.Reason)
}

// Segmenter converts a script into an ordered storyboard with computed
// per-scene durations. Chunking is delegated to the ChunkSource; the
// duration math is deterministic and pure.
type Segmenter struct {
	source ChunkSource
	log    *logrus.Logger
}

func New(source ChunkSource, log *logrus.Logger) *Segmenter {
	return &Segmenter{source: source, log: log}
}

// Segment splits the script into scenes and assigns durations.
// targetSeconds is advisory only: the aggregate is always rescaled into
// the [MinTotalSeconds, MaxTotalSeconds] viability band regardless.
func (s *Segmenter) Segment(ctx context.Context, script string, targetSeconds float64) (*models.Storyboard, error) {
	if strings.TrimSpace(script) == "" {
		return nil, &MalformedSegmentationError{Reason: "empty script"}
	}

	chunks, err := s.source.Chunks(ctx, script)
	if err != nil {
		return nil, fmt.Errorf("chunking script: %w", err)
	}
	if len(chunks) == 0 {
		return nil, &MalformedSegmentationError{Reason: "chunk list is empty"}
	}
	for i, ch := range chunks {
		if strings.TrimSpace(ch.Text) == "" {
			return nil, &MalformedSegmentationError{Reason: fmt.Sprintf("chunk %d has no text", i)}
		}
		if strings.TrimSpace(ch.VisualPrompt) == "" {
			return nil, &MalformedSegmentationError{Reason: fmt.Sprintf("chunk %d has no visual prompt", i)}
		}
	}

	scenes := make([]models.Scene, len(chunks))
	for i, ch := range chunks {
		scenes[i] = models.Scene{
			ID:           i,
			Text:         ch.Text,
			VisualPrompt: ch.VisualPrompt,
			Duration:     SceneDuration(ch.Text),
			ImageStatus:  models.ImagePending,
			VideoStatus:  models.VideoNone,
		}
	}
	rescaleDurations(scenes)

	sb := &models.Storyboard{
		ID:        uuid.New(),
		Title:     deriveTitle(chunks[0].Text),
		Scenes:    scenes,
		CreatedAt: time.Now().UTC(),
	}
	if s.log != nil {
		s.log.WithFields(logrus.Fields{
			"storyboard_id": sb.ID,
			"scenes":        len(scenes),
			"total_sec":     sb.TotalDuration(),
			"target_sec":    targetSeconds,
		}).Info("Script segmented")
	}
	return sb, nil
}

// SceneDuration computes the narration duration for one chunk of text:
// word count at the assumed pace, floored at MinSceneSeconds, rounded to
// one decimal.
func SceneDuration(text string) float64 {
	words := len(strings.Fields(text))
	d := float64(words) / WordsPerMinute * 60.0
	return round1(math.Max(MinSceneSeconds, d))
}

// rescaleDurations multiplies every duration by a uniform factor when the
// aggregate falls outside the viability band, re-rounding each scene.
func rescaleDurations(scenes []models.Scene) {
	var total float64
	for _, sc := range scenes {
		total += sc.Duration
	}
	if total <= 0 {
		return
	}

	var factor float64
	switch {
	case total < MinTotalSeconds:
		factor = MinTotalSeconds / total
	case total > MaxTotalSeconds:
		factor = MaxTotalSeconds / total
	default:
		return
	}
	for i := range scenes {
		scenes[i].Duration = round1(scenes[i].Duration * factor)
	}
}

func deriveTitle(firstChunk string) string {
	words := strings.Fields(firstChunk)
	if len(words) == 0 {
		return "Untitled storyboard"
	}
	if len(words) > 8 {
		words = words[:8]
	}
	return strings.TrimRight(strings.Join(words, " "), ".,;:!?")
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
