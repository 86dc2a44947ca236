package models

import (
	"time"

	"github.com/google/uuid"
)

// Storyboard is the ordered collection of scenes produced from one script.
// Scene order equals narration order equals id order; scenes are created
// in a single batch at segmentation time and never reordered.
type Storyboard struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Scenes    []Scene   `json:"scenes"`
	CreatedAt time.Time `json:"created_at"`
}

// TotalDuration returns the summed scene durations in seconds.
func (s *Storyboard) TotalDuration() float64 {
	var total float64
	for _, sc := range s.Scenes {
		total += sc.Duration
	}
	return total
}
