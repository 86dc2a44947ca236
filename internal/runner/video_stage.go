package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"storythingy/storyboard-api/internal/gateway"
	"storythingy/storyboard-api/internal/store"
	"storythingy/storyboard-api/models"
)

// VideoRunner animates a scene's completed image into a short clip:
// none -> generating -> completed, with a fixed wait between attempts and
// error after the attempt ceiling. All failures are treated as retryable
// here - there is no permission fast-path like the image stage's.
type VideoRunner struct {
	Store    *store.Store
	Gateway  gateway.MediaGateway
	Opts     gateway.GenOptions
	Policy   RetryPolicy
	Sleep    SleepFunc
	Log      *logrus.Logger
	CacheDir string
}

// Run executes the video stage for one scene. Scenes without a completed
// image are skipped (video status stays none); scenes already completed
// or generating are no-ops.
func (r *VideoRunner) Run(ctx context.Context, id int) error {
	sc, ok := r.Store.Get(id)
	if !ok {
		return nil
	}
	if sc.ImageStatus != models.ImageCompleted || sc.ImageURL == "" {
		return nil
	}
	if sc.VideoStatus == models.VideoCompleted || sc.VideoStatus == models.VideoGenerating {
		return nil
	}

	attempts := 0
	for {
		r.Store.Update(id, func(s *models.Scene) {
			s.VideoStatus = models.VideoGenerating
			s.VideoRetries = attempts
		})

		ref, err := r.Gateway.GenerateVideo(ctx, sc.ImageURL, sc.VisualPrompt, r.Opts)
		if err == nil {
			cachePath := r.cacheClip(ctx, id, ref)
			r.Store.Update(id, func(s *models.Scene) {
				s.VideoStatus = models.VideoCompleted
				s.VideoURL = ref
				s.CachedClipPath = cachePath
				s.LastError = ""
			})
			r.log(id).Info("Video generated")
			return nil
		}

		attempts++
		if attempts >= r.Policy.MaxRetries {
			r.Store.Update(id, func(s *models.Scene) {
				s.VideoStatus = models.VideoError
				s.LastError = err.Error()
			})
			r.log(id).WithField("attempts", attempts).Warn("Video retries exhausted")
			return nil
		}
		r.log(id).WithError(err).WithField("attempts", attempts).Info("Video generation failed, retrying")
		if err := r.Sleep(ctx, r.Policy.Delay(attempts, 0)); err != nil {
			r.Store.Update(id, func(s *models.Scene) {
				s.VideoStatus = models.VideoError
				s.LastError = err.Error()
			})
			return nil
		}
	}
}

// cacheClip downloads the clip binary next to the service so stitching
// survives upstream link expiry. Failures are logged and swallowed; the
// stage still succeeds on the reference alone.
func (r *VideoRunner) cacheClip(ctx context.Context, id int, ref string) string {
	if r.CacheDir == "" {
		return ""
	}
	data, err := r.Gateway.FetchBinary(ctx, ref)
	if err != nil {
		r.log(id).WithError(err).Warn("Could not cache clip binary")
		return ""
	}
	if err := os.MkdirAll(r.CacheDir, 0o755); err != nil {
		r.log(id).WithError(err).Warn("Could not create clip cache dir")
		return ""
	}
	path := filepath.Join(r.CacheDir, fmt.Sprintf("scene_%d_%s.mp4", id, uuid.NewString()[:8]))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		r.log(id).WithError(err).Warn("Could not write cached clip")
		return ""
	}
	return path
}

func (r *VideoRunner) log(id int) *logrus.Entry {
	if r.Log == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return r.Log.WithField("scene_id", id)
}
