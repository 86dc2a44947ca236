package runner

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"storythingy/storyboard-api/internal/gateway"
	"storythingy/storyboard-api/internal/scheduler"
	"storythingy/storyboard-api/internal/store"
	"storythingy/storyboard-api/models"
)

// ImageRunner drives one scene through the image stage:
// pending -> generating -> completed, looping on retryable failures and
// ending in error on exhaustion or a non-retryable failure. It mutates
// the scene store as a side effect and only returns an error for the
// batch-fatal permission case.
type ImageRunner struct {
	Store   *store.Store
	Gateway gateway.MediaGateway
	Opts    gateway.GenOptions
	Policy  RetryPolicy
	Sleep   SleepFunc
	Log     *logrus.Logger
}

// Run executes the image stage for one scene. A scene that already has a
// completed image is a no-op, which makes restarts idempotent; the
// orchestrator's retry scope resets error scenes to pending before
// re-invoking.
func (r *ImageRunner) Run(ctx context.Context, id int) error {
	sc, ok := r.Store.Get(id)
	if !ok {
		return nil
	}
	if sc.ImageStatus == models.ImageCompleted {
		return nil
	}

	retries := 0
	for {
		r.Store.Update(id, func(s *models.Scene) {
			s.ImageStatus = models.ImageGenerating
			s.ImageRetries = retries
		})

		ref, err := r.Gateway.GenerateImage(ctx, sc.VisualPrompt, r.Opts)
		if err == nil {
			r.Store.Update(id, func(s *models.Scene) {
				s.ImageStatus = models.ImageCompleted
				s.ImageURL = ref
				s.LastError = ""
			})
			r.log(id).Info("Image generated")
			return nil
		}

		gerr, classified := gateway.IsGatewayError(err)
		if !classified {
			r.fail(id, err)
			return nil
		}

		switch gerr.Kind {
		case gateway.KindPermissionDenied:
			// Credentials are broken for every scene, not just this one.
			r.fail(id, err)
			r.log(id).Error("Permission denied, halting image stage")
			return scheduler.Fatal(fmt.Errorf("scene %d: %w", id, err))

		case gateway.KindRateLimited:
			retries++
			if retries >= r.Policy.MaxRetries {
				r.fail(id, err)
				r.log(id).WithField("retries", retries).Warn("Image retries exhausted")
				return nil
			}
			delay := r.Policy.Delay(retries, gerr.RetryAfter)
			r.log(id).WithFields(logrus.Fields{
				"retries": retries,
				"wait_ms": delay.Milliseconds(),
			}).Info("Rate limited, backing off")
			if err := r.Sleep(ctx, delay); err != nil {
				r.fail(id, err)
				return nil
			}

		default:
			r.fail(id, err)
			r.log(id).WithError(err).Warn("Image generation failed")
			return nil
		}
	}
}

func (r *ImageRunner) fail(id int, err error) {
	r.Store.Update(id, func(s *models.Scene) {
		s.ImageStatus = models.ImageError
		s.LastError = err.Error()
	})
}

func (r *ImageRunner) log(id int) *logrus.Entry {
	if r.Log == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return r.Log.WithField("scene_id", id)
}
