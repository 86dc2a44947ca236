package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"storythingy/storyboard-api/internal/gateway"
	"storythingy/storyboard-api/internal/runner"
	"storythingy/storyboard-api/internal/scheduler"
	"storythingy/storyboard-api/internal/segmenter"
	"storythingy/storyboard-api/internal/stitcher"
	"storythingy/storyboard-api/internal/store"
	"storythingy/storyboard-api/models"
)

// BatchState is the orchestrator's state over the whole batch.
type BatchState string

const (
	StateIdle             BatchState = "idle"
	StateSegmenting       BatchState = "segmenting"
	StateGeneratingImages BatchState = "generating_images"
	StateImagesDone       BatchState = "images_done"
	StateGeneratingVideos BatchState = "generating_videos"
	StateVideosDone       BatchState = "videos_done"
	StateStitching        BatchState = "stitching"
	StateExported         BatchState = "exported"
	StateFailed           BatchState = "failed"
)

// ImageScope selects which scenes an image-stage run covers.
type ImageScope string

const (
	// ScopeAll runs every scene.
	ScopeAll ImageScope = "all"
	// ScopeRetry runs only scenes currently in error or without an image.
	ScopeRetry ImageScope = "retry"
)

// ErrStageRunning is returned when a stage start races an active stage.
var ErrStageRunning = errors.New("a stage is already running for this storyboard")

// IncompleteScenesError rejects an export while scenes still lack a
// completed video.
type IncompleteScenesError struct {
	Missing int
}

func (e *IncompleteScenesError) Error() string {
	return fmt.Sprintf("%d scene(s) have no completed video", e.Missing)
}

// FetchFailedError names the scene whose clip could not be materialized
// for stitching (expired reference and no local cache).
type FetchFailedError struct {
	SceneIndex int
	Err        error
}

func (e *FetchFailedError) Error() string {
	return fmt.Sprintf("scene %d: clip unavailable: %v", e.SceneIndex, e.Err)
}

func (e *FetchFailedError) Unwrap() error { return e.Err }

// Stitcher is the external concat collaborator consumed during export.
type Stitcher interface {
	Stitch(ctx context.Context, clips [][]byte, onProgress stitcher.ProgressFunc) ([]byte, error)
}

// Archiver uploads finished exports to long-term storage. Optional.
type Archiver interface {
	UploadExport(ctx context.Context, storyboardID uuid.UUID, data []byte) (string, error)
}

// Config wires a Pipeline's collaborators.
type Config struct {
	Segmenter *segmenter.Segmenter
	Gateway   gateway.MediaGateway
	Stitcher  Stitcher
	Archiver  Archiver
	Opts      gateway.GenOptions
	Limit     int
	CacheDir  string
	Sleep     runner.SleepFunc
	Log       *logrus.Logger
}

// Pipeline orchestrates one storyboard through segmentation, the two
// generation stages and export. It owns the scene store and the batch
// state machine; per-scene state lives on the scene records themselves.
type Pipeline struct {
	ID    uuid.UUID
	store *store.Store
	cfg   Config

	mu            sync.Mutex
	state         BatchState
	running       bool
	title         string
	createdAt     time.Time
	fatalCause    string
	exportPhase   string
	exportPercent float64
}

func New(cfg Config) *Pipeline {
	if cfg.Limit <= 0 {
		cfg.Limit = scheduler.DefaultLimit
	}
	if cfg.Sleep == nil {
		cfg.Sleep = runner.SleepContext
	}
	return &Pipeline{
		ID:        uuid.New(),
		store:     store.New(),
		cfg:       cfg,
		state:     StateIdle,
		createdAt: time.Now().UTC(),
	}
}

// Segment runs the segmenter and publishes the scene batch. On a
// malformed script the pipeline fails terminally and no partial
// storyboard is published.
func (p *Pipeline) Segment(ctx context.Context, script string, targetSeconds float64) (*models.Storyboard, error) {
	p.setState(StateSegmenting)
	sb, err := p.cfg.Segmenter.Segment(ctx, script, targetSeconds)
	if err != nil {
		p.failBatch(err.Error())
		return nil, err
	}
	sb.ID = p.ID
	p.store.Publish(sb.Scenes)
	p.mu.Lock()
	p.title = sb.Title
	p.state = StateIdle
	p.mu.Unlock()
	return sb, nil
}

// StartImageStage claims the batch for an image-stage run and resolves
// the scoped scenes, returning the run function that executes the
// admitted work. Claiming happens here, synchronously, so callers can
// report ErrStageRunning before detaching the run into a goroutine.
func (p *Pipeline) StartImageStage(scope ImageScope) (func(context.Context) error, error) {
	ids, err := p.beginImageStage(scope)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) error {
		defer p.endStage()

		ir := &runner.ImageRunner{
			Store:   p.store,
			Gateway: p.cfg.Gateway,
			Opts:    p.cfg.Opts,
			Policy:  runner.ImagePolicy(),
			Sleep:   p.cfg.Sleep,
			Log:     p.cfg.Log,
		}
		err := scheduler.RunAll(ctx, len(ids), p.cfg.Limit, func(ctx context.Context, i int) error {
			return ir.Run(ctx, ids[i])
		})
		if err != nil {
			p.failBatch(err.Error())
			return err
		}
		p.setState(StateImagesDone)
		return nil
	}, nil
}

// RunImageStage fans the image runner out over the scoped scenes with the
// bounded scheduler. It blocks until every admitted scene settles; a
// permission failure is promoted to batch level after in-flight work
// drains. Partial success (some scenes in error) still ends in
// images_done and is recoverable via ScopeRetry.
func (p *Pipeline) RunImageStage(ctx context.Context, scope ImageScope) error {
	run, err := p.StartImageStage(scope)
	if err != nil {
		return err
	}
	return run(ctx)
}

// beginImageStage guards against concurrent stages and resolves the
// scoped scene ids, resetting error scenes to pending for a retry run.
func (p *Pipeline) beginImageStage(scope ImageScope) ([]int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil, ErrStageRunning
	}

	var ids []int
	for _, sc := range p.store.Snapshot() {
		switch scope {
		case ScopeRetry:
			if sc.ImageStatus == models.ImageError || sc.ImageURL == "" {
				ids = append(ids, sc.ID)
			}
		default:
			if sc.ImageStatus != models.ImageCompleted {
				ids = append(ids, sc.ID)
			}
		}
	}
	for _, id := range ids {
		p.store.Update(id, func(s *models.Scene) {
			s.ImageStatus = models.ImagePending
			s.ImageRetries = 0
			s.LastError = ""
		})
	}

	p.running = true
	p.state = StateGeneratingImages
	p.fatalCause = ""
	return ids, nil
}

// StartVideoStage claims the batch for a video-stage run; the counterpart
// of StartImageStage for the second stage.
func (p *Pipeline) StartVideoStage() (func(context.Context) error, error) {
	ids, err := p.beginVideoStage()
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) error {
		defer p.endStage()

		vr := &runner.VideoRunner{
			Store:    p.store,
			Gateway:  p.cfg.Gateway,
			Opts:     p.cfg.Opts,
			Policy:   runner.VideoPolicy(),
			Sleep:    p.cfg.Sleep,
			Log:      p.cfg.Log,
			CacheDir: p.cfg.CacheDir,
		}
		err := scheduler.RunAll(ctx, len(ids), p.cfg.Limit, func(ctx context.Context, i int) error {
			return vr.Run(ctx, ids[i])
		})
		if err != nil {
			// Only a context error can surface here (no video failure is
			// batch-fatal); the stage stays re-runnable, not videos_done.
			return err
		}
		p.setState(StateVideosDone)
		return nil
	}, nil
}

// RunVideoStage animates every eligible scene: image completed and video
// not already generating or completed. Scenes in video error are reset
// and re-attempted. There is no batch-fatal path here; the stage ends in
// videos_done once every admitted scene settles, unless the context ends
// first.
func (p *Pipeline) RunVideoStage(ctx context.Context) error {
	run, err := p.StartVideoStage()
	if err != nil {
		return err
	}
	return run(ctx)
}

func (p *Pipeline) beginVideoStage() ([]int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil, ErrStageRunning
	}

	var ids []int
	for _, sc := range p.store.Snapshot() {
		if sc.ImageStatus != models.ImageCompleted {
			continue
		}
		if sc.VideoStatus == models.VideoGenerating || sc.VideoStatus == models.VideoCompleted {
			continue
		}
		ids = append(ids, sc.ID)
	}
	for _, id := range ids {
		p.store.Update(id, func(s *models.Scene) {
			if s.VideoStatus == models.VideoError {
				s.VideoStatus = models.VideoNone
				s.VideoRetries = 0
				s.LastError = ""
			}
		})
	}

	p.running = true
	p.state = StateGeneratingVideos
	return ids, nil
}

// Export collects every scene's clip in narration order and hands them to
// the stitch collaborator, returning the single concatenated binary. It
// requires all video stages completed and never calls the stitcher
// otherwise.
func (p *Pipeline) Export(ctx context.Context) ([]byte, error) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil, ErrStageRunning
	}
	scenes := p.store.Snapshot()
	missing := 0
	for _, sc := range scenes {
		if sc.VideoStatus != models.VideoCompleted {
			missing++
		}
	}
	if missing > 0 {
		p.mu.Unlock()
		return nil, &IncompleteScenesError{Missing: missing}
	}
	p.running = true
	p.state = StateStitching
	p.exportPhase = ""
	p.exportPercent = 0
	p.mu.Unlock()
	defer p.endStage()

	clips, err := p.collectClips(ctx, scenes)
	if err != nil {
		p.setState(StateVideosDone)
		return nil, err
	}

	out, err := p.cfg.Stitcher.Stitch(ctx, clips, p.recordExportProgress)
	if err != nil {
		p.setState(StateVideosDone)
		return nil, fmt.Errorf("export failed: %w", err)
	}
	p.setState(StateExported)

	if p.cfg.Archiver != nil {
		if url, aerr := p.cfg.Archiver.UploadExport(ctx, p.ID, out); aerr != nil {
			p.logf().WithError(aerr).Warn("Archiving export failed")
		} else {
			p.logf().WithField("url", url).Info("Export archived")
		}
	}
	return out, nil
}

// collectClips materializes every scene's binary, preferring the local
// cache and re-fetching from the stored reference otherwise. Fetches run
// concurrently but the returned order is always scene order.
func (p *Pipeline) collectClips(ctx context.Context, scenes []models.Scene) ([][]byte, error) {
	clips := make([][]byte, len(scenes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Limit)
	for i, sc := range scenes {
		i, sc := i, sc
		g.Go(func() error {
			if sc.CachedClipPath != "" {
				if data, err := os.ReadFile(sc.CachedClipPath); err == nil {
					clips[i] = data
					return nil
				}
			}
			data, err := p.cfg.Gateway.FetchBinary(gctx, sc.VideoURL)
			if err != nil {
				return &FetchFailedError{SceneIndex: sc.ID, Err: err}
			}
			clips[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return clips, nil
}

func (p *Pipeline) recordExportProgress(phase string, percent float64) {
	p.mu.Lock()
	p.exportPhase = phase
	p.exportPercent = percent
	p.mu.Unlock()
}

// SceneCounts summarizes per-stage scene statuses.
type SceneCounts struct {
	Total           int `json:"total"`
	ImagesCompleted int `json:"images_completed"`
	ImagesError     int `json:"images_error"`
	VideosCompleted int `json:"videos_completed"`
	VideosError     int `json:"videos_error"`
}

// Progress is a point-in-time snapshot of the batch for polling clients.
type Progress struct {
	State         BatchState     `json:"state"`
	FatalCause    string         `json:"fatal_cause,omitempty"`
	ExportPhase   string         `json:"export_phase,omitempty"`
	ExportPercent float64        `json:"export_percent,omitempty"`
	Counts        SceneCounts    `json:"counts"`
	Scenes        []models.Scene `json:"scenes"`
}

// Snapshot returns the current batch progress.
func (p *Pipeline) Snapshot() Progress {
	scenes := p.store.Snapshot()
	counts := SceneCounts{Total: len(scenes)}
	for _, sc := range scenes {
		switch sc.ImageStatus {
		case models.ImageCompleted:
			counts.ImagesCompleted++
		case models.ImageError:
			counts.ImagesError++
		}
		switch sc.VideoStatus {
		case models.VideoCompleted:
			counts.VideosCompleted++
		case models.VideoError:
			counts.VideosError++
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return Progress{
		State:         p.state,
		FatalCause:    p.fatalCause,
		ExportPhase:   p.exportPhase,
		ExportPercent: p.exportPercent,
		Counts:        counts,
		Scenes:        scenes,
	}
}

// Storyboard rebuilds the storyboard view from the store.
func (p *Pipeline) Storyboard() models.Storyboard {
	p.mu.Lock()
	title := p.title
	created := p.createdAt
	p.mu.Unlock()
	return models.Storyboard{
		ID:        p.ID,
		Title:     title,
		Scenes:    p.store.Snapshot(),
		CreatedAt: created,
	}
}

// State returns the current batch state.
func (p *Pipeline) State() BatchState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) setState(s BatchState) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

func (p *Pipeline) failBatch(cause string) {
	p.mu.Lock()
	p.state = StateFailed
	p.fatalCause = cause
	p.mu.Unlock()
}

func (p *Pipeline) endStage() {
	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
}

func (p *Pipeline) logf() *logrus.Entry {
	if p.cfg.Log == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return p.cfg.Log.WithField("storyboard_id", p.ID)
}
