package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"storythingy/storyboard-api/internal/gateway"
	"storythingy/storyboard-api/internal/segmenter"
	"storythingy/storyboard-api/internal/stitcher"
	"storythingy/storyboard-api/models"
)

type fixedChunks struct{ chunks []segmenter.Chunk }

func (f *fixedChunks) Chunks(context.Context, string) ([]segmenter.Chunk, error) {
	return f.chunks, nil
}

type fakeMediaGateway struct {
	mu         sync.Mutex
	imageErr   map[int]error // keyed by call count, not scene
	imageCalls int
	videoErr   error
	fetchData  []byte
	fetchErr   error
}

func (f *fakeMediaGateway) GenerateImage(ctx context.Context, prompt string, opts gateway.GenOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.imageCalls
	f.imageCalls++
	if err, ok := f.imageErr[n]; ok {
		return "", err
	}
	return fmt.Sprintf("https://cdn.example/img_%d.png", n), nil
}

func (f *fakeMediaGateway) GenerateVideo(ctx context.Context, imageRef, prompt string, opts gateway.GenOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.videoErr != nil {
		return "", f.videoErr
	}
	return "https://cdn.example/clip.mp4", nil
}

func (f *fakeMediaGateway) FetchBinary(ctx context.Context, ref string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.fetchData, nil
}

type fakeStitcher struct {
	calls int
	out   []byte
	err   error
}

func (f *fakeStitcher) Stitch(ctx context.Context, clips [][]byte, onProgress stitcher.ProgressFunc) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if onProgress != nil {
		onProgress(stitcher.PhaseConcat, 100)
	}
	if f.out != nil {
		return f.out, nil
	}
	return bytes.Join(clips, nil), nil
}

func newTestPipeline(t *testing.T, n int, gw gateway.MediaGateway, st *fakeStitcher) *Pipeline {
	t.Helper()
	return newTestPipelineLimited(t, n, 2, gw, st)
}

func newTestPipelineLimited(t *testing.T, n, limit int, gw gateway.MediaGateway, st *fakeStitcher) *Pipeline {
	t.Helper()
	chunks := make([]segmenter.Chunk, n)
	for i := range chunks {
		chunks[i] = segmenter.Chunk{
			Text:         fmt.Sprintf("narration for scene %d with a few more words", i),
			VisualPrompt: fmt.Sprintf("visual %d", i),
		}
	}
	p := New(Config{
		Segmenter: segmenter.New(&fixedChunks{chunks: chunks}, nil),
		Gateway:   gw,
		Stitcher:  st,
		Limit:     limit,
		Sleep:     func(context.Context, time.Duration) error { return nil },
	})
	if _, err := p.Segment(context.Background(), "script", 60); err != nil {
		t.Fatalf("Segment: %v", err)
	}
	return p
}

func TestSegmentPublishesScenes(t *testing.T) {
	p := newTestPipeline(t, 3, &fakeMediaGateway{}, &fakeStitcher{})
	sb := p.Storyboard()
	if len(sb.Scenes) != 3 {
		t.Fatalf("scenes = %d, want 3", len(sb.Scenes))
	}
	if sb.ID != p.ID {
		t.Error("storyboard id must match the pipeline id")
	}
	if p.State() != StateIdle {
		t.Errorf("state = %v, want idle after segmentation", p.State())
	}
}

func TestSegmentMalformedFailsBatch(t *testing.T) {
	p := New(Config{
		Segmenter: segmenter.New(&fixedChunks{}, nil),
	})
	_, err := p.Segment(context.Background(), "script", 60)
	var malformed *segmenter.MalformedSegmentationError
	if !errors.As(err, &malformed) {
		t.Fatalf("err = %v, want malformed", err)
	}
	if p.State() != StateFailed {
		t.Errorf("state = %v, want failed", p.State())
	}
	if len(p.Storyboard().Scenes) != 0 {
		t.Error("partial storyboard published after malformed segmentation")
	}
}

func TestImageStageHappyPath(t *testing.T) {
	p := newTestPipeline(t, 3, &fakeMediaGateway{}, &fakeStitcher{})
	if err := p.RunImageStage(context.Background(), ScopeAll); err != nil {
		t.Fatalf("RunImageStage: %v", err)
	}
	if p.State() != StateImagesDone {
		t.Errorf("state = %v, want images_done", p.State())
	}
	prog := p.Snapshot()
	if prog.Counts.ImagesCompleted != 3 {
		t.Errorf("completed = %d, want 3", prog.Counts.ImagesCompleted)
	}
}

func TestImageStagePermissionDeniedFailsBatch(t *testing.T) {
	gw := &fakeMediaGateway{imageErr: map[int]error{
		0: &gateway.Error{Kind: gateway.KindPermissionDenied, Status: 403, Message: "permission denied"},
	}}
	p := newTestPipeline(t, 3, gw, &fakeStitcher{})

	err := p.RunImageStage(context.Background(), ScopeAll)
	if err == nil {
		t.Fatal("RunImageStage = nil, want batch-fatal error")
	}
	if p.State() != StateFailed {
		t.Errorf("state = %v, want failed", p.State())
	}
	if p.Snapshot().FatalCause == "" {
		t.Error("fatal cause not recorded")
	}
}

func TestImageStageRetryScopeOnlyCoversErrorScenes(t *testing.T) {
	p := newTestPipeline(t, 3, &fakeMediaGateway{}, &fakeStitcher{})
	if err := p.RunImageStage(context.Background(), ScopeAll); err != nil {
		t.Fatalf("RunImageStage: %v", err)
	}
	// Force one scene into error, then retry.
	p.store.Update(1, func(s *models.Scene) {
		s.ImageStatus = models.ImageError
		s.ImageURL = ""
		s.LastError = "boom"
	})

	gw := p.cfg.Gateway.(*fakeMediaGateway)
	before := gw.imageCalls
	if err := p.RunImageStage(context.Background(), ScopeRetry); err != nil {
		t.Fatalf("retry RunImageStage: %v", err)
	}
	if got := gw.imageCalls - before; got != 1 {
		t.Errorf("retry made %d gateway calls, want 1", got)
	}
	sc, _ := p.store.Get(1)
	if sc.ImageStatus != models.ImageCompleted {
		t.Errorf("scene 1 = %v after retry, want completed", sc.ImageStatus)
	}
}

func TestVideoStageSkipsScenesWithoutImages(t *testing.T) {
	gw := &fakeMediaGateway{imageErr: map[int]error{
		2: &gateway.Error{Kind: gateway.KindOther, Status: 500, Message: "boom"},
	}}
	p := newTestPipeline(t, 3, gw, &fakeStitcher{})
	if err := p.RunImageStage(context.Background(), ScopeAll); err != nil {
		t.Fatalf("RunImageStage: %v", err)
	}
	if err := p.RunVideoStage(context.Background()); err != nil {
		t.Fatalf("RunVideoStage: %v", err)
	}
	if p.State() != StateVideosDone {
		t.Errorf("state = %v, want videos_done", p.State())
	}

	counts := p.Snapshot().Counts
	if counts.VideosCompleted != 2 {
		t.Errorf("videos completed = %d, want 2 (scene without image skipped)", counts.VideosCompleted)
	}
	for _, sc := range p.store.Snapshot() {
		if sc.ImageStatus != models.ImageCompleted && sc.VideoStatus != models.VideoNone {
			t.Errorf("scene %d video = %v, want none", sc.ID, sc.VideoStatus)
		}
	}
}

func TestExportRejectsIncompleteScenes(t *testing.T) {
	st := &fakeStitcher{}
	p := newTestPipeline(t, 3, &fakeMediaGateway{fetchData: []byte("clip")}, st)
	if err := p.RunImageStage(context.Background(), ScopeAll); err != nil {
		t.Fatalf("RunImageStage: %v", err)
	}
	if err := p.RunVideoStage(context.Background()); err != nil {
		t.Fatalf("RunVideoStage: %v", err)
	}
	p.store.Update(2, func(s *models.Scene) { s.VideoStatus = models.VideoError })

	_, err := p.Export(context.Background())
	var incomplete *IncompleteScenesError
	if !errors.As(err, &incomplete) {
		t.Fatalf("Export = %v, want IncompleteScenesError", err)
	}
	if incomplete.Missing != 1 {
		t.Errorf("Missing = %d, want 1", incomplete.Missing)
	}
	if st.calls != 0 {
		t.Error("stitcher must not run for an incomplete batch")
	}
}

func TestExportStitchesInSceneOrder(t *testing.T) {
	st := &fakeStitcher{}
	gw := &fakeMediaGateway{fetchData: []byte("clip|")}
	p := newTestPipeline(t, 2, gw, st)
	if err := p.RunImageStage(context.Background(), ScopeAll); err != nil {
		t.Fatalf("RunImageStage: %v", err)
	}
	if err := p.RunVideoStage(context.Background()); err != nil {
		t.Fatalf("RunVideoStage: %v", err)
	}

	out, err := p.Export(context.Background())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if string(out) != "clip|clip|" {
		t.Errorf("export = %q", out)
	}
	if p.State() != StateExported {
		t.Errorf("state = %v, want exported", p.State())
	}
	prog := p.Snapshot()
	if prog.ExportPercent != 100 {
		t.Errorf("export percent = %v, want 100", prog.ExportPercent)
	}
}

func TestStageClaimConflicts(t *testing.T) {
	p := newTestPipeline(t, 2, &fakeMediaGateway{}, &fakeStitcher{})

	run, err := p.StartImageStage(ScopeAll)
	if err != nil {
		t.Fatalf("StartImageStage: %v", err)
	}
	// Claimed but not yet running: every other start must conflict.
	if _, err := p.StartImageStage(ScopeAll); !errors.Is(err, ErrStageRunning) {
		t.Errorf("second StartImageStage = %v, want ErrStageRunning", err)
	}
	if _, err := p.StartVideoStage(); !errors.Is(err, ErrStageRunning) {
		t.Errorf("StartVideoStage during image claim = %v, want ErrStageRunning", err)
	}

	if err := run(context.Background()); err != nil {
		t.Fatalf("image run: %v", err)
	}
	// Settled runs release the claim.
	if err := p.RunVideoStage(context.Background()); err != nil {
		t.Fatalf("RunVideoStage after release: %v", err)
	}
}

// slowVideoGateway generates images normally but makes every video task
// fail slowly, keeping the single worker slot occupied.
type slowVideoGateway struct {
	fakeMediaGateway
}

func (g *slowVideoGateway) GenerateVideo(ctx context.Context, imageRef, prompt string, opts gateway.GenOptions) (string, error) {
	time.Sleep(30 * time.Millisecond)
	return "", errors.New("provider unavailable")
}

func TestVideoStageContextCancellation(t *testing.T) {
	p := newTestPipelineLimited(t, 2, 1, &slowVideoGateway{}, &fakeStitcher{})
	if err := p.RunImageStage(context.Background(), ScopeAll); err != nil {
		t.Fatalf("RunImageStage: %v", err)
	}

	// With the context already ended and the only slot held by a slow
	// worker, admission stops before the second scene.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.RunVideoStage(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("RunVideoStage = %v, want context.Canceled", err)
	}
	if p.State() == StateVideosDone {
		t.Error("cancelled video stage must not report videos_done")
	}
}

func TestExportFetchFailureNamesScene(t *testing.T) {
	st := &fakeStitcher{}
	gw := &fakeMediaGateway{fetchErr: &gateway.Error{Kind: gateway.KindOther, Message: "link expired"}}
	p := newTestPipeline(t, 2, gw, st)
	if err := p.RunImageStage(context.Background(), ScopeAll); err != nil {
		t.Fatalf("RunImageStage: %v", err)
	}
	if err := p.RunVideoStage(context.Background()); err != nil {
		t.Fatalf("RunVideoStage: %v", err)
	}

	_, err := p.Export(context.Background())
	var fetchFailed *FetchFailedError
	if !errors.As(err, &fetchFailed) {
		t.Fatalf("Export = %v, want FetchFailedError", err)
	}
	if st.calls != 0 {
		t.Error("stitcher must not run when a clip cannot be materialized")
	}
	// Batch stays recoverable.
	if p.State() != StateVideosDone {
		t.Errorf("state = %v, want videos_done", p.State())
	}
}
