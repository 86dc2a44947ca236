package stitcher

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Phase labels reported through the progress callback.
const (
	PhaseConcat = "concat"
	PhaseEncode = "encode"
)

// ProgressFunc receives stitch progress as (phaseLabel, percent 0..100).
type ProgressFunc func(phase string, percent float64)

// Stitcher concatenates ordered per-scene clips into one output clip with
// ffmpeg. The fast path uses the concat demuxer with stream copy; when
// the codec tooling rejects that (mismatched parameters between clips),
// it falls back to a slower filter-based re-encode.
type Stitcher struct {
	WorkDir string
	Log     *logrus.Logger
}

func New(workDir string, log *logrus.Logger) *Stitcher {
	if workDir == "" {
		workDir = os.TempDir()
	}
	return &Stitcher{WorkDir: workDir, Log: log}
}

// Stitch writes the clips to temp files, concatenates them in order and
// returns the single output binary. onProgress may be nil.
func (st *Stitcher) Stitch(ctx context.Context, clips [][]byte, onProgress ProgressFunc) ([]byte, error) {
	if len(clips) == 0 {
		return nil, fmt.Errorf("no clips to stitch")
	}
	if onProgress == nil {
		onProgress = func(string, float64) {}
	}
	if err := os.MkdirAll(st.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating work dir: %w", err)
	}

	runID := uuid.NewString()[:8]
	paths := make([]string, len(clips))
	for i, data := range clips {
		paths[i] = filepath.Join(st.WorkDir, fmt.Sprintf("stitch_%s_clip_%d.mp4", runID, i))
		if err := os.WriteFile(paths[i], data, 0o644); err != nil {
			st.cleanup(paths[:i]...)
			return nil, fmt.Errorf("writing clip %d: %w", i, err)
		}
	}
	outPath := filepath.Join(st.WorkDir, fmt.Sprintf("stitch_%s_out.mp4", runID))
	defer st.cleanup(append(paths, outPath)...)

	totalSec := st.totalDuration(paths)

	if err := st.concatCopy(ctx, paths, outPath, runID, totalSec, onProgress); err != nil {
		if st.Log != nil {
			st.Log.WithError(err).Warn("Stream-copy concat rejected, re-encoding")
		}
		if err := st.concatEncode(ctx, paths, outPath, totalSec, onProgress); err != nil {
			return nil, err
		}
	}
	return os.ReadFile(outPath)
}

// concatCopy is the fast path: concat demuxer + stream copy.
func (st *Stitcher) concatCopy(ctx context.Context, paths []string, outPath, runID string, totalSec float64, onProgress ProgressFunc) error {
	listPath := filepath.Join(st.WorkDir, fmt.Sprintf("stitch_%s_list.txt", runID))
	var list strings.Builder
	for _, p := range paths {
		fmt.Fprintf(&list, "file '%s'\n", p)
	}
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return fmt.Errorf("writing concat list: %w", err)
	}
	defer st.cleanup(listPath)

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		"-progress", "pipe:1",
		outPath,
	)
	return st.runWithProgress(cmd, PhaseConcat, totalSec, onProgress)
}

// concatEncode is the fallback: decode everything and concatenate through
// the concat filter, normalizing stream parameters.
func (st *Stitcher) concatEncode(ctx context.Context, paths []string, outPath string, totalSec float64, onProgress ProgressFunc) error {
	args := []string{"-y"}
	for _, p := range paths {
		args = append(args, "-i", p)
	}
	var filter strings.Builder
	for i := range paths {
		fmt.Fprintf(&filter, "[%d:v]", i)
	}
	fmt.Fprintf(&filter, "concat=n=%d:v=1:a=0[v]", len(paths))
	args = append(args,
		"-filter_complex", filter.String(),
		"-map", "[v]",
		"-an",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-progress", "pipe:1",
		outPath,
	)
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	return st.runWithProgress(cmd, PhaseEncode, totalSec, onProgress)
}

// runWithProgress runs an ffmpeg command and translates its key=value
// progress stream on stdout into percentage callbacks.
func (st *Stitcher) runWithProgress(cmd *exec.Cmd, phase string, totalSec float64, onProgress ProgressFunc) error {
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting ffmpeg: %w", err)
	}

	onProgress(phase, 0)
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "out_time_ms=") {
			continue
		}
		us, err := strconv.ParseFloat(strings.TrimPrefix(line, "out_time_ms="), 64)
		if err != nil || totalSec <= 0 {
			continue
		}
		pct := us / 1e6 / totalSec * 100
		if pct > 99 {
			pct = 99
		}
		onProgress(phase, pct)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg %s failed: %v\nStderr: %s", phase, err, stderr.String())
	}
	onProgress(phase, 100)
	return nil
}

// totalDuration sums the clip durations via ffprobe; 0 disables
// percentage computation but not stitching itself.
func (st *Stitcher) totalDuration(paths []string) float64 {
	var total float64
	for _, p := range paths {
		d, err := probeDuration(p)
		if err != nil {
			if st.Log != nil {
				st.Log.WithError(err).WithField("clip", filepath.Base(p)).Debug("ffprobe failed")
			}
			return 0
		}
		total += d
	}
	return total
}

// probeDuration reads a media file's duration in seconds with ffprobe.
func probeDuration(path string) (float64, error) {
	cmd := exec.Command("ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe failed: %v\nStderr: %s", err, stderr.String())
	}

	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out.Bytes(), &probe); err != nil {
		return 0, fmt.Errorf("unmarshalling ffprobe output: %w", err)
	}
	if probe.Format.Duration == "" {
		return 0, fmt.Errorf("no duration in ffprobe output")
	}
	return strconv.ParseFloat(probe.Format.Duration, 64)
}

func (st *Stitcher) cleanup(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) && st.Log != nil {
			st.Log.WithError(err).WithField("path", p).Debug("Temp file cleanup failed")
		}
	}
}
