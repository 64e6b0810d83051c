package transcoder

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vodworks/encode-worker/internal/metrics"
	"github.com/vodworks/encode-worker/pkg/models"
)

// Fixed encode parameters. These must stay compatible with standard
// adaptive-streaming players: strictly time-based 4s segments, every
// segment independently decodable.
const (
	SegmentDuration  = 4
	KeyframeInterval = 48
	CRF              = "20"
	AudioSampleRate  = "48000"

	// PlaylistName is the per-rendition playlist filename.
	PlaylistName = "index.m3u8"
	// SegmentPattern names segment files, numbered from 0.
	SegmentPattern = "index%d.ts"
)

var tracer = otel.Tracer("encode-transcoder")

// Engine invokes ffmpeg and ffprobe as child processes.
type Engine struct {
	ffmpegPath  string
	ffprobePath string
	log         *slog.Logger
}

// NewEngine creates an Engine resolving ffmpeg/ffprobe from PATH.
func NewEngine(log *slog.Logger) *Engine {
	return &Engine{
		ffmpegPath:  "ffmpeg",
		ffprobePath: "ffprobe",
		log:         log,
	}
}

// Dimensions holds the intrinsic size of a video stream.
type Dimensions struct {
	Width  int
	Height int
}

type probeStream struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
}

// Probe extracts the intrinsic dimensions of the first video stream.
func (e *Engine) Probe(ctx context.Context, inputPath string) (Dimensions, error) {
	ctx, span := tracer.Start(ctx, "probe-source")
	defer span.End()

	cmd := exec.CommandContext(ctx, e.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "json",
		inputPath,
	)

	output, err := cmd.Output()
	if err != nil {
		return Dimensions{}, fmt.Errorf("%w: ffprobe: %v", models.ErrProbeFailed, err)
	}

	dims, err := parseProbeOutput(output)
	if err != nil {
		return Dimensions{}, err
	}

	span.SetAttributes(
		attribute.Int("video.width", dims.Width),
		attribute.Int("video.height", dims.Height),
	)

	return dims, nil
}

func parseProbeOutput(data []byte) (Dimensions, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return Dimensions{}, fmt.Errorf("%w: invalid ffprobe output: %v", models.ErrProbeFailed, err)
	}

	if len(out.Streams) == 0 {
		return Dimensions{}, fmt.Errorf("%w: no video stream found", models.ErrProbeFailed)
	}

	s := out.Streams[0]
	if s.Width <= 0 || s.Height <= 0 {
		return Dimensions{}, fmt.Errorf("%w: missing video dimensions", models.ErrProbeFailed)
	}

	return Dimensions{Width: s.Width, Height: s.Height}, nil
}

// Transcode produces one rendition's segmented output under outputDir.
// outputDir must exist before the call.
func (e *Engine) Transcode(ctx context.Context, inputPath, outputDir string, r models.Rendition) error {
	ctx, span := tracer.Start(ctx, "transcode-rendition")
	defer span.End()

	span.SetAttributes(
		attribute.String("rendition.label", r.Label),
		attribute.String("rendition.resolution", r.Resolution()),
	)

	start := time.Now()

	cmd := exec.CommandContext(ctx, e.ffmpegPath, BuildArgs(inputPath, outputDir, r)...)

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("%w: stderr pipe: %v", models.ErrTranscodeFailed, err)
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: stdout pipe: %v", models.ErrTranscodeFailed, err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: start ffmpeg: %v", models.ErrTranscodeFailed, err)
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		e.monitorOutput(ctx, r.Label, stderrPipe)
	}()

	go func() {
		defer wg.Done()
		_, _ = io.Copy(io.Discard, stdoutPipe)
	}()

	cmdErr := cmd.Wait()
	wg.Wait()

	if cmdErr != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %s: context canceled", models.ErrTranscodeFailed, r.Label)
		}
		return fmt.Errorf("%w: %s: %v", models.ErrTranscodeFailed, r.Label, cmdErr)
	}

	metrics.TranscodeDuration.WithLabelValues(r.Label).Observe(time.Since(start).Seconds())

	return nil
}

// BuildArgs constructs the ffmpeg arguments for one rendition.
func BuildArgs(inputPath, outputDir string, r models.Rendition) []string {
	return []string{
		"-y",
		"-i", inputPath,
		"-vf", fmt.Sprintf("scale=%d:%d", r.Width, r.Height),
		"-c:v", "libx264",
		"-profile:v", "main",
		"-crf", CRF,
		"-g", fmt.Sprintf("%d", KeyframeInterval),
		"-keyint_min", fmt.Sprintf("%d", KeyframeInterval),
		"-sc_threshold", "0",
		"-c:a", "aac",
		"-ar", AudioSampleRate,
		"-f", "hls",
		"-hls_time", fmt.Sprintf("%d", SegmentDuration),
		"-hls_playlist_type", "vod",
		"-hls_flags", "independent_segments",
		"-start_number", "0",
		"-hls_segment_filename", filepath.Join(outputDir, SegmentPattern),
		filepath.Join(outputDir, PlaylistName),
	}
}

// monitorOutput reads and logs ffmpeg stderr.
func (e *Engine) monitorOutput(ctx context.Context, label string, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
			line := scanner.Text()
			if strings.Contains(line, "frame=") || strings.Contains(line, "time=") {
				e.log.Debug("FFmpeg progress", "label", label, "output", line)
			} else if strings.Contains(line, "error") || strings.Contains(line, "Error") {
				e.log.Warn("FFmpeg warning", "label", label, "output", line)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		e.log.Warn("FFmpeg output scanner error", "label", label, "error", err)
	}
}
