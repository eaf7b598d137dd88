package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	ffmpeg "github.com/u2takey/ffmpeg-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var (
	transformDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "essay",
		Subsystem: "media",
		Name:      "transform_duration_seconds",
		Help:      "Duration of external media transform jobs",
	}, []string{"stage"})

	transformFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "essay",
		Subsystem: "media",
		Name:      "transform_failures_total",
		Help:      "Number of failed media transform jobs",
	}, []string{"stage"})

	cleanupFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "essay",
		Subsystem: "media",
		Name:      "cleanup_failures_total",
		Help:      "Number of media files that could not be removed",
	})
)

// Artifact kinds produced by the pipeline.
const (
	KindVideo = "VIDEO"
	KindAudio = "AUDIO"
)

// Artifact describes one evaluator-ready media file derived from an upload.
type Artifact struct {
	Kind     string
	Filename string
	Path     string
	Size     int64
	Format   string
}

// Artifact name suffixes, one per pipeline stage. All artifacts derived
// from one upload share the upload's base name as a common prefix, which
// is what the cleanup prefix match relies on.
const (
	suffixLeftRemoved = "-left-removed"
	suffixAudio       = "-audio"
	suffixNoAudio     = "-no-audio"
)

// Config groups processor configuration values.
type Config struct {
	Dir              string
	TransformTimeout time.Duration
	Logger           zerolog.Logger
}

// Processor derives normalized media artifacts from an uploaded video by
// sequencing external ffmpeg transform jobs.
type Processor struct {
	dir     string
	timeout time.Duration
	logger  zerolog.Logger
	tracer  trace.Tracer

	// injectable for tests
	run   func(ctx context.Context, target string, stream *ffmpeg.Stream) error
	probe func(path string, timeout time.Duration) (string, error)
}

// NewProcessor constructs a media processor working inside cfg.Dir.
func NewProcessor(cfg Config) (*Processor, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("media directory must be provided")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media directory: %w", err)
	}

	if cfg.TransformTimeout <= 0 {
		cfg.TransformTimeout = 2 * time.Minute
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &Processor{
		dir:     cfg.Dir,
		timeout: cfg.TransformTimeout,
		logger:  logger.With().Str("component", "media_processor").Logger(),
		tracer:  otel.Tracer("github.com/noah-isme/essay-eval-api/pkg/media"),
		run:     runStream,
		probe: func(path string, timeout time.Duration) (string, error) {
			return ffmpeg.ProbeWithTimeout(path, timeout, nil)
		},
	}, nil
}

// Process turns the uploaded video into exactly two artifacts: a silent
// video without the left pane and the extracted audio track. The split
// stage runs its two transforms concurrently; the first failure is
// surfaced once both have finished, and partial outputs are left on disk
// for the caller's cleanup pass.
func (p *Processor) Process(ctx context.Context, videoPath string) ([]Artifact, error) {
	ctx, span := p.tracer.Start(ctx, "media.process", trace.WithAttributes(
		attribute.String("media.source", filepath.Base(videoPath)),
	))
	defer span.End()

	cropped, err := p.removeLeftSide(ctx, videoPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "crop failed")
		return nil, err
	}

	audioPath, silentPath, err := p.splitTracks(ctx, cropped)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "split failed")
		return nil, err
	}

	videoArtifact, err := p.describe(silentPath, KindVideo)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	audioArtifact, err := p.describe(audioPath, KindAudio)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return []Artifact{videoArtifact, audioArtifact}, nil
}

// Cleanup removes every file in the media directory whose name starts with
// the upload's base name: the original upload plus all derived artifacts.
// Individual deletion failures are logged, never raised, and an absent
// file set is a no-op.
func (p *Processor) Cleanup(filename string) error {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if base == "" {
		return nil
	}

	entries, err := os.ReadDir(p.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read media directory: %w", err)
	}

	matched := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), base) {
			continue
		}
		matched++
		fullPath := filepath.Join(p.dir, entry.Name())
		if err := os.Remove(fullPath); err != nil {
			cleanupFailures.Inc()
			p.logger.Error().Err(err).Str("path", fullPath).Msg("failed to remove media file")
		}
	}

	if matched == 0 {
		p.logger.Warn().Str("base", base).Msg("no media files matched for cleanup")
	}

	return nil
}

// removeLeftSide crops away the left half of every frame. The recording
// convention is a dual-pane capture where only the right half matters.
func (p *Processor) removeLeftSide(ctx context.Context, videoPath string) (string, error) {
	outputPath := deriveName(videoPath, suffixLeftRemoved, filepath.Ext(videoPath))

	stream := ffmpeg.Input(videoPath).
		Filter("crop", ffmpeg.Args{"iw/2", "ih", "iw/2", "0"}).
		Output(outputPath).
		OverWriteOutput()

	if err := p.transform(ctx, "crop", outputPath, stream); err != nil {
		return "", fmt.Errorf("remove left side: %w", err)
	}

	return outputPath, nil
}

// splitTracks runs the audio demux and the audio strip concurrently. Both
// read the same cropped intermediate, so they can safely run in parallel.
func (p *Processor) splitTracks(ctx context.Context, videoPath string) (audioPath, silentPath string, err error) {
	audioPath = deriveName(videoPath, suffixAudio, ".mp3")
	silentPath = deriveName(videoPath, suffixNoAudio, ".mp4")

	var group errgroup.Group
	group.Go(func() error {
		stream := ffmpeg.Input(videoPath).Audio().Output(audioPath).OverWriteOutput()
		if err := p.transform(ctx, "demux_audio", audioPath, stream); err != nil {
			return fmt.Errorf("extract audio: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		stream := ffmpeg.Input(videoPath).Video().Output(silentPath).OverWriteOutput()
		if err := p.transform(ctx, "strip_audio", silentPath, stream); err != nil {
			return fmt.Errorf("create silent video: %w", err)
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		return "", "", err
	}

	return audioPath, silentPath, nil
}

func (p *Processor) transform(ctx context.Context, stage, target string, stream *ffmpeg.Stream) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	err := p.run(ctx, target, stream)
	transformDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	if err != nil {
		transformFailures.WithLabelValues(stage).Inc()
		return err
	}

	p.logger.Info().Str("stage", stage).Str("target", filepath.Base(target)).Msg("transform completed")

	return nil
}

// describe probes the artifact's container metadata and assembles its
// media descriptor.
func (p *Processor) describe(path, kind string) (Artifact, error) {
	raw, err := p.probe(path, p.timeout)
	if err != nil {
		return Artifact{}, fmt.Errorf("probe %s: %w", filepath.Base(path), err)
	}

	var payload struct {
		Format struct {
			FormatName string `json:"format_name"`
			Size       string `json:"size"`
		} `json:"format"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return Artifact{}, fmt.Errorf("parse probe output for %s: %w", filepath.Base(path), err)
	}

	size, err := strconv.ParseInt(payload.Format.Size, 10, 64)
	if err != nil {
		return Artifact{}, fmt.Errorf("parse probed size %q: %w", payload.Format.Size, err)
	}

	return Artifact{
		Kind:     kind,
		Filename: filepath.Base(path),
		Path:     path,
		Size:     size,
		Format:   payload.Format.FormatName,
	}, nil
}

// runStream executes a compiled ffmpeg invocation under the supplied
// context, killing the process when the deadline fires.
func runStream(ctx context.Context, _ string, stream *ffmpeg.Stream) error {
	cmd := stream.Compile()

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil
	}
}

func deriveName(path, suffix, ext string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return filepath.Join(filepath.Dir(path), base+suffix+ext)
}
