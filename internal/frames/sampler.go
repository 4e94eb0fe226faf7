package frames

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"plugscan/internal/analysis"
	"plugscan/internal/config"
)

// Sampler extracts representative frames from candidate windows. Frames are
// pulled with ffmpeg at evenly spaced timestamps, scored for quality, and
// deduplicated by perceptual hash before being handed to the vision stage.
type Sampler struct {
	cfg           config.Frames
	ffmpegBinary  string
	logger        *slog.Logger
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// Option customizes the sampler.
type Option func(*Sampler)

// WithLogger sets the logger used for per-frame warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sampler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) Option {
	return func(s *Sampler) {
		s.commandRunner = runner
	}
}

// NewSampler constructs a frame sampler.
func NewSampler(cfg config.Frames, ffmpegBinary string, opts ...Option) *Sampler {
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	if cfg.SamplesPerWindow <= 0 {
		cfg.SamplesPerWindow = 5
	}
	if cfg.SamplingInterval <= 0 {
		cfg.SamplingInterval = 1.0
	}
	sampler := &Sampler{
		cfg:          cfg,
		ffmpegBinary: ffmpegBinary,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(sampler)
	}
	if sampler.commandRunner == nil {
		sampler.commandRunner = sampler.run
	}
	return sampler
}

// SampleWindow extracts up to the configured number of frames from the
// window, keeping the highest-quality distinct ones, returned best first. A window whose frames
// cannot be read at all yields an empty slice and a warning, not an error,
// so one broken span never sinks the rest of the video.
func (s *Sampler) SampleWindow(ctx context.Context, videoPath string, window analysis.CandidateWindow, destDir string) ([]analysis.ExtractedFrame, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("create frame directory: %w", err)
	}

	var frames []analysis.ExtractedFrame
	for _, ts := range s.timestamps(window) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dest := filepath.Join(destDir, fmt.Sprintf("frame_%08.2f.jpg", ts))
		frame, err := s.extractFrame(ctx, videoPath, ts, dest)
		if err != nil {
			s.logger.Warn("frame extraction failed",
				slog.String("video_path", videoPath),
				slog.String("window", window.Label()),
				slog.Float64("timestamp", ts),
				slog.String("error", err.Error()))
			continue
		}
		if frame.Quality < s.cfg.MinQuality {
			_ = os.Remove(dest)
			continue
		}
		frames = append(frames, frame)
	}
	if len(frames) == 0 {
		s.logger.Warn("no usable frames in window",
			slog.String("video_path", videoPath),
			slog.String("window", window.Label()))
		return nil, nil
	}

	frames = dedupeByHash(frames, s.cfg.HashDistance)
	if len(frames) > s.cfg.SamplesPerWindow {
		frames = frames[:s.cfg.SamplesPerWindow]
	}
	// Callers read frames best-first, so the quality ordering established by
	// dedupeByHash is the output ordering.
	return frames, nil
}

// timestamps spreads sample points evenly across the window, one per bin
// center, never closer together than the configured interval.
func (s *Sampler) timestamps(window analysis.CandidateWindow) []float64 {
	duration := window.Duration()
	count := s.cfg.SamplesPerWindow
	if max := int(duration/s.cfg.SamplingInterval) + 1; max < count {
		count = max
	}
	if count < 1 {
		count = 1
	}
	points := make([]float64, 0, count)
	step := duration / float64(count)
	for i := 0; i < count; i++ {
		points = append(points, window.Start+step*(float64(i)+0.5))
	}
	return points
}

func (s *Sampler) extractFrame(ctx context.Context, videoPath string, ts float64, dest string) (analysis.ExtractedFrame, error) {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", fmt.Sprintf("%.3f", ts),
		"-i", videoPath,
		"-frames:v", "1",
		"-q:v", "2",
		dest,
	}
	if err := s.commandRunner(ctx, s.ffmpegBinary, args...); err != nil {
		return analysis.ExtractedFrame{}, fmt.Errorf("ffmpeg frame grab: %w", err)
	}

	img, err := decodeJPEG(dest)
	if err != nil {
		return analysis.ExtractedFrame{}, fmt.Errorf("decode frame: %w", err)
	}
	bounds := img.Bounds()
	metrics := measure(img)
	return analysis.ExtractedFrame{
		Timestamp:  ts,
		ImagePath:  dest,
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		Sharpness:  metrics.sharpness,
		Brightness: metrics.brightness,
		Quality:    metrics.quality(bounds.Dx(), bounds.Dy()),
		AHash:      averageHash(img),
	}, nil
}

func (s *Sampler) run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

func decodeJPEG(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return jpeg.Decode(file)
}

// dedupeByHash keeps the highest-quality frame from each near-duplicate
// cluster. Frames are considered duplicates when their average hashes are
// within the given Hamming distance.
func dedupeByHash(frames []analysis.ExtractedFrame, maxDistance int) []analysis.ExtractedFrame {
	sort.Slice(frames, func(i, j int) bool { return frames[i].Quality > frames[j].Quality })
	kept := make([]analysis.ExtractedFrame, 0, len(frames))
	for _, frame := range frames {
		duplicate := false
		for _, existing := range kept {
			if hammingDistance(frame.AHash, existing.AHash) <= maxDistance {
				duplicate = true
				break
			}
		}
		if duplicate {
			_ = os.Remove(frame.ImagePath)
			continue
		}
		kept = append(kept, frame)
	}
	return kept
}
