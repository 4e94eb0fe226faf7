package frames

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"testing"

	"plugscan/internal/analysis"
	"plugscan/internal/config"
)

func checkerboard(size, cell int) image.Image {
	img := image.NewGray(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if (x/cell+y/cell)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 235})
			} else {
				img.SetGray(x, y, color.Gray{Y: 20})
			}
		}
	}
	return img
}

func flat(size int, value uint8) image.Image {
	img := image.NewGray(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetGray(x, y, color.Gray{Y: value})
		}
	}
	return img
}

func gradient(size int, horizontal bool) image.Image {
	img := image.NewGray(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := x
			if !horizontal {
				v = y
			}
			img.SetGray(x, y, color.Gray{Y: uint8(v * 255 / size)})
		}
	}
	return img
}

func writeJPEG(t *testing.T, path string, img image.Image) {
	t.Helper()
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer file.Close()
	if err := jpeg.Encode(file, img, &jpeg.Options{Quality: 92}); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

// imageWriter returns a command runner that writes the next image from the
// sequence to the destination path ffmpeg would have produced.
func imageWriter(t *testing.T, images []image.Image) func(ctx context.Context, name string, args ...string) error {
	t.Helper()
	index := 0
	return func(ctx context.Context, name string, args ...string) error {
		dest := args[len(args)-1]
		img := images[index%len(images)]
		index++
		writeJPEG(t, dest, img)
		return nil
	}
}

func TestSampleWindowReturnsDistinctFramesBestFirst(t *testing.T) {
	cfg := config.Frames{SamplesPerWindow: 3, SamplingInterval: 1, MinQuality: 0, HashDistance: 4}
	sampler := NewSampler(cfg, "ffmpeg", WithCommandRunner(imageWriter(t, []image.Image{
		checkerboard(64, 4),
		gradient(64, true),
		gradient(64, false),
	})))

	window := analysis.CandidateWindow{Start: 10, End: 25}
	frames, err := sampler.SampleWindow(context.Background(), "/videos/input.mp4", window, t.TempDir())
	if err != nil {
		t.Fatalf("SampleWindow failed: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	// The vision stage spends its budget on the first frames it sees, so
	// the best frame must come first regardless of where it sat in time.
	for i := 1; i < len(frames); i++ {
		if frames[i].Quality > frames[i-1].Quality {
			t.Fatalf("frames not in quality order: %v", frames)
		}
	}
	for _, frame := range frames {
		if !window.Contains(frame.Timestamp) {
			t.Fatalf("timestamp %.2f outside window", frame.Timestamp)
		}
		if frame.Quality <= 0 {
			t.Fatalf("expected positive quality, got %+v", frame)
		}
	}
}

func TestSampleWindowDedupesNearDuplicates(t *testing.T) {
	cfg := config.Frames{SamplesPerWindow: 5, SamplingInterval: 1, MinQuality: 0, HashDistance: 6}
	sampler := NewSampler(cfg, "ffmpeg", WithCommandRunner(imageWriter(t, []image.Image{
		checkerboard(64, 4),
	})))

	frames, err := sampler.SampleWindow(context.Background(), "/videos/static.mp4",
		analysis.CandidateWindow{Start: 0, End: 20}, t.TempDir())
	if err != nil {
		t.Fatalf("SampleWindow failed: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected identical frames collapsed to 1, got %d", len(frames))
	}
}

func TestSampleWindowDropsLowQualityFrames(t *testing.T) {
	cfg := config.Frames{SamplesPerWindow: 3, SamplingInterval: 1, MinQuality: 0.5, HashDistance: 4}
	sampler := NewSampler(cfg, "ffmpeg", WithCommandRunner(imageWriter(t, []image.Image{
		flat(64, 128),
	})))

	frames, err := sampler.SampleWindow(context.Background(), "/videos/black.mp4",
		analysis.CandidateWindow{Start: 0, End: 10}, t.TempDir())
	if err != nil {
		t.Fatalf("quality filtering must not fail the window: %v", err)
	}
	if len(frames) != 0 {
		t.Fatalf("expected all flat frames dropped, got %d", len(frames))
	}
}

func TestSampleWindowUnreadableVideoIsNotError(t *testing.T) {
	cfg := config.Frames{SamplesPerWindow: 3, SamplingInterval: 1, HashDistance: 4}
	sampler := NewSampler(cfg, "ffmpeg", WithCommandRunner(
		func(ctx context.Context, name string, args ...string) error {
			return errors.New("moov atom not found")
		},
	))

	frames, err := sampler.SampleWindow(context.Background(), "/videos/corrupt.mp4",
		analysis.CandidateWindow{Start: 0, End: 10}, t.TempDir())
	if err != nil {
		t.Fatalf("unreadable window must degrade to empty, got %v", err)
	}
	if len(frames) != 0 {
		t.Fatalf("expected no frames, got %d", len(frames))
	}
}

func TestSampleWindowRejectsInvalidWindow(t *testing.T) {
	sampler := NewSampler(config.Frames{}, "ffmpeg", WithCommandRunner(
		func(ctx context.Context, name string, args ...string) error { return nil },
	))
	_, err := sampler.SampleWindow(context.Background(), "/videos/input.mp4",
		analysis.CandidateWindow{Start: 8, End: 3}, t.TempDir())
	if !errors.Is(err, analysis.ErrInvalidWindow) {
		t.Fatalf("expected invalid window error, got %v", err)
	}
}

func TestTimestampsHonorSamplingInterval(t *testing.T) {
	cfg := config.Frames{SamplesPerWindow: 5, SamplingInterval: 2}
	sampler := NewSampler(cfg, "ffmpeg")

	points := sampler.timestamps(analysis.CandidateWindow{Start: 0, End: 4})
	if len(points) != 3 {
		t.Fatalf("expected interval to cap samples at 3, got %d", len(points))
	}
	short := sampler.timestamps(analysis.CandidateWindow{Start: 5, End: 5.5})
	if len(short) != 1 {
		t.Fatalf("expected at least one sample in a short window, got %d", len(short))
	}
	if short[0] <= 5 || short[0] >= 5.5 {
		t.Fatalf("sample point %.2f outside window", short[0])
	}
}
