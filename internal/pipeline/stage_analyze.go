package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"plugscan/internal/analysis"
	"plugscan/internal/fusion"
	"plugscan/internal/logging"
	"plugscan/internal/services"
	"plugscan/internal/stage"
	"plugscan/internal/store"
)

// FrameSampler extracts representative frames for a candidate window.
type FrameSampler interface {
	SampleWindow(ctx context.Context, videoPath string, window analysis.CandidateWindow, destDir string) ([]analysis.ExtractedFrame, error)
}

// FrameAnalyzer runs OCR and object detection over one frame.
type FrameAnalyzer interface {
	AnalyzeFrame(ctx context.Context, frame analysis.ExtractedFrame) ([]analysis.VisualDetection, error)
	HealthCheck(ctx context.Context) error
}

// DetailExtractor runs the second-pass extraction for one fused window.
type DetailExtractor interface {
	Extract(ctx context.Context, fused analysis.FusionResult) (analysis.DetailResult, error)
}

// AnalyzeStage runs frame sampling, visual analysis, fusion, and detail
// extraction for every candidate window. Windows run concurrently up to the
// configured bound and fail independently; only quota exhaustion or context
// cancellation aborts the whole stage.
type AnalyzeStage struct {
	store       *store.Store
	sampler     FrameSampler
	vision      FrameAnalyzer
	fuser       *fusion.Fuser
	extractor   DetailExtractor
	stagingDir  string
	concurrency int
	logger      *slog.Logger
}

// NewAnalyzeStage constructs the analyze stage handler.
func NewAnalyzeStage(st *store.Store, sampler FrameSampler, vision FrameAnalyzer, fuser *fusion.Fuser, extractor DetailExtractor, stagingDir string, concurrency int, logger *slog.Logger) *AnalyzeStage {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &AnalyzeStage{
		store:       st,
		sampler:     sampler,
		vision:      vision,
		fuser:       fuser,
		extractor:   extractor,
		stagingDir:  stagingDir,
		concurrency: concurrency,
		logger:      logger,
	}
}

func (s *AnalyzeStage) Prepare(ctx context.Context, video *store.Video) error {
	video.SetProgress("Analyzing", "Analyzing candidate windows", 0)
	return nil
}

func (s *AnalyzeStage) Execute(ctx context.Context, video *store.Video) error {
	if _, err := s.store.RecordAttempt(ctx, video.ID, store.StepAnalyze); err != nil {
		return fmt.Errorf("record analyze attempt: %w", err)
	}
	checkpoint, err := s.store.GetCheckpoint(ctx, video.ID)
	if err != nil {
		return fmt.Errorf("load checkpoint: %w", err)
	}
	if checkpoint.Completed(store.StepAnalyze) {
		video.SetProgress("Analyzing", "Analysis restored from checkpoint", 100)
		return nil
	}

	var transcript analysis.Transcript
	raw, _ := checkpoint.Output(store.StepTranscribe)
	if err := stage.DecodeStepOutput(raw, &transcript); err != nil {
		return err
	}
	var windows []analysis.CandidateWindow
	raw, _ = checkpoint.Output(store.StepDetect)
	if err := stage.DecodeStepOutput(raw, &windows); err != nil {
		return err
	}

	results := make([]AnalyzedWindow, len(windows))
	semaphore := make(chan struct{}, s.concurrency)
	var (
		wg       sync.WaitGroup
		fatalMu  sync.Mutex
		fatalErr error
	)
	setFatal := func(err error) {
		fatalMu.Lock()
		if fatalErr == nil {
			fatalErr = err
		}
		fatalMu.Unlock()
	}

	for i, window := range windows {
		wg.Add(1)
		go func(index int, window analysis.CandidateWindow) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if ctx.Err() != nil {
				setFatal(ctx.Err())
				return
			}
			result, err := s.analyzeWindow(ctx, video, transcript, window)
			if err != nil {
				setFatal(err)
				return
			}
			results[index] = result
		}(i, window)
	}
	wg.Wait()
	if fatalErr != nil {
		return fatalErr
	}

	payload, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("encode analyzed windows: %w", err)
	}
	if err := s.store.CompleteStep(ctx, video.ID, store.StepAnalyze, payload); err != nil {
		return fmt.Errorf("checkpoint analyzed windows: %w", err)
	}

	failed := 0
	for _, result := range results {
		if result.Detail.ExtractionFailed {
			failed++
		}
	}
	video.SetProgress("Analyzing",
		fmt.Sprintf("Analyzed %d windows (%d failed)", len(results), failed), 100)
	return nil
}

// analyzeWindow runs the full visual pass for one window. Its own failures
// come back inside the result so sibling windows keep going; only errors
// that must stop the video (quota, cancellation) return as errors.
func (s *AnalyzeStage) analyzeWindow(ctx context.Context, video *store.Video, transcript analysis.Transcript, window analysis.CandidateWindow) (AnalyzedWindow, error) {
	ctx = services.WithWindow(ctx, window.Label())
	logger := logging.WithContext(ctx, s.logger)

	frameDir := filepath.Join(videoWorkDir(s.stagingDir, video.ID), "frames", window.Label())
	frames, err := s.sampler.SampleWindow(ctx, video.SourcePath, window, frameDir)
	if err != nil {
		if isFatal(err) {
			return AnalyzedWindow{}, err
		}
		return s.failedWindow(window, fmt.Errorf("sample frames: %w", err), logger), nil
	}

	var detections []analysis.VisualDetection
	for _, frame := range frames {
		found, err := s.vision.AnalyzeFrame(ctx, frame)
		if err != nil {
			if isFatal(err) {
				return AnalyzedWindow{}, err
			}
			// A frame the service cannot read contributes nothing;
			// the window still fuses on what remains.
			logger.Warn("frame analysis failed",
				logging.Float64("timestamp", frame.Timestamp),
				logging.Error(err))
			continue
		}
		detections = append(detections, found...)
	}

	fused := s.fuser.Fuse(window, transcript, detections)
	detail, err := s.extractor.Extract(ctx, fused)
	if err != nil {
		if isFatal(err) {
			return AnalyzedWindow{}, err
		}
		return s.failedWindow(window, fmt.Errorf("extract details: %w", err), logger), nil
	}
	return AnalyzedWindow{Fusion: fused, Detail: detail}, nil
}

func (s *AnalyzeStage) failedWindow(window analysis.CandidateWindow, cause error, logger *slog.Logger) AnalyzedWindow {
	logger.Warn("window analysis failed", logging.Error(cause))
	return AnalyzedWindow{
		Fusion: analysis.FusionResult{Window: window},
		Detail: analysis.DetailResult{
			Window:           window,
			ExtractionFailed: true,
			FailureReason:    cause.Error(),
		},
	}
}

// isFatal reports whether the failure must stop the whole video rather than
// just the window it happened in.
func isFatal(err error) bool {
	return errors.Is(err, services.ErrQuotaExhausted) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func (s *AnalyzeStage) HealthCheck(ctx context.Context) stage.Health {
	if err := s.vision.HealthCheck(ctx); err != nil {
		return stage.Unhealthy("analyze", err.Error())
	}
	return stage.Healthy("analyze")
}
