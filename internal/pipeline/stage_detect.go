package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"plugscan/internal/analysis"
	"plugscan/internal/stage"
	"plugscan/internal/store"
)

// CandidateDetector is the first-pass surface the detect stage needs.
type CandidateDetector interface {
	Detect(ctx context.Context, transcript analysis.Transcript) ([]analysis.CandidateWindow, error)
}

// HealthChecker reports readiness of a backing service.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// DetectStage scans the transcript for candidate endorsement windows.
type DetectStage struct {
	store    *store.Store
	detector CandidateDetector
	health   HealthChecker
}

// NewDetectStage constructs the detect stage handler. The health checker is
// the LLM client the detector runs on.
func NewDetectStage(st *store.Store, detector CandidateDetector, health HealthChecker) *DetectStage {
	return &DetectStage{store: st, detector: detector, health: health}
}

func (s *DetectStage) Prepare(ctx context.Context, video *store.Video) error {
	video.SetProgress("Detecting", "Scanning transcript for endorsements", 0)
	return nil
}

func (s *DetectStage) Execute(ctx context.Context, video *store.Video) error {
	if _, err := s.store.RecordAttempt(ctx, video.ID, store.StepDetect); err != nil {
		return fmt.Errorf("record detect attempt: %w", err)
	}
	checkpoint, err := s.store.GetCheckpoint(ctx, video.ID)
	if err != nil {
		return fmt.Errorf("load checkpoint: %w", err)
	}

	var windows []analysis.CandidateWindow
	if checkpoint.Completed(store.StepDetect) {
		raw, _ := checkpoint.Output(store.StepDetect)
		if err := stage.DecodeStepOutput(raw, &windows); err != nil {
			return err
		}
	} else {
		var transcript analysis.Transcript
		raw, _ := checkpoint.Output(store.StepTranscribe)
		if err := stage.DecodeStepOutput(raw, &transcript); err != nil {
			return err
		}
		windows, err = s.detector.Detect(ctx, transcript)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(windows)
		if err != nil {
			return fmt.Errorf("encode candidate windows: %w", err)
		}
		if err := s.store.CompleteStep(ctx, video.ID, store.StepDetect, payload); err != nil {
			return fmt.Errorf("checkpoint candidate windows: %w", err)
		}
	}

	if len(windows) == 0 {
		video.Status = store.StatusNoCandidates
		video.SetProgressComplete("No Candidates", "No endorsement moments found")
		return nil
	}
	video.SetProgress("Detecting", fmt.Sprintf("Found %d candidate windows", len(windows)), 100)
	return nil
}

func (s *DetectStage) HealthCheck(ctx context.Context) stage.Health {
	if s.health != nil {
		if err := s.health.HealthCheck(ctx); err != nil {
			return stage.Unhealthy("detect", err.Error())
		}
	}
	return stage.Healthy("detect")
}
