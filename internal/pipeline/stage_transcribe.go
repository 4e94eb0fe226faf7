package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"plugscan/internal/analysis"
	"plugscan/internal/services"
	"plugscan/internal/stage"
	"plugscan/internal/store"
)

// Transcriber is the speech-to-text surface the transcribe stage needs.
type Transcriber interface {
	ExtractAudio(ctx context.Context, source, dest string) error
	Transcribe(ctx context.Context, audioPath string) (analysis.Transcript, error)
	HealthCheck(ctx context.Context) error
}

// TranscribeStage extracts the audio track and produces the transcript.
type TranscribeStage struct {
	store      *store.Store
	client     Transcriber
	stagingDir string
}

// NewTranscribeStage constructs the transcribe stage handler.
func NewTranscribeStage(st *store.Store, client Transcriber, stagingDir string) *TranscribeStage {
	return &TranscribeStage{store: st, client: client, stagingDir: stagingDir}
}

func (s *TranscribeStage) Prepare(ctx context.Context, video *store.Video) error {
	if strings.TrimSpace(video.SourcePath) == "" {
		return services.Wrap(services.ErrValidation, "transcribe", "prepare",
			"video has no source path", nil)
	}
	video.SetProgress("Transcribing", "Extracting audio", 0)
	return nil
}

func (s *TranscribeStage) Execute(ctx context.Context, video *store.Video) error {
	if _, err := s.store.RecordAttempt(ctx, video.ID, store.StepTranscribe); err != nil {
		return fmt.Errorf("record transcribe attempt: %w", err)
	}
	checkpoint, err := s.store.GetCheckpoint(ctx, video.ID)
	if err != nil {
		return fmt.Errorf("load checkpoint: %w", err)
	}
	if checkpoint.Completed(store.StepTranscribe) {
		video.SetProgress("Transcribing", "Transcript restored from checkpoint", 100)
		return nil
	}

	audioPath := filepath.Join(videoWorkDir(s.stagingDir, video.ID), "audio.wav")
	if err := s.client.ExtractAudio(ctx, video.SourcePath, audioPath); err != nil {
		return err
	}
	video.SetProgress("Transcribing", "Transcribing audio", 40)

	transcript, err := s.client.Transcribe(ctx, audioPath)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(transcript)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	if err := s.store.CompleteStep(ctx, video.ID, store.StepTranscribe, payload); err != nil {
		return fmt.Errorf("checkpoint transcript: %w", err)
	}
	video.SetProgress("Transcribing", fmt.Sprintf("Transcribed %d segments", len(transcript)), 100)
	return nil
}

func (s *TranscribeStage) HealthCheck(ctx context.Context) stage.Health {
	if err := s.client.HealthCheck(ctx); err != nil {
		return stage.Unhealthy("transcribe", err.Error())
	}
	return stage.Healthy("transcribe")
}

func videoWorkDir(stagingDir string, videoID int64) string {
	return filepath.Join(stagingDir, fmt.Sprintf("video-%d", videoID))
}
