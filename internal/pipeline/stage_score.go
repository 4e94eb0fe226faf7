package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"plugscan/internal/analysis"
	"plugscan/internal/logging"
	"plugscan/internal/scoring"
	"plugscan/internal/stage"
	"plugscan/internal/store"
)

// OutcomeScorer decides scores and routing for one extracted window.
type OutcomeScorer interface {
	Score(ctx context.Context, detail analysis.DetailResult, spokenText string) (scoring.Outcome, error)
}

// ScoreStage turns analyzed windows into routed analysis records.
type ScoreStage struct {
	store  *store.Store
	scorer OutcomeScorer
	health HealthChecker
	logger *slog.Logger
}

// NewScoreStage constructs the score stage handler. The health checker is
// the commerce client the scorer depends on.
func NewScoreStage(st *store.Store, scorer OutcomeScorer, health HealthChecker, logger *slog.Logger) *ScoreStage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ScoreStage{store: st, scorer: scorer, health: health, logger: logger}
}

func (s *ScoreStage) Prepare(ctx context.Context, video *store.Video) error {
	video.SetProgress("Scoring", "Scoring endorsement records", 0)
	return nil
}

func (s *ScoreStage) Execute(ctx context.Context, video *store.Video) error {
	if _, err := s.store.RecordAttempt(ctx, video.ID, store.StepScore); err != nil {
		return fmt.Errorf("record score attempt: %w", err)
	}
	checkpoint, err := s.store.GetCheckpoint(ctx, video.ID)
	if err != nil {
		return fmt.Errorf("load checkpoint: %w", err)
	}
	if checkpoint.Completed(store.StepScore) {
		video.SetProgress("Scoring", "Scores restored from checkpoint", 100)
		return nil
	}

	var analyzed []AnalyzedWindow
	raw, _ := checkpoint.Output(store.StepAnalyze)
	if err := stage.DecodeStepOutput(raw, &analyzed); err != nil {
		return err
	}

	// Resume-safety: records created by an interrupted earlier run are
	// reused by window bounds rather than duplicated.
	existing, err := s.store.RecordsForVideo(ctx, video.ID)
	if err != nil {
		return fmt.Errorf("load existing records: %w", err)
	}

	logger := logging.WithContext(ctx, s.logger)
	recordIDs := make([]string, 0, len(analyzed))
	scored := 0
	for _, window := range analyzed {
		if window.Detail.ExtractionFailed {
			logger.Warn("skipping failed window",
				logging.String(logging.FieldWindow, window.Detail.Window.Label()),
				logging.String("reason", window.Detail.FailureReason))
			continue
		}
		record, err := s.ensureRecord(ctx, video, window, existing)
		if err != nil {
			return err
		}
		recordIDs = append(recordIDs, record.ID)
		if record.Status != store.RecordPending {
			scored++
			continue
		}

		outcome, err := s.scorer.Score(ctx, window.Detail, window.Fusion.SpokenText)
		if err != nil {
			return err
		}
		if err := s.persistOutcome(ctx, record, window, outcome); err != nil {
			return err
		}
		scored++
	}

	payload, err := json.Marshal(recordIDs)
	if err != nil {
		return fmt.Errorf("encode record ids: %w", err)
	}
	if err := s.store.CompleteStep(ctx, video.ID, store.StepScore, payload); err != nil {
		return fmt.Errorf("checkpoint record ids: %w", err)
	}
	video.SetProgress("Scoring", fmt.Sprintf("Routed %d records", scored), 100)
	return nil
}

func (s *ScoreStage) ensureRecord(ctx context.Context, video *store.Video, window AnalyzedWindow, existing []*store.AnalysisRecord) (*store.AnalysisRecord, error) {
	for _, record := range existing {
		if record.WindowStart == window.Detail.Window.Start && record.WindowEnd == window.Detail.Window.End {
			return record, nil
		}
	}
	record := &store.AnalysisRecord{
		VideoID:         video.ID,
		WindowStart:     window.Detail.Window.Start,
		WindowEnd:       window.Detail.Window.End,
		FusedConfidence: window.Detail.FusedConfidence,
	}
	if err := s.store.CreateRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}
	return record, nil
}

func (s *ScoreStage) persistOutcome(ctx context.Context, record *store.AnalysisRecord, window AnalyzedWindow, outcome scoring.Outcome) error {
	productJSON, err := json.Marshal(window.Detail)
	if err != nil {
		return fmt.Errorf("encode product details: %w", err)
	}
	record.ProductJSON = string(productJSON)
	record.SentimentScore = window.Detail.SubScores.Sentiment
	record.EndorsementScore = window.Detail.SubScores.Endorsement
	record.SourceTrustScore = window.Detail.SubScores.SourceTrust
	record.Attractiveness = outcome.Attractiveness
	record.PPLProbability = outcome.PPLProbability
	record.PPLClass = outcome.PPLClass
	record.Monetizable = outcome.Monetizable
	record.ProductLink = outcome.ProductLink
	if err := s.store.UpdateRecord(ctx, record); err != nil {
		return fmt.Errorf("persist record scores: %w", err)
	}

	if _, err := s.store.TransitionRecord(ctx, record.ID, store.RecordScored, "scoring complete"); err != nil {
		return fmt.Errorf("transition record to scored: %w", err)
	}
	note := routingNote(outcome)
	if _, err := s.store.TransitionRecord(ctx, record.ID, outcome.InitialState, note); err != nil {
		return fmt.Errorf("route record: %w", err)
	}
	return nil
}

func routingNote(outcome scoring.Outcome) string {
	switch outcome.InitialState {
	case store.RecordFilteredPPL:
		return fmt.Sprintf("paid placement probability %.2f (%s)", outcome.PPLProbability, outcome.PPLClass)
	case store.RecordFilteredNotMonetizable:
		return "no catalog match for product"
	default:
		return "awaiting review"
	}
}

func (s *ScoreStage) HealthCheck(ctx context.Context) stage.Health {
	if s.health != nil {
		if err := s.health.HealthCheck(ctx); err != nil {
			return stage.Unhealthy("score", err.Error())
		}
	}
	return stage.Healthy("score")
}
