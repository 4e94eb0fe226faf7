package pipeline_test

import (
	"context"
	"sync/atomic"
	"testing"

	"plugscan/internal/analysis"
	"plugscan/internal/fusion"
	"plugscan/internal/logging"
	"plugscan/internal/pipeline"
	"plugscan/internal/scoring"
	"plugscan/internal/services"
	"plugscan/internal/store"
	"plugscan/internal/testsupport"
)

// The counting fakes use atomic counters because the manager invokes them
// from worker goroutines while the test inspects them afterwards.

type countingTranscriber struct {
	transcript analysis.Transcript
	calls      atomic.Int32
}

func (c *countingTranscriber) ExtractAudio(context.Context, string, string) error { return nil }

func (c *countingTranscriber) Transcribe(context.Context, string) (analysis.Transcript, error) {
	c.calls.Add(1)
	return c.transcript, nil
}

func (c *countingTranscriber) HealthCheck(context.Context) error { return nil }

type countingDetector struct {
	windows []analysis.CandidateWindow
	calls   atomic.Int32
}

func (c *countingDetector) Detect(context.Context, analysis.Transcript) ([]analysis.CandidateWindow, error) {
	c.calls.Add(1)
	return c.windows, nil
}

type countingExtractor struct {
	calls atomic.Int32
}

func (c *countingExtractor) Extract(_ context.Context, fused analysis.FusionResult) (analysis.DetailResult, error) {
	c.calls.Add(1)
	return analysis.DetailResult{
		Window:       fused.Window,
		ProductName:  "무선 이어폰",
		CategoryPath: []string{"전자기기", "음향기기"},
		SubScores: analysis.SubScores{
			Sentiment:   0.8,
			Endorsement: 0.7,
			SourceTrust: 0.6,
		},
		FusedConfidence: fused.FusedConfidence,
	}, nil
}

// failOnceScorer dies on its first call the way a worker crash mid-score
// would, then behaves on every later call.
type failOnceScorer struct {
	outcome scoring.Outcome
	calls   atomic.Int32
}

func (s *failOnceScorer) Score(context.Context, analysis.DetailResult, string) (scoring.Outcome, error) {
	if s.calls.Add(1) == 1 {
		return scoring.Outcome{}, services.Wrap(services.ErrTransient, "score", "llm.score",
			"connection reset mid request", nil)
	}
	return s.outcome, nil
}

func TestManagerResumeAfterMidRunFailureSkipsCompletedStages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	transcriber := &countingTranscriber{transcript: testTranscript()}
	detector := &countingDetector{windows: []analysis.CandidateWindow{
		{Start: 5, End: 20, Reason: "product praise with purchase link", Confidence: 0.8},
	}}
	extractor := &countingExtractor{}
	scorer := &failOnceScorer{outcome: scoring.Outcome{
		Attractiveness: 68,
		PPLProbability: 0.42,
		PPLClass:       scoring.ClassMedium,
		Monetizable:    true,
		ProductLink:    "https://shop.example/earbuds",
		InitialState:   store.RecordNeedsReview,
	}}

	set := pipeline.StageSet{
		Transcriber: pipeline.NewTranscribeStage(st, transcriber, cfg.Paths.StagingDir),
		Detector:    pipeline.NewDetectStage(st, detector, okHealth{}),
		Analyzer: pipeline.NewAnalyzeStage(st, fakeSampler{}, &fakeVision{},
			fusion.NewFuser(cfg.Fusion), extractor, cfg.Paths.StagingDir, 2, logging.NewNop()),
		Scorer: pipeline.NewScoreStage(st, scorer, okHealth{}, logging.NewNop()),
	}
	startManager(t, cfg, st, set)

	video := testsupport.NewVideo(t, st, "/videos/review.mp4", "Review")
	waitForStatus(t, st, video.ID, store.StatusFailed)

	// The first run got through transcribe, detect, and analyze before the
	// scorer died, so those checkpoints must survive the failure.
	checkpoint, err := st.GetCheckpoint(ctx, video.ID)
	if err != nil {
		t.Fatalf("GetCheckpoint failed: %v", err)
	}
	for _, step := range []string{store.StepTranscribe, store.StepDetect, store.StepAnalyze} {
		if !checkpoint.Completed(step) {
			t.Fatalf("step %s lost its checkpoint on failure", step)
		}
	}
	if checkpoint.Completed(store.StepScore) {
		t.Fatalf("failed score step must not be checkpointed")
	}

	if _, err := st.RetryFailed(ctx, video.ID); err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	waitForStatus(t, st, video.ID, store.StatusCompleted)

	if n := transcriber.calls.Load(); n != 1 {
		t.Fatalf("resume re-ran transcription, calls=%d", n)
	}
	if n := detector.calls.Load(); n != 1 {
		t.Fatalf("resume re-ran candidate detection, calls=%d", n)
	}
	if n := extractor.calls.Load(); n != 1 {
		t.Fatalf("resume re-ran window extraction, calls=%d", n)
	}
	if n := scorer.calls.Load(); n != 2 {
		t.Fatalf("expected the interrupted score call plus one retry, calls=%d", n)
	}

	records, err := st.RecordsForVideo(ctx, video.ID)
	if err != nil {
		t.Fatalf("RecordsForVideo failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("resume duplicated records: %d", len(records))
	}
	record := records[0]
	if record.WindowStart != 5 || record.WindowEnd != 20 {
		t.Fatalf("record window drifted across the resume: %+v", record)
	}
	if record.Status != store.RecordNeedsReview {
		t.Fatalf("expected needs_review routing after resume, got %s", record.Status)
	}
	if record.Attractiveness != 68 || record.PPLClass != scoring.ClassMedium {
		t.Fatalf("resumed run produced a different outcome: %+v", record)
	}
	if !record.Monetizable || record.ProductLink != "https://shop.example/earbuds" {
		t.Fatalf("monetization outcome lost across the resume: %+v", record)
	}
	if record.SentimentScore != 0.8 || record.SourceTrustScore != 0.6 {
		t.Fatalf("sub-scores lost across the resume: %+v", record)
	}
}
