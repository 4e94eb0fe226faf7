package main

import (
	"log/slog"

	"plugscan/internal/config"
	"plugscan/internal/daemon"
	"plugscan/internal/detect"
	"plugscan/internal/extract"
	"plugscan/internal/frames"
	"plugscan/internal/fusion"
	"plugscan/internal/pipeline"
	"plugscan/internal/scoring"
	"plugscan/internal/services"
	"plugscan/internal/services/commerce"
	"plugscan/internal/services/llm"
	"plugscan/internal/services/stt"
	"plugscan/internal/services/vision"
	"plugscan/internal/store"
)

// buildStages wires the external service adapters into the four pipeline
// handlers. Every adapter shares the persisted daily quota ledger so a
// restart cannot reset spend tracking.
func buildStages(cfg *config.Config, st *store.Store, logger *slog.Logger) pipeline.StageSet {
	budget := &services.StoreBudget{Store: st, Limits: store.QuotaLimitsFromConfig(cfg)}

	sttClient := stt.NewClient(stt.Config{
		BaseURL:        cfg.STT.BaseURL,
		Language:       cfg.STT.Language,
		TimeoutSeconds: cfg.STT.TimeoutSeconds,
	}, cfg.FFmpegBinary(), stt.WithBudget(budget))

	llmClient := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	}, llm.WithBudget(budget))

	visionClient := vision.NewClient(vision.Config{
		BaseURL:        cfg.Vision.BaseURL,
		TimeoutSeconds: cfg.Vision.TimeoutSeconds,
	}, vision.WithBudget(budget))

	commerceClient := commerce.NewClient(commerce.Config{
		BaseURL:        cfg.Commerce.BaseURL,
		APIKey:         cfg.Commerce.APIKey,
		TimeoutSeconds: cfg.Commerce.TimeoutSeconds,
	}, commerce.WithBudget(budget))

	detector := detect.NewDetector(cfg.LLM, llmClient, detect.WithLogger(logger))
	sampler := frames.NewSampler(cfg.Frames, cfg.FFmpegBinary(), frames.WithLogger(logger))
	fuser := fusion.NewFuser(cfg.Fusion)
	extractor := extract.NewExtractor(llmClient, extract.WithLogger(logger))
	scorer := scoring.NewScorer(cfg.Scoring, llmClient, commerceClient, scoring.WithLogger(logger))

	return pipeline.StageSet{
		Transcriber: pipeline.NewTranscribeStage(st, sttClient, cfg.Paths.StagingDir),
		Detector:    pipeline.NewDetectStage(st, detector, llmClient),
		Analyzer:    pipeline.NewAnalyzeStage(st, sampler, visionClient, fuser, extractor, cfg.Paths.StagingDir, cfg.Workflow.WindowConcurrency, logger),
		Scorer:      pipeline.NewScoreStage(st, scorer, commerceClient, logger),
	}
}

func buildDaemon(cfg *config.Config, st *store.Store, logger *slog.Logger) (*daemon.Daemon, error) {
	mgr := pipeline.NewManager(cfg, st, logger)
	mgr.ConfigureStages(buildStages(cfg, st, logger))
	return daemon.New(cfg, st, logger, mgr)
}
