package pipeline

import (
	"plugscan/internal/analysis"
	"plugscan/internal/stage"
	"plugscan/internal/store"
)

// StageSet bundles the concrete pipeline handlers the manager orchestrates.
type StageSet struct {
	Transcriber stage.Handler
	Detector    stage.Handler
	Analyzer    stage.Handler
	Scorer      stage.Handler
}

type pipelineStage struct {
	name             string
	step             string
	handler          stage.Handler
	startStatus      store.Status
	processingStatus store.Status
	doneStatus       store.Status
}

// AnalyzedWindow pairs the fusion result for one candidate window with the
// detail extraction derived from it. It is the analyze step's checkpoint
// output and the scoring step's input.
type AnalyzedWindow struct {
	Fusion analysis.FusionResult `json:"fusion"`
	Detail analysis.DetailResult `json:"detail"`
}
