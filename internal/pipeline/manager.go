package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"plugscan/internal/config"
	"plugscan/internal/store"
)

// Manager coordinates video processing using registered stage handlers. It
// polls the store for claimable videos, runs a bounded number of workers,
// maintains heartbeats for in-flight work, and reclaims videos whose worker
// died mid-stage.
type Manager struct {
	cfg          *config.Config
	store        *store.Store
	logger       *slog.Logger
	pollInterval time.Duration
	concurrency  int

	heartbeat *HeartbeatMonitor

	stages       []pipelineStage
	statusOrder  []store.Status
	stageByStart map[store.Status]pipelineStage

	claimMu sync.Mutex

	mu        sync.RWMutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	lastErr   error
	lastVideo *store.Video
}

// NewManager constructs a pipeline manager.
func NewManager(cfg *config.Config, st *store.Store, logger *slog.Logger) *Manager {
	concurrency := cfg.Workflow.VideoConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	pollInterval := time.Duration(cfg.Workflow.QueuePollInterval) * time.Second
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Manager{
		cfg:          cfg,
		store:        st,
		logger:       logger,
		pollInterval: pollInterval,
		concurrency:  concurrency,
		heartbeat: NewHeartbeatMonitor(
			st,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
	}
}

// ConfigureStages registers the concrete stage handlers the pipeline runs.
// Steps advance a video pending through transcribed, detected, analyzed,
// and scored; the manager finalizes scored videos to completed.
func (m *Manager) ConfigureStages(set StageSet) {
	var stages []pipelineStage
	if set.Transcriber != nil {
		stages = append(stages, pipelineStage{
			name:             "transcribe",
			step:             store.StepTranscribe,
			handler:          set.Transcriber,
			startStatus:      store.StatusPending,
			processingStatus: store.StatusTranscribing,
			doneStatus:       store.StatusTranscribed,
		})
	}
	if set.Detector != nil {
		stages = append(stages, pipelineStage{
			name:             "detect",
			step:             store.StepDetect,
			handler:          set.Detector,
			startStatus:      store.StatusTranscribed,
			processingStatus: store.StatusDetecting,
			doneStatus:       store.StatusDetected,
		})
	}
	if set.Analyzer != nil {
		stages = append(stages, pipelineStage{
			name:             "analyze",
			step:             store.StepAnalyze,
			handler:          set.Analyzer,
			startStatus:      store.StatusDetected,
			processingStatus: store.StatusAnalyzing,
			doneStatus:       store.StatusAnalyzed,
		})
	}
	if set.Scorer != nil {
		stages = append(stages, pipelineStage{
			name:             "score",
			step:             store.StepScore,
			handler:          set.Scorer,
			startStatus:      store.StatusAnalyzed,
			processingStatus: store.StatusScoring,
			doneStatus:       store.StatusScored,
		})
	}

	stageByStart := make(map[store.Status]pipelineStage, len(stages))
	statusOrder := make([]store.Status, 0, len(stages))
	for _, stg := range stages {
		stageByStart[stg.startStatus] = stg
		statusOrder = append(statusOrder, stg.startStatus)
	}

	m.mu.Lock()
	m.stages = stages
	m.statusOrder = statusOrder
	m.stageByStart = stageByStart
	m.mu.Unlock()
}

func (m *Manager) stageForStatus(status store.Status) (pipelineStage, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stg, ok := m.stageByStart[status]
	return stg, ok
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastVideo(video *store.Video) {
	m.mu.Lock()
	if video != nil {
		copied := *video
		m.lastVideo = &copied
	} else {
		m.lastVideo = nil
	}
	m.mu.Unlock()
}
