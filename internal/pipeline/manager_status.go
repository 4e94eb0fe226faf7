package pipeline

import (
	"context"

	"plugscan/internal/logging"
	"plugscan/internal/stage"
	"plugscan/internal/store"
)

// StatusSummary represents lightweight pipeline diagnostics.
type StatusSummary struct {
	Running     bool
	LastError   string
	LastVideo   *store.Video
	VideoStats  map[store.Status]int
	RecordStats map[store.RecordState]int
	StageHealth map[string]stage.Health
}

// Status returns the latest pipeline information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	lastVideo := m.lastVideo
	stages := make([]pipelineStage, len(m.stages))
	copy(stages, m.stages)
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil && m.logger != nil {
		m.logger.Warn("failed to read video stats", logging.Error(err))
	}
	recordStats, err := m.store.RecordStats(ctx)
	if err != nil && m.logger != nil {
		m.logger.Warn("failed to read record stats", logging.Error(err))
	}

	health := make(map[string]stage.Health, len(stages))
	for _, stg := range stages {
		if stg.handler == nil {
			continue
		}
		health[stg.name] = stg.handler.HealthCheck(ctx)
	}

	summary := StatusSummary{
		Running:     running,
		VideoStats:  stats,
		RecordStats: recordStats,
		StageHealth: health,
	}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastVideo != nil {
		copied := *lastVideo
		summary.LastVideo = &copied
	}
	return summary
}
