package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"plugscan/internal/logging"
	"plugscan/internal/store"
)

// Start begins background processing with the configured worker count.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("pipeline already running")
	}
	if len(m.statusOrder) == 0 {
		m.mu.Unlock()
		return errors.New("pipeline stages not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(m.concurrency)
	m.mu.Unlock()

	for i := 0; i < m.concurrency; i++ {
		go m.runWorker(runCtx, i)
	}
	return nil
}

// Stop terminates background processing and waits for workers to drain.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runWorker(ctx context.Context, index int) {
	defer m.wg.Done()
	logger := m.workerLogger(index)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if index == 0 {
			if err := m.heartbeat.ReclaimStale(ctx, logger); err != nil {
				logger.Warn("reclaim stale processing failed; stuck videos may remain",
					logging.Error(err))
			}
		}

		video, stg, err := m.claimNext(ctx)
		if err != nil {
			m.setLastError(err)
			logger.Error("failed to claim next video", logging.Error(err))
			m.waitForWorkOrShutdown(ctx)
			continue
		}
		if video == nil {
			m.waitForWorkOrShutdown(ctx)
			continue
		}

		if err := m.executeStage(ctx, logger, stg, video); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}

// claimNext atomically picks the oldest claimable video and moves it to its
// processing status so no other worker can take it. Videos whose operator
// asked for cancellation are resolved here instead of claimed.
func (m *Manager) claimNext(ctx context.Context) (*store.Video, pipelineStage, error) {
	m.claimMu.Lock()
	defer m.claimMu.Unlock()

	video, err := m.store.NextForStatuses(ctx, m.statusOrder...)
	if err != nil || video == nil {
		return nil, pipelineStage{}, err
	}
	stg, ok := m.stageForStatus(video.Status)
	if !ok {
		return nil, pipelineStage{}, fmt.Errorf("no stage configured for status %s", video.Status)
	}
	if video.CancelRequested {
		if err := m.markCancelled(ctx, video); err != nil {
			return nil, pipelineStage{}, err
		}
		return nil, pipelineStage{}, nil
	}

	now := time.Now().UTC()
	video.Status = stg.processingStatus
	video.InitProgress(stageLabel(stg.processingStatus), fmt.Sprintf("%s started", stg.name))
	video.LastHeartbeat = &now
	if err := m.store.UpdateVideo(ctx, video); err != nil {
		return nil, pipelineStage{}, fmt.Errorf("persist processing transition: %w", err)
	}
	m.setLastVideo(video)
	return video, stg, nil
}

func (m *Manager) waitForWorkOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(m.pollInterval):
	}
}

func (m *Manager) workerLogger(index int) *slog.Logger {
	if m.logger == nil {
		return logging.NewNop()
	}
	return m.logger.With(
		logging.String(logging.FieldComponent, "pipeline-worker"),
		logging.Int("worker", index),
	)
}
