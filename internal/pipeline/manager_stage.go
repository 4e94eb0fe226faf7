package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"

	"plugscan/internal/logging"
	"plugscan/internal/services"
	"plugscan/internal/stage"
	"plugscan/internal/store"
)

func (m *Manager) executeStage(ctx context.Context, workerLogger *slog.Logger, stg pipelineStage, video *store.Video) error {
	requestID := uuid.NewString()
	stageCtx := services.WithRequestID(
		services.WithStage(
			services.WithVideoID(ctx, video.ID), stg.name), requestID)
	stageLogger := logging.WithContext(stageCtx, workerLogger)

	stageStart := time.Now()
	stageLogger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("processing_status", string(stg.processingStatus)),
		logging.String("source_file", strings.TrimSpace(video.SourcePath)),
	)

	if err := stg.handler.Prepare(stageCtx, video); err != nil {
		m.handleStageFailure(stageCtx, stageLogger, stg, video, err)
		m.setLastError(err)
		return err
	}
	if err := m.store.UpdateVideo(stageCtx, video); err != nil {
		wrapped := fmt.Errorf("persist stage preparation: %w", err)
		stageLogger.Error("failed to persist stage preparation", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	execErr := m.executeWithHeartbeat(stageCtx, stg.handler, video)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			stageLogger.Debug("stage interrupted by shutdown")
			return execErr
		}
		m.handleStageFailure(stageCtx, stageLogger, stg, video, execErr)
		m.setLastError(execErr)
		return execErr
	}

	if video.Status == stg.processingStatus || video.Status == "" {
		video.Status = stg.doneStatus
	}
	video.LastHeartbeat = nil
	if err := m.finalizeVideo(stageCtx, stageLogger, video); err != nil {
		m.setLastError(err)
		return err
	}

	stageLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(video.Status)),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	m.setLastVideo(video)
	return nil
}

// finalizeVideo persists the stage result and settles terminal outcomes:
// scored videos complete, and any terminal video sheds its checkpoint.
func (m *Manager) finalizeVideo(ctx context.Context, logger *slog.Logger, video *store.Video) error {
	if video.Status == store.StatusScored {
		video.Status = store.StatusCompleted
		video.SetProgressComplete("Completed", "Analysis complete")
	}
	if video.CancelRequested && !store.IsTerminalStatus(video.Status) {
		return m.markCancelled(ctx, video)
	}
	if err := m.store.UpdateVideo(ctx, video); err != nil {
		return fmt.Errorf("persist stage result: %w", err)
	}
	if store.IsTerminalStatus(video.Status) {
		if err := m.store.DeleteCheckpoint(ctx, video.ID); err != nil {
			logger.Warn("failed to delete checkpoint for terminal video", logging.Error(err))
		}
	}
	return nil
}

// markCancelled resolves an operator cancellation between stages.
func (m *Manager) markCancelled(ctx context.Context, video *store.Video) error {
	video.Status = store.StatusCancelled
	video.ErrorMessage = store.UserCancelReason
	video.ProgressMessage = store.UserCancelReason
	video.CancelRequested = false
	video.LastHeartbeat = nil
	if err := m.store.UpdateVideo(ctx, video); err != nil {
		return fmt.Errorf("persist cancellation: %w", err)
	}
	if err := m.store.DeleteCheckpoint(ctx, video.ID); err != nil && m.logger != nil {
		m.logger.Warn("failed to delete checkpoint for cancelled video", logging.Error(err))
	}
	m.setLastVideo(video)
	return nil
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, handler stage.Handler, video *store.Video) error {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, video.ID)

	execErr := handler.Execute(ctx, video)
	hbCancel()
	hbWG.Wait()
	return execErr
}

func stageLabel(status store.Status) string {
	if status == "" {
		return ""
	}
	parts := strings.Fields(strings.ReplaceAll(string(status), "_", " "))
	for i, part := range parts {
		runes := []rune(strings.ToLower(part))
		runes[0] = unicode.ToUpper(runes[0])
		parts[i] = string(runes)
	}
	return strings.Join(parts, " ")
}
