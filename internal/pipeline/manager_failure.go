package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"plugscan/internal/logging"
	"plugscan/internal/services"
	"plugscan/internal/store"
)

func (m *Manager) handleStageFailure(ctx context.Context, logger *slog.Logger, stg pipelineStage, video *store.Video, stageErr error) {
	message := classifyStageFailure(stg.name, stageErr)
	status := services.FailureStatus(stageErr)

	video.SetFailed(message)
	video.Status = status
	if status == store.StatusQuotaExhausted {
		video.ProgressStage = "Quota Exhausted"
	}

	logger.Error("stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String("resolved_status", string(status)),
		logging.String("error_message", message),
		logging.Error(stageErr),
	)

	if err := m.store.UpdateVideo(ctx, video); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not persist stage failure")
		} else {
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
	}
	m.setLastVideo(video)
}

func classifyStageFailure(stageName string, stageErr error) string {
	if stageErr == nil {
		return stageName + " failed without error detail"
	}
	message := strings.TrimSpace(stageErr.Error())
	if message == "" {
		return stageName + " failed"
	}
	return message
}
