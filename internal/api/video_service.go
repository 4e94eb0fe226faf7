package api

import (
	"context"
	"fmt"
	"strings"

	"plugscan/internal/store"
)

// VideoStore abstracts the video persistence surface the API layer needs.
type VideoStore interface {
	NewVideo(ctx context.Context, sourcePath, title string) (*store.Video, error)
	GetVideo(ctx context.Context, id int64) (*store.Video, error)
	FindBySourcePath(ctx context.Context, sourcePath string) (*store.Video, error)
	ListVideos(ctx context.Context, statuses ...store.Status) ([]*store.Video, error)
	Stats(ctx context.Context) (map[store.Status]int, error)
	RequestCancel(ctx context.Context, id int64) (bool, error)
	RetryFailed(ctx context.Context, ids ...int64) (int64, error)
	RemoveVideo(ctx context.Context, id int64) (bool, error)
	ClearCompleted(ctx context.Context) (int64, error)
	ClearFailed(ctx context.Context) (int64, error)
}

// VideoService exposes video queue operations returning API DTOs.
type VideoService struct {
	store VideoStore
}

// NewVideoService constructs a VideoService around the provided store.
func NewVideoService(store VideoStore) *VideoService {
	if store == nil {
		return nil
	}
	return &VideoService{store: store}
}

// AddOutcome describes the result of an enqueue request.
type AddOutcome string

const (
	AddOutcomeQueued    AddOutcome = "queued"
	AddOutcomeDuplicate AddOutcome = "duplicate"
)

// AddResult reports what happened to an enqueue request.
type AddResult struct {
	Outcome AddOutcome `json:"outcome"`
	Video   Video      `json:"video"`
}

// Add enqueues a video for analysis. Re-adding a source path that is already
// queued returns the existing entry instead of creating a duplicate.
func (s *VideoService) Add(ctx context.Context, sourcePath, title string) (AddResult, error) {
	if s == nil || s.store == nil {
		return AddResult{}, fmt.Errorf("video service unavailable")
	}
	sourcePath = strings.TrimSpace(sourcePath)
	if sourcePath == "" {
		return AddResult{}, fmt.Errorf("source path is required")
	}

	existing, err := s.store.FindBySourcePath(ctx, sourcePath)
	if err != nil {
		return AddResult{}, err
	}
	if existing != nil && !store.IsTerminalStatus(existing.Status) {
		return AddResult{Outcome: AddOutcomeDuplicate, Video: FromVideo(existing)}, nil
	}

	video, err := s.store.NewVideo(ctx, sourcePath, title)
	if err != nil {
		return AddResult{}, err
	}
	return AddResult{Outcome: AddOutcomeQueued, Video: FromVideo(video)}, nil
}

// List returns videos filtered by status.
func (s *VideoService) List(ctx context.Context, statuses ...store.Status) ([]Video, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	videos, err := s.store.ListVideos(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromVideos(videos), nil
}

// Stats returns queue summary counts keyed by status string.
func (s *VideoService) Stats(ctx context.Context) (map[string]int, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeVideoStats(stats), nil
}

// Describe fetches a single video. A missing video returns nil without error.
func (s *VideoService) Describe(ctx context.Context, id int64) (*Video, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	video, err := s.store.GetVideo(ctx, id)
	if err != nil || video == nil {
		return nil, err
	}
	dto := FromVideo(video)
	return &dto, nil
}

// Cancel requests cancellation of a queued or in-flight video. It reports
// false when the video is missing or already terminal.
func (s *VideoService) Cancel(ctx context.Context, id int64) (bool, error) {
	if s == nil || s.store == nil {
		return false, nil
	}
	return s.store.RequestCancel(ctx, id)
}

// Retry returns failed or quota-parked videos to the head of their stage.
// With no IDs it retries every eligible video.
func (s *VideoService) Retry(ctx context.Context, ids ...int64) (int64, error) {
	if s == nil || s.store == nil {
		return 0, nil
	}
	return s.store.RetryFailed(ctx, ids...)
}

// Remove deletes a video and its dependent rows.
func (s *VideoService) Remove(ctx context.Context, id int64) (bool, error) {
	if s == nil || s.store == nil {
		return false, nil
	}
	return s.store.RemoveVideo(ctx, id)
}

// ClearCompleted removes every terminal successful video.
func (s *VideoService) ClearCompleted(ctx context.Context) (int64, error) {
	if s == nil || s.store == nil {
		return 0, nil
	}
	return s.store.ClearCompleted(ctx)
}

// ClearFailed removes every failed video.
func (s *VideoService) ClearFailed(ctx context.Context) (int64, error) {
	if s == nil || s.store == nil {
		return 0, nil
	}
	return s.store.ClearFailed(ctx)
}
