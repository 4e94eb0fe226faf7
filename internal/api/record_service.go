package api

import (
	"context"

	"plugscan/internal/store"
)

// RecordStore abstracts the record persistence surface the API layer needs.
type RecordStore interface {
	GetRecord(ctx context.Context, id string) (*store.AnalysisRecord, error)
	ListRecords(ctx context.Context, states ...store.RecordState) ([]*store.AnalysisRecord, error)
	RecordsForVideo(ctx context.Context, videoID int64) ([]*store.AnalysisRecord, error)
	RecordStats(ctx context.Context) (map[store.RecordState]int, error)
	TransitionRecord(ctx context.Context, id string, to store.RecordState, note string) (*store.AnalysisRecord, error)
}

// RecordService exposes review workflow operations returning API DTOs.
type RecordService struct {
	store RecordStore
}

// NewRecordService constructs a RecordService around the provided store.
func NewRecordService(store RecordStore) *RecordService {
	if store == nil {
		return nil
	}
	return &RecordService{store: store}
}

// List returns analysis records filtered by review state.
func (s *RecordService) List(ctx context.Context, states ...store.RecordState) ([]Record, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	records, err := s.store.ListRecords(ctx, states...)
	if err != nil {
		return nil, err
	}
	return FromRecords(records), nil
}

// ForVideo returns every record produced for one video.
func (s *RecordService) ForVideo(ctx context.Context, videoID int64) ([]Record, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	records, err := s.store.RecordsForVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	return FromRecords(records), nil
}

// Stats returns record counts keyed by review state string.
func (s *RecordService) Stats(ctx context.Context) (map[string]int, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	stats, err := s.store.RecordStats(ctx)
	if err != nil {
		return nil, err
	}
	return mergeRecordStats(stats), nil
}

// Describe fetches a single record. A missing record returns nil without error.
func (s *RecordService) Describe(ctx context.Context, id string) (*Record, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	record, err := s.store.GetRecord(ctx, id)
	if err != nil || record == nil {
		return nil, err
	}
	dto := FromRecord(record)
	return &dto, nil
}

// Transition moves a record through the review workflow. Illegal edges
// surface store.ErrIllegalTransition for the transport layer to map.
func (s *RecordService) Transition(ctx context.Context, id string, to store.RecordState, note string) (*Record, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	record, err := s.store.TransitionRecord(ctx, id, to, note)
	if err != nil || record == nil {
		return nil, err
	}
	dto := FromRecord(record)
	return &dto, nil
}
