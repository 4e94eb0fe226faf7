package store_test

import (
	"context"
	"errors"
	"testing"

	"plugscan/internal/store"
	"plugscan/internal/testsupport"
)

func newScoredRecord(t *testing.T, st *store.Store, videoID int64) *store.AnalysisRecord {
	t.Helper()
	ctx := context.Background()
	record := &store.AnalysisRecord{
		VideoID:         videoID,
		WindowStart:     12.5,
		WindowEnd:       48.0,
		FusedConfidence: 0.72,
	}
	if err := st.CreateRecord(ctx, record); err != nil {
		t.Fatalf("CreateRecord failed: %v", err)
	}
	if _, err := st.TransitionRecord(ctx, record.ID, store.RecordScored, "scoring complete"); err != nil {
		t.Fatalf("TransitionRecord to scored failed: %v", err)
	}
	return record
}

func TestCreateRecordAssignsIdentity(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	video := testsupport.NewVideo(t, st, "/videos/record.mp4", "Record")

	record := &store.AnalysisRecord{VideoID: video.ID, WindowStart: 1, WindowEnd: 2}
	if err := st.CreateRecord(context.Background(), record); err != nil {
		t.Fatalf("CreateRecord failed: %v", err)
	}
	if record.ID == "" {
		t.Fatal("expected uuid assigned")
	}
	if record.Status != store.RecordPending {
		t.Fatalf("expected pending state, got %s", record.Status)
	}
}

func TestTransitionRecordFollowsGraph(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	video := testsupport.NewVideo(t, st, "/videos/graph.mp4", "Graph")
	record := newScoredRecord(t, st, video.ID)

	ctx := context.Background()
	steps := []store.RecordState{
		store.RecordNeedsReview,
		store.RecordApproved,
		store.RecordPublished,
	}
	for _, next := range steps {
		updated, err := st.TransitionRecord(ctx, record.ID, next, "")
		if err != nil {
			t.Fatalf("transition to %s failed: %v", next, err)
		}
		if updated.Status != next {
			t.Fatalf("expected state %s, got %s", next, updated.Status)
		}
	}

	final, err := st.GetRecord(ctx, record.ID)
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	// pending->scored plus the three review steps above.
	if len(final.StatusHistory) != 4 {
		t.Fatalf("expected 4 history entries, got %d", len(final.StatusHistory))
	}
	last := final.StatusHistory[len(final.StatusHistory)-1]
	if last.From != store.RecordApproved || last.To != store.RecordPublished {
		t.Fatalf("unexpected final history entry: %#v", last)
	}
}

func TestTransitionRecordRejectsIllegalEdges(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	video := testsupport.NewVideo(t, st, "/videos/illegal.mp4", "Illegal")
	record := newScoredRecord(t, st, video.ID)

	ctx := context.Background()
	illegal := []store.RecordState{
		store.RecordPublished,
		store.RecordPending,
		store.RecordScored,
	}
	for _, target := range illegal {
		if _, err := st.TransitionRecord(ctx, record.ID, target, ""); !errors.Is(err, store.ErrIllegalTransition) {
			t.Fatalf("scored -> %s: expected ErrIllegalTransition, got %v", target, err)
		}
	}

	current, err := st.GetRecord(ctx, record.ID)
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if current.Status != store.RecordScored {
		t.Fatalf("state must be unchanged after rejected transitions, got %s", current.Status)
	}
}

func TestTransitionRecordBackwardEdges(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	video := testsupport.NewVideo(t, st, "/videos/backward.mp4", "Backward")
	record := newScoredRecord(t, st, video.ID)

	ctx := context.Background()
	if _, err := st.TransitionRecord(ctx, record.ID, store.RecordNeedsReview, ""); err != nil {
		t.Fatalf("transition to needs_review failed: %v", err)
	}
	if _, err := st.TransitionRecord(ctx, record.ID, store.RecordRejected, "low quality"); err != nil {
		t.Fatalf("transition to rejected failed: %v", err)
	}
	updated, err := st.TransitionRecord(ctx, record.ID, store.RecordNeedsReview, "second look")
	if err != nil {
		t.Fatalf("rejected -> needs_review failed: %v", err)
	}
	if updated.Status != store.RecordNeedsReview {
		t.Fatalf("expected needs_review, got %s", updated.Status)
	}
}

func TestTransitionRecordUnknownRecord(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	record, err := st.TransitionRecord(context.Background(), "missing", store.RecordScored, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record != nil {
		t.Fatalf("expected nil for unknown record, got %#v", record)
	}
}

func TestRecordsForVideoOrdersByWindow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	video := testsupport.NewVideo(t, st, "/videos/windows.mp4", "Windows")

	ctx := context.Background()
	late := &store.AnalysisRecord{VideoID: video.ID, WindowStart: 90, WindowEnd: 120}
	early := &store.AnalysisRecord{VideoID: video.ID, WindowStart: 10, WindowEnd: 40}
	for _, record := range []*store.AnalysisRecord{late, early} {
		if err := st.CreateRecord(ctx, record); err != nil {
			t.Fatalf("CreateRecord failed: %v", err)
		}
	}

	records, err := st.RecordsForVideo(ctx, video.ID)
	if err != nil {
		t.Fatalf("RecordsForVideo failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].WindowStart != 10 || records[1].WindowStart != 90 {
		t.Fatalf("expected window ordering, got %v then %v", records[0].WindowStart, records[1].WindowStart)
	}
}

func TestListRecordsFiltersByState(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	video := testsupport.NewVideo(t, st, "/videos/filter.mp4", "Filter")

	ctx := context.Background()
	scored := newScoredRecord(t, st, video.ID)
	pending := &store.AnalysisRecord{VideoID: video.ID, WindowStart: 200, WindowEnd: 220}
	if err := st.CreateRecord(ctx, pending); err != nil {
		t.Fatalf("CreateRecord failed: %v", err)
	}

	records, err := st.ListRecords(ctx, store.RecordScored)
	if err != nil {
		t.Fatalf("ListRecords failed: %v", err)
	}
	if len(records) != 1 || records[0].ID != scored.ID {
		t.Fatalf("expected only the scored record, got %#v", records)
	}
}
