package api

import (
	"context"
	"testing"

	"plugscan/internal/store"
	"plugscan/internal/testsupport"
)

func newVideoService(t *testing.T) (*VideoService, *store.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	return NewVideoService(st), st
}

func TestVideoService_Add(t *testing.T) {
	svc, _ := newVideoService(t)
	ctx := context.Background()

	result, err := svc.Add(ctx, "/videos/review.mp4", "Review")
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if result.Outcome != AddOutcomeQueued {
		t.Fatalf("unexpected outcome: %s", result.Outcome)
	}
	if result.Video.Status != string(store.StatusPending) {
		t.Fatalf("unexpected status: %q", result.Video.Status)
	}
	if result.Video.CreatedAt == "" {
		t.Fatalf("expected formatted creation timestamp")
	}
}

func TestVideoService_AddDuplicate(t *testing.T) {
	svc, _ := newVideoService(t)
	ctx := context.Background()

	first, err := svc.Add(ctx, "/videos/review.mp4", "Review")
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	second, err := svc.Add(ctx, "/videos/review.mp4", "Review")
	if err != nil {
		t.Fatalf("duplicate Add returned error: %v", err)
	}
	if second.Outcome != AddOutcomeDuplicate {
		t.Fatalf("expected duplicate outcome, got %s", second.Outcome)
	}
	if second.Video.ID != first.Video.ID {
		t.Fatalf("duplicate must return the queued entry, got %d and %d", first.Video.ID, second.Video.ID)
	}
}

func TestVideoService_AddAgainAfterTerminal(t *testing.T) {
	svc, st := newVideoService(t)
	ctx := context.Background()

	first, err := svc.Add(ctx, "/videos/review.mp4", "Review")
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	video, err := st.GetVideo(ctx, first.Video.ID)
	if err != nil {
		t.Fatalf("GetVideo returned error: %v", err)
	}
	video.Status = store.StatusCompleted
	if err := st.UpdateVideo(ctx, video); err != nil {
		t.Fatalf("UpdateVideo returned error: %v", err)
	}

	second, err := svc.Add(ctx, "/videos/review.mp4", "Review")
	if err != nil {
		t.Fatalf("re-Add returned error: %v", err)
	}
	if second.Outcome != AddOutcomeQueued || second.Video.ID == first.Video.ID {
		t.Fatalf("finished videos must be re-queued fresh: %+v", second)
	}
}

func TestVideoService_AddRequiresSourcePath(t *testing.T) {
	svc, _ := newVideoService(t)
	if _, err := svc.Add(context.Background(), "   ", ""); err == nil {
		t.Fatalf("expected error for blank source path")
	}
}

func TestVideoService_CancelAndRetry(t *testing.T) {
	svc, st := newVideoService(t)
	ctx := context.Background()

	added, err := svc.Add(ctx, "/videos/review.mp4", "Review")
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	ok, err := svc.Cancel(ctx, added.Video.ID)
	if err != nil || !ok {
		t.Fatalf("Cancel = (%v, %v), want accepted", ok, err)
	}

	video, err := st.GetVideo(ctx, added.Video.ID)
	if err != nil {
		t.Fatalf("GetVideo returned error: %v", err)
	}
	video.SetFailed("transcription backend offline")
	if err := st.UpdateVideo(ctx, video); err != nil {
		t.Fatalf("UpdateVideo returned error: %v", err)
	}

	updated, err := svc.Retry(ctx, added.Video.ID)
	if err != nil {
		t.Fatalf("Retry returned error: %v", err)
	}
	if updated != 1 {
		t.Fatalf("expected 1 retried video, got %d", updated)
	}
	retried, err := svc.Describe(ctx, added.Video.ID)
	if err != nil {
		t.Fatalf("Describe returned error: %v", err)
	}
	if retried == nil || retried.Status != string(store.StatusPending) {
		t.Fatalf("retried video not pending: %+v", retried)
	}
}

func TestVideoService_DescribeMissing(t *testing.T) {
	svc, _ := newVideoService(t)
	video, err := svc.Describe(context.Background(), 12345)
	if err != nil {
		t.Fatalf("Describe returned error: %v", err)
	}
	if video != nil {
		t.Fatalf("expected nil for missing video, got %+v", video)
	}
}

func TestVideoService_ListFiltersByStatus(t *testing.T) {
	svc, st := newVideoService(t)
	ctx := context.Background()

	if _, err := svc.Add(ctx, "/videos/a.mp4", "A"); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	second, err := svc.Add(ctx, "/videos/b.mp4", "B")
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	video, err := st.GetVideo(ctx, second.Video.ID)
	if err != nil {
		t.Fatalf("GetVideo returned error: %v", err)
	}
	video.Status = store.StatusCompleted
	if err := st.UpdateVideo(ctx, video); err != nil {
		t.Fatalf("UpdateVideo returned error: %v", err)
	}

	pending, err := svc.List(ctx, store.StatusPending)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(pending) != 1 || pending[0].SourcePath != "/videos/a.mp4" {
		t.Fatalf("unexpected pending list: %+v", pending)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats[string(store.StatusPending)] != 1 || stats[string(store.StatusCompleted)] != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
