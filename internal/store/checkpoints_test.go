package store_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"plugscan/internal/store"
	"plugscan/internal/testsupport"
)

func TestCompleteStepAdvancesPointer(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	video := testsupport.NewVideo(t, st, "/videos/checkpoint.mp4", "Checkpoint")

	ctx := context.Background()
	transcript := json.RawMessage(`{"segments":[{"start":0,"end":3,"text":"hello"}]}`)
	if err := st.CompleteStep(ctx, video.ID, store.StepTranscribe, transcript); err != nil {
		t.Fatalf("CompleteStep failed: %v", err)
	}

	checkpoint, err := st.GetCheckpoint(ctx, video.ID)
	if err != nil {
		t.Fatalf("GetCheckpoint failed: %v", err)
	}
	if checkpoint == nil {
		t.Fatal("expected checkpoint created")
	}
	if checkpoint.LastCompletedStep != store.StepTranscribe {
		t.Fatalf("expected pointer at transcribe, got %q", checkpoint.LastCompletedStep)
	}
	stored, ok := checkpoint.Output(store.StepTranscribe)
	if !ok {
		t.Fatal("expected transcribe output stored")
	}
	if string(stored) != string(transcript) {
		t.Fatalf("unexpected stored output: %s", stored)
	}

	if err := st.CompleteStep(ctx, video.ID, store.StepDetect, json.RawMessage(`[]`)); err != nil {
		t.Fatalf("CompleteStep failed: %v", err)
	}
	checkpoint, err = st.GetCheckpoint(ctx, video.ID)
	if err != nil {
		t.Fatalf("GetCheckpoint failed: %v", err)
	}
	if checkpoint.LastCompletedStep != store.StepDetect {
		t.Fatalf("expected pointer at detect, got %q", checkpoint.LastCompletedStep)
	}
	if !checkpoint.Completed(store.StepTranscribe) || !checkpoint.Completed(store.StepDetect) {
		t.Fatal("expected both steps covered")
	}
	if checkpoint.Completed(store.StepAnalyze) {
		t.Fatal("analyze must not be covered yet")
	}
}

func TestCompleteStepNeverRegresses(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	video := testsupport.NewVideo(t, st, "/videos/regress.mp4", "Regress")

	ctx := context.Background()
	if err := st.CompleteStep(ctx, video.ID, store.StepAnalyze, json.RawMessage(`{}`)); err != nil {
		t.Fatalf("CompleteStep failed: %v", err)
	}
	err := st.CompleteStep(ctx, video.ID, store.StepTranscribe, json.RawMessage(`{}`))
	if !errors.Is(err, store.ErrCheckpointRegression) {
		t.Fatalf("expected ErrCheckpointRegression, got %v", err)
	}

	// Replaying the current step is allowed and overwrites its output.
	if err := st.CompleteStep(ctx, video.ID, store.StepAnalyze, json.RawMessage(`{"replayed":true}`)); err != nil {
		t.Fatalf("replay of current step failed: %v", err)
	}
	checkpoint, err := st.GetCheckpoint(ctx, video.ID)
	if err != nil {
		t.Fatalf("GetCheckpoint failed: %v", err)
	}
	out, _ := checkpoint.Output(store.StepAnalyze)
	if string(out) != `{"replayed":true}` {
		t.Fatalf("expected replayed output, got %s", out)
	}
}

func TestRecordAttemptPersistsCounts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	video := testsupport.NewVideo(t, st, "/videos/attempts.mp4", "Attempts")

	ctx := context.Background()
	for want := 1; want <= 3; want++ {
		got, err := st.RecordAttempt(ctx, video.ID, store.StepDetect)
		if err != nil {
			t.Fatalf("RecordAttempt failed: %v", err)
		}
		if got != want {
			t.Fatalf("expected attempt count %d, got %d", want, got)
		}
	}

	checkpoint, err := st.GetCheckpoint(ctx, video.ID)
	if err != nil {
		t.Fatalf("GetCheckpoint failed: %v", err)
	}
	if checkpoint.Attempts[store.StepDetect] != 3 {
		t.Fatalf("expected persisted attempt count 3, got %d", checkpoint.Attempts[store.StepDetect])
	}
}

func TestDeleteCheckpoint(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	video := testsupport.NewVideo(t, st, "/videos/delete.mp4", "Delete")

	ctx := context.Background()
	if err := st.CompleteStep(ctx, video.ID, store.StepTranscribe, json.RawMessage(`{}`)); err != nil {
		t.Fatalf("CompleteStep failed: %v", err)
	}
	if err := st.DeleteCheckpoint(ctx, video.ID); err != nil {
		t.Fatalf("DeleteCheckpoint failed: %v", err)
	}
	checkpoint, err := st.GetCheckpoint(ctx, video.ID)
	if err != nil {
		t.Fatalf("GetCheckpoint failed: %v", err)
	}
	if checkpoint != nil {
		t.Fatalf("expected checkpoint removed, got %#v", checkpoint)
	}
}

func TestStepIndexOrder(t *testing.T) {
	names := store.StepNames()
	if len(names) != 4 {
		t.Fatalf("expected 4 steps, got %d", len(names))
	}
	for i, name := range names {
		if store.StepIndex(name) != i {
			t.Fatalf("step %s: expected index %d, got %d", name, i, store.StepIndex(name))
		}
	}
	if store.StepIndex("") != -1 || store.StepIndex("publish") != -1 {
		t.Fatal("unknown steps must report -1")
	}
}
