package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Pipeline step names in execution order. The checkpoint pointer only ever
// moves forward through this sequence.
const (
	StepTranscribe = "transcribe"
	StepDetect     = "detect"
	StepAnalyze    = "analyze"
	StepScore      = "score"
)

var stepOrder = []string{StepTranscribe, StepDetect, StepAnalyze, StepScore}

// StepIndex returns the position of a step in the pipeline order, or -1 for
// unknown steps. The empty string sorts before every real step.
func StepIndex(step string) int {
	if step == "" {
		return -1
	}
	for i, name := range stepOrder {
		if name == step {
			return i
		}
	}
	return -1
}

// StepNames returns the ordered pipeline step names.
func StepNames() []string {
	cp := make([]string, len(stepOrder))
	copy(cp, stepOrder)
	return cp
}

// Checkpoint captures resumable per-video progress: the furthest completed
// step, the serialized output of each completed step, and attempt counts.
type Checkpoint struct {
	VideoID           int64
	LastCompletedStep string
	StepOutputs       map[string]json.RawMessage
	Attempts          map[string]int
	UpdatedAt         time.Time
}

// Output returns the stored output for a step, if any.
func (c *Checkpoint) Output(step string) (json.RawMessage, bool) {
	if c == nil || c.StepOutputs == nil {
		return nil, false
	}
	out, ok := c.StepOutputs[step]
	return out, ok
}

// Completed reports whether the checkpoint covers the given step.
func (c *Checkpoint) Completed(step string) bool {
	if c == nil {
		return false
	}
	idx := StepIndex(step)
	return idx >= 0 && idx <= StepIndex(c.LastCompletedStep)
}

// GetCheckpoint fetches the checkpoint for a video, or nil when none exists.
func (s *Store) GetCheckpoint(ctx context.Context, videoID int64) (*Checkpoint, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT video_id, last_completed_step, step_outputs, attempts, updated_at FROM checkpoints WHERE video_id = ?`,
		videoID,
	)
	var (
		id          int64
		lastStep    sql.NullString
		outputsRaw  string
		attemptsRaw string
		updatedRaw  sql.NullString
	)
	if err := row.Scan(&id, &lastStep, &outputsRaw, &attemptsRaw, &updatedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get checkpoint: %w", err)
	}

	checkpoint := &Checkpoint{VideoID: id, LastCompletedStep: lastStep.String}
	if err := json.Unmarshal([]byte(outputsRaw), &checkpoint.StepOutputs); err != nil {
		return nil, fmt.Errorf("unmarshal step outputs: %w", err)
	}
	if err := json.Unmarshal([]byte(attemptsRaw), &checkpoint.Attempts); err != nil {
		return nil, fmt.Errorf("unmarshal attempts: %w", err)
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		checkpoint.UpdatedAt = updated
	}
	return checkpoint, nil
}

// CompleteStep records the output of a finished step and advances the
// checkpoint pointer. Replaying the current step overwrites its output;
// moving the pointer backwards returns ErrCheckpointRegression.
func (s *Store) CompleteStep(ctx context.Context, videoID int64, step string, output json.RawMessage) error {
	idx := StepIndex(step)
	if idx < 0 {
		return fmt.Errorf("unknown pipeline step %q", step)
	}

	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin checkpoint tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		checkpoint, err := loadCheckpointTx(ctx, tx, videoID)
		if err != nil {
			return err
		}
		if checkpoint == nil {
			checkpoint = &Checkpoint{
				VideoID:     videoID,
				StepOutputs: map[string]json.RawMessage{},
				Attempts:    map[string]int{},
			}
		}

		currentIdx := StepIndex(checkpoint.LastCompletedStep)
		if idx < currentIdx {
			return fmt.Errorf("%w: %s after %s", ErrCheckpointRegression, step, checkpoint.LastCompletedStep)
		}
		if idx > currentIdx {
			checkpoint.LastCompletedStep = step
		}
		if checkpoint.StepOutputs == nil {
			checkpoint.StepOutputs = map[string]json.RawMessage{}
		}
		if output == nil {
			output = json.RawMessage("null")
		}
		checkpoint.StepOutputs[step] = output

		if err := saveCheckpointTx(ctx, tx, checkpoint); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit checkpoint: %w", err)
		}
		return nil
	})
}

// RecordAttempt increments the attempt counter for a step and returns the
// new count. Counts persist across daemon restarts.
func (s *Store) RecordAttempt(ctx context.Context, videoID int64, step string) (int, error) {
	if StepIndex(step) < 0 {
		return 0, fmt.Errorf("unknown pipeline step %q", step)
	}

	ctx = ensureContext(ctx)
	var count int
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin attempt tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		checkpoint, err := loadCheckpointTx(ctx, tx, videoID)
		if err != nil {
			return err
		}
		if checkpoint == nil {
			checkpoint = &Checkpoint{
				VideoID:     videoID,
				StepOutputs: map[string]json.RawMessage{},
				Attempts:    map[string]int{},
			}
		}
		if checkpoint.Attempts == nil {
			checkpoint.Attempts = map[string]int{}
		}
		checkpoint.Attempts[step]++
		count = checkpoint.Attempts[step]

		if err := saveCheckpointTx(ctx, tx, checkpoint); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit attempt: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteCheckpoint removes the checkpoint for a video. Called when a video
// reaches a terminal status.
func (s *Store) DeleteCheckpoint(ctx context.Context, videoID int64) error {
	if err := s.execWithoutResultRetry(ctx, `DELETE FROM checkpoints WHERE video_id = ?`, videoID); err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}

func loadCheckpointTx(ctx context.Context, tx *sql.Tx, videoID int64) (*Checkpoint, error) {
	row := tx.QueryRowContext(
		ctx,
		`SELECT last_completed_step, step_outputs, attempts FROM checkpoints WHERE video_id = ?`,
		videoID,
	)
	var (
		lastStep    sql.NullString
		outputsRaw  string
		attemptsRaw string
	)
	if err := row.Scan(&lastStep, &outputsRaw, &attemptsRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	checkpoint := &Checkpoint{VideoID: videoID, LastCompletedStep: lastStep.String}
	if err := json.Unmarshal([]byte(outputsRaw), &checkpoint.StepOutputs); err != nil {
		return nil, fmt.Errorf("unmarshal step outputs: %w", err)
	}
	if err := json.Unmarshal([]byte(attemptsRaw), &checkpoint.Attempts); err != nil {
		return nil, fmt.Errorf("unmarshal attempts: %w", err)
	}
	return checkpoint, nil
}

func saveCheckpointTx(ctx context.Context, tx *sql.Tx, checkpoint *Checkpoint) error {
	outputs, err := json.Marshal(checkpoint.StepOutputs)
	if err != nil {
		return fmt.Errorf("marshal step outputs: %w", err)
	}
	attempts, err := json.Marshal(checkpoint.Attempts)
	if err != nil {
		return fmt.Errorf("marshal attempts: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO checkpoints (video_id, last_completed_step, step_outputs, attempts, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(video_id) DO UPDATE SET
             last_completed_step = excluded.last_completed_step,
             step_outputs = excluded.step_outputs,
             attempts = excluded.attempts,
             updated_at = excluded.updated_at`,
		checkpoint.VideoID,
		nullableString(checkpoint.LastCompletedStep),
		string(outputs),
		string(attempts),
		now,
	)
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}
