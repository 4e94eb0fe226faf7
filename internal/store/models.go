package store

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a video in the analysis queue.
type Status string

const (
	StatusPending      Status = "pending"
	StatusTranscribing Status = "transcribing"
	StatusTranscribed  Status = "transcribed"
	StatusDetecting    Status = "detecting"
	StatusDetected     Status = "detected"
	StatusAnalyzing    Status = "analyzing"
	StatusAnalyzed     Status = "analyzed"
	StatusScoring      Status = "scoring"
	StatusScored       Status = "scored"
	StatusCompleted    Status = "completed"

	StatusNoCandidates   Status = "no_candidates"
	StatusFailed         Status = "failed"
	StatusCancelled      Status = "cancelled"
	StatusQuotaExhausted Status = "quota_exhausted"
)

// UserCancelReason is the error message set when a user explicitly cancels a video.
const UserCancelReason = "Cancel requested by user"

// DaemonStopReason is the error message set when videos are failed due to daemon shutdown.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusPending,
	StatusTranscribing,
	StatusTranscribed,
	StatusDetecting,
	StatusDetected,
	StatusAnalyzing,
	StatusAnalyzed,
	StatusScoring,
	StatusScored,
	StatusCompleted,
	StatusNoCandidates,
	StatusFailed,
	StatusCancelled,
	StatusQuotaExhausted,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusTranscribing: {},
	StatusDetecting:    {},
	StatusAnalyzing:    {},
	StatusScoring:      {},
}

var terminalStatuses = map[Status]struct{}{
	StatusCompleted:      {},
	StatusNoCandidates:   {},
	StatusFailed:         {},
	StatusCancelled:      {},
	StatusQuotaExhausted: {},
}

type statusTransition struct {
	from Status
	to   Status
}

// stageRollbackTransitions return an in-flight video to the start of its
// current stage so resumed work replays only that stage.
var stageRollbackTransitions = []statusTransition{
	{from: StatusTranscribing, to: StatusPending},
	{from: StatusDetecting, to: StatusTranscribed},
	{from: StatusAnalyzing, to: StatusDetected},
	{from: StatusScoring, to: StatusAnalyzed},
}

// HealthSummary describes aggregated queue counts per key lifecycle states.
type HealthSummary struct {
	Total        int
	Pending      int
	Processing   int
	Failed       int
	Completed    int
	NoCandidates int
	Parked       int
}

// Video represents a queued video persisted in SQLite.
type Video struct {
	ID              int64
	SourcePath      string
	Title           string
	Status          Status
	ErrorMessage    string
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	CancelRequested bool
	LastHeartbeat   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight stage.
func (v Video) IsProcessing() bool {
	return IsProcessingStatus(v.Status)
}

// IsProcessingStatus reports whether a status reflects an in-flight stage.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// IsTerminalStatus reports whether a status ends the pipeline for a video.
func IsTerminalStatus(status Status) bool {
	_, ok := terminalStatuses[status]
	return ok
}

// InitProgress resets progress fields for a new stage. If ProgressStage is
// currently empty it is set to the provided stage value; otherwise the
// existing stage is preserved to support resume scenarios.
func (v *Video) InitProgress(stage, message string) {
	if v.ProgressStage == "" {
		v.ProgressStage = stage
	}
	v.ProgressMessage = message
	v.ProgressPercent = 0
	v.ErrorMessage = ""
}

// SetProgress updates all three progress fields together.
func (v *Video) SetProgress(stage, message string, percent float64) {
	v.ProgressStage = stage
	v.ProgressMessage = message
	v.ProgressPercent = percent
}

// SetProgressComplete sets progress to 100% with the given stage and message.
func (v *Video) SetProgressComplete(stage, message string) {
	v.SetProgress(stage, message, 100)
}

// SetFailed marks the video as failed with the given error message.
func (v *Video) SetFailed(message string) {
	v.Status = StatusFailed
	v.ErrorMessage = message
	v.ProgressPercent = 0
	v.ProgressMessage = message
	v.LastHeartbeat = nil
	v.ProgressStage = "Failed"
}
