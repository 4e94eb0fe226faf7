package store

import (
	"strings"
	"time"
)

// RecordState represents the review workflow position of an analysis record.
type RecordState string

const (
	RecordPending                RecordState = "pending"
	RecordScored                 RecordState = "scored"
	RecordNeedsReview            RecordState = "needs_review"
	RecordFilteredPPL            RecordState = "filtered_ppl"
	RecordFilteredNotMonetizable RecordState = "filtered_not_monetizable"
	RecordApproved               RecordState = "approved"
	RecordRejected               RecordState = "rejected"
	RecordPublished              RecordState = "published"
)

var allRecordStates = []RecordState{
	RecordPending,
	RecordScored,
	RecordNeedsReview,
	RecordFilteredPPL,
	RecordFilteredNotMonetizable,
	RecordApproved,
	RecordRejected,
	RecordPublished,
}

var recordStateSet = func() map[RecordState]struct{} {
	set := make(map[RecordState]struct{}, len(allRecordStates))
	for _, state := range allRecordStates {
		set[state] = struct{}{}
	}
	return set
}()

// recordTransitions enumerates every legal edge in the review workflow.
// Anything not listed here is rejected with ErrIllegalTransition.
var recordTransitions = map[RecordState][]RecordState{
	RecordPending: {RecordScored},
	RecordScored: {
		RecordNeedsReview,
		RecordFilteredPPL,
		RecordFilteredNotMonetizable,
	},
	RecordNeedsReview:            {RecordApproved, RecordRejected},
	RecordFilteredPPL:            {RecordApproved, RecordRejected},
	RecordFilteredNotMonetizable: {RecordApproved, RecordRejected},
	RecordApproved:               {RecordPublished, RecordNeedsReview},
	RecordRejected:               {RecordNeedsReview},
}

// AnalysisRecord is the terminal aggregate produced for one surviving
// candidate window.
type AnalysisRecord struct {
	ID               string
	VideoID          int64
	WindowStart      float64
	WindowEnd        float64
	FusedConfidence  float64
	ProductJSON      string
	SentimentScore   float64
	EndorsementScore float64
	SourceTrustScore float64
	Attractiveness   int
	PPLProbability   float64
	PPLClass         string
	Monetizable      bool
	ProductLink      string
	Status           RecordState
	StatusHistory    []StatusChange
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// StatusChange is one entry of a record's review audit trail.
type StatusChange struct {
	From RecordState `json:"from"`
	To   RecordState `json:"to"`
	Note string      `json:"note,omitempty"`
	At   time.Time   `json:"at"`
}

// ParseRecordState converts a string into a known RecordState.
func ParseRecordState(value string) (RecordState, bool) {
	normalized := RecordState(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := recordStateSet[normalized]
	return normalized, ok
}

// AllRecordStates returns the ordered list of known record states.
func AllRecordStates() []RecordState {
	cp := make([]RecordState, len(allRecordStates))
	copy(cp, allRecordStates)
	return cp
}

// CanTransitionRecord reports whether the review workflow permits the edge.
func CanTransitionRecord(from, to RecordState) bool {
	for _, next := range recordTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
