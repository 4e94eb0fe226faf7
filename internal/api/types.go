package api

import "encoding/json"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Video describes a queued video in a transport-friendly format.
type Video struct {
	ID              int64         `json:"id"`
	Title           string        `json:"title"`
	SourcePath      string        `json:"sourcePath"`
	Status          string        `json:"status"`
	Progress        VideoProgress `json:"progress"`
	ErrorMessage    string        `json:"errorMessage,omitempty"`
	CancelRequested bool          `json:"cancelRequested"`
	CreatedAt       string        `json:"createdAt,omitempty"`
	UpdatedAt       string        `json:"updatedAt,omitempty"`
}

// VideoProgress captures stage progress information for a video.
type VideoProgress struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// Record describes an analysis record in a transport-friendly format.
type Record struct {
	ID               string          `json:"id"`
	VideoID          int64           `json:"videoId"`
	WindowStart      float64         `json:"windowStart"`
	WindowEnd        float64         `json:"windowEnd"`
	FusedConfidence  float64         `json:"fusedConfidence"`
	Product          json.RawMessage `json:"product,omitempty"`
	SentimentScore   float64         `json:"sentimentScore"`
	EndorsementScore float64         `json:"endorsementScore"`
	SourceTrustScore float64         `json:"sourceTrustScore"`
	Attractiveness   int             `json:"attractiveness"`
	PPLProbability   float64         `json:"pplProbability"`
	PPLClass         string          `json:"pplClass,omitempty"`
	Monetizable      bool            `json:"monetizable"`
	ProductLink      string          `json:"productLink,omitempty"`
	Status           string          `json:"status"`
	StatusHistory    []StatusChange  `json:"statusHistory,omitempty"`
	CreatedAt        string          `json:"createdAt,omitempty"`
	UpdatedAt        string          `json:"updatedAt,omitempty"`
}

// StatusChange is one audit trail entry on a record.
type StatusChange struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Note      string `json:"note,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// PipelineStatus summarizes pipeline execution state.
type PipelineStatus struct {
	Running     bool           `json:"running"`
	VideoStats  map[string]int `json:"videoStats"`
	RecordStats map[string]int `json:"recordStats"`
	LastError   string         `json:"lastError,omitempty"`
	LastVideo   *Video         `json:"lastVideo,omitempty"`
	StageHealth []StageHealth  `json:"stageHealth"`
}

// StageHealth mirrors readiness reporting for pipeline stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// QuotaUsage reports one service's daily call ledger row.
type QuotaUsage struct {
	Service   string `json:"service"`
	Day       string `json:"day"`
	Used      int    `json:"used"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	DBPath       string         `json:"dbPath"`
	LockFilePath string         `json:"lockFilePath"`
	Pipeline     PipelineStatus `json:"pipeline"`
	Quota        []QuotaUsage   `json:"quota"`
}

// VideoListResponse wraps a collection of videos for API responses.
type VideoListResponse struct {
	Videos []Video `json:"videos"`
}

// VideoResponse wraps a single video.
type VideoResponse struct {
	Video Video `json:"video"`
}

// RecordListResponse wraps a collection of records for API responses.
type RecordListResponse struct {
	Records []Record `json:"records"`
}

// RecordResponse wraps a single record.
type RecordResponse struct {
	Record Record `json:"record"`
}

// AddVideoRequest is the payload for enqueueing a video.
type AddVideoRequest struct {
	SourcePath string `json:"sourcePath"`
	Title      string `json:"title,omitempty"`
}

// TransitionRequest is the payload for moving a record through review.
type TransitionRequest struct {
	To   string `json:"to"`
	Note string `json:"note,omitempty"`
}
