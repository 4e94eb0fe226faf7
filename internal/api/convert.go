package api

import (
	"encoding/json"
	"slices"
	"time"

	"plugscan/internal/pipeline"
	"plugscan/internal/stage"
	"plugscan/internal/store"
)

// FromVideo converts a store video to its API representation.
func FromVideo(video *store.Video) Video {
	if video == nil {
		return Video{}
	}
	dto := Video{
		ID:         video.ID,
		Title:      video.Title,
		SourcePath: video.SourcePath,
		Status:     string(video.Status),
		Progress: VideoProgress{
			Stage:   video.ProgressStage,
			Percent: video.ProgressPercent,
			Message: video.ProgressMessage,
		},
		ErrorMessage:    video.ErrorMessage,
		CancelRequested: video.CancelRequested,
	}
	if !video.CreatedAt.IsZero() {
		dto.CreatedAt = video.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !video.UpdatedAt.IsZero() {
		dto.UpdatedAt = video.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromVideos converts a slice of store videos into API DTOs.
func FromVideos(videos []*store.Video) []Video {
	if len(videos) == 0 {
		return nil
	}
	out := make([]Video, 0, len(videos))
	for _, video := range videos {
		out = append(out, FromVideo(video))
	}
	return out
}

// FromRecord converts an analysis record to its API representation.
func FromRecord(record *store.AnalysisRecord) Record {
	if record == nil {
		return Record{}
	}
	dto := Record{
		ID:               record.ID,
		VideoID:          record.VideoID,
		WindowStart:      record.WindowStart,
		WindowEnd:        record.WindowEnd,
		FusedConfidence:  record.FusedConfidence,
		SentimentScore:   record.SentimentScore,
		EndorsementScore: record.EndorsementScore,
		SourceTrustScore: record.SourceTrustScore,
		Attractiveness:   record.Attractiveness,
		PPLProbability:   record.PPLProbability,
		PPLClass:         record.PPLClass,
		Monetizable:      record.Monetizable,
		ProductLink:      record.ProductLink,
		Status:           string(record.Status),
	}
	if raw := record.ProductJSON; raw != "" {
		dto.Product = json.RawMessage(raw)
	}
	for _, change := range record.StatusHistory {
		dto.StatusHistory = append(dto.StatusHistory, StatusChange{
			From:      string(change.From),
			To:        string(change.To),
			Note:      change.Note,
			Timestamp: FormatTime(change.At),
		})
	}
	if !record.CreatedAt.IsZero() {
		dto.CreatedAt = record.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !record.UpdatedAt.IsZero() {
		dto.UpdatedAt = record.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromRecords converts a slice of analysis records into API DTOs.
func FromRecords(records []*store.AnalysisRecord) []Record {
	if len(records) == 0 {
		return nil
	}
	out := make([]Record, 0, len(records))
	for _, record := range records {
		out = append(out, FromRecord(record))
	}
	return out
}

// FromStatusSummary converts a pipeline status summary to API payload.
func FromStatusSummary(summary pipeline.StatusSummary) PipelineStatus {
	status := PipelineStatus{
		Running:     summary.Running,
		VideoStats:  MergeVideoStats(summary.VideoStats),
		RecordStats: mergeRecordStats(summary.RecordStats),
		StageHealth: StageHealthSlice(summary.StageHealth),
	}
	if summary.LastError != "" {
		status.LastError = summary.LastError
	}
	if summary.LastVideo != nil {
		last := FromVideo(summary.LastVideo)
		status.LastVideo = &last
	}
	return status
}

// FromQuotaUsages converts the quota ledger rows to API payloads.
func FromQuotaUsages(usages []store.QuotaUsage) []QuotaUsage {
	if len(usages) == 0 {
		return nil
	}
	out := make([]QuotaUsage, 0, len(usages))
	for _, usage := range usages {
		remaining := usage.Limit - usage.Used
		if remaining < 0 {
			remaining = 0
		}
		out = append(out, QuotaUsage{
			Service:   usage.Service,
			Day:       usage.Day,
			Used:      usage.Used,
			Limit:     usage.Limit,
			Remaining: remaining,
		})
	}
	return out
}

// MergeVideoStats produces a string-keyed representation of video stats.
func MergeVideoStats(stats map[store.Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

func mergeRecordStats(stats map[store.RecordState]int) map[string]int {
	out := make(map[string]int, len(stats))
	for state, count := range stats {
		out[string(state)] = count
	}
	return out
}

// StageHealthSlice converts a stage health map into a deterministic slice.
func StageHealthSlice(health map[string]stage.Health) []StageHealth {
	if len(health) == 0 {
		return nil
	}
	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]StageHealth, 0, len(names))
	for _, name := range names {
		h := health[name]
		out = append(out, StageHealth{Name: name, Ready: h.Ready, Detail: h.Detail})
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
