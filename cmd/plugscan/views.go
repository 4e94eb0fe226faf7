package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"plugscan/internal/api"
)

func buildVideoRows(videos []api.Video) [][]string {
	if len(videos) == 0 {
		return nil
	}
	sorted := make([]api.Video, len(videos))
	copy(sorted, videos)

	sort.Slice(sorted, func(i, j int) bool {
		ti := parseAPITime(sorted[i].CreatedAt)
		tj := parseAPITime(sorted[j].CreatedAt)
		if ti.Equal(tj) {
			return sorted[i].ID > sorted[j].ID
		}
		return ti.After(tj)
	})

	rows := make([][]string, 0, len(sorted))
	for _, video := range sorted {
		rows = append(rows, []string{
			fmt.Sprintf("%d", video.ID),
			videoTitle(video),
			formatStatusLabel(video.Status),
			formatProgress(video.Progress),
			formatDisplayTime(video.CreatedAt),
		})
	}
	return rows
}

func buildRecordRows(records []api.Record) [][]string {
	if len(records) == 0 {
		return nil
	}
	sorted := make([]api.Record, len(records))
	copy(sorted, records)

	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].VideoID != sorted[j].VideoID {
			return sorted[i].VideoID < sorted[j].VideoID
		}
		return sorted[i].WindowStart < sorted[j].WindowStart
	})

	rows := make([][]string, 0, len(sorted))
	for _, record := range sorted {
		rows = append(rows, []string{
			shortRecordID(record.ID),
			fmt.Sprintf("%d", record.VideoID),
			formatWindow(record.WindowStart, record.WindowEnd),
			fmt.Sprintf("%d", record.Attractiveness),
			formatPPL(record.PPLClass, record.PPLProbability),
			yesNo(record.Monetizable),
			formatStatusLabel(record.Status),
		})
	}
	return rows
}

func buildStatsRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{formatStatusLabel(key), fmt.Sprintf("%d", stats[key])})
	}
	return rows
}

func buildQuotaRows(usages []api.QuotaUsage) [][]string {
	if len(usages) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(usages))
	for _, usage := range usages {
		limit := "unlimited"
		remaining := "-"
		if usage.Limit > 0 {
			limit = fmt.Sprintf("%d", usage.Limit)
			remaining = fmt.Sprintf("%d", usage.Remaining)
		}
		rows = append(rows, []string{usage.Service, fmt.Sprintf("%d", usage.Used), limit, remaining})
	}
	return rows
}

func videoTitle(video api.Video) string {
	title := strings.TrimSpace(video.Title)
	if title != "" {
		return title
	}
	source := strings.TrimSpace(video.SourcePath)
	if source != "" {
		return filepath.Base(source)
	}
	return "Unknown"
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func formatProgress(progress api.VideoProgress) string {
	stage := strings.TrimSpace(progress.Stage)
	if stage == "" {
		return ""
	}
	return fmt.Sprintf("%s %.0f%%", stage, progress.Percent)
}

func formatWindow(start, end float64) string {
	return fmt.Sprintf("%.1f-%.1fs", start, end)
}

func formatPPL(class string, probability float64) string {
	class = strings.TrimSpace(class)
	if class == "" {
		return "-"
	}
	return fmt.Sprintf("%s (%.2f)", class, probability)
}

func shortRecordID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func parseAPITime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func formatDisplayTime(value string) string {
	parsed := parseAPITime(value)
	if parsed.IsZero() {
		return strings.TrimSpace(value)
	}
	return parsed.Local().Format("2006-01-02 15:04")
}
