package fusion

import (
	"fmt"
	"strings"

	"plugscan/internal/analysis"
	"plugscan/internal/config"
	"plugscan/internal/textutil"
)

// Component weights for the fused confidence. Text agreement between what
// was said and what was on screen carries the most signal.
const (
	textMatchWeight     = 0.40
	visualWeight        = 0.30
	timeAlignmentWeight = 0.30
)

// Fuser reconciles the audio and visual evidence for candidate windows.
type Fuser struct {
	tolerance float64
}

// NewFuser constructs a fuser from the fusion settings.
func NewFuser(cfg config.Fusion) *Fuser {
	tolerance := cfg.TimeToleranceSeconds
	if tolerance < 0 {
		tolerance = 0
	}
	return &Fuser{tolerance: tolerance}
}

// Fuse combines the transcript and frame detections for one window into a
// fusion result. Windows without any visual detections still fuse; their
// visual and alignment components score zero and the text the speaker used
// carries the result alone.
func (f *Fuser) Fuse(window analysis.CandidateWindow, transcript analysis.Transcript, detections []analysis.VisualDetection) analysis.FusionResult {
	spoken := transcript.Overlapping(window.Start, window.End, f.tolerance).FullText()
	inWindow := f.inWindow(window, detections)

	textMatch := f.textMatch(spoken, inWindow)
	visual := meanConfidence(inWindow)
	alignment := f.timeAlignment(window, detections)

	fused := textMatchWeight*textMatch + visualWeight*visual + timeAlignmentWeight*alignment
	if fused > 1 {
		fused = 1
	}

	return analysis.FusionResult{
		Window:             window,
		SpokenText:         spoken,
		TextMatchScore:     textMatch,
		VisualConfidence:   visual,
		TimeAlignmentScore: alignment,
		FusedConfidence:    fused,
		Evidence:           buildEvidence(spoken, inWindow),
	}
}

// inWindow keeps the detections whose timestamps fall inside the window,
// widened by the tolerance on both sides.
func (f *Fuser) inWindow(window analysis.CandidateWindow, detections []analysis.VisualDetection) []analysis.VisualDetection {
	var kept []analysis.VisualDetection
	for _, det := range detections {
		if det.Timestamp >= window.Start-f.tolerance && det.Timestamp <= window.End+f.tolerance {
			kept = append(kept, det)
		}
	}
	return kept
}

// textMatch measures token overlap between the speech and the on-screen OCR
// text. Object detections carry no readable text; they contribute through
// visual confidence and alignment instead, so a window with only objects
// scores zero here.
func (f *Fuser) textMatch(spoken string, detections []analysis.VisualDetection) float64 {
	var parts []string
	for _, det := range detections {
		if det.Kind != analysis.DetectionText {
			continue
		}
		parts = append(parts, det.Payload)
	}
	if len(parts) == 0 || strings.TrimSpace(spoken) == "" {
		return 0
	}
	return textutil.JaccardSimilarity(spoken, strings.Join(parts, " "))
}

// timeAlignment rewards detections that actually land inside the window and
// spread across it rather than bunching at one instant. The score is the
// in-window fraction scaled by coverage of the window span.
func (f *Fuser) timeAlignment(window analysis.CandidateWindow, detections []analysis.VisualDetection) float64 {
	if len(detections) == 0 {
		return 0
	}
	var inside int
	minTS, maxTS := window.End, window.Start
	for _, det := range detections {
		if det.Timestamp < window.Start-f.tolerance || det.Timestamp > window.End+f.tolerance {
			continue
		}
		inside++
		if det.Timestamp < minTS {
			minTS = det.Timestamp
		}
		if det.Timestamp > maxTS {
			maxTS = det.Timestamp
		}
	}
	if inside == 0 {
		return 0
	}
	fraction := float64(inside) / float64(len(detections))
	coverage := 1.0
	if duration := window.Duration(); duration > 0 && inside > 1 {
		coverage = (maxTS - minTS) / duration
		if coverage > 1 {
			coverage = 1
		}
	}
	if inside == 1 {
		// A single detection cannot demonstrate spread; score it at
		// half coverage rather than full.
		coverage = 0.5
	}
	return fraction * coverage
}

func meanConfidence(detections []analysis.VisualDetection) float64 {
	if len(detections) == 0 {
		return 0
	}
	var sum float64
	for _, det := range detections {
		sum += det.Confidence
	}
	return sum / float64(len(detections))
}

func buildEvidence(spoken string, detections []analysis.VisualDetection) []analysis.Evidence {
	var evidence []analysis.Evidence
	if trimmed := strings.TrimSpace(spoken); trimmed != "" {
		evidence = append(evidence, analysis.Evidence{Modality: "speech", Value: snippet(trimmed)})
	}
	for _, det := range detections {
		modality := "ocr"
		if det.Kind == analysis.DetectionObject {
			modality = "object"
		}
		evidence = append(evidence, analysis.Evidence{
			Modality: modality,
			Value:    fmt.Sprintf("%s @%.1fs", snippet(det.Payload), det.Timestamp),
		})
	}
	return evidence
}

func snippet(text string) string {
	const limit = 120
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
