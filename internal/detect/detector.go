package detect

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"plugscan/internal/analysis"
	"plugscan/internal/config"
	"plugscan/internal/services/llm"
)

// Completer is the LLM surface the detector needs.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Detector runs the first analysis pass: it scans the transcript in chunks
// and asks the model for time windows that look like product endorsements.
type Detector struct {
	client          Completer
	logger          *slog.Logger
	maxPromptChars  int
	overlapSeconds  float64
	confidenceFloor float64
}

// Option customizes the detector.
type Option func(*Detector)

// WithLogger sets the logger used for chunk-level warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Detector) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDetector constructs a detector from the LLM settings.
func NewDetector(cfg config.LLM, client Completer, opts ...Option) *Detector {
	detector := &Detector{
		client:          client,
		logger:          slog.Default(),
		maxPromptChars:  cfg.MaxPromptChars,
		overlapSeconds:  cfg.OverlapSeconds,
		confidenceFloor: cfg.ConfidenceFloor,
	}
	if detector.maxPromptChars <= 0 {
		detector.maxPromptChars = 6000
	}
	if detector.overlapSeconds < 0 {
		detector.overlapSeconds = 0
	}
	for _, opt := range opts {
		opt(detector)
	}
	return detector
}

type candidatePayload struct {
	Candidates []analysis.CandidateWindow `json:"candidates"`
}

// Detect scans the transcript and returns the merged candidate windows in
// start order. An empty transcript yields no candidates and no error. A
// chunk whose response stays malformed after the corrective reissue
// contributes nothing; only transport failures abort the pass.
func (d *Detector) Detect(ctx context.Context, transcript analysis.Transcript) ([]analysis.CandidateWindow, error) {
	if len(transcript) == 0 {
		return nil, nil
	}

	var windows []analysis.CandidateWindow
	for _, chunk := range d.chunk(transcript) {
		candidates, err := d.detectChunk(ctx, chunk)
		if err != nil {
			return nil, err
		}
		windows = append(windows, candidates...)
	}
	return mergeOverlapping(windows), nil
}

func (d *Detector) detectChunk(ctx context.Context, chunk analysis.Transcript) ([]analysis.CandidateWindow, error) {
	rendered := renderChunk(chunk)

	content, err := d.client.CompleteJSON(ctx, llm.CandidateDetectionPrompt, rendered)
	if err != nil {
		return nil, fmt.Errorf("candidate detection: %w", err)
	}
	candidates, parseErr := d.parseCandidates(chunk, content)
	if parseErr == nil {
		return candidates, nil
	}

	// One corrective reissue for malformed payloads, then give up on the
	// chunk rather than the video.
	content, err = d.client.CompleteJSON(ctx, llm.CandidateDetectionStrictPrompt, rendered)
	if err != nil {
		return nil, fmt.Errorf("candidate detection retry: %w", err)
	}
	candidates, retryErr := d.parseCandidates(chunk, content)
	if retryErr != nil {
		d.logger.Warn("candidate chunk abandoned after malformed responses",
			slog.Float64("chunk_start", chunk[0].Start),
			slog.Float64("chunk_end", chunk[len(chunk)-1].End),
			slog.String("error", retryErr.Error()))
		return nil, nil
	}
	return candidates, nil
}

func (d *Detector) parseCandidates(chunk analysis.Transcript, content string) ([]analysis.CandidateWindow, error) {
	var payload candidatePayload
	if err := llm.DecodeLLMJSON(content, &payload); err != nil {
		return nil, err
	}

	kept := make([]analysis.CandidateWindow, 0, len(payload.Candidates))
	for _, window := range payload.Candidates {
		// Inverted or negative spans are the model hallucinating
		// timestamps. Dropping them is cheaper than arguing.
		if window.Validate() != nil {
			d.logger.Warn("dropping candidate with invalid bounds",
				slog.Float64("start", window.Start),
				slog.Float64("end", window.End))
			continue
		}
		if window.Confidence < d.confidenceFloor {
			continue
		}
		kept = append(kept, window)
	}
	return kept, nil
}

// chunk splits the transcript into segment runs that render within the
// prompt size limit. Consecutive chunks overlap by the configured number of
// seconds so an endorsement spanning a boundary is seen whole at least once.
func (d *Detector) chunk(transcript analysis.Transcript) []analysis.Transcript {
	var chunks []analysis.Transcript
	start := 0
	for start < len(transcript) {
		size := 0
		end := start
		for end < len(transcript) {
			lineLen := len(renderSegment(transcript[end])) + 1
			if size+lineLen > d.maxPromptChars && end > start {
				break
			}
			size += lineLen
			end++
		}
		chunks = append(chunks, transcript[start:end])
		if end >= len(transcript) {
			break
		}

		boundary := transcript[end-1].End - d.overlapSeconds
		next := end
		for next > start+1 && transcript[next-1].Start >= boundary {
			next--
		}
		start = next
	}
	return chunks
}

func renderChunk(chunk analysis.Transcript) string {
	lines := make([]string, 0, len(chunk))
	for _, segment := range chunk {
		lines = append(lines, renderSegment(segment))
	}
	return strings.Join(lines, "\n")
}

func renderSegment(segment analysis.TranscriptSegment) string {
	return fmt.Sprintf("[%.1f-%.1f] %s", segment.Start, segment.End, strings.TrimSpace(segment.Text))
}

// mergeOverlapping collapses windows that cover the same moment, typically
// duplicates reported from both sides of a chunk overlap. Two windows merge
// when their intersection covers at least half of the shorter one; the
// merged window spans their union and keeps the stronger reason.
func mergeOverlapping(windows []analysis.CandidateWindow) []analysis.CandidateWindow {
	if len(windows) < 2 {
		return windows
	}
	sort.Slice(windows, func(i, j int) bool { return windows[i].Start < windows[j].Start })

	merged := windows[:1]
	for _, window := range windows[1:] {
		last := &merged[len(merged)-1]
		shorter := last.Duration()
		if d := window.Duration(); d < shorter {
			shorter = d
		}
		if shorter > 0 && last.OverlapSeconds(window) >= 0.5*shorter {
			if window.Confidence > last.Confidence {
				last.Reason = window.Reason
				last.Confidence = window.Confidence
			}
			if window.Start < last.Start {
				last.Start = window.Start
			}
			if window.End > last.End {
				last.End = window.End
			}
			continue
		}
		merged = append(merged, window)
	}
	return merged
}
