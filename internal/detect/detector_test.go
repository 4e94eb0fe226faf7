package detect

import (
	"context"
	"errors"
	"strings"
	"testing"

	"plugscan/internal/analysis"
	"plugscan/internal/config"
	"plugscan/internal/services/llm"
)

type scriptedCompleter struct {
	responses []string
	err       error
	prompts   []string
	inputs    []string
}

func (c *scriptedCompleter) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	c.prompts = append(c.prompts, systemPrompt)
	c.inputs = append(c.inputs, userPrompt)
	if c.err != nil {
		return "", c.err
	}
	index := len(c.prompts) - 1
	if index >= len(c.responses) {
		index = len(c.responses) - 1
	}
	return c.responses[index], nil
}

func segment(start, end float64, text string) analysis.TranscriptSegment {
	return analysis.TranscriptSegment{Start: start, End: end, Text: text, Confidence: 0.9}
}

func TestDetectParsesAndFiltersCandidates(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{
		`{"candidates": [
			{"start": 10, "end": 40, "reason": "reads a discount code", "confidence": 0.9},
			{"start": 50, "end": 55, "reason": "brand mention in passing", "confidence": 0.1},
			{"start": 80, "end": 70, "reason": "inverted", "confidence": 0.95}
		]}`,
	}}
	detector := NewDetector(config.LLM{ConfidenceFloor: 0.3}, completer)

	windows, err := detector.Detect(context.Background(), analysis.Transcript{
		segment(10, 40, "이 쿠폰 코드로 20% 할인 받으세요"),
		segment(50, 55, "mentioned a brand"),
	})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(windows) != 1 {
		t.Fatalf("expected the low-confidence and inverted windows dropped, got %v", windows)
	}
	if windows[0].Start != 10 || windows[0].End != 40 {
		t.Fatalf("unexpected window: %+v", windows[0])
	}
	if len(completer.prompts) != 1 {
		t.Fatalf("invalid bounds must not trigger a retry, got %d calls", len(completer.prompts))
	}
}

func TestDetectEmptyTranscriptSkipsLLM(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{`{"candidates": []}`}}
	detector := NewDetector(config.LLM{}, completer)

	windows, err := detector.Detect(context.Background(), nil)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if windows != nil {
		t.Fatalf("expected no candidates, got %v", windows)
	}
	if len(completer.prompts) != 0 {
		t.Fatalf("empty transcript must not call the model")
	}
}

func TestDetectReissuesStrictPromptOnMalformedPayload(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{
		"Sure! Here are the candidates you asked for.",
		`{"candidates": [{"start": 5, "end": 25, "reason": "sponsored unboxing", "confidence": 0.8}]}`,
	}}
	detector := NewDetector(config.LLM{}, completer)

	windows, err := detector.Detect(context.Background(), analysis.Transcript{segment(0, 30, "오늘 협찬받은 제품을 열어볼게요")})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(windows) != 1 {
		t.Fatalf("expected recovery via strict prompt, got %v", windows)
	}
	if len(completer.prompts) != 2 {
		t.Fatalf("expected exactly one reissue, got %d calls", len(completer.prompts))
	}
	if completer.prompts[1] != llm.CandidateDetectionStrictPrompt {
		t.Fatalf("second call must use the strict prompt")
	}
}

func TestDetectAbandonsChunkAfterSecondMalformedPayload(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{"not json", "still not json"}}
	detector := NewDetector(config.LLM{}, completer)

	windows, err := detector.Detect(context.Background(), analysis.Transcript{segment(0, 30, "speech")})
	if err != nil {
		t.Fatalf("a stubborn chunk must not fail the pass: %v", err)
	}
	if len(windows) != 0 {
		t.Fatalf("expected zero candidates from abandoned chunk, got %v", windows)
	}
	if len(completer.prompts) != 2 {
		t.Fatalf("expected exactly two attempts, got %d", len(completer.prompts))
	}
}

func TestDetectPropagatesTransportFailures(t *testing.T) {
	wantErr := errors.New("model unreachable")
	detector := NewDetector(config.LLM{}, &scriptedCompleter{err: wantErr})

	_, err := detector.Detect(context.Background(), analysis.Transcript{segment(0, 10, "speech")})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected transport failure to propagate, got %v", err)
	}
}

func TestDetectChunksLongTranscriptsWithOverlap(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{`{"candidates": []}`}}
	detector := NewDetector(config.LLM{MaxPromptChars: 120, OverlapSeconds: 10}, completer)

	transcript := analysis.Transcript{
		segment(0, 10, "first part of the review with plenty of words"),
		segment(10, 20, "second part keeps going about the product"),
		segment(20, 30, "third part reads out the discount code"),
		segment(30, 40, "fourth part wraps up the endorsement"),
	}
	if _, err := detector.Detect(context.Background(), transcript); err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(completer.inputs) < 2 {
		t.Fatalf("expected the transcript split into multiple chunks, got %d", len(completer.inputs))
	}
	for _, input := range completer.inputs {
		if len(input) > 120 {
			t.Fatalf("chunk exceeds prompt limit: %d chars", len(input))
		}
	}
	// The overlap re-sends boundary segments so windows crossing a chunk
	// edge are seen whole at least once.
	var overlapSeen bool
	for i := 1; i < len(completer.inputs); i++ {
		first := strings.SplitN(completer.inputs[i], "\n", 2)[0]
		if strings.Contains(completer.inputs[i-1], first) {
			overlapSeen = true
		}
	}
	if !overlapSeen {
		t.Fatalf("expected consecutive chunks to share boundary segments: %q", completer.inputs)
	}
}

func TestMergeOverlappingKeepsStrongerReason(t *testing.T) {
	merged := mergeOverlapping([]analysis.CandidateWindow{
		{Start: 10, End: 40, Reason: "brand mention", Confidence: 0.6},
		{Start: 15, End: 45, Reason: "reads discount code", Confidence: 0.9},
		{Start: 100, End: 130, Reason: "separate segment", Confidence: 0.7},
	})
	if len(merged) != 2 {
		t.Fatalf("expected overlapping pair merged, got %v", merged)
	}
	if merged[0].Start != 10 || merged[0].End != 45 {
		t.Fatalf("expected union span, got %+v", merged[0])
	}
	if merged[0].Reason != "reads discount code" || merged[0].Confidence != 0.9 {
		t.Fatalf("expected higher-confidence reason kept, got %+v", merged[0])
	}
}

func TestMergeOverlappingLeavesLightTouchesAlone(t *testing.T) {
	merged := mergeOverlapping([]analysis.CandidateWindow{
		{Start: 0, End: 30, Confidence: 0.8},
		{Start: 28, End: 60, Confidence: 0.8},
	})
	if len(merged) != 2 {
		t.Fatalf("expected windows with minor contact kept separate, got %v", merged)
	}
}
