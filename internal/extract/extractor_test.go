package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"plugscan/internal/analysis"
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

const validPayload = `{
	"product_name": "라네즈 립 슬리핑 마스크",
	"category_path": ["뷰티", "립케어"],
	"features": ["밤새 보습", "베리 향"],
	"score_details": {"sentiment_score": 0.9, "endorsement_score": 0.8, "source_trust_score": 0.7},
	"marketing": {
		"titles": ["자는 동안 완성하는 촉촉한 입술"],
		"tags": ["립케어", "라네즈"],
		"hook": "하룻밤이면 충분해요",
		"caption": "매일 밤 바르고 자면 아침이 달라집니다."
	}
}`

func fusedWindow() analysis.FusionResult {
	return analysis.FusionResult{
		Window:          analysis.CandidateWindow{Start: 10, End: 40, Confidence: 0.85},
		SpokenText:      "라네즈 립 슬리핑 마스크 정말 추천해요",
		FusedConfidence: 0.78,
		Evidence: []analysis.Evidence{
			{Modality: "speech", Value: "라네즈 립 슬리핑 마스크 정말 추천해요"},
			{Modality: "ocr", Value: "라네즈 립 슬리핑 마스크 @15.0s"},
		},
	}
}

func TestExtractParsesValidPayload(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{validPayload}}
	extractor := NewExtractor(completer)

	result, err := extractor.Extract(context.Background(), fusedWindow())
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if result.ExtractionFailed {
		t.Fatalf("unexpected failure flag: %+v", result)
	}
	if result.ProductName != "라네즈 립 슬리핑 마스크" {
		t.Fatalf("unexpected product name %q", result.ProductName)
	}
	if len(result.CategoryPath) != 2 || result.CategoryPath[0] != "뷰티" {
		t.Fatalf("unexpected category path %v", result.CategoryPath)
	}
	if result.SubScores.Sentiment != 0.9 || result.SubScores.SourceTrust != 0.7 {
		t.Fatalf("unexpected sub-scores %+v", result.SubScores)
	}
	if result.FusedConfidence != 0.78 {
		t.Fatalf("fused confidence must carry through, got %v", result.FusedConfidence)
	}
	if !strings.Contains(completer.inputs[0], "On-screen (ocr)") {
		t.Fatalf("prompt must include visual evidence: %q", completer.inputs[0])
	}
}

func TestExtractReissuesStrictPromptOnSchemaViolation(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{
		`{"product_name": "", "category_path": []}`,
		validPayload,
	}}
	extractor := NewExtractor(completer)

	result, err := extractor.Extract(context.Background(), fusedWindow())
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if result.ExtractionFailed {
		t.Fatalf("expected recovery via strict prompt, got %+v", result)
	}
	if len(completer.prompts) != 2 || completer.prompts[1] != llm.DetailExtractionStrictPrompt {
		t.Fatalf("second call must use the strict prompt, got %d calls", len(completer.prompts))
	}
}

func TestExtractFlagsPersistentSchemaViolations(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{
		`{"product_name": "serum", "category_path": ["beauty"],
		  "score_details": {"sentiment_score": 1.7, "endorsement_score": 0.5, "source_trust_score": 0.5},
		  "marketing": {"titles": ["t"]}}`,
	}}
	extractor := NewExtractor(completer)

	result, err := extractor.Extract(context.Background(), fusedWindow())
	if err != nil {
		t.Fatalf("schema violations must not error: %v", err)
	}
	if !result.ExtractionFailed {
		t.Fatalf("expected failure flag, got %+v", result)
	}
	if result.FailureReason == "" || result.ProductName != "" {
		t.Fatalf("failed result must carry the reason and no product data: %+v", result)
	}
	if result.Window != fusedWindow().Window {
		t.Fatalf("failed result must keep its window: %+v", result)
	}
	if len(completer.prompts) != 2 {
		t.Fatalf("expected exactly one reissue, got %d calls", len(completer.prompts))
	}
}

func TestExtractPropagatesTransportFailures(t *testing.T) {
	wantErr := errors.New("model unreachable")
	extractor := NewExtractor(&scriptedCompleter{err: wantErr})

	_, err := extractor.Extract(context.Background(), fusedWindow())
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected transport failure to propagate, got %v", err)
	}
}
