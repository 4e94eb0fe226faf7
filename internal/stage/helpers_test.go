package stage

import (
	"encoding/json"
	"errors"
	"testing"

	"plugscan/internal/analysis"
	"plugscan/internal/services"
)

func TestDecodeStepOutput_Valid(t *testing.T) {
	raw := json.RawMessage(`[{"start": 10, "end": 40, "reason": "discount code", "confidence": 0.9}]`)
	var windows []analysis.CandidateWindow
	if err := DecodeStepOutput(raw, &windows); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(windows) != 1 || windows[0].Start != 10 {
		t.Fatalf("unexpected decode result: %v", windows)
	}
}

func TestDecodeStepOutput_Missing(t *testing.T) {
	var windows []analysis.CandidateWindow
	err := DecodeStepOutput(nil, &windows)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for missing output, got %v", err)
	}
}

func TestDecodeStepOutput_Corrupt(t *testing.T) {
	var windows []analysis.CandidateWindow
	err := DecodeStepOutput(json.RawMessage("{invalid json"), &windows)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for corrupt output, got %v", err)
	}
}
