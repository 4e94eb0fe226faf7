package vision

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"plugscan/internal/analysis"
	"plugscan/internal/services"
)

func fastRetry() services.RetryPolicy {
	return services.RetryPolicy{Sleep: func(time.Duration) {}}
}

func TestAnalyzeFrameStampsTimestamp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/analyze" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["image_path"] != "/frames/12.5.jpg" {
			t.Fatalf("unexpected image path %v", req["image_path"])
		}
		response := map[string]any{
			"detections": []any{
				map[string]any{"kind": "text", "payload": "라네즈 립 마스크", "confidence": 0.92},
				map[string]any{"kind": "object", "payload": "cosmetics jar", "confidence": 0.75},
				map[string]any{"kind": "text", "payload": "   ", "confidence": 0.5},
				map[string]any{"kind": "barcode", "payload": "8801234", "confidence": 0.9},
			},
		}
		if err := json.NewEncoder(w).Encode(response); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	frame := analysis.ExtractedFrame{Timestamp: 12.5, ImagePath: "/frames/12.5.jpg"}
	detections, err := client.AnalyzeFrame(context.Background(), frame)
	if err != nil {
		t.Fatalf("AnalyzeFrame failed: %v", err)
	}
	if len(detections) != 2 {
		t.Fatalf("expected blank and unknown-kind detections dropped, got %d", len(detections))
	}
	for _, det := range detections {
		if det.Timestamp != 12.5 {
			t.Fatalf("expected frame timestamp on detection, got %v", det.Timestamp)
		}
	}
	if detections[0].Kind != analysis.DetectionText || detections[1].Kind != analysis.DetectionObject {
		t.Fatalf("unexpected detection kinds: %v", detections)
	}
}

func TestAnalyzeFrameEmptyResultIsNotError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"detections": []any{}})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	detections, err := client.AnalyzeFrame(context.Background(), analysis.ExtractedFrame{ImagePath: "/frames/blank.jpg"})
	if err != nil {
		t.Fatalf("empty detections must not fail: %v", err)
	}
	if len(detections) != 0 {
		t.Fatalf("expected no detections, got %v", detections)
	}
}

func TestAnalyzeFrameRetriesServerErrors(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"detections": []any{map[string]any{"kind": "text", "payload": "SALE", "confidence": 0.8}},
		})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, WithRetryPolicy(fastRetry()))
	detections, err := client.AnalyzeFrame(context.Background(), analysis.ExtractedFrame{ImagePath: "/frames/1.jpg"})
	if err != nil {
		t.Fatalf("expected retries to recover: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
	if len(detections) != 1 {
		t.Fatalf("expected one detection, got %v", detections)
	}
}

func TestAnalyzeFrameClassifiesClientErrorsPermanent(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnsupportedMediaType)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, WithRetryPolicy(fastRetry()))
	_, err := client.AnalyzeFrame(context.Background(), analysis.ExtractedFrame{ImagePath: "/frames/bad.gif"})
	if !errors.Is(err, services.ErrPermanentInput) {
		t.Fatalf("expected permanent classification, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("permanent failures must not retry, got %d calls", calls.Load())
	}
}

type fakeBudget struct {
	reserved atomic.Int64
	refunded atomic.Int64
	fail     bool
}

func (b *fakeBudget) Reserve(ctx context.Context, service string) error {
	if b.fail {
		return services.Wrap(services.ErrQuotaExhausted, "", service, "daily budget spent", nil)
	}
	b.reserved.Add(1)
	return nil
}

func (b *fakeBudget) Refund(ctx context.Context, service string) error {
	b.refunded.Add(1)
	return nil
}

func TestAnalyzeFrameBudgetExhausted(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, WithBudget(&fakeBudget{fail: true}))
	_, err := client.AnalyzeFrame(context.Background(), analysis.ExtractedFrame{ImagePath: "/frames/1.jpg"})
	if !errors.Is(err, services.ErrQuotaExhausted) {
		t.Fatalf("expected quota exhaustion, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("exhausted budget must not reach the service, got %d calls", calls.Load())
	}
}
