package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"plugscan/internal/analysis"
	"plugscan/internal/services/llm"
)

// Completer is the LLM surface the extractor needs.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Extractor runs the second analysis pass: it turns each fused endorsement
// window into structured product details, sub-scores, and marketing copy.
type Extractor struct {
	client Completer
	logger *slog.Logger
}

// Option customizes the extractor.
type Option func(*Extractor)

// WithLogger sets the logger used for per-window warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExtractor constructs an extractor.
func NewExtractor(client Completer, opts ...Option) *Extractor {
	extractor := &Extractor{client: client, logger: slog.Default()}
	for _, opt := range opts {
		opt(extractor)
	}
	return extractor
}

type detailPayload struct {
	ProductName  string   `json:"product_name"`
	CategoryPath []string `json:"category_path"`
	Features     []string `json:"features"`
	ScoreDetails struct {
		Sentiment   float64 `json:"sentiment_score"`
		Endorsement float64 `json:"endorsement_score"`
		SourceTrust float64 `json:"source_trust_score"`
	} `json:"score_details"`
	Marketing struct {
		Titles  []string `json:"titles"`
		Tags    []string `json:"tags"`
		Hook    string   `json:"hook"`
		Caption string   `json:"caption"`
	} `json:"marketing"`
}

// Extract produces the detail result for one fused window. A window whose
// payload still violates the schema after the corrective reissue comes back
// flagged as failed with a nil error, so sibling windows keep going; only
// transport failures return an error.
func (e *Extractor) Extract(ctx context.Context, fused analysis.FusionResult) (analysis.DetailResult, error) {
	moment := renderMoment(fused)

	content, err := e.client.CompleteJSON(ctx, llm.DetailExtractionPrompt, moment)
	if err != nil {
		return analysis.DetailResult{}, fmt.Errorf("detail extraction: %w", err)
	}
	result, parseErr := e.parse(fused, content)
	if parseErr == nil {
		return result, nil
	}

	content, err = e.client.CompleteJSON(ctx, llm.DetailExtractionStrictPrompt, moment)
	if err != nil {
		return analysis.DetailResult{}, fmt.Errorf("detail extraction retry: %w", err)
	}
	result, retryErr := e.parse(fused, content)
	if retryErr != nil {
		e.logger.Warn("detail extraction abandoned after schema violations",
			slog.String("window", fused.Window.Label()),
			slog.String("error", retryErr.Error()))
		return analysis.DetailResult{
			Window:           fused.Window,
			FusedConfidence:  fused.FusedConfidence,
			ExtractionFailed: true,
			FailureReason:    retryErr.Error(),
		}, nil
	}
	return result, nil
}

func (e *Extractor) parse(fused analysis.FusionResult, content string) (analysis.DetailResult, error) {
	var payload detailPayload
	if err := llm.DecodeLLMJSON(content, &payload); err != nil {
		return analysis.DetailResult{}, err
	}
	if err := validate(payload); err != nil {
		return analysis.DetailResult{}, err
	}
	return analysis.DetailResult{
		Window:       fused.Window,
		ProductName:  strings.TrimSpace(payload.ProductName),
		CategoryPath: trimAll(payload.CategoryPath),
		Features:     trimAll(payload.Features),
		SubScores: analysis.SubScores{
			Sentiment:   payload.ScoreDetails.Sentiment,
			Endorsement: payload.ScoreDetails.Endorsement,
			SourceTrust: payload.ScoreDetails.SourceTrust,
		},
		Marketing: analysis.MarketingCopy{
			Titles:  trimAll(payload.Marketing.Titles),
			Tags:    trimAll(payload.Marketing.Tags),
			Hook:    strings.TrimSpace(payload.Marketing.Hook),
			Caption: strings.TrimSpace(payload.Marketing.Caption),
		},
		FusedConfidence: fused.FusedConfidence,
	}, nil
}

func validate(payload detailPayload) error {
	if strings.TrimSpace(payload.ProductName) == "" {
		return fmt.Errorf("missing product_name")
	}
	if len(trimAll(payload.CategoryPath)) == 0 {
		return fmt.Errorf("missing category_path")
	}
	for name, score := range map[string]float64{
		"sentiment_score":    payload.ScoreDetails.Sentiment,
		"endorsement_score":  payload.ScoreDetails.Endorsement,
		"source_trust_score": payload.ScoreDetails.SourceTrust,
	} {
		if score < 0 || score > 1 {
			return fmt.Errorf("%s out of range: %v", name, score)
		}
	}
	if len(trimAll(payload.Marketing.Titles)) == 0 {
		return fmt.Errorf("missing marketing titles")
	}
	return nil
}

func trimAll(values []string) []string {
	var out []string
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// renderMoment lays out the fused evidence for the prompt: the speech first,
// then each on-screen signal on its own line.
func renderMoment(fused analysis.FusionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Window: %s seconds\n", fused.Window.Label())
	fmt.Fprintf(&b, "Spoken: %s\n", strings.TrimSpace(fused.SpokenText))
	for _, evidence := range fused.Evidence {
		if evidence.Modality == "speech" {
			continue
		}
		fmt.Fprintf(&b, "On-screen (%s): %s\n", evidence.Modality, evidence.Value)
	}
	return b.String()
}
