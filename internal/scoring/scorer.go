package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"plugscan/internal/analysis"
	"plugscan/internal/config"
	"plugscan/internal/services"
	"plugscan/internal/services/commerce"
	"plugscan/internal/services/llm"
	"plugscan/internal/store"
)

// Completer is the LLM surface the scorer needs.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// CatalogSearcher resolves product names against the commerce catalog.
type CatalogSearcher interface {
	Search(ctx context.Context, query string) (commerce.Match, error)
}

// Outcome is everything the scoring pass decides about one record.
type Outcome struct {
	Attractiveness int
	PPLProbability float64
	PPLClass       string
	Monetizable    bool
	ProductLink    string
	InitialState   store.RecordState
}

// Scorer runs the final pass: attractiveness, paid-placement probability,
// monetization eligibility, and the record's initial routing.
type Scorer struct {
	cfg     config.Scoring
	client  Completer
	catalog CatalogSearcher
	logger  *slog.Logger
}

// Option customizes the scorer.
type Option func(*Scorer)

// WithLogger sets the logger used for scoring warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scorer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewScorer constructs a scorer.
func NewScorer(cfg config.Scoring, client Completer, catalog CatalogSearcher, opts ...Option) *Scorer {
	scorer := &Scorer{
		cfg:     cfg,
		client:  client,
		catalog: catalog,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(scorer)
	}
	return scorer
}

type likelihoodPayload struct {
	Likelihood float64 `json:"likelihood"`
	Reason     string  `json:"reason"`
}

// Score decides the outcome for one successfully extracted window. Quota
// exhaustion and transient service failures propagate; a model that cannot
// judge the context scores it neutral instead of sinking the record.
func (s *Scorer) Score(ctx context.Context, detail analysis.DetailResult, spokenText string) (Outcome, error) {
	if detail.ExtractionFailed {
		return Outcome{}, services.Wrap(services.ErrValidation, "", "scoring", "cannot score a failed extraction", nil)
	}

	explicit := ExplicitSignal(spokenText)
	implicit := ImplicitSignal(spokenText)
	contextual, err := s.contextualLikelihood(ctx, spokenText)
	if err != nil {
		return Outcome{}, err
	}

	probability := PPLProbability(explicit, implicit, contextual, s.cfg)
	class := ClassifyPPL(probability)

	match, err := s.catalog.Search(ctx, detail.ProductName)
	if err != nil {
		if errors.Is(err, services.ErrQuotaExhausted) || ctx.Err() != nil {
			return Outcome{}, fmt.Errorf("catalog lookup: %w", err)
		}
		// A broken lookup only blocks monetization, never the record. The
		// window routes to the not-monetizable filter like a plain miss.
		s.logger.Warn("catalog lookup failed, treating as not monetizable",
			slog.String("product", detail.ProductName),
			slog.String("error", err.Error()))
		match = commerce.Match{}
	}

	outcome := Outcome{
		Attractiveness: Attractiveness(detail.SubScores, s.cfg),
		PPLProbability: probability,
		PPLClass:       class,
		Monetizable:    match.Found,
		ProductLink:    match.Link,
	}
	switch {
	case class == ClassHigh:
		outcome.InitialState = store.RecordFilteredPPL
	case !match.Found:
		outcome.InitialState = store.RecordFilteredNotMonetizable
	default:
		outcome.InitialState = store.RecordNeedsReview
	}
	return outcome, nil
}

// contextualLikelihood asks the model how commercial the moment reads.
// Silence and permanently malformed answers score neutral.
func (s *Scorer) contextualLikelihood(ctx context.Context, spokenText string) (float64, error) {
	if strings.TrimSpace(spokenText) == "" {
		return 0, nil
	}
	content, err := s.client.CompleteJSON(ctx, llm.ContextualLikelihoodPrompt, spokenText)
	if err != nil {
		if errors.Is(err, services.ErrPermanentInput) || errors.Is(err, services.ErrValidation) {
			s.logger.Warn("contextual likelihood unavailable, scoring neutral",
				slog.String("error", err.Error()))
			return 0, nil
		}
		return 0, fmt.Errorf("contextual likelihood: %w", err)
	}

	var payload likelihoodPayload
	if err := llm.DecodeLLMJSON(content, &payload); err != nil {
		s.logger.Warn("contextual likelihood malformed, scoring neutral",
			slog.String("error", err.Error()))
		return 0, nil
	}
	if payload.Likelihood < 0 {
		return 0, nil
	}
	if payload.Likelihood > 1 {
		return 1, nil
	}
	return payload.Likelihood, nil
}
