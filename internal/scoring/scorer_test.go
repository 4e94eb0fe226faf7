package scoring

import (
	"context"
	"errors"
	"testing"

	"plugscan/internal/analysis"
	"plugscan/internal/config"
	"plugscan/internal/services"
	"plugscan/internal/services/commerce"
	"plugscan/internal/store"
)

func scoringConfig() config.Scoring {
	return config.Scoring{
		SentimentWeight:   0.50,
		EndorsementWeight: 0.35,
		SourceTrustWeight: 0.15,
		ExplicitWeight:    0.60,
		ImplicitWeight:    0.25,
		ContextualWeight:  0.15,
	}
}

type fakeCompleter struct {
	response string
	err      error
	calls    int
}

func (c *fakeCompleter) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return c.response, nil
}

type fakeCatalog struct {
	match commerce.Match
	err   error
	query string
}

func (c *fakeCatalog) Search(ctx context.Context, query string) (commerce.Match, error) {
	c.query = query
	if c.err != nil {
		return commerce.Match{}, c.err
	}
	return c.match, nil
}

func extractedDetail() analysis.DetailResult {
	return analysis.DetailResult{
		Window:      analysis.CandidateWindow{Start: 10, End: 40},
		ProductName: "라네즈 립 슬리핑 마스크",
		SubScores:   analysis.SubScores{Sentiment: 0.9, Endorsement: 0.8, SourceTrust: 0.7},
	}
}

func TestScoreRoutesReviewableRecord(t *testing.T) {
	completer := &fakeCompleter{response: `{"likelihood": 0.2, "reason": "casual review"}`}
	catalog := &fakeCatalog{match: commerce.Match{Found: true, Link: "https://shop.example.com/p/1"}}
	scorer := NewScorer(scoringConfig(), completer, catalog)

	outcome, err := scorer.Score(context.Background(), extractedDetail(), "이 마스크 발라봤는데 정말 좋아요")
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if outcome.InitialState != store.RecordNeedsReview {
		t.Fatalf("expected needs_review routing, got %s", outcome.InitialState)
	}
	if !outcome.Monetizable || outcome.ProductLink == "" {
		t.Fatalf("expected monetizable outcome, got %+v", outcome)
	}
	// 100 * (0.50*0.9 + 0.35*0.8 + 0.15*0.7) = 83.5
	if outcome.Attractiveness != 84 {
		t.Fatalf("expected attractiveness 84, got %d", outcome.Attractiveness)
	}
	if catalog.query != "라네즈 립 슬리핑 마스크" {
		t.Fatalf("catalog queried with %q", catalog.query)
	}
}

func TestScoreExplicitDisclosureForcesMediumOrAbove(t *testing.T) {
	completer := &fakeCompleter{response: `{"likelihood": 0.0, "reason": "nothing else commercial"}`}
	catalog := &fakeCatalog{match: commerce.Match{Found: true, Link: "https://shop.example.com/p/1"}}
	scorer := NewScorer(scoringConfig(), completer, catalog)

	outcome, err := scorer.Score(context.Background(), extractedDetail(), "이 영상은 유료 광고를 포함하고 있습니다")
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if outcome.PPLProbability < 0.6 {
		t.Fatalf("explicit disclosure must push probability to at least 0.6, got %.3f", outcome.PPLProbability)
	}
	if outcome.PPLClass != ClassMedium && outcome.PPLClass != ClassHigh {
		t.Fatalf("expected at least medium class, got %s", outcome.PPLClass)
	}
}

func TestScoreHighProbabilityFiltersRecord(t *testing.T) {
	completer := &fakeCompleter{response: `{"likelihood": 0.9, "reason": "scripted ad read"}`}
	catalog := &fakeCatalog{match: commerce.Match{Found: true}}
	scorer := NewScorer(scoringConfig(), completer, catalog)

	outcome, err := scorer.Score(context.Background(), extractedDetail(),
		"유료 광고입니다. 할인 코드 받아가세요. 링크는 설명란에 있어요. 쿠폰 코드도 드려요")
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if outcome.PPLClass != ClassHigh {
		t.Fatalf("expected high class, got %s at %.3f", outcome.PPLClass, outcome.PPLProbability)
	}
	if outcome.InitialState != store.RecordFilteredPPL {
		t.Fatalf("high class must route to filtered_ppl, got %s", outcome.InitialState)
	}
}

func TestScoreCatalogMissFiltersRecord(t *testing.T) {
	completer := &fakeCompleter{response: `{"likelihood": 0.1, "reason": "organic"}`}
	catalog := &fakeCatalog{match: commerce.Match{Found: false}}
	scorer := NewScorer(scoringConfig(), completer, catalog)

	outcome, err := scorer.Score(context.Background(), extractedDetail(), "그냥 제가 쓰는 제품이에요")
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if outcome.InitialState != store.RecordFilteredNotMonetizable {
		t.Fatalf("catalog miss must route to filtered_not_monetizable, got %s", outcome.InitialState)
	}
	if outcome.Monetizable {
		t.Fatalf("catalog miss cannot be monetizable")
	}
}

func TestScoreCatalogFailureFiltersRecord(t *testing.T) {
	completer := &fakeCompleter{response: `{"likelihood": 0.1, "reason": "organic"}`}
	catalog := &fakeCatalog{err: services.Wrap(services.ErrPermanentInput, "", "commerce.search", "commerce service rejected query with 400", nil)}
	scorer := NewScorer(scoringConfig(), completer, catalog)

	outcome, err := scorer.Score(context.Background(), extractedDetail(), "이 마스크 발라봤는데 정말 좋아요")
	if err != nil {
		t.Fatalf("broken catalog lookup must not block scoring: %v", err)
	}
	if outcome.InitialState != store.RecordFilteredNotMonetizable {
		t.Fatalf("catalog failure must route to filtered_not_monetizable, got %s", outcome.InitialState)
	}
	if outcome.Monetizable || outcome.ProductLink != "" {
		t.Fatalf("catalog failure cannot yield a monetizable outcome: %+v", outcome)
	}
	if outcome.Attractiveness == 0 {
		t.Fatalf("scoring itself must still complete, got %+v", outcome)
	}
}

func TestScoreCatalogQuotaExhaustionPropagates(t *testing.T) {
	completer := &fakeCompleter{response: `{"likelihood": 0.1, "reason": "organic"}`}
	catalog := &fakeCatalog{err: services.Wrap(services.ErrQuotaExhausted, "", "commerce.search", "daily budget spent", nil)}
	scorer := NewScorer(scoringConfig(), completer, catalog)

	_, err := scorer.Score(context.Background(), extractedDetail(), "협찬 이야기")
	if !errors.Is(err, services.ErrQuotaExhausted) {
		t.Fatalf("catalog quota exhaustion must propagate, got %v", err)
	}
}

func TestScoreContextualFailureScoresNeutral(t *testing.T) {
	completer := &fakeCompleter{err: services.Wrap(services.ErrPermanentInput, "", "llm.complete", "rejected", nil)}
	catalog := &fakeCatalog{match: commerce.Match{Found: true}}
	scorer := NewScorer(scoringConfig(), completer, catalog)

	outcome, err := scorer.Score(context.Background(), extractedDetail(), "제품 이야기를 해볼게요")
	if err != nil {
		t.Fatalf("permanent contextual failure must degrade to neutral: %v", err)
	}
	if outcome.PPLProbability != 0 {
		t.Fatalf("expected neutral contextual term, got %.3f", outcome.PPLProbability)
	}
	if outcome.PPLClass != ClassOrganic {
		t.Fatalf("expected organic class, got %s", outcome.PPLClass)
	}
}

func TestScoreQuotaExhaustionPropagates(t *testing.T) {
	completer := &fakeCompleter{err: services.Wrap(services.ErrQuotaExhausted, "", "llm.complete", "daily budget spent", nil)}
	scorer := NewScorer(scoringConfig(), completer, &fakeCatalog{})

	_, err := scorer.Score(context.Background(), extractedDetail(), "협찬 이야기")
	if !errors.Is(err, services.ErrQuotaExhausted) {
		t.Fatalf("quota exhaustion must propagate, got %v", err)
	}
}

func TestScoreRejectsFailedExtraction(t *testing.T) {
	scorer := NewScorer(scoringConfig(), &fakeCompleter{}, &fakeCatalog{})
	_, err := scorer.Score(context.Background(), analysis.DetailResult{ExtractionFailed: true}, "speech")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation failure, got %v", err)
	}
}

func TestClassifyPPLBands(t *testing.T) {
	cases := []struct {
		probability float64
		want        string
	}{
		{0.0, ClassOrganic},
		{0.19, ClassOrganic},
		{0.2, ClassLow},
		{0.49, ClassLow},
		{0.5, ClassMedium},
		{0.79, ClassMedium},
		{0.8, ClassHigh},
		{1.0, ClassHigh},
	}
	for _, tc := range cases {
		if got := ClassifyPPL(tc.probability); got != tc.want {
			t.Fatalf("ClassifyPPL(%.2f) = %s, want %s", tc.probability, got, tc.want)
		}
	}
}

func TestSignalsDetectKoreanAndEnglishPatterns(t *testing.T) {
	if ExplicitSignal("This video is sponsored by Acme") != 1 {
		t.Fatalf("expected English disclosure detected")
	}
	if ExplicitSignal("오늘 협찬받은 제품 소개할게요") != 1 {
		t.Fatalf("expected Korean disclosure detected")
	}
	if ExplicitSignal("그냥 제가 산 제품이에요") != 0 {
		t.Fatalf("expected no disclosure in organic speech")
	}
	if ImplicitSignal("use my code PLUG10 for a discount code at checkout") <= 0 {
		t.Fatalf("expected implicit signal from commerce phrasing")
	}
	if ImplicitSignal("오늘 날씨가 좋네요") != 0 {
		t.Fatalf("expected no implicit signal in small talk")
	}
}
