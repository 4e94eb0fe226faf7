package analysis

// SubScores are the three second-pass quality dimensions, each in [0,1].
type SubScores struct {
	Sentiment   float64 `json:"sentiment_score"`
	Endorsement float64 `json:"endorsement_score"`
	SourceTrust float64 `json:"source_trust_score"`
}

// MarketingCopy is the generated promotional text for one endorsement.
type MarketingCopy struct {
	Titles  []string `json:"title_variants"`
	Tags    []string `json:"tags"`
	Hook    string   `json:"hook_sentence"`
	Caption string   `json:"caption"`
}

// DetailResult is the structured output of the second-pass extraction for
// one fused window. ExtractionFailed windows carry no product data and are
// excluded from scoring.
type DetailResult struct {
	Window           CandidateWindow `json:"window"`
	ProductName      string          `json:"product_name"`
	CategoryPath     []string        `json:"category_path"`
	Features         []string        `json:"features"`
	SubScores        SubScores       `json:"score_details"`
	Marketing        MarketingCopy   `json:"marketing"`
	FusedConfidence  float64         `json:"fused_confidence"`
	ExtractionFailed bool            `json:"extraction_failed,omitempty"`
	FailureReason    string          `json:"failure_reason,omitempty"`
}
