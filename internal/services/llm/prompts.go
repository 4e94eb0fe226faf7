package llm

// CandidateDetectionPrompt captures the instructions sent to the configured
// LLM when scanning a transcript chunk for likely product endorsements.
// Update this text centrally so every call stays in sync.
const CandidateDetectionPrompt = `You are an assistant that finds product endorsement moments in video transcripts.

The transcript can be Korean, English, or a mix. Each line carries the start
and end second of the spoken segment.

Look for moments where the speaker promotes, recommends, demonstrates, or
reviews a specific product or brand: naming it, praising it, describing how to
buy it, reading a discount code, or mentioning sponsorship.

Rules:

- Report one window per distinct endorsement moment, with the start and end
  seconds taken from the transcript timestamps.

- "reason" is a short phrase describing what signals the endorsement.

- "confidence" is 0 to 1. Be conservative: casual mentions without promotional
  intent score low.

- A window must satisfy end > start. Do not invent timestamps outside the
  chunk.

You must respond ONLY with a JSON object like:
{"candidates": [{"start": 123.5, "end": 167.0, "reason": "reads discount code for skincare brand", "confidence": 0.85}]}

An empty chunk yields {"candidates": []}.

Now scan this transcript chunk:`

// CandidateDetectionStrictPrompt is the corrective reissue used after the
// model returns a malformed payload. One retry only.
const CandidateDetectionStrictPrompt = CandidateDetectionPrompt + `

IMPORTANT: your previous response was not valid JSON for this schema. Respond
with nothing but the JSON object. No prose, no code fences, no comments.`

// DetailExtractionPrompt captures the instructions for turning one fused
// endorsement window into structured product details and sub-scores.
const DetailExtractionPrompt = `You are an assistant that extracts product details from a video endorsement moment.

You receive the spoken text of the moment plus any on-screen text and detected
objects. The content can be Korean, English, or a mix.

You must respond ONLY with a JSON object with exactly these fields:

{
  "product_name": "specific product or brand name",
  "category_path": ["top level", "sub level"],
  "features": ["claimed feature or benefit"],
  "score_details": {
    "sentiment_score": 0.0,
    "endorsement_score": 0.0,
    "source_trust_score": 0.0
  },
  "marketing": {
    "titles": ["short promotional title"],
    "tags": ["tag"],
    "hook": "one-line hook",
    "caption": "one-paragraph caption"
  }
}

Rules:

- All three scores are between 0 and 1. sentiment_score reflects how positive
  the speaker is, endorsement_score how strong the recommendation is,
  source_trust_score how credible the claims sound.

- category_path goes from general to specific and must not be empty.

- Keep marketing copy in the language of the spoken text.

Now extract details from this moment:`

// DetailExtractionStrictPrompt is the corrective reissue after a schema
// violation in the extraction payload.
const DetailExtractionStrictPrompt = DetailExtractionPrompt + `

IMPORTANT: your previous response was missing required fields or used values
outside their ranges. Respond with nothing but the complete JSON object,
every field present, every score in [0,1].`

// ContextualLikelihoodPrompt captures the instructions for judging how
// commercial the surrounding context of an endorsement moment is. The result
// feeds the contextual term of the PPL probability.
const ContextualLikelihoodPrompt = `You are an assistant that judges how likely a video moment is paid promotion.

You receive the spoken text of an endorsement moment. Consider commercial
framing: scripted ad reads, discount codes, affiliate links, sponsor
thank-yous, unusually polished claims, pivots from unrelated content into a
product pitch.

You must respond ONLY with a JSON object like:
{"likelihood": 0.7, "reason": "short explanation"}

"likelihood" is 0 to 1, where 0 is clearly organic conversation and 1 is
clearly a paid placement.

Now judge this moment:`
