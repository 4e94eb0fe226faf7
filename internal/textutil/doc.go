// Package textutil provides text processing utilities for normalization,
// tokenization, and similarity scoring across mixed Korean/English text.
//
// The primary use cases are:
//   - Normalizing OCR output and spoken transcript text into a comparable form
//   - Creating token-based fingerprints from text for comparison
//   - Computing cosine and Jaccard similarity between token sets
//
// Fingerprints use term frequency vectors normalized for efficient comparison.
// Tokenization is Unicode-aware: Hangul syllables survive as tokens alongside
// Latin words.
package textutil
