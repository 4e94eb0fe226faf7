// Package extract implements the second analysis pass. Each fused window
// becomes one model call that returns the product name, category path,
// claimed features, quality sub-scores, and marketing copy. Payloads are
// validated against the expected schema with one corrective reissue; a
// window that stays malformed is flagged failed without touching its
// siblings.
package extract
