// Package detect implements the first analysis pass over a transcript. The
// detector renders timestamped speech into prompt-sized chunks, asks the
// model for endorsement-shaped time windows, filters out hallucinated or
// low-confidence spans, and merges duplicates produced by chunk overlap.
package detect
