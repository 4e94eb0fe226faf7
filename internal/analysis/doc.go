// Package analysis defines the value types shared across the pipeline:
// transcript segments, candidate windows, extracted frames, visual
// detections, fusion results, and extracted product details.
//
// These types are plain data. They are produced by one stage, serialized
// into the checkpoint store between stages, and never mutated after
// creation.
package analysis
