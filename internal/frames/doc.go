// Package frames samples still frames from candidate windows for visual
// analysis. The sampler grabs frames with ffmpeg at evenly spaced
// timestamps, scores each for quality (focus, resolution, exposure, edge
// content), drops frames below the configured floor, collapses
// near-duplicates by perceptual hash, and keeps at most the configured
// number of best frames per window.
package frames
