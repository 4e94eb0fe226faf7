// Package fusion reconciles what the speaker said with what the frames
// showed for each candidate window. Token overlap between speech and
// on-screen text, mean detection confidence, and temporal alignment of the
// detections combine into one fused confidence per window.
package fusion
