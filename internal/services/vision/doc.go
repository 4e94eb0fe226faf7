// Package vision adapts the frame analysis HTTP service. Each call submits
// one sampled frame and returns the OCR text and object detections found in
// it, stamped with the frame timestamp so fusion can align them against the
// transcript.
//
// Calls are metered against the daily vision budget and retried on
// transient failures. A frame the service rejects outright is a permanent
// input failure; the analyze stage treats that frame as having no
// detections rather than failing the window.
package vision
