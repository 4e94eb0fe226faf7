package analysis

import "strings"

// TranscriptSegment is one time-coded span of recognized speech.
type TranscriptSegment struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Duration returns the segment length in seconds.
func (s TranscriptSegment) Duration() float64 {
	return s.End - s.Start
}

// Transcript is the ordered segment sequence for one video.
type Transcript []TranscriptSegment

// FullText concatenates all segment text in order.
func (t Transcript) FullText() string {
	parts := make([]string, 0, len(t))
	for _, seg := range t {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// Overlapping returns the segments that intersect [start, end], widened by
// tolerance seconds on both sides.
func (t Transcript) Overlapping(start, end, tolerance float64) Transcript {
	var out Transcript
	for _, seg := range t {
		if seg.Start <= end+tolerance && seg.End >= start-tolerance {
			out = append(out, seg)
		}
	}
	return out
}

// Duration returns the time span covered by the transcript, zero when empty.
func (t Transcript) Duration() float64 {
	if len(t) == 0 {
		return 0
	}
	return t[len(t)-1].End - t[0].Start
}
