package analysis

// DetectionKind distinguishes on-screen text from detected objects.
type DetectionKind string

const (
	DetectionText   DetectionKind = "text"
	DetectionObject DetectionKind = "object"
)

// VisualDetection is one OCR hit or object detection from a sampled frame.
type VisualDetection struct {
	Timestamp  float64       `json:"timestamp"`
	Kind       DetectionKind `json:"kind"`
	Payload    string        `json:"payload"`
	Confidence float64       `json:"confidence"`
}

// ExtractedFrame is one frame sampled from a candidate window. Frames are
// owned by the sampler until handed to the vision adapter and are never
// mutated after creation.
type ExtractedFrame struct {
	Timestamp  float64 `json:"timestamp"`
	ImagePath  string  `json:"image_path"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Sharpness  float64 `json:"sharpness"`
	Brightness float64 `json:"brightness"`
	Quality    float64 `json:"quality"`
	AHash      uint64  `json:"ahash"`
}
