package analysis

// Evidence names one modality signal that contributed to a fusion result.
type Evidence struct {
	Modality string `json:"modality"`
	Value    string `json:"value"`
}

// FusionResult reconciles the audio and visual signals for one candidate
// window into a single confidence-weighted outcome. Derived and read-only;
// exactly one per candidate window.
type FusionResult struct {
	Window             CandidateWindow `json:"window"`
	SpokenText         string          `json:"spoken_text"`
	TextMatchScore     float64         `json:"text_match_score"`
	VisualConfidence   float64         `json:"visual_confidence"`
	TimeAlignmentScore float64         `json:"time_alignment_score"`
	FusedConfidence    float64         `json:"fused_confidence"`
	Evidence           []Evidence      `json:"supporting_evidence,omitempty"`
}
