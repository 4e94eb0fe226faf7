package stage

import (
	"encoding/json"

	"plugscan/internal/services"
)

// DecodeStepOutput decodes a persisted checkpoint step output into target.
// On failure it returns a services.ErrValidation suitable for stage Execute
// methods; a corrupt checkpoint means the step must be rerun.
func DecodeStepOutput(raw json.RawMessage, target any) error {
	if len(raw) == 0 {
		return services.Wrap(
			services.ErrValidation, "stage", "decode step output",
			"Checkpoint output missing; rerun the producing step", nil)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return services.Wrap(
			services.ErrValidation, "stage", "decode step output",
			"Checkpoint output unreadable; rerun the producing step", err)
	}
	return nil
}
