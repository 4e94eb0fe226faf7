package stage

import (
	"context"

	"plugscan/internal/store"
)

// Handler describes the contract the pipeline manager needs from each stage.
type Handler interface {
	Prepare(context.Context, *store.Video) error
	Execute(context.Context, *store.Video) error
	HealthCheck(context.Context) Health
}
