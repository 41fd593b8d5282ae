package stage

import (
	"context"
	"log/slog"
)

// Handler describes the contract the workflow manager needs from each stage.
// Compute recomputes and persists the stage's outputs; Load restores them
// from the artifact store and must never fall back to computing.
type Handler interface {
	Name() Name
	Outputs() []Ref
	Compute(context.Context) error
	Load(context.Context) error
}

// LoggerAware handlers receive the stage-scoped logger before running.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}
