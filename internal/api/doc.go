// Package api serves run history, artifact inventory, and predictions over
// HTTP.
//
// The router is read-only with respect to the pipeline: it never trains or
// recomputes. Predictions use the models cached under the current
// configuration; a missing model is reported as 409 Conflict with the stage
// that must be rerun.
package api
