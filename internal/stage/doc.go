// Package stage defines the pipeline's stage graph and the contract each
// stage handler implements for the workflow manager.
package stage
