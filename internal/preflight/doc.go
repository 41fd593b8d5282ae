// Package preflight provides readiness checks for the filesystem paths a
// pipeline run depends on.
//
// These checks run in two contexts:
//   - The workflow manager calls RunAll before any stage executes. If any
//     check fails the run halts before computing anything.
//   - The CLI "config validate" command prints every result.
package preflight
