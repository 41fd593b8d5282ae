// Package artifact implements the content-addressed store for pipeline
// outputs.
//
// Every artifact lives at <root>/<name>/<fingerprint>.json inside a JSON
// envelope recording its name, fingerprint, payload kind, and creation time.
// Fingerprints chain: a stage's fingerprint hashes its own parameters together
// with the fingerprints of everything upstream, so any upstream change yields
// new keys for every dependent artifact and stale entries are never reused.
//
// Saves are atomic (temp file, fsync, rename) and payloads are immutable once
// written. Loading a missing or mismatched entry reports absence rather than an
// error; callers decide whether to recompute or fail.
package artifact
