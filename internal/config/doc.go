// Package config loads, normalizes, and validates pipeline configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// AUTHORSHIP_CORPUS and AUTHORSHIP_SEED. The Config type centralizes every
// knob a run needs: stage enable flags, split seed and proportions, feature
// bounds, and one typed hyperparameter section per model architecture.
//
// A run's behaviour is fully determined by the Config handed to the
// orchestrator; nothing is read from package-level state after Load returns.
package config
