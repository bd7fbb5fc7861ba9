// Package config loads, normalizes, and validates Folio configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// FOLIO_ML_SERVICE_API_KEY. The Config type centralizes every knob the CLI and
// pipeline need, so downstream code receives sanitized paths, a validated
// backend order, and clear validation errors.
package config
