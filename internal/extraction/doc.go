// Package extraction implements the content extraction fallback chain.
//
// Backends are tried in configured priority order: the fast text layer dump
// first, the slow high-fidelity ML conversion service next, and a raw text
// salvage pass last. Each draft is quality-scored; the chain stops at the
// first draft meeting the quality floor, otherwise the highest-scoring draft
// is returned as a degraded outcome. Backend failures, including crashes,
// never abort the chain.
package extraction
