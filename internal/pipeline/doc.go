// Package pipeline schedules document extraction jobs on a bounded worker
// pool with shared rate limiting, transient-failure retries, and cooperative
// cancellation.
package pipeline
