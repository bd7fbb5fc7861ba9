// Package registry maintains the durable identity registry: a checkpointed
// map from document identity to processing status and run history. A single
// process holds the registry at a time, enforced by a file lock next to the
// checkpoint.
package registry
