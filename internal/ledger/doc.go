// Package ledger stores a per-run, per-job audit trail in SQLite. The
// registry answers "what is this document's current status"; the ledger
// answers "what happened on each run".
package ledger
