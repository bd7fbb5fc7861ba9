package extraction

import (
	"context"

	"folio/internal/document"
)

// Draft is a single backend's raw extraction output before quality scoring.
type Draft struct {
	Content string
}

// Backend is one conversion strategy in the fallback chain. Attempt must
// honor the context deadline and must confine any fatal failure to its own
// invocation; backends that shell out run the conversion in a child process
// so a crash there never takes down the caller.
type Backend interface {
	Name() string
	Attempt(ctx context.Context, doc document.Document) (Draft, error)
}
