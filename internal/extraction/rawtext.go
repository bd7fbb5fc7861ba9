package extraction

import (
	"context"
	"os"
	"strings"
	"unicode"

	"folio/internal/document"
	"folio/internal/services"
)

// RawTextBackend is the last-resort fallback: it salvages whatever printable
// text the payload bytes contain. Output quality is poor but the backend
// itself never crashes and needs no external tooling.
type RawTextBackend struct{}

// NewRawTextBackend constructs the fallback backend.
func NewRawTextBackend() *RawTextBackend {
	return &RawTextBackend{}
}

func (b *RawTextBackend) Name() string { return "rawtext" }

// Attempt reads the staged payload and keeps printable runs of text.
func (b *RawTextBackend) Attempt(ctx context.Context, doc document.Document) (Draft, error) {
	if err := ctx.Err(); err != nil {
		return Draft{}, services.Wrap(services.ErrTimeout, "extraction", b.Name(), "deadline exceeded before read", err)
	}
	if strings.TrimSpace(doc.ContentPath) == "" {
		return Draft{}, services.Wrap(services.ErrValidation, "extraction", b.Name(), "document has no staged payload", nil)
	}

	data, err := os.ReadFile(doc.ContentPath)
	if err != nil {
		return Draft{}, services.Wrap(services.ErrPermanent, "extraction", b.Name(), "read staged payload", err)
	}

	content := salvagePrintable(data)
	if content == "" {
		return Draft{}, services.Wrap(services.ErrPermanent, "extraction", b.Name(), "payload contains no printable text", nil)
	}
	return Draft{Content: content}, nil
}

// salvagePrintable keeps printable runs of at least 4 characters, joining
// them with single spaces. Shorter runs inside binary payloads are almost
// always encoding noise.
func salvagePrintable(data []byte) string {
	var (
		out strings.Builder
		run strings.Builder
	)
	flush := func() {
		if run.Len() >= 4 {
			if out.Len() > 0 {
				out.WriteByte(' ')
			}
			out.WriteString(run.String())
		}
		run.Reset()
	}
	for _, b := range data {
		r := rune(b)
		if r < unicode.MaxASCII && (unicode.IsPrint(r) || r == '\n' || r == '\t') {
			run.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return strings.TrimSpace(out.String())
}
