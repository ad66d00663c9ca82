package port

import "context"

// RawDocument is what the upstream text-producing collaborator (OCR,
// pdf extraction) hands us: UTF-8 text plus a page count when known.
// Pages is zero when the source cannot tell.
type RawDocument struct {
	Text  string
	Pages int
}

// TextSource fetches raw text for a document reference. Implementations
// must honor context cancellation; processing deadlines propagate through
// the supplied context.
type TextSource interface {
	Fetch(ctx context.Context, ref string) (RawDocument, error)
}
