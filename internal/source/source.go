// Package source defines the boundary to source-content acquisition.
// Subtitle downloaders, document uploaders and similar collaborators live
// behind the Resolver interface; the pipeline only ever sees resolved
// Content values.
package source

import (
	"context"
	"errors"
	"strings"
)

// Kind distinguishes the two supported source shapes.
type Kind string

// Possible source kinds
const (
	// KindTranscript is plain transcript text submitted inline
	KindTranscript Kind = "transcript"

	// KindDocument is a reference to an already-uploaded document,
	// passed through to providers that support file-augmented calls
	KindDocument Kind = "document"
)

// Common errors returned by the source package
var (
	ErrEmptySource       = errors.New("source reference cannot be empty")
	ErrUnsupportedSource = errors.New("unsupported source kind")
)

// Content is a resolved source item ready to be handed to the provider
// client. Exactly one of Text or FileURI is populated, matching Kind.
type Content struct {
	Kind     Kind
	Text     string
	FileURI  string
	MIMEType string
}

// Resolver turns an opaque submitted reference into provider-ready Content.
type Resolver interface {
	Resolve(ctx context.Context, kind Kind, ref string) (Content, error)
}

// InlineResolver resolves transcript references by treating the reference
// itself as the transcript text, and document references as pre-uploaded
// file URIs. It is the default resolver; richer acquirers (subtitle
// download, PDF upload) implement Resolver the same way.
type InlineResolver struct{}

// NewInlineResolver creates an InlineResolver.
func NewInlineResolver() *InlineResolver {
	return &InlineResolver{}
}

// Resolve implements the Resolver interface.
func (r *InlineResolver) Resolve(ctx context.Context, kind Kind, ref string) (Content, error) {
	if strings.TrimSpace(ref) == "" {
		return Content{}, ErrEmptySource
	}

	switch kind {
	case KindTranscript:
		return Content{Kind: KindTranscript, Text: ref}, nil
	case KindDocument:
		return Content{Kind: KindDocument, FileURI: ref, MIMEType: "application/pdf"}, nil
	default:
		return Content{}, ErrUnsupportedSource
	}
}
