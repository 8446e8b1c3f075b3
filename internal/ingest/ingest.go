// Package ingest lists and downloads invoice documents from a folder-like store.
package ingest

import "context"

// DocumentRef identifies a document in a store. ID is opaque and stable
// across runs; it is what the tabular store records as known.
type DocumentRef struct {
	ID   string
	Name string
	URL  string
}

// Source is the document store the pipeline depends on.
type Source interface {
	// ListDocuments returns every PDF under folder, recursively.
	ListDocuments(ctx context.Context, folder string) ([]DocumentRef, error)
	// Download returns the bytes of a listed document.
	Download(ctx context.Context, id string) ([]byte, error)
}
