package pagination

import (
	"context"
	"encoding/json"
)

// Page is the result of one list request.
type Page[T any] struct {
	// Items in server order. The length relative to the requested size is
	// the only end-of-results signal.
	Items []T

	// Total is the server-reported number of results, if present.
	Total *int64

	// Number and Size echo the request, if the server includes them.
	Number *int64
	Size   *int64

	// Facets is the raw filter metadata blob.
	Facets json.RawMessage
}

// PageFetcher fetches a single page of results.
// Page numbers start at 1.
type PageFetcher[T any] interface {
	FetchPage(ctx context.Context, page, size int) (*Page[T], error)
}

// FetcherFunc adapts a function to PageFetcher.
type FetcherFunc[T any] func(ctx context.Context, page, size int) (*Page[T], error)

// FetchPage calls f.
func (f FetcherFunc[T]) FetchPage(ctx context.Context, page, size int) (*Page[T], error) {
	return f(ctx, page, size)
}
