// Package analytics implements the Analytics Clients component: paginated
// readers over the insights and usage-log HTTP APIs, exposed as lazy page
// streams.
package analytics

import (
	"context"
	"iter"

	"go.uber.org/zap"
)

// BatchSize is the page size assumed when a caller passes 0 — the
// upstream's own BATCH_SIZE, confirmed in original_source/sifthub's
// analytics clients.
const BatchSize = 100

// MaxPages is the hard safety cap on any single stream: hit it and the
// stream stops and logs a warning rather than spinning forever against a
// misbehaving upstream.
const MaxPages = 1000

// Page is one page of a stream: the items it carried and its 1-based page
// number.
type Page[T any] struct {
	Items []T
	Page  int
}

// FetchPage retrieves a single page of T. Returning fewer than pageSize
// items, or a nil/empty slice, signals end of stream to Stream.
type FetchPage[T any] func(ctx context.Context, page, pageSize int) ([]T, error)

// Stream turns a FetchPage into a lazy, forward-only, non-restartable
// sequence of pages: start at page 1, yield each non-empty response, stop
// when the response is empty or its item count is below pageSize. A fetch
// error is yielded once and ends the stream.
func Stream[T any](ctx context.Context, logger *zap.Logger, pageSize int, fetch FetchPage[T]) iter.Seq2[Page[T], error] {
	if pageSize <= 0 {
		pageSize = BatchSize
	}
	return func(yield func(Page[T], error) bool) {
		for page := 1; page <= MaxPages; page++ {
			items, err := fetch(ctx, page, pageSize)
			if err != nil {
				yield(Page[T]{Page: page}, err)
				return
			}
			if len(items) == 0 {
				return
			}
			if !yield(Page[T]{Items: items, Page: page}, nil) {
				return
			}
			if len(items) < pageSize {
				return
			}
			if page == MaxPages {
				logger.Warn("analytics pagination hit the 1000-page safety cap",
					zap.Int("page_size", pageSize),
				)
			}
		}
	}
}
