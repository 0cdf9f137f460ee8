// Package pagination fetches contiguous ranges of artwork pages.
//
// Bulk selection needs the first N records in the API's native order, so a
// range is always returned ordered by page number and concatenated in that
// order. By default pages are requested one after another; with
// MaxConcurrency > 1 a worker pool fetches them in parallel and the results
// are reassembled by page index before they are returned, never by
// completion order.
//
// Example usage:
//
//	fetcher := pagination.NewRangeFetcher(artworkClient, pagination.DefaultConfig())
//	pages, err := fetcher.FetchRange(ctx, 1, 3, 10)
//	records := pagination.Concat(pages)
//
// The range fetcher:
//   - Applies a per-page timeout
//   - Stops at the first failed page and returns no pages
//   - Reports the failed page number in a *PageError
package pagination
