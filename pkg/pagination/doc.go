// Package pagination plans, fetches and merges a paginated collection.
//
// The remote library endpoint pages by offset and count. This package:
//   - Plans the offset/count windows for a desired total (with overfetch)
//   - Fetches every page through a retrying fetcher, starting at most one
//     request per pacing interval with a bounded number in flight
//   - Returns one slot per page in submission order; pages that exhausted
//     their retries are empty, never an error
//   - Merges pages into a sorted, duplicate-free collection
//
// Example usage:
//
//	pages := pagination.Plan(10000, 4000, pagination.DefaultOverfetchRatio)
//	descriptors := pagination.Descriptors(pages, buildDescriptor)
//	result := pagination.RunBatch(ctx, transport, client.JSONDecoder[[]Deck](),
//		descriptors, pagination.DefaultConfig(), client.DefaultRetryConfig())
//	decks := pagination.Merge(result)
package pagination
