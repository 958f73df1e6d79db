// Package pagination provides a lazy, page-by-page iterator over paginated
// listing endpoints.
//
// The service has no "has more" flag. A page shorter than the requested page
// size is the last one. If the first page reports a total, iteration also
// stops once that many items have been produced. A hard ceiling of MaxPages
// requests guarantees termination against an inconsistent backend.
//
// Example usage:
//
//	it := pagination.New[client.JobListing](ctx, fetcher, pagination.WithPageSize(50))
//	for job, err := range it.All() {
//		if err != nil {
//			return err // the error is always the last element
//		}
//		fmt.Println(job.Refnr)
//	}
//
// The iterator:
//   - Fetches nothing until the first item is requested
//   - Holds at most one page of items in memory
//   - Requests strictly increasing page numbers starting at 1
//   - Stops fetching as soon as the caller stops consuming
//   - Never fetches again after a failed page
//
// An Iterator owns its cursor state and must be consumed by a single
// goroutine. Independent iterators share nothing and may run concurrently.
package pagination
