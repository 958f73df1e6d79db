// Package search builds the query parameters of a Jobsuche listing search.
//
// Criteria are staged on a mutable Builder and finalized into an immutable
// Options value:
//
//	opts := search.NewBuilder().
//		JobTitle("Softwareentwickler").
//		Location("Berlin").
//		Radius(50).
//		WorkingTimes(search.Vollzeit, search.HeimTelearbeit).
//		Size(25).
//		Build()
//
//	query, ok := opts.Encode() // "arbeitszeit=vz%3Bho&size=25&umkreis=50&..."
//
// Encoding is canonical: parameters are emitted sorted by name, so two
// Options holding the same assignments always produce the same string
// regardless of the order they were set in. An Options without any
// assignment encodes to no query string at all (ok == false).
//
// Numeric limits enforced by the service are applied when a value is set:
// Size and PublishedWithinDays are capped at 100 without error.
package search
