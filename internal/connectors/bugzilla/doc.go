// Package bugzilla harvests bug records from a Bugzilla server.
//
// It is the fullest source in the pipeline: a cursor-driven listing
// loop over buglist.cgi CSV pages, batched show_bug.cgi XML detail
// fetches, a cache-or-fetch of per-bug show_activity.cgi change
// histories, a mini-parser that recovers structured field transitions
// from the activity HTML, and an enricher that derives the identity
// and numeric fields of the enriched tier.
package bugzilla
