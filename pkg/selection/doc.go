// Package selection holds the cross-page row selection model.
//
// A Store keeps the set of selected record ids together with a minimal
// projection of each selected record, so selections survive navigation to
// pages that are no longer loaded. Only SelectRows and DeselectRows mutate
// it.
//
// Reconcile turns the selection a table reports for its current page into
// store mutations without touching ids that live on other pages.
//
// BulkSelector selects the first N records of the catalog by fetching
// pages 1..ceil(N/pageSize) in order and applying them in a single
// SelectRows call. A failed fetch applies nothing.
package selection
