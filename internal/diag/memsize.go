// Package diag provides a heap-usage report for the live chain state,
// useful when the UTXO set or mempool is suspected of growing unbounded
// (SPEC_FULL.md component L).
package diag

import (
	"github.com/fjl/memsize"
)

// Report wraps memsize's scan result for a value reachable from the
// orchestrator's state: the total retained size, and memsize's own text
// breakdown of it.
type Report struct {
	TotalBytes uintptr
	Breakdown  string
}

// Scan walks v's reachable object graph and summarizes its retained size.
// Intended for occasional operator-triggered diagnostics, not a hot path:
// memsize.Scan stops the world briefly while it walks.
func Scan(v interface{}) Report {
	sizes := memsize.Scan(v)
	return Report{
		TotalBytes: sizes.Total,
		Breakdown:  sizes.Report(),
	}
}
