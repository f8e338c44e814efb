// Package utxocache implements a fastcache-backed existence accelerator for
// UTXO pointers (SPEC_FULL.md component J): a fast-reject layer the UTXO
// engine's hot path can consult before falling back to the authoritative
// UnspentOutputsPool lookup. It is never authoritative: a hit still has to
// be confirmed against the real map. The cache is not updated by Apply;
// Manager resets and refills it from the live set at startup and after
// every promotion.
//
// Accelerator takes its keys as a raw (TransactionID, OutputIndex) pair
// rather than chain.OutputPointer directly: internal/chain already imports
// this package to wire the cache into Manager, so chain.OutputPointer can't
// also be imported here without a cycle. Callers pass the 32-byte digest
// and index straight off their own OutputPointer.
package utxocache

import (
	"github.com/VictoriaMetrics/fastcache"
)

var present = []byte{1}

// Accelerator wraps a fixed-size fastcache of output-pointer -> presence.
type Accelerator struct {
	cache *fastcache.Cache
}

// New builds an accelerator sized maxBytes, the in-memory budget fastcache
// pre-allocates up front.
func New(maxBytes int) *Accelerator {
	return &Accelerator{cache: fastcache.New(maxBytes)}
}

func key(txID [32]byte, outputIndex uint32) []byte {
	buf := make([]byte, 0, 36)
	buf = append(buf, txID[:]...)
	buf = append(buf, byte(outputIndex>>24), byte(outputIndex>>16), byte(outputIndex>>8), byte(outputIndex))
	return buf
}

// MarkSpendable records that the pointer (txID, outputIndex) is currently
// unspent.
func (a *Accelerator) MarkSpendable(txID [32]byte, outputIndex uint32) {
	a.cache.Set(key(txID, outputIndex), present)
}

// MarkSpent evicts the pointer. Apply does not call it; the cache is
// refreshed wholesale through Reset and MarkSpendable instead.
func (a *Accelerator) MarkSpent(txID [32]byte, outputIndex uint32) {
	a.cache.Del(key(txID, outputIndex))
}

// MaybeSpendable reports whether the pointer was marked and has not since
// been removed. true still has to be confirmed against the authoritative
// UTXO set. fastcache may evict entries under memory pressure, so false
// does not prove that the pointer is absent from that set.
func (a *Accelerator) MaybeSpendable(txID [32]byte, outputIndex uint32) bool {
	return a.cache.Has(key(txID, outputIndex))
}

// Reset clears the accelerator, used when the live UTXO set is replaced
// wholesale (candidate promotion) rather than incrementally updated.
func (a *Accelerator) Reset() {
	a.cache.Reset()
}
