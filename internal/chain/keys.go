package chain

import "github.com/poenetwork/node/internal/codec"

// canonicalPointerKey is the deterministic blob-store key for an
// OutputPointer, used to persist and look up data-request reports
// (spec.md §6).
func canonicalPointerKey(ptr OutputPointer) ([]byte, error) {
	return codec.CanonicalBytes(ptr)
}
