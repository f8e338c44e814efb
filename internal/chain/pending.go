package chain

import (
	"context"

	"github.com/poenetwork/node/internal/common"
	"github.com/poenetwork/node/internal/log"
)

var pendingLogger = log.NewModuleLogger(log.ModuleChain)

// PendingBlockBuffer parks at most one orphaned candidate, keyed by its
// predecessor hash, and requests the missing predecessor via the peer
// layer. A single slot suffices because only at-tip extension is supported
// (spec.md §4.E).
type PendingBlockBuffer struct {
	parked         *Block
	predecessorHash common.Hash
	parkedEpoch    uint32
}

// NewPendingBlockBuffer returns an empty buffer.
func NewPendingBlockBuffer() *PendingBlockBuffer {
	return &PendingBlockBuffer{}
}

// Park stores block and anycasts a request for its missing predecessor.
// The caller (F) has already confirmed the block arrived while synced and
// its epoch equals the current epoch (spec.md §4.E).
func (p *PendingBlockBuffer) Park(ctx context.Context, block Block, peers PeerLayer) error {
	pred := block.PredecessorHash()
	p.parked = &block
	p.predecessorHash = pred
	p.parkedEpoch = block.Epoch()

	correlationID := newCorrelationID()
	pendingLogger.Info("parked orphan block, requesting predecessor", "predecessor", pred.String(), "correlation_id", correlationID)
	return peers.Anycast(ctx, AnycastMessage{RequestBlockHash: &pred, CorrelationID: correlationID})
}

// ResolveByHash reports whether newBlock's hash matches the parked block's
// predecessor; if so it returns the parked block for re-admission and
// clears the slot (spec.md §4.E: "if the parked block's predecessor_hash
// equals the new block's hash, the parked block is re-fed").
func (p *PendingBlockBuffer) ResolveByHash(newBlockHash common.Hash) (Block, bool) {
	if p.parked == nil || !p.predecessorHash.Equal(newBlockHash) {
		return Block{}, false
	}
	resolved := *p.parked
	p.Clear()
	return resolved, true
}

// ClearIfStaleTip evicts the parked block on epoch change unless its
// predecessor is the new tip (spec.md §4.F: "Clear ... any parked block
// whose predecessor is not the new tip").
func (p *PendingBlockBuffer) ClearIfStaleTip(newTipHash common.Hash) {
	if p.parked != nil && !p.predecessorHash.Equal(newTipHash) {
		p.Clear()
	}
}

// Clear empties the slot unconditionally.
func (p *PendingBlockBuffer) Clear() {
	p.parked = nil
	p.predecessorHash = common.ZeroHash
	p.parkedEpoch = 0
}

// Peek returns the currently parked block, if any, without resolving it.
func (p *PendingBlockBuffer) Peek() (Block, bool) {
	if p.parked == nil {
		return Block{}, false
	}
	return *p.parked, true
}
