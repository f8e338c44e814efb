package chain

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/poenetwork/node/internal/common"
	"github.com/poenetwork/node/internal/params"
)

// UnspentOutputsPool is the UTXO set: every output created by a consolidated
// block that has not yet been spent by a later one (spec.md §4.C). It is
// modeled as a map for O(1) lookup/spend/insert; encode/decode go through a
// list of pairs since Output is an interface and msgpack cannot marshal an
// interface-typed map value without a concrete wire shape.
type UnspentOutputsPool map[OutputPointer]Output

type utxoPair struct {
	Pointer OutputPointer
	Output  outputEnvelope
}

var (
	_ msgpack.CustomEncoder = UnspentOutputsPool(nil)
	_ msgpack.CustomDecoder = (*UnspentOutputsPool)(nil)
)

// EncodeMsgpack implements msgpack.CustomEncoder.
func (p UnspentOutputsPool) EncodeMsgpack(enc *msgpack.Encoder) error {
	pairs := make([]utxoPair, 0, len(p))
	for ptr, out := range p {
		oe, err := encodeOutput(out)
		if err != nil {
			return err
		}
		pairs = append(pairs, utxoPair{Pointer: ptr, Output: oe})
	}
	return enc.Encode(pairs)
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (p *UnspentOutputsPool) DecodeMsgpack(dec *msgpack.Decoder) error {
	var pairs []utxoPair
	if err := dec.Decode(&pairs); err != nil {
		return err
	}
	pool := make(UnspentOutputsPool, len(pairs))
	for _, pair := range pairs {
		out, err := decodeOutput(pair.Output)
		if err != nil {
			return err
		}
		pool[pair.Pointer] = out
	}
	*p = pool
	return nil
}

// Get looks up an output by pointer, the primitive the validation kernel and
// the apply/generate_unspent_outputs_pool operation build on.
func (p UnspentOutputsPool) Get(ptr OutputPointer) (Output, bool) {
	out, ok := p[ptr]
	return out, ok
}

// Clone returns a shallow copy, used by the candidate arbiter to derive a
// shadow UTXO set without mutating the authoritative one (spec.md §4.D).
func (p UnspentOutputsPool) Clone() UnspentOutputsPool {
	out := make(UnspentOutputsPool, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// TransactionsPool is the mempool of transactions awaiting inclusion,
// indexed by their identity hash. Transaction already implements its own
// CustomEncoder/CustomDecoder, so a generic map encoding works here.
type TransactionsPool map[common.Hash]Transaction

// BlockChainIndex maps a consolidated epoch to the hash of the block that
// occupies it, the backbone of GetBlockByEpoch (spec.md §4.F).
type BlockChainIndex map[uint32]common.Hash

// ChainInfo is the small slice of ChainState that almost never changes
// across the node's lifetime: which network it runs on, the constants that
// govern it, and where its tip currently sits.
type ChainInfo struct {
	Environment           params.Environment
	ConsensusConstants     params.ConsensusConstants
	HighestBlockCheckpoint CheckpointBeacon
}

// ChainState is the authoritative, single-owner snapshot the orchestrator
// (component F) serializes to storage and the candidate arbiter (component
// D) derives shadow copies from. It holds no data-request pool: the single
// copy lives on Manager and is persisted beside ChainState in
// persistedChainState; callers needing a read-only view take one via
// DataRequestPool.View() rather than cloning the whole structure.
type ChainState struct {
	ChainInfo       *ChainInfo
	UTXOSet         UnspentOutputsPool
	Mempool         TransactionsPool
	BlockChainIndex BlockChainIndex
}

// NewChainState builds a ChainState that already knows its network info,
// used where a caller has chain_info in hand up front (the tests). A state
// rehydrated from the blob store is decoded directly and does not go
// through this constructor.
func NewChainState(info ChainInfo) *ChainState {
	return &ChainState{
		ChainInfo:       &info,
		UTXOSet:         make(UnspentOutputsPool),
		Mempool:         make(TransactionsPool),
		BlockChainIndex: make(BlockChainIndex),
	}
}

// NewGenesisChainState builds the ChainState a cold boot starts from:
// chain_info is nil until the first block is promoted, matching the
// optional chain_info in the data model (spec.md §3) and scenario S6
// ("node starts ... no chain_info").
func NewGenesisChainState() *ChainState {
	return &ChainState{
		UTXOSet:         make(UnspentOutputsPool),
		Mempool:         make(TransactionsPool),
		BlockChainIndex: make(BlockChainIndex),
	}
}

// Candidate is a not-yet-consolidated block together with the shadow UTXO
// set it would produce if consolidated, used by the candidate arbiter
// (component D) to compare same-epoch candidates without mutating
// ChainState (spec.md §4.D).
type Candidate struct {
	Block         Block
	ShadowUTXOSet       UnspentOutputsPool
	ShadowDataRequests *DataRequestPool
}

// String implements fmt.Stringer for debug logging.
func (c Candidate) String() string {
	return fmt.Sprintf("candidate(epoch=%d influence=%d)", c.Block.Epoch(), c.Block.Proof.Influence)
}
