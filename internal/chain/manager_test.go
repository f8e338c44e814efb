package chain

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poenetwork/node/internal/common"
	"github.com/poenetwork/node/internal/params"
)

type memoryBlobStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryBlobStore() *memoryBlobStore {
	return &memoryBlobStore{data: make(map[string][]byte)}
}

func (s *memoryBlobStore) Put(_ context.Context, key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (s *memoryBlobStore) Get(_ context.Context, key []byte) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[string(key)]
	return v, ok, nil
}

type memoryInventoryStore struct {
	mu   sync.Mutex
	data map[common.Hash]InventoryItem
}

func newMemoryInventoryStore() *memoryInventoryStore {
	return &memoryInventoryStore{data: make(map[common.Hash]InventoryItem)}
}

func (s *memoryInventoryStore) AddItem(_ context.Context, item InventoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[item.Hash(common.SHA256)] = item
	return nil
}

func (s *memoryInventoryStore) GetItem(_ context.Context, hash common.Hash) (InventoryItem, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.data[hash]
	return item, ok, nil
}

// TestColdBootStartsFromFreshGenesisState covers S6: LoadOrInit against an
// empty blob store must not error and must hand back genesis defaults with
// no chain_info ("node starts ... no chain_info").
func TestColdBootStartsFromFreshGenesisState(t *testing.T) {
	blobs := newMemoryBlobStore()
	state, dataRequests, err := LoadOrInit(context.Background(), blobs)
	require.NoError(t, err)
	assert.NotNil(t, state)
	assert.NotNil(t, dataRequests)
	assert.Nil(t, state.ChainInfo)
	assert.Empty(t, state.UTXOSet)
	assert.Empty(t, state.Mempool)
}

func newTestManager(t *testing.T) (*Manager, *memoryBlobStore) {
	t.Helper()
	consts := testConsts()
	blobs := newMemoryBlobStore()
	inventory := newMemoryInventoryStore()
	state := NewChainState(ChainInfo{ConsensusConstants: consts})
	m := NewManager(state, NewDataRequestPool(), blobs, inventory, &recordingPeerLayer{}, StubProofVerifier{}, consts, nil, nil, nil)
	t.Cleanup(m.Stop)
	return m, blobs
}

// newColdBootTestManager builds a Manager the way the cold-boot path does:
// ChainInfo starts nil, exercising the promote() branch that first
// populates it.
func newColdBootTestManager(t *testing.T, consts params.ConsensusConstants) (*Manager, *memoryBlobStore) {
	t.Helper()
	blobs := newMemoryBlobStore()
	inventory := newMemoryInventoryStore()
	m := NewManager(NewGenesisChainState(), NewDataRequestPool(), blobs, inventory, &recordingPeerLayer{}, StubProofVerifier{}, consts, nil, nil, nil)
	t.Cleanup(m.Stop)
	return m, blobs
}

// TestAddBlockFromColdBootAdmitsGenesisChild covers S6 through Manager: a
// cold-started manager (ChainInfo == nil) must admit the block whose
// predecessor is the genesis hash and populate ChainInfo on promotion.
func TestAddBlockFromColdBootAdmitsGenesisChild(t *testing.T) {
	consts := testConsts()
	m, _ := newColdBootTestManager(t, consts)
	ctx := context.Background()

	require.NoError(t, m.SetEpoch(ctx, 1))
	block := makeBlock(1, consts.GenesisHash, []Transaction{mintTx(consts.InitialReward)}, consts.HashAlgorithm, 5)
	require.NoError(t, m.AddBlock(ctx, block))
	require.NoError(t, m.SetEpoch(ctx, 2))

	beacon := m.GetTipBeacon()
	assert.Equal(t, uint32(1), beacon.Checkpoint)
}

// TestAddBlockResolvesParkedOrphanOnPredecessorArrival covers S2 through
// Manager: admitting a block automatically resolves any parked orphan whose
// predecessor it is, and re-attempts admission for it right away, without
// needing an external caller to notice and re-submit it by hand. Since
// admission only recognizes the persisted tip or genesis as a valid
// predecessor (spec.md §4.D), and the newly-admitted block hasn't been
// promoted yet, the re-attempt itself lands back in decisionUnknownPredecessor
// and re-parks — observable as a second anycast for the same predecessor.
// The orphan fully resolves on a later AddBlock once the predecessor's
// promotion has made it the real tip.
func TestAddBlockResolvesParkedOrphanOnPredecessorArrival(t *testing.T) {
	consts := testConsts()
	m, _ := newTestManager(t)
	ctx := context.Background()

	peers := &recordingPeerLayer{}
	m.submit(func(m *Manager) {
		m.currentEpoch = 6
		m.arbiter.SetEpoch(6)
		m.syncedTicks = 2
		m.peers = peers
	})

	predecessor := makeBlock(5, common.ZeroHash, []Transaction{mintTx(consts.InitialReward)}, consts.HashAlgorithm, 5)
	orphan := makeBlock(6, predecessor.Hash(consts.HashAlgorithm), []Transaction{mintTx(consts.InitialReward)}, consts.HashAlgorithm, 5)

	require.NoError(t, m.AddBlock(ctx, orphan))
	require.Len(t, peers.anycasts, 1, "the orphan's unknown predecessor must be anycast for")

	require.NoError(t, m.AddBlock(ctx, predecessor))

	require.Len(t, peers.anycasts, 2, "admitting the predecessor must resolve and re-attempt the parked orphan, producing a second anycast")
	assert.True(t, peers.anycasts[1].RequestBlockHash.Equal(predecessor.Hash(consts.HashAlgorithm)), "the re-attempted orphan still requests the same (not yet promoted) predecessor")

	var best *Candidate
	m.submit(func(m *Manager) { best, _ = m.arbiter.Best() })
	require.NotNil(t, best)
	assert.Equal(t, uint32(5), best.Block.Epoch(), "the predecessor itself must have become the arbiter's best candidate")
}

// TestAddTransactionThenPromotePurgesMempool covers S4: a mempool
// transaction included in a promoted block must be purged from the mempool.
func TestAddTransactionThenPromotePurgesMempool(t *testing.T) {
	consts := testConsts()
	m, _ := newTestManager(t)
	ctx := context.Background()

	mint := mintTx(consts.InitialReward)
	mintHash := mint.Hash(consts.HashAlgorithm)
	mintPtr := OutputPointer{TransactionID: mintHash, OutputIndex: 0}

	spend := valueTx(mintPtr, consts.InitialReward)
	// Seed the live UTXO set directly so AddTransaction's restricted
	// validation (sum(inputs) >= sum(outputs) against the live pool) admits
	// it ahead of the block that actually spends the mint output.
	m.submit(func(m *Manager) {
		m.state.UTXOSet[mintPtr] = mint.Outputs[0]
	})

	require.NoError(t, m.AddTransaction(spend))

	var mempoolSize int
	m.submit(func(m *Manager) { mempoolSize = len(m.state.Mempool) })
	assert.Equal(t, 1, mempoolSize)

	require.NoError(t, m.SetEpoch(ctx, 1))
	block := makeBlock(1, common.ZeroHash, []Transaction{mint, spend}, consts.HashAlgorithm, 5)
	require.NoError(t, m.AddBlock(ctx, block))
	require.NoError(t, m.SetEpoch(ctx, 2))

	m.submit(func(m *Manager) { mempoolSize = len(m.state.Mempool) })
	assert.Equal(t, 0, mempoolSize, "a transaction consolidated into the canonical chain must be purged from the mempool")

	beacon := m.GetTipBeacon()
	assert.Equal(t, uint32(1), beacon.Checkpoint)
}

// TestAddTransactionRejectsOverspendAgainstLiveUTXO covers S3's mempool-side
// half: a transaction spending more than the live UTXO provides is rejected
// before it ever reaches a block.
func TestAddTransactionRejectsOverspendAgainstLiveUTXO(t *testing.T) {
	m, _ := newTestManager(t)
	ptr := OutputPointer{OutputIndex: 0}
	tx := Transaction{
		Inputs:  []Input{ValueTransferInput{ptr}},
		Outputs: []Output{ValueTransferOutput{Amount: 1}},
	}
	err := m.AddTransaction(tx)
	require.Error(t, err)
	chainErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, ValidationFailure, chainErr.Kind)
}
