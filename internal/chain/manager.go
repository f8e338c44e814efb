package chain

import (
	"context"

	"go.uber.org/multierr"

	"github.com/poenetwork/node/internal/chain/utxocache"
	"github.com/poenetwork/node/internal/common"
	"github.com/poenetwork/node/internal/diag"
	"github.com/poenetwork/node/internal/log"
	"github.com/poenetwork/node/internal/metrics"
	"github.com/poenetwork/node/internal/params"
)

var managerLogger = log.NewModuleLogger(log.ModuleChain)

// Manager is the chain-state orchestrator (component F): it owns the
// authoritative ChainState and serializes every mutation through a single
// goroutine's mailbox, the idiom the teacher's worker.update/wait loop uses
// for its own mining pipeline. No other goroutine may read or write state
// directly; every operation is a message round-tripped through run().
type Manager struct {
	mailbox chan command
	quit    chan struct{}

	blobs     BlobStore
	inventory InventoryStore
	peers     PeerLayer
	proofs    ProofVerifier
	consts    params.ConsensusConstants

	// coldBackup and reportIndex are optional secondary collaborators
	// (SPEC_FULL.md §4.I, §4.K); either may be nil, in which case the
	// corresponding side effect in promote() is skipped.
	coldBackup  ColdBackup
	reportIndex ReportIndex

	// Owned exclusively by run(); never touched from another goroutine.
	state        *ChainState
	dataRequests *DataRequestPool
	arbiter      *CandidateArbiter
	pending      *PendingBlockBuffer
	utxoCache    *utxocache.Accelerator
	currentEpoch uint32
	syncedTicks  int
}

// command is the mailbox envelope every public Manager method sends. It has
// no reply field: run writes any result into variables captured by the
// caller's closure, and submit waits for it to finish.
type command struct {
	run   func(m *Manager)
}

// NewManager constructs the orchestrator and starts its mailbox goroutine.
// state is rehydrated by the caller beforehand (see LoadOrInit); an empty
// *ChainState with ChainInfo == nil represents the cold-boot case
// (spec.md §7: "missing chain-state on boot is not an error"). coldBackup
// and reportIndex are optional (nil disables the corresponding side
// effect); utxoCache is optional and, if non-nil, is warmed from state's
// UTXO set immediately.
func NewManager(state *ChainState, dataRequests *DataRequestPool, blobs BlobStore, inventory InventoryStore, peers PeerLayer, proofs ProofVerifier, consts params.ConsensusConstants, coldBackup ColdBackup, reportIndex ReportIndex, utxoCache *utxocache.Accelerator) *Manager {
	if dataRequests == nil {
		dataRequests = NewDataRequestPool()
	}
	m := &Manager{
		mailbox:      make(chan command, 64),
		quit:         make(chan struct{}),
		blobs:        blobs,
		inventory:    inventory,
		peers:        peers,
		proofs:       proofs,
		consts:       consts,
		coldBackup:   coldBackup,
		reportIndex:  reportIndex,
		state:        state,
		dataRequests: dataRequests,
		arbiter:      NewCandidateArbiter(),
		pending:      NewPendingBlockBuffer(),
		utxoCache:    utxoCache,
	}
	if m.utxoCache != nil {
		m.warmUTXOCache()
	}
	go m.run()
	return m
}

// warmUTXOCache repopulates the accelerator from the authoritative UTXO
// set, called on startup and after every candidate promotion swaps in a
// new one (spec.md §4.C's "current_utxo" replacement, SPEC_FULL.md §4.J).
func (m *Manager) warmUTXOCache() {
	m.utxoCache.Reset()
	for ptr := range m.state.UTXOSet {
		m.utxoCache.MarkSpendable(ptr.TransactionID.Bytes, ptr.OutputIndex)
	}
}

// Stop terminates the mailbox goroutine. It does not persist chain state;
// what is on disk is whatever the most recent promotion wrote.
func (m *Manager) Stop() {
	close(m.quit)
}

func (m *Manager) run() {
	for {
		select {
		case cmd := <-m.mailbox:
			cmd.run(m)
		case <-m.quit:
			return
		}
	}
}

// submit enqueues fn on the mailbox and blocks until it has run, the
// request/response round trip every public method below is built from.
func (m *Manager) submit(fn func(m *Manager)) {
	done := make(chan struct{})
	m.mailbox <- command{run: func(m *Manager) {
		fn(m)
		close(done)
	}}
	<-done
}

// LoadOrInit rehydrates state from the blob store at key "chain-state", or
// returns fresh genesis defaults if no value is present (spec.md §3, §7).
// The fresh-genesis ChainState carries ChainInfo == nil: which network it
// runs on and its consensus constants are only known once a block is
// actually promoted (promote() sets them from the manager's own consts the
// first time), matching the optional chain_info in the data model.
func LoadOrInit(ctx context.Context, blobs BlobStore) (*ChainState, *DataRequestPool, error) {
	raw, found, err := blobs.Get(ctx, ChainStateKey)
	if err != nil {
		return nil, nil, newStorageFailure(err)
	}
	if !found {
		return NewGenesisChainState(), NewDataRequestPool(), nil
	}

	var persisted persistedChainState
	if err := decodePersistedChainState(raw, &persisted); err != nil {
		return nil, nil, newStorageFailure(err)
	}
	return persisted.State, persisted.DataRequests, nil
}

// SetEpoch advances current_epoch and, if there is a best candidate for the
// epoch just closed, promotes it (spec.md §4.F). Side effects run in the
// commit order spec.md §4.F and §5 require: mutate state, persist the
// block to inventory, persist chain-state (mailbox-blocking), drain and
// persist finished data-request reports, then broadcast.
func (m *Manager) SetEpoch(ctx context.Context, epoch uint32) error {
	var opErr error
	m.submit(func(m *Manager) {
		closedEpoch := epoch - 1
		candidate, ok := m.arbiter.Best()
		if ok && candidate.Block.Epoch() == closedEpoch {
			opErr = m.promote(ctx, candidate)
		}

		m.currentEpoch = epoch
		m.arbiter.SetEpoch(epoch)
		if m.state.ChainInfo != nil {
			m.pending.ClearIfStaleTip(m.state.ChainInfo.HighestBlockCheckpoint.HashPrevBlock)
		}
	})
	return opErr
}

func (m *Manager) promote(ctx context.Context, candidate *Candidate) error {
	block := candidate.Block
	blockHash := block.Hash(m.consts.HashAlgorithm)

	m.state.UTXOSet = candidate.ShadowUTXOSet
	m.dataRequests = candidate.ShadowDataRequests
	m.dataRequests.UpdateDataRequestStages(block.Epoch())
	if m.utxoCache != nil {
		m.warmUTXOCache()
	}

	if m.state.ChainInfo == nil {
		m.state.ChainInfo = &ChainInfo{Environment: m.consts.Environment, ConsensusConstants: m.consts}
	}
	m.state.ChainInfo.HighestBlockCheckpoint = CheckpointBeacon{Checkpoint: block.Epoch(), HashPrevBlock: blockHash}
	m.state.BlockChainIndex[block.Epoch()] = blockHash

	for _, tx := range block.Txns {
		delete(m.state.Mempool, tx.Hash(m.consts.HashAlgorithm))
	}

	var failures error

	if err := m.inventory.AddItem(ctx, InventoryItem{Kind: InventoryBlock, Block: &block}); err != nil {
		managerLogger.Error("persist block to inventory failed", "err", err)
		metrics.StorageFailures.WithLabelValues("inventory").Inc()
		failures = multierr.Append(failures, err)
	}

	if err := m.persistChainState(ctx); err != nil {
		managerLogger.Error("persist chain-state failed", "err", err)
		metrics.StorageFailures.WithLabelValues("chain-state").Inc()
		failures = multierr.Append(failures, err)
	}

	for _, report := range m.dataRequests.FinishedDataRequests() {
		key, err := DataRequestReportKey(report.Pointer)
		if err != nil {
			continue
		}
		value, err := encodeDataRequestReport(report)
		if err != nil {
			continue
		}
		if err := m.blobs.Put(ctx, key, value); err != nil {
			managerLogger.Error("persist data-request report failed", "pointer", report.Pointer, "err", err)
			metrics.StorageFailures.WithLabelValues("data-request-report").Inc()
		}
		if m.reportIndex != nil {
			m.reportIndex.Record(report)
		}
	}

	if err := m.peers.Broadcast(ctx, SendInventoryItem{Item: InventoryItem{Kind: InventoryBlock, Block: &block}}); err != nil {
		managerLogger.Warn("broadcast failed", "err", err)
	}

	m.pending.ClearIfStaleTip(blockHash)

	metrics.BlocksConsolidated.Inc()
	metrics.MempoolSize.Set(float64(len(m.state.Mempool)))
	metrics.UTXOSetSize.Set(float64(len(m.state.UTXOSet)))
	for stage, count := range m.dataRequests.CountByStage() {
		metrics.DataRequestsInFlight.WithLabelValues(stage.String()).Set(float64(count))
	}

	if failures != nil {
		// Storage failures are logged and swallowed at this version
		// (spec.md §7): in-memory state remains authoritative. failures is
		// kept as a multierr so the aggregate is still inspectable by log
		// sinks that unwrap it, even though promote itself never returns it.
		managerLogger.Warn("promote completed with swallowed storage failures", "err", failures)
	}
	return nil
}

// persistChainState encodes and writes the authoritative chain state, then
// mirrors the same bytes to cold storage on a best-effort basis when a
// ColdBackup collaborator is configured (SPEC_FULL.md §4.I). The cold
// mirror never gates the primary persist: its own failure is logged by the
// ColdBackup implementation and otherwise ignored here.
func (m *Manager) persistChainState(ctx context.Context) error {
	raw, err := encodePersistedChainState(persistedChainState{State: m.state, DataRequests: m.dataRequests})
	if err != nil {
		return err
	}
	if err := m.blobs.Put(ctx, ChainStateKey, raw); err != nil {
		return err
	}
	if m.coldBackup != nil {
		_ = m.coldBackup.Upload(ctx, string(ChainStateKey), raw)
	}
	return nil
}

// AddBlock routes an arriving block through the candidate arbiter and, if
// its predecessor is unknown, the pending-block buffer (spec.md §4.D/E).
func (m *Manager) AddBlock(ctx context.Context, block Block) error {
	var opErr error
	m.submit(func(m *Manager) {
		opErr = m.addBlockLocked(ctx, block)
	})
	return opErr
}

func (m *Manager) addBlockLocked(ctx context.Context, block Block) error {
	tipHash, tipEpoch := common.ZeroHash, uint32(0)
	genesisHash := m.consts.GenesisHash
	if m.state.ChainInfo != nil {
		tipHash = m.state.ChainInfo.HighestBlockCheckpoint.HashPrevBlock
		tipEpoch = m.state.ChainInfo.HighestBlockCheckpoint.Checkpoint
	}

	if m.state.ChainInfo != nil && block.Hash(m.consts.HashAlgorithm).Equal(tipHash) {
		return &Error{Kind: BlockAlreadyExists}
	}

	if !m.proofs.VerifyProof(block.Epoch(), block.Proof) {
		return newValidationFailure("proof_of_eligibility")
	}

	decision := m.arbiter.TryAdmit(block, tipHash, genesisHash, tipEpoch, m.state.UTXOSet, m.dataRequests, m.consts)
	switch decision {
	case decisionWins:
		// A freshly-admitted block may be the missing predecessor a parked
		// orphan is waiting on (spec.md's S2 scenario: "on admission of B6
		// the parked B7 is re-fed"). Resolve and recursively readmit
		// directly against the pending buffer and addBlockLocked rather
		// than through AddBlock/submit: this closure is already running
		// inside the mailbox goroutine, and routing back through submit
		// would deadlock waiting on itself.
		blockHash := block.Hash(m.consts.HashAlgorithm)
		if resolved, ok := m.pending.ResolveByHash(blockHash); ok {
			return m.addBlockLocked(ctx, resolved)
		}
		return nil
	case decisionUnknownPredecessor:
		if m.synced() && block.Epoch() == m.currentEpoch {
			return m.pending.Park(ctx, block, m.peers)
		}
		return nil
	case decisionMerkleMismatch, decisionInvalidTransactions:
		metrics.BlocksRejected.WithLabelValues(decisionRuleName(decision)).Inc()
		return newValidationFailure(decisionRuleName(decision))
	default:
		metrics.BlocksRejected.WithLabelValues(decisionRuleName(decision)).Inc()
		return nil
	}
}

func decisionRuleName(d arbiterDecision) string {
	switch d {
	case decisionMerkleMismatch:
		return "merkle_root"
	case decisionInvalidTransactions:
		return "transaction_validity"
	case decisionFutureEpoch:
		return "future_epoch"
	case decisionStaleEpoch:
		return "stale_epoch"
	default:
		return "unknown"
	}
}

// AddTransaction runs the restricted single-transaction validation against
// the live UTXO and, on success, inserts tx into the mempool (spec.md §4.F).
// When a utxoCache accelerator is configured, it is consulted first: a
// transaction none of whose inputs are known-spendable in the cache is
// rejected without ever touching the authoritative UTXO map (SPEC_FULL.md
// §4.J).
func (m *Manager) AddTransaction(tx Transaction) error {
	var opErr error
	m.submit(func(m *Manager) {
		if m.utxoCache != nil && !m.anyInputMaybeSpendable(tx) {
			opErr = newValidationFailure("transaction_value")
			return
		}
		if !validateSingleTransaction(m.state.UTXOSet, tx) {
			opErr = newValidationFailure("transaction_value")
			return
		}
		m.state.Mempool[tx.Hash(m.consts.HashAlgorithm)] = tx
	})
	return opErr
}

func (m *Manager) anyInputMaybeSpendable(tx Transaction) bool {
	for _, in := range tx.Inputs {
		ptr := in.Pointer()
		if m.utxoCache.MaybeSpendable(ptr.TransactionID.Bytes, ptr.OutputIndex) {
			return true
		}
	}
	return false
}

// GetBlockByHash resolves a block through the inventory store.
func (m *Manager) GetBlockByHash(ctx context.Context, hash common.Hash) (Block, error) {
	item, found, err := m.inventory.GetItem(ctx, hash)
	if err != nil {
		return Block{}, newStorageFailure(err)
	}
	if !found || item.Block == nil {
		return Block{}, &Error{Kind: BlockDoesNotExist}
	}
	return *item.Block, nil
}

// GetBlockByEpoch resolves an epoch through the block-chain index, then the
// inventory store.
func (m *Manager) GetBlockByEpoch(ctx context.Context, epoch uint32) (Block, error) {
	var hash common.Hash
	var ok bool
	m.submit(func(m *Manager) {
		hash, ok = m.state.BlockChainIndex[epoch]
	})
	if !ok {
		return Block{}, &Error{Kind: BlockDoesNotExist}
	}
	return m.GetBlockByHash(ctx, hash)
}

// GetTipBeacon returns the current chain tip's checkpoint beacon, used in
// the peer handshake.
func (m *Manager) GetTipBeacon() CheckpointBeacon {
	var beacon CheckpointBeacon
	m.submit(func(m *Manager) {
		if m.state.ChainInfo != nil {
			beacon = m.state.ChainInfo.HighestBlockCheckpoint
		}
	})
	return beacon
}

// DiscardKnownInventory filters entries by absence from the pending-block
// buffer, returning only the hashes the caller should still request
// (spec.md §4.F).
func (m *Manager) DiscardKnownInventory(entries []common.Hash) []common.Hash {
	var missing []common.Hash
	m.submit(func(m *Manager) {
		for _, h := range entries {
			if parked, ok := m.pending.Peek(); ok && parked.Hash(m.consts.HashAlgorithm).Equal(h) {
				continue
			}
			missing = append(missing, h)
		}
	})
	return missing
}

// MarkSyncedTick records whether the tip advanced during the epoch just
// closed, feeding the sync driver's synced/mine flags (spec.md §4.G). F
// toggles this externally based on whether the tip advanced in the last
// two epochs.
func (m *Manager) MarkSyncedTick(tipAdvanced bool) {
	m.submit(func(m *Manager) {
		if tipAdvanced {
			m.syncedTicks++
		} else {
			m.syncedTicks = 0
		}
	})
}

func (m *Manager) synced() bool {
	return m.syncedTicks >= 2
}

// Synced reports whether the tip has advanced in each of the last two
// epochs, the condition the sync driver's `mine` flag gates on.
func (m *Manager) Synced() bool {
	var s bool
	m.submit(func(m *Manager) { s = m.synced() })
	return s
}

// DebugMemSize scans the live ChainState's retained heap size, a
// mailbox-serialized operator diagnostic (SPEC_FULL.md §4.L) meant to be
// triggered rarely, e.g. from a signal handler, never on a request path.
func (m *Manager) DebugMemSize() diag.Report {
	var report diag.Report
	m.submit(func(m *Manager) {
		report = diag.Scan(m.state)
	})
	return report
}
