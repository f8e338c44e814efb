package chain

import (
	"github.com/poenetwork/node/internal/common"
	"github.com/poenetwork/node/internal/log"
	"github.com/poenetwork/node/internal/params"
)

var candidateLogger = log.NewModuleLogger(log.ModuleChain)

// CandidateArbiter holds at most one best candidate per current epoch
// (spec.md §4.D). It is not safe for concurrent use; the orchestrator owns
// exclusive access, consistent with the single-threaded-per-actor model.
type CandidateArbiter struct {
	currentEpoch uint32
	best         *Candidate
}

// NewCandidateArbiter starts the arbiter at epoch 0 with no candidate.
func NewCandidateArbiter() *CandidateArbiter {
	return &CandidateArbiter{}
}

// SetEpoch advances the arbiter's notion of "current epoch" and clears any
// stale best candidate, called by the orchestrator in lockstep with its own
// epoch transition.
func (a *CandidateArbiter) SetEpoch(epoch uint32) {
	a.currentEpoch = epoch
	a.best = nil
}

// Best returns the current best candidate, if any.
func (a *CandidateArbiter) Best() (*Candidate, bool) {
	if a.best == nil {
		return nil, false
	}
	return a.best, true
}

// arbiterDecision enumerates why a block was or wasn't admitted, logged by
// the orchestrator at the call site.
type arbiterDecision int

const (
	decisionWins arbiterDecision = iota
	decisionLoses
	decisionFutureEpoch
	decisionStaleEpoch
	decisionUnknownPredecessor
	decisionMerkleMismatch
	decisionInvalidTransactions
)

// TryAdmit evaluates a newly arrived block against the admission and
// rejection rules of spec.md §4.D. tipHash/tipEpoch/genesisHash describe
// the live chain tip; utxo/dataRequests are the live state the shadow
// pair is dry-run against. A decisionUnknownPredecessor result means the
// caller should route the block to the pending-block buffer instead.
func (a *CandidateArbiter) TryAdmit(block Block, tipHash, genesisHash common.Hash, tipEpoch uint32, utxo UnspentOutputsPool, dataRequests *DataRequestPool, consts params.ConsensusConstants) arbiterDecision {
	epoch := block.Epoch()
	if epoch > a.currentEpoch {
		candidateLogger.Warn("block from future epoch", "blockEpoch", epoch, "currentEpoch", a.currentEpoch)
		return decisionFutureEpoch
	}
	if epoch < tipEpoch {
		return decisionStaleEpoch
	}

	pred := block.PredecessorHash()
	if !pred.Equal(tipHash) && !pred.Equal(genesisHash) {
		return decisionUnknownPredecessor
	}

	if !ValidateMerkleTree(block, consts.HashAlgorithm) {
		return decisionMerkleMismatch
	}
	if !ValidateTransactions(utxo, dataRequests, block, consts) {
		return decisionInvalidTransactions
	}

	blockHash := block.Hash(consts.HashAlgorithm)
	if a.best != nil {
		bestHash := a.best.Block.Hash(consts.HashAlgorithm)
		if !blockHash.Less(bestHash) {
			return decisionLoses
		}
	}

	shadowUTXO, ok := GenerateUnspentOutputsPool(utxo, block, consts.HashAlgorithm)
	if !ok {
		return decisionInvalidTransactions
	}
	shadowDR := dataRequests.Clone()
	shadowDR.ProcessBlock(block, consts)

	a.best = &Candidate{Block: block, ShadowUTXOSet: shadowUTXO, ShadowDataRequests: shadowDR}
	return decisionWins
}
