package chain

import (
	"github.com/poenetwork/node/internal/common"
	"github.com/poenetwork/node/internal/params"
)

// merkleRoot computes a binary Merkle root over the hashes of txns, in the
// order they appear. An odd level duplicates its last node, the common
// construction the teacher's block-header digest follows elsewhere in the
// codebase.
func merkleRoot(txns []Transaction, algo common.Algorithm) common.Hash {
	if len(txns) == 0 {
		return common.ZeroHash
	}
	level := make([]common.Hash, len(txns))
	for i, tx := range txns {
		level[i] = tx.Hash(algo)
	}
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]common.Hash, len(level)/2)
		for i := 0; i < len(next); i++ {
			var buf [64]byte
			copy(buf[:32], level[2*i].Bytes[:])
			copy(buf[32:], level[2*i+1].Bytes[:])
			next[i] = common.Sum(algo, buf[:])
		}
		level = next
	}
	return level[0]
}

// ValidateMerkleTree recomputes the header's merkle root from txns and
// compares it to the declared one (spec.md §4.A).
func ValidateMerkleTree(block Block, algo common.Algorithm) bool {
	return merkleRoot(block.Txns, algo).Equal(block.Header.MerkleRoot)
}

// BlockReward computes the deterministic, monotone coinbase schedule for
// epoch, per consts.RewardSchedule (spec.md §4.A).
func BlockReward(epoch uint32, consts params.ConsensusConstants) uint64 {
	if consts.HalvingPeriod == 0 {
		return consts.InitialReward
	}
	steps := uint64(epoch) / uint64(consts.HalvingPeriod)

	switch consts.RewardSchedule {
	case params.Halving:
		reward := consts.InitialReward
		for i := uint64(0); i < steps && reward > 0; i++ {
			reward /= 2
		}
		return reward
	case params.LinearDecay:
		decay := steps * consts.DecayStep
		if decay >= consts.InitialReward {
			return 0
		}
		return consts.InitialReward - decay
	default:
		return consts.InitialReward
	}
}

// ValidateTransactions runs the full per-block transaction check
// (spec.md §4.A): the first transaction must be the coinbase/mint,
// constrained by block_reward(epoch) plus the fees the rest of the block
// collects; every later transaction must satisfy sum(inputs) >=
// sum(outputs) against outputs resolvable in utxo, dry-run against a shadow
// copy so earlier transactions in the same block are visible to later ones
// and double-spends within the block are caught. Fees have to be summed
// before the mint ceiling can be checked, so the non-mint pass runs first
// and the mint is validated against its result.
//
// Script evaluation (spec.md's "run the script associated with each output
// and require it to reduce to TRUE with an empty stack") is delegated to
// the signature/script collaborator named in spec.md §1; this kernel checks
// only the value and structural rules it owns directly.
func ValidateTransactions(utxo UnspentOutputsPool, dataRequests *DataRequestPool, block Block, consts params.ConsensusConstants) bool {
	if len(block.Txns) == 0 {
		return false
	}

	mint := block.Txns[0]
	if !mint.IsMint() {
		return false
	}

	shadowUTXO := utxo.Clone()
	shadowDR := dataRequests.Clone()

	var fees uint64
	for i, tx := range block.Txns {
		if i == 0 {
			continue
		}
		fee, ok := transactionFee(shadowUTXO, tx)
		if !ok {
			return false
		}
		fees += fee
		shadowUTXO = Apply(shadowUTXO, tx, consts.HashAlgorithm)
	}

	if mint.OutputValueSum() > BlockReward(block.Epoch(), consts)+fees {
		return false
	}

	shadowDR.ProcessBlock(block, consts)
	_ = shadowDR
	return true
}

// validateSingleTransaction checks sum(inputs) >= sum(outputs) against
// utxo, the restricted form AddTransaction runs against the live UTXO
// before mempool admission (spec.md §4.F).
func validateSingleTransaction(utxo UnspentOutputsPool, tx Transaction) bool {
	_, ok := transactionFee(utxo, tx)
	return ok
}

// transactionFee validates tx against utxo (no duplicate inputs, and
// sum(inputs) >= sum(outputs)) and returns the fee it contributes to the
// block's mint ceiling: sum(inputs) - sum(outputs) (spec.md §4.A: "mint
// outputs sum <= block_reward + fees").
func transactionFee(utxo UnspentOutputsPool, tx Transaction) (uint64, bool) {
	seen := make(map[OutputPointer]struct{}, len(tx.Inputs))
	for _, in := range tx.Inputs {
		ptr := in.Pointer()
		if _, dup := seen[ptr]; dup {
			return 0, false
		}
		seen[ptr] = struct{}{}
	}

	inputSum, ok := tx.InputValueSum(utxo.Get)
	if !ok || inputSum < tx.OutputValueSum() {
		return 0, false
	}
	return inputSum - tx.OutputValueSum(), true
}
