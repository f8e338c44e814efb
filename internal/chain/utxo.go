package chain

import "github.com/poenetwork/node/internal/common"

// Apply applies a single transaction's effects to utxo, returning the
// resulting pool: every input pointer is removed and one entry per output
// is inserted, keyed by the transaction's own identity hash (spec.md §4.C).
// The input pool is never mutated; a failed dry-run simply discards the
// returned copy.
func Apply(utxo UnspentOutputsPool, tx Transaction, algo common.Algorithm) UnspentOutputsPool {
	next := utxo.Clone()
	for _, in := range tx.Inputs {
		delete(next, in.Pointer())
	}
	txHash := tx.Hash(algo)
	for i, out := range tx.Outputs {
		next[OutputPointer{TransactionID: txHash, OutputIndex: uint32(i)}] = out
	}
	return next
}

// GenerateUnspentOutputsPool applies every transaction in block to
// currentUTXO, left to right. If any transaction would remove a pointer
// already removed earlier in the same block (a double-spend), the whole
// block is rejected and the original pool is returned unchanged
// (spec.md §4.C, invariant I3).
func GenerateUnspentOutputsPool(currentUTXO UnspentOutputsPool, block Block, algo common.Algorithm) (UnspentOutputsPool, bool) {
	next := currentUTXO
	spent := make(map[OutputPointer]struct{})
	for _, tx := range block.Txns {
		for _, in := range tx.Inputs {
			ptr := in.Pointer()
			if _, already := spent[ptr]; already {
				return currentUTXO, false
			}
			spent[ptr] = struct{}{}
		}
		next = Apply(next, tx, algo)
	}
	return next, true
}
