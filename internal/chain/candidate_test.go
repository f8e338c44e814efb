package chain

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poenetwork/node/internal/common"
)

func TestTryAdmitRejectsFutureEpoch(t *testing.T) {
	consts := testConsts()
	a := NewCandidateArbiter()
	a.SetEpoch(1)

	block := makeBlock(5, common.ZeroHash, []Transaction{mintTx(0)}, consts.HashAlgorithm, 1)
	decision := a.TryAdmit(block, common.ZeroHash, common.ZeroHash, 0, make(UnspentOutputsPool), NewDataRequestPool(), consts)
	assert.Equal(t, decisionFutureEpoch, decision)
}

func TestTryAdmitRejectsStaleEpoch(t *testing.T) {
	consts := testConsts()
	a := NewCandidateArbiter()
	a.SetEpoch(5)

	block := makeBlock(1, common.ZeroHash, []Transaction{mintTx(0)}, consts.HashAlgorithm, 1)
	decision := a.TryAdmit(block, common.ZeroHash, common.ZeroHash, 3, make(UnspentOutputsPool), NewDataRequestPool(), consts)
	assert.Equal(t, decisionStaleEpoch, decision)
}

func TestTryAdmitRoutesUnknownPredecessor(t *testing.T) {
	consts := testConsts()
	a := NewCandidateArbiter()
	a.SetEpoch(1)

	unknownPred := common.Sum(consts.HashAlgorithm, []byte("not-the-tip"))
	block := makeBlock(1, unknownPred, []Transaction{mintTx(0)}, consts.HashAlgorithm, 1)
	decision := a.TryAdmit(block, common.ZeroHash, common.ZeroHash, 0, make(UnspentOutputsPool), NewDataRequestPool(), consts)
	assert.Equal(t, decisionUnknownPredecessor, decision)
}

func TestTryAdmitRejectsMerkleMismatch(t *testing.T) {
	consts := testConsts()
	a := NewCandidateArbiter()
	a.SetEpoch(1)

	block := makeBlock(1, common.ZeroHash, []Transaction{mintTx(0)}, consts.HashAlgorithm, 1)
	block.Header.MerkleRoot = common.Sum(consts.HashAlgorithm, []byte("wrong"))
	decision := a.TryAdmit(block, common.ZeroHash, common.ZeroHash, 0, make(UnspentOutputsPool), NewDataRequestPool(), consts)
	assert.Equal(t, decisionMerkleMismatch, decision)
}

// TestTryAdmitTieBreaksByHash covers S1 from the end-to-end scenario list:
// two otherwise-equally-valid same-epoch candidates, the one with the
// lexicographically smaller hash wins, and the loser is rejected outright
// rather than parked.
func TestTryAdmitTieBreaksByHash(t *testing.T) {
	consts := testConsts()
	a := NewCandidateArbiter()
	a.SetEpoch(1)

	blockA := makeBlock(1, common.ZeroHash, []Transaction{mintTx(1)}, consts.HashAlgorithm, 10)
	blockB := makeBlock(1, common.ZeroHash, []Transaction{mintTx(2)}, consts.HashAlgorithm, 20)

	hashA := blockA.Hash(consts.HashAlgorithm)
	hashB := blockB.Hash(consts.HashAlgorithm)

	first, second := blockA, blockB
	if hashB.Less(hashA) {
		first, second = blockB, blockA
	}

	decision1 := a.TryAdmit(first, common.ZeroHash, common.ZeroHash, 0, make(UnspentOutputsPool), NewDataRequestPool(), consts)
	require.Equal(t, decisionWins, decision1, "first candidate admitted should win when no competitor exists yet:\n%s", spew.Sdump(first))

	decision2 := a.TryAdmit(second, common.ZeroHash, common.ZeroHash, 0, make(UnspentOutputsPool), NewDataRequestPool(), consts)
	assert.Equal(t, decisionLoses, decision2, "candidate with the larger hash must lose the tie-break:\n%s", spew.Sdump(second))

	best, ok := a.Best()
	require.True(t, ok)
	assert.True(t, best.Block.Hash(consts.HashAlgorithm).Equal(first.Hash(consts.HashAlgorithm)))
}

func TestSetEpochClearsBestCandidate(t *testing.T) {
	consts := testConsts()
	a := NewCandidateArbiter()
	a.SetEpoch(1)

	block := makeBlock(1, common.ZeroHash, []Transaction{mintTx(0)}, consts.HashAlgorithm, 1)
	decision := a.TryAdmit(block, common.ZeroHash, common.ZeroHash, 0, make(UnspentOutputsPool), NewDataRequestPool(), consts)
	require.Equal(t, decisionWins, decision)

	a.SetEpoch(2)
	_, ok := a.Best()
	assert.False(t, ok, "advancing the epoch must clear the previous best candidate")
}
