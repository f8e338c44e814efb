package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/poenetwork/node/internal/common"
	"github.com/poenetwork/node/internal/params"
)

func TestValidateMerkleTreeAcceptsRecomputedRoot(t *testing.T) {
	consts := testConsts()
	txns := []Transaction{mintTx(50), valueTx(OutputPointer{}, 1)}
	block := makeBlock(1, common.ZeroHash, txns, consts.HashAlgorithm, 1)
	assert.True(t, ValidateMerkleTree(block, consts.HashAlgorithm))
}

func TestValidateMerkleTreeRejectsTamperedRoot(t *testing.T) {
	consts := testConsts()
	txns := []Transaction{mintTx(50)}
	block := makeBlock(1, common.ZeroHash, txns, consts.HashAlgorithm, 1)
	block.Header.MerkleRoot = common.Sum(consts.HashAlgorithm, []byte("tampered"))
	assert.False(t, ValidateMerkleTree(block, consts.HashAlgorithm))
}

func TestBlockRewardHalvingFloorsAtZero(t *testing.T) {
	consts := testConsts()
	consts.RewardSchedule = params.Halving
	consts.InitialReward = 100
	consts.HalvingPeriod = 10

	assert.Equal(t, uint64(100), BlockReward(0, consts))
	assert.Equal(t, uint64(50), BlockReward(10, consts))
	assert.Equal(t, uint64(25), BlockReward(20, consts))

	// After enough halvings the integer division floors to zero and stays there.
	assert.Equal(t, uint64(0), BlockReward(1000, consts))
}

func TestBlockRewardLinearDecayFloorsAtZero(t *testing.T) {
	consts := testConsts()
	consts.RewardSchedule = params.LinearDecay
	consts.InitialReward = 100
	consts.HalvingPeriod = 10
	consts.DecayStep = 30

	assert.Equal(t, uint64(100), BlockReward(0, consts))
	assert.Equal(t, uint64(70), BlockReward(10, consts))
	assert.Equal(t, uint64(0), BlockReward(40, consts))
}

func TestValidateTransactionsRejectsNonMintFirstTransaction(t *testing.T) {
	consts := testConsts()
	utxo := make(UnspentOutputsPool)
	dr := NewDataRequestPool()
	block := makeBlock(0, common.ZeroHash, []Transaction{valueTx(OutputPointer{}, 1)}, consts.HashAlgorithm, 1)
	assert.False(t, ValidateTransactions(utxo, dr, block, consts))
}

func TestValidateTransactionsRejectsMintExceedingReward(t *testing.T) {
	consts := testConsts()
	consts.InitialReward = 10
	utxo := make(UnspentOutputsPool)
	dr := NewDataRequestPool()
	block := makeBlock(0, common.ZeroHash, []Transaction{mintTx(11)}, consts.HashAlgorithm, 1)
	assert.False(t, ValidateTransactions(utxo, dr, block, consts))
}

func TestValidateTransactionsRejectsOverspend(t *testing.T) {
	consts := testConsts()
	utxo := make(UnspentOutputsPool)
	mint := mintTx(100)
	mintHash := mint.Hash(consts.HashAlgorithm)
	mintPtr := OutputPointer{TransactionID: mintHash, OutputIndex: 0}
	utxo[mintPtr] = mint.Outputs[0]

	overspend := valueTx(mintPtr, 1000)
	block := makeBlock(0, common.ZeroHash, []Transaction{mintTx(0), overspend}, consts.HashAlgorithm, 1)
	assert.False(t, ValidateTransactions(utxo, NewDataRequestPool(), block, consts))
}

func TestValidateTransactionsAcceptsMintUpToRewardPlusFees(t *testing.T) {
	consts := testConsts()
	consts.InitialReward = 10

	funding := mintTx(20)
	fundingPtr := OutputPointer{TransactionID: funding.Hash(consts.HashAlgorithm), OutputIndex: 0}
	utxo := UnspentOutputsPool{fundingPtr: funding.Outputs[0]}

	spend := valueTx(fundingPtr, 15) // pays a fee of 20-15 = 5
	mint := mintTx(15)               // InitialReward(10) + fee(5)
	block := makeBlock(0, common.ZeroHash, []Transaction{mint, spend}, consts.HashAlgorithm, 1)
	assert.True(t, ValidateTransactions(utxo, NewDataRequestPool(), block, consts))
}

func TestValidateTransactionsRejectsMintExceedingRewardPlusFees(t *testing.T) {
	consts := testConsts()
	consts.InitialReward = 10

	funding := mintTx(20)
	fundingPtr := OutputPointer{TransactionID: funding.Hash(consts.HashAlgorithm), OutputIndex: 0}
	utxo := UnspentOutputsPool{fundingPtr: funding.Outputs[0]}

	spend := valueTx(fundingPtr, 15) // pays a fee of 5
	mint := mintTx(16)               // one above InitialReward(10) + fee(5)
	block := makeBlock(0, common.ZeroHash, []Transaction{mint, spend}, consts.HashAlgorithm, 1)
	assert.False(t, ValidateTransactions(utxo, NewDataRequestPool(), block, consts))
}

func TestValidateSingleTransactionRejectsDuplicateInputs(t *testing.T) {
	ptr := OutputPointer{OutputIndex: 0}
	utxo := UnspentOutputsPool{ptr: ValueTransferOutput{Amount: 10}}
	tx := Transaction{
		Inputs:  []Input{ValueTransferInput{ptr}, ValueTransferInput{ptr}},
		Outputs: []Output{ValueTransferOutput{Amount: 10}},
	}
	assert.False(t, validateSingleTransaction(utxo, tx))
}
