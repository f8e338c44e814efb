package chain

import (
	"github.com/poenetwork/node/internal/common"
	"github.com/poenetwork/node/internal/params"
)

func testConsts() params.ConsensusConstants {
	c := params.DefaultTestnetConstants()
	c.GenesisHash = common.ZeroHash
	return c
}

func mintTx(amount uint64) Transaction {
	return Transaction{
		Outputs: []Output{ValueTransferOutput{Pkh: [20]byte{0xAA}, Amount: amount}},
	}
}

func valueTx(ptr OutputPointer, amount uint64) Transaction {
	return Transaction{
		Inputs:  []Input{ValueTransferInput{ptr}},
		Outputs: []Output{ValueTransferOutput{Pkh: [20]byte{0xBB}, Amount: amount}},
	}
}

func header(epoch uint32, pred common.Hash, txns []Transaction, algo common.Algorithm) BlockHeader {
	return BlockHeader{
		Beacon:     CheckpointBeacon{Checkpoint: epoch, HashPrevBlock: pred},
		MerkleRoot: merkleRoot(txns, algo),
	}
}

func makeBlock(epoch uint32, pred common.Hash, txns []Transaction, algo common.Algorithm, influence uint64) Block {
	return Block{
		Header: header(epoch, pred, txns, algo),
		Proof:  Proof{Influence: influence},
		Txns:   txns,
	}
}
