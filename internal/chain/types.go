// Package chain implements the chain manager core specified by
// SPEC_FULL.md components A-G: validation kernel, data-request pool, UTXO
// engine, candidate arbiter, pending-block buffer, chain-state
// orchestrator, and sync driver. Types here mirror
// witnet_data_structures::chain in the original source, adapted to Go's
// tagged-interface idiom in place of Rust enums.
package chain

import (
	"github.com/poenetwork/node/internal/codec"
	"github.com/poenetwork/node/internal/common"
)

// OutputPointer is the unique key into the UTXO set: the transaction that
// created the output, plus its index within that transaction.
type OutputPointer struct {
	TransactionID common.Hash
	OutputIndex   uint32
}

// CheckpointBeacon identifies a chain tip by epoch and predecessor hash.
type CheckpointBeacon struct {
	Checkpoint    uint32
	HashPrevBlock common.Hash
}

// Signature is a tagged signature variant. Only Secp256k1 is modeled since
// signature *verification* is an external collaborator (spec.md §1); the
// chain manager only needs to carry the bytes through to that collaborator.
type Signature struct {
	R, S [32]byte
	V    byte
}

// KeyedSignature pairs a signature with the public key that produced it.
type KeyedSignature struct {
	PublicKey [33]byte
	Signature Signature
}

// Input is implemented by the four input variants a transaction may carry.
type Input interface {
	inputTag() string
	Pointer() OutputPointer
}

// ValueTransferInput spends a plain value-transfer output.
type ValueTransferInput struct{ OutputPointer }

func (ValueTransferInput) inputTag() string       { return "value_transfer" }
func (i ValueTransferInput) Pointer() OutputPointer { return i.OutputPointer }

// DataRequestInput spends a data-request output to fund a commit round.
type DataRequestInput struct {
	OutputPointer
	PoE []byte
}

func (DataRequestInput) inputTag() string         { return "data_request" }
func (i DataRequestInput) Pointer() OutputPointer { return i.OutputPointer }

// CommitInput spends a commit output to reveal the underlying value.
type CommitInput struct {
	OutputPointer
	Nonce  uint64
	Reveal []byte
}

func (CommitInput) inputTag() string         { return "commit" }
func (i CommitInput) Pointer() OutputPointer { return i.OutputPointer }

// RevealInput spends a reveal output as part of a tally transaction.
type RevealInput struct{ OutputPointer }

func (RevealInput) inputTag() string         { return "reveal" }
func (i RevealInput) Pointer() OutputPointer { return i.OutputPointer }

// Output is implemented by the five output variants a transaction may
// produce. Every Output knows its own value, for the sum(inputs) >=
// sum(outputs) rule in the validation kernel.
type Output interface {
	outputTag() string
	Value() uint64
}

// ValueTransferOutput pays an amount to a public key hash.
type ValueTransferOutput struct {
	Pkh    [20]byte
	Amount uint64
}

func (ValueTransferOutput) outputTag() string { return "value_transfer" }
func (o ValueTransferOutput) Value() uint64   { return o.Amount }

// RADRequest is the retrieve-aggregate-deliver script bundle a data request
// carries; the scripts themselves are opaque to the chain manager (they run
// inside the external collaborator that evaluates PoE/RAD, not here).
type RADRequest struct {
	Retrieve  [][]byte
	Aggregate []byte
	Consensus []byte
	Deliver   [][]byte
	NotBefore uint64
}

// DataRequestOutput funds a data request: CollateralPerWitness is escrowed
// from the requester and returned with RevealFee/CommitFee/TallyFee to
// witnesses who perform their stage honestly and on time.
type DataRequestOutput struct {
	Pkh              [20]byte
	DataRequest      RADRequest
	Witnesses        uint16
	BackupWitnesses  uint16
	CommitFee        uint64
	RevealFee        uint64
	TallyFee         uint64
	Amount           uint64
	TimeLock         uint64
}

func (DataRequestOutput) outputTag() string { return "data_request" }
func (o DataRequestOutput) Value() uint64   { return o.Amount }

// CommitOutput locks a witness's hidden reveal behind a commitment hash.
type CommitOutput struct {
	Commitment common.Hash
	Amount     uint64
}

func (CommitOutput) outputTag() string { return "commit" }
func (o CommitOutput) Value() uint64   { return o.Amount }

// RevealOutput discloses the value a witness committed to earlier.
type RevealOutput struct {
	Pkh    [20]byte
	Reveal []byte
	Amount uint64
}

func (RevealOutput) outputTag() string { return "reveal" }
func (o RevealOutput) Value() uint64   { return o.Amount }

// TallyOutput pays out the consensus result of a finished data request.
type TallyOutput struct {
	Pkh    [20]byte
	Result []byte
	Amount uint64
}

func (TallyOutput) outputTag() string { return "tally" }
func (o TallyOutput) Value() uint64   { return o.Amount }

// Transaction is the atomic unit of state change: an ordered list of inputs
// spent, outputs created, and signatures authorizing the inputs.
type Transaction struct {
	Version    uint32
	Inputs     []Input
	Outputs    []Output
	Signatures []KeyedSignature
}

// Hash computes the transaction's identity hash over its canonical
// encoding, per spec.md §3 ("Identity = hash of the canonical
// serialization").
func (tx Transaction) Hash(algo common.Algorithm) common.Hash {
	b, err := codec.CanonicalBytes(tx)
	if err != nil {
		// Encoding a well-formed Transaction value never fails; a failure
		// here means a programming error in a custom Output/Input variant.
		panic("chain: transaction is not encodable: " + err.Error())
	}
	return common.Sum(algo, b)
}

// InputValueSum returns sum(inputs) given a lookup from pointer to output,
// used by the validation kernel's sum(inputs) >= sum(outputs) rule.
func (tx Transaction) InputValueSum(lookup func(OutputPointer) (Output, bool)) (uint64, bool) {
	var sum uint64
	for _, in := range tx.Inputs {
		out, ok := lookup(in.Pointer())
		if !ok {
			return 0, false
		}
		sum += out.Value()
	}
	return sum, true
}

// OutputValueSum returns sum(outputs).
func (tx Transaction) OutputValueSum() uint64 {
	var sum uint64
	for _, o := range tx.Outputs {
		sum += o.Value()
	}
	return sum
}

// IsMint reports whether tx has no inputs, the shape required of the first
// transaction in every block (spec.md §4.A).
func (tx Transaction) IsMint() bool {
	return len(tx.Inputs) == 0
}

// BlockHeader identifies a block's position and content digest.
type BlockHeader struct {
	Version    uint32
	Beacon     CheckpointBeacon
	MerkleRoot common.Hash
}

// Proof is the leadership/eligibility evidence attached to a block. Real
// verification is delegated to the ProofVerifier collaborator (spec.md
// §9's "poe = true placeholder"); the chain manager only carries the bytes.
type Proof struct {
	Signature *Signature
	Influence uint64
}

// Block is the consolidation unit: a header, its eligibility proof, and an
// ordered transaction list, the first of which must be the mint/coinbase.
type Block struct {
	Header BlockHeader
	Proof  Proof
	Txns   []Transaction
}

// Hash computes the block's identity hash over its header, per spec.md §3
// ("Identity = hash of the header").
func (b Block) Hash(algo common.Algorithm) common.Hash {
	h, err := codec.CanonicalBytes(b.Header)
	if err != nil {
		panic("chain: block header is not encodable: " + err.Error())
	}
	return common.Sum(algo, h)
}

// Epoch returns the block's checkpoint epoch.
func (b Block) Epoch() uint32 { return b.Header.Beacon.Checkpoint }

// PredecessorHash returns the block's declared predecessor.
func (b Block) PredecessorHash() common.Hash { return b.Header.Beacon.HashPrevBlock }
