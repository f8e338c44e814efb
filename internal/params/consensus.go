// Package params holds the immutable configuration snapshot passed into the
// chain-state orchestrator at construction (spec.md §9: "consensus
// constants are an immutable configuration snapshot, passed into F at
// construction").
package params

import (
	"time"

	"github.com/poenetwork/node/internal/common"
)

// Environment tags which network a node is participating in, following the
// original's Environment::Mainnet/Testnet1 enum.
type Environment int

const (
	Mainnet Environment = iota
	Testnet1
	Development
)

func (e Environment) String() string {
	switch e {
	case Mainnet:
		return "mainnet"
	case Testnet1:
		return "testnet1"
	default:
		return "development"
	}
}

// RewardSchedule selects the block_reward(epoch) curve (spec.md §4.A).
type RewardSchedule int

const (
	// LinearDecay reduces the reward by a fixed step every HalvingPeriod
	// epochs until it reaches zero.
	LinearDecay RewardSchedule = iota
	// Halving halves the reward every HalvingPeriod epochs, floor zero.
	Halving
)

// ConsensusConstants is the immutable snapshot every component derives its
// deterministic behavior from: epoch timing (EpochClock, §6), block reward
// schedule (validation kernel, §4.A), and the hash algorithm tag used
// throughout (common.Hash, §3).
type ConsensusConstants struct {
	Environment Environment

	// CheckpointZeroTimestamp is the unix time of epoch 0's start.
	CheckpointZeroTimestamp int64
	// CheckpointsPeriod is the wall-clock duration of one epoch.
	CheckpointsPeriod time.Duration

	GenesisHash common.Hash

	// HashAlgorithm selects SHA256 or BLAKE2B for every Hash computed by
	// this node (merkle roots, block identity, transaction identity).
	HashAlgorithm common.Algorithm

	// MaxBlockWeight is the configured serialized-weight limit for a
	// block. No validation step in this module reads it, so block weight
	// is not checked.
	MaxBlockWeight uint32

	// Reward schedule knobs for block_reward(epoch).
	RewardSchedule  RewardSchedule
	InitialReward   uint64
	HalvingPeriod   uint32 // epochs per halving/decay step
	DecayStep       uint64 // LinearDecay: amount subtracted per step

	// Data-request deadlines, in epochs relative to a request's inclusion
	// epoch (spec.md §4.B).
	CommitDeadlinePeriod uint32
	RevealDeadlinePeriod uint32
	TallyDeadlinePeriod  uint32

	// Sync driver cadences (spec.md §4.G).
	SynchronizingPeriod time.Duration
	SyncedPeriod         time.Duration

	// PendingBlockStalenessEpochs is the configured staleness cutoff, in
	// epochs, for a parked orphan. The pending-block buffer does not read
	// it: a parked orphan is evicted on the first epoch change whose new
	// tip is not its predecessor, however many epochs it has waited.
	PendingBlockStalenessEpochs uint32
}

// CheckpointEpoch returns the epoch whose window contains t, per
// CheckpointZeroTimestamp/CheckpointsPeriod (used by the epoch clock
// collaborator, §6).
func (c ConsensusConstants) CheckpointEpoch(t time.Time) uint32 {
	delta := t.Unix() - c.CheckpointZeroTimestamp
	if delta < 0 || c.CheckpointsPeriod <= 0 {
		return 0
	}
	return uint32(delta / int64(c.CheckpointsPeriod.Seconds()))
}

// DefaultTestnetConstants gives every package a ready-made constants value
// for tests, mirroring the teacher's DefaultConfig pattern in gxp/config.go.
func DefaultTestnetConstants() ConsensusConstants {
	return ConsensusConstants{
		Environment:                 Testnet1,
		CheckpointZeroTimestamp:     1546427376,
		CheckpointsPeriod:           45 * time.Second,
		HashAlgorithm:               common.SHA256,
		MaxBlockWeight:              10_000_000,
		RewardSchedule:              Halving,
		InitialReward:               50_000_000_000,
		HalvingPeriod:               1_750_000,
		CommitDeadlinePeriod:        2,
		RevealDeadlinePeriod:        2,
		TallyDeadlinePeriod:         1,
		SynchronizingPeriod:         1 * time.Second,
		SyncedPeriod:                45 * time.Second,
		PendingBlockStalenessEpochs: 1,
	}
}
