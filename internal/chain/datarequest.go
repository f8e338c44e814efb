package chain

import (
	"github.com/poenetwork/node/internal/common"
	"github.com/poenetwork/node/internal/log"
	"github.com/poenetwork/node/internal/params"
)

var drLogger = log.NewModuleLogger(log.ModuleDataReq)

// DataRequestStage is one of the four states a data request passes through
// (spec.md §4.B).
type DataRequestStage int

const (
	WaitingCommits DataRequestStage = iota
	WaitingReveals
	WaitingTally
	Finished
)

func (s DataRequestStage) String() string {
	switch s {
	case WaitingCommits:
		return "waiting_commits"
	case WaitingReveals:
		return "waiting_reveals"
	case WaitingTally:
		return "waiting_tally"
	default:
		return "finished"
	}
}

// DataRequestInfo is the per-request record the pool tracks across epochs.
type DataRequestInfo struct {
	Pointer       OutputPointer
	Output        DataRequestOutput
	Stage         DataRequestStage
	InclusionEpoch uint32

	Commits []CommitEntry
	Reveals []RevealEntry
	Tally   *TallyOutput

	CommitDeadline uint32
	RevealDeadline uint32
	TallyDeadline  uint32
}

// CommitEntry records a witness's commitment, keyed by the commit output
// pointer so a later reveal can be matched against it.
type CommitEntry struct {
	Pointer    OutputPointer
	Commitment common.Hash
}

// RevealEntry records a witness's disclosed value.
type RevealEntry struct {
	Pointer OutputPointer
	Reveal  []byte
}

// DataRequestReport is what finished_data_requests() drains to F for
// out-of-band persistence.
type DataRequestReport struct {
	Pointer OutputPointer
	Info    DataRequestInfo
}

// deadline returns the epoch by which the current stage must resolve.
func (r *DataRequestInfo) deadline() uint32 {
	switch r.Stage {
	case WaitingCommits:
		return r.CommitDeadline
	case WaitingReveals:
		return r.RevealDeadline
	case WaitingTally:
		return r.TallyDeadline
	default:
		return 0
	}
}

// DataRequestPool is the single authoritative copy of every active data
// request (SPEC_FULL.md §9 resolves the source's ChainState-duplication
// question by keeping exactly one copy here; ChainState holds no copy of
// its own, only a read-only View()).
type DataRequestPool struct {
	requests map[OutputPointer]*DataRequestInfo

	// byEpoch indexes pointers by the epoch their current stage's deadline
	// falls on, so update_data_request_stages need not scan every request.
	byEpoch map[uint32]map[OutputPointer]struct{}

	// waitingForReveal maps a request pointer to the set of commit
	// pointers still owed a matching reveal.
	waitingForReveal map[OutputPointer]map[OutputPointer]struct{}

	// drPointerCache resolves a commit/reveal transaction hash to the data
	// request pointer it targets, for O(1) process_block dispatch.
	drPointerCache map[common.Hash]OutputPointer

	toBeStored []DataRequestReport
}

// NewDataRequestPool returns an empty pool, the shape a cold boot or a
// freshly-promoted candidate starts from.
func NewDataRequestPool() *DataRequestPool {
	return &DataRequestPool{
		requests:         make(map[OutputPointer]*DataRequestInfo),
		byEpoch:          make(map[uint32]map[OutputPointer]struct{}),
		waitingForReveal: make(map[OutputPointer]map[OutputPointer]struct{}),
		drPointerCache:   make(map[common.Hash]OutputPointer),
	}
}

// Clone returns a deep-enough copy for the candidate arbiter's shadow state:
// every DataRequestInfo is copied so mutating the clone never touches the
// original's slices.
func (p *DataRequestPool) Clone() *DataRequestPool {
	out := NewDataRequestPool()
	for ptr, info := range p.requests {
		clone := *info
		clone.Commits = append([]CommitEntry(nil), info.Commits...)
		clone.Reveals = append([]RevealEntry(nil), info.Reveals...)
		out.requests[ptr] = &clone

		out.byEpoch[info.deadline()] = cloneEpochSet(p.byEpoch[info.deadline()])
		if set, ok := p.waitingForReveal[ptr]; ok {
			out.waitingForReveal[ptr] = cloneEpochSet(set)
		}
	}
	for hash, ptr := range p.drPointerCache {
		out.drPointerCache[hash] = ptr
	}
	out.toBeStored = append([]DataRequestReport(nil), p.toBeStored...)
	return out
}

func cloneEpochSet(set map[OutputPointer]struct{}) map[OutputPointer]struct{} {
	out := make(map[OutputPointer]struct{}, len(set))
	for k := range set {
		out[k] = struct{}{}
	}
	return out
}

// View returns a read-only snapshot of requests in flight, the "derived
// view" SPEC_FULL.md §9 uses in place of embedding the pool in ChainState.
func (p *DataRequestPool) View() map[OutputPointer]DataRequestInfo {
	out := make(map[OutputPointer]DataRequestInfo, len(p.requests))
	for ptr, info := range p.requests {
		out[ptr] = *info
	}
	return out
}

func (p *DataRequestPool) indexByDeadline(ptr OutputPointer, epoch uint32) {
	set, ok := p.byEpoch[epoch]
	if !ok {
		set = make(map[OutputPointer]struct{})
		p.byEpoch[epoch] = set
	}
	set[ptr] = struct{}{}
}

func (p *DataRequestPool) unindexByDeadline(ptr OutputPointer, epoch uint32) {
	if set, ok := p.byEpoch[epoch]; ok {
		delete(set, ptr)
		if len(set) == 0 {
			delete(p.byEpoch, epoch)
		}
	}
}

// ProcessBlock scans a consolidated block's transactions for data-request
// creation, commits, reveals, and tallies, advancing every affected
// request's stage (spec.md §4.B process_block).
func (p *DataRequestPool) ProcessBlock(block Block, consts params.ConsensusConstants) {
	epoch := block.Epoch()
	for _, tx := range block.Txns {
		txHash := tx.Hash(consts.HashAlgorithm)

		for i, out := range tx.Outputs {
			drOut, ok := out.(DataRequestOutput)
			if !ok {
				continue
			}
			ptr := OutputPointer{TransactionID: txHash, OutputIndex: uint32(i)}
			info := &DataRequestInfo{
				Pointer:        ptr,
				Output:         drOut,
				Stage:          WaitingCommits,
				InclusionEpoch: epoch,
				CommitDeadline: epoch + consts.CommitDeadlinePeriod,
				RevealDeadline: epoch + consts.CommitDeadlinePeriod + consts.RevealDeadlinePeriod,
				TallyDeadline:  epoch + consts.CommitDeadlinePeriod + consts.RevealDeadlinePeriod + consts.TallyDeadlinePeriod,
			}
			p.requests[ptr] = info
			p.indexByDeadline(ptr, info.CommitDeadline)
		}

		for i, in := range tx.Inputs {
			switch v := in.(type) {
			case DataRequestInput:
				info, ok := p.requests[v.OutputPointer]
				if !ok || info.Stage != WaitingCommits {
					continue
				}
				commitOut, ok := commitOutputAt(tx, i)
				if !ok {
					continue
				}
				commitPtr := OutputPointer{TransactionID: txHash, OutputIndex: uint32(i)}
				info.Commits = append(info.Commits, CommitEntry{Pointer: commitPtr, Commitment: commitOut.Commitment})
				p.drPointerCache[txHash] = v.OutputPointer

			case CommitInput:
				dest, ok := p.drPointerCache[v.OutputPointer.TransactionID]
				if !ok {
					continue
				}
				info, ok := p.requests[dest]
				if !ok || info.Stage != WaitingReveals {
					continue
				}
				info.Reveals = append(info.Reveals, RevealEntry{Pointer: v.OutputPointer, Reveal: v.Reveal})
				if set, ok := p.waitingForReveal[dest]; ok {
					delete(set, v.OutputPointer)
				}
				p.drPointerCache[txHash] = dest

			case RevealInput:
				dest, ok := p.drPointerCache[v.OutputPointer.TransactionID]
				if !ok {
					continue
				}
				info, ok := p.requests[dest]
				if !ok || info.Stage != WaitingTally {
					continue
				}
				p.finalizeTally(info, tx)
			}
		}
	}
}

func commitOutputAt(tx Transaction, inputIdx int) (CommitOutput, bool) {
	if inputIdx >= len(tx.Outputs) {
		return CommitOutput{}, false
	}
	out, ok := tx.Outputs[inputIdx].(CommitOutput)
	return out, ok
}

func (p *DataRequestPool) finalizeTally(info *DataRequestInfo, tx Transaction) {
	for _, out := range tx.Outputs {
		if t, ok := out.(TallyOutput); ok {
			tally := t
			info.Tally = &tally
			break
		}
	}
	p.advance(info, Finished)
}

// advance transitions info to stage, maintaining the byEpoch and
// waitingForReveal auxiliary indexes (invariants D1-D3, spec.md §4.B).
func (p *DataRequestPool) advance(info *DataRequestInfo, stage DataRequestStage) {
	p.unindexByDeadline(info.Pointer, info.deadline())
	info.Stage = stage

	switch stage {
	case WaitingReveals:
		set := make(map[OutputPointer]struct{}, len(info.Commits))
		for _, c := range info.Commits {
			set[c.Pointer] = struct{}{}
		}
		p.waitingForReveal[info.Pointer] = set
		p.indexByDeadline(info.Pointer, info.RevealDeadline)
	case WaitingTally:
		delete(p.waitingForReveal, info.Pointer)
		p.indexByDeadline(info.Pointer, info.TallyDeadline)
	case Finished:
		delete(p.waitingForReveal, info.Pointer)
		p.toBeStored = append(p.toBeStored, DataRequestReport{Pointer: info.Pointer, Info: *info})
	}
}

// UpdateDataRequestStages advances every request whose current stage's
// deadline is at or before epoch, forcing the next transition with
// whatever commits/reveals were collected so far (spec.md §4.B).
func (p *DataRequestPool) UpdateDataRequestStages(epoch uint32) {
	for checkEpoch, set := range p.byEpoch {
		if checkEpoch > epoch {
			continue
		}
		pointers := make([]OutputPointer, 0, len(set))
		for ptr := range set {
			pointers = append(pointers, ptr)
		}
		for _, ptr := range pointers {
			info, ok := p.requests[ptr]
			if !ok {
				continue
			}
			drLogger.Debug("data request deadline passed", "pointer", ptr, "stage", info.Stage, "epoch", epoch)
			switch info.Stage {
			case WaitingCommits:
				p.advance(info, WaitingReveals)
			case WaitingReveals:
				p.advance(info, WaitingTally)
			case WaitingTally:
				p.advance(info, Finished)
			}
		}
	}
}

// FinishedDataRequests drains and returns every report queued for
// persistence since the last drain (spec.md §4.B to_be_stored).
func (p *DataRequestPool) FinishedDataRequests() []DataRequestReport {
	drained := p.toBeStored
	p.toBeStored = nil
	return drained
}

// Get returns the in-flight record for ptr, if any.
func (p *DataRequestPool) Get(ptr OutputPointer) (DataRequestInfo, bool) {
	info, ok := p.requests[ptr]
	if !ok {
		return DataRequestInfo{}, false
	}
	return *info, ok
}

// CountByStage tallies in-flight requests per lifecycle stage, the shape
// the orchestrator reports through DataRequestsInFlight (SPEC_FULL.md §4.L).
func (p *DataRequestPool) CountByStage() map[DataRequestStage]int {
	counts := map[DataRequestStage]int{
		WaitingCommits: 0,
		WaitingReveals: 0,
		WaitingTally:   0,
	}
	for _, info := range p.requests {
		if info.Stage == Finished {
			continue
		}
		counts[info.Stage]++
	}
	return counts
}
