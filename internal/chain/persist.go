package chain

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/poenetwork/node/internal/codec"
)

// persistedChainState is the root value written to the blob store under
// ChainStateKey: the chain state plus the single authoritative
// data-request pool (SPEC_FULL.md §9 keeps one copy rather than embedding
// it inside ChainState itself).
type persistedChainState struct {
	State        *ChainState
	DataRequests *DataRequestPool
}

func encodePersistedChainState(p persistedChainState) ([]byte, error) {
	return codec.Marshal(p)
}

func decodePersistedChainState(raw []byte, out *persistedChainState) error {
	return codec.Unmarshal(raw, out)
}

func encodeDataRequestReport(r DataRequestReport) ([]byte, error) {
	return codec.Marshal(r)
}

// dataRequestPoolWire is DataRequestPool's on-the-wire shape: only the
// request records and the undrained report queue are stored. byEpoch and
// waitingForReveal are rebuilt from the records on decode; drPointerCache
// is not stored and starts empty after a decode (spec.md §8 property 7).
type dataRequestPoolWire struct {
	Requests   []DataRequestInfo
	ToBeStored []DataRequestReport
}

var (
	_ msgpack.CustomEncoder = (*DataRequestPool)(nil)
	_ msgpack.CustomDecoder = (*DataRequestPool)(nil)
)

// EncodeMsgpack implements msgpack.CustomEncoder.
func (p *DataRequestPool) EncodeMsgpack(enc *msgpack.Encoder) error {
	w := dataRequestPoolWire{ToBeStored: p.toBeStored}
	for _, info := range p.requests {
		w.Requests = append(w.Requests, *info)
	}
	return enc.Encode(w)
}

// DecodeMsgpack implements msgpack.CustomDecoder, rebuilding the byEpoch
// and waitingForReveal indexes from the decoded request records.
// drPointerCache is left empty (see below).
func (p *DataRequestPool) DecodeMsgpack(dec *msgpack.Decoder) error {
	var w dataRequestPoolWire
	if err := dec.Decode(&w); err != nil {
		return err
	}

	// drPointerCache is not persisted: it resolves commit/reveal
	// transaction hashes seen since the request's inclusion, and a
	// process restart mid-lifecycle loses in-flight commits anyway since
	// they live in already-consolidated blocks the inventory store, not
	// this pool, is the source of truth for.
	rebuilt := NewDataRequestPool()
	rebuilt.toBeStored = w.ToBeStored
	for i := range w.Requests {
		info := w.Requests[i]
		rebuilt.requests[info.Pointer] = &info
		rebuilt.indexByDeadline(info.Pointer, info.deadline())
		if info.Stage == WaitingReveals {
			set := make(map[OutputPointer]struct{}, len(info.Commits))
			for _, c := range info.Commits {
				set[c.Pointer] = struct{}{}
			}
			for _, r := range info.Reveals {
				delete(set, r.Pointer)
			}
			rebuilt.waitingForReveal[info.Pointer] = set
		}
	}
	*p = *rebuilt
	return nil
}
