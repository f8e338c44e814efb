// Package codec implements the persisted serialization contract of
// spec.md §6: "a deterministic, length-prefixed binary format (the
// existing format uses a MessagePack-family encoding)", with the
// compatibility requirement "round-trip encode(decode(x)) == x for all
// chain-state values". Round-trip holds; byte-level determinism does not
// hold for values containing maps (see Marshal).
//
// Values are MessagePack-encoded (github.com/vmihailenco/msgpack/v5) and
// then snappy-compressed (github.com/golang/snappy), framed as
// [4-byte big-endian uncompressed length][snappy block]. The
// length prefix lets a reader size its decompression buffer up front,
// mirroring the length-prefixed framing the teacher's storage layer uses
// around RLP-encoded values.
package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/golang/snappy"
	"github.com/vmihailenco/msgpack/v5"
)

// CanonicalBytes returns the plain MessagePack encoding of v, with no
// compression framing. This is what Transaction.Hash/Block.Hash digest,
// since content identity should hash the canonical encoding itself rather
// than a particular storage compression choice.
func CanonicalBytes(v interface{}) ([]byte, error) {
	raw, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec: marshal: %w", err)
	}
	return raw, nil
}

// Marshal encodes v and compresses the result. Map keys are not sorted:
// maps, and the custom encoders that walk maps (the UTXO pool and the
// data-request pool), emit entries in Go's map iteration order, so two
// encodings of an equal value can differ byte for byte. Decoding either
// one yields the same value.
func Marshal(v interface{}) ([]byte, error) {
	raw, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec: marshal: %w", err)
	}

	compressed := snappy.Encode(nil, raw)
	out := make([]byte, 4+len(compressed))
	binary.BigEndian.PutUint32(out[:4], uint32(len(raw)))
	copy(out[4:], compressed)
	return out, nil
}

// Unmarshal decompresses and decodes a frame produced by Marshal into v,
// which must be a pointer.
func Unmarshal(frame []byte, v interface{}) error {
	if len(frame) < 4 {
		return fmt.Errorf("codec: frame too short: %d bytes", len(frame))
	}
	uncompressedLen := binary.BigEndian.Uint32(frame[:4])

	raw, err := snappy.Decode(make([]byte, 0, uncompressedLen), frame[4:])
	if err != nil {
		return fmt.Errorf("codec: snappy decode: %w", err)
	}
	if err := msgpack.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("codec: unmarshal: %w", err)
	}
	return nil
}
