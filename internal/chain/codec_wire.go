package chain

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// inputEnvelope and outputEnvelope carry a tagged "oneof" of the Input/Output
// variants so they survive MessagePack encoding, which (unlike Rust's serde)
// has no native support for tagged enums over an interface field. Exactly
// one of the pointer fields is set in a well-formed envelope.
type inputEnvelope struct {
	Tag          string
	ValueTransfer *ValueTransferInput `msgpack:",omitempty"`
	DataRequest   *DataRequestInput   `msgpack:",omitempty"`
	Commit        *CommitInput        `msgpack:",omitempty"`
	Reveal        *RevealInput        `msgpack:",omitempty"`
}

func encodeInput(in Input) (inputEnvelope, error) {
	switch v := in.(type) {
	case ValueTransferInput:
		return inputEnvelope{Tag: v.inputTag(), ValueTransfer: &v}, nil
	case DataRequestInput:
		return inputEnvelope{Tag: v.inputTag(), DataRequest: &v}, nil
	case CommitInput:
		return inputEnvelope{Tag: v.inputTag(), Commit: &v}, nil
	case RevealInput:
		return inputEnvelope{Tag: v.inputTag(), Reveal: &v}, nil
	default:
		return inputEnvelope{}, fmt.Errorf("chain: unknown input variant %T", in)
	}
}

func decodeInput(e inputEnvelope) (Input, error) {
	switch e.Tag {
	case "value_transfer":
		if e.ValueTransfer == nil {
			return nil, fmt.Errorf("chain: value_transfer input envelope missing payload")
		}
		return *e.ValueTransfer, nil
	case "data_request":
		if e.DataRequest == nil {
			return nil, fmt.Errorf("chain: data_request input envelope missing payload")
		}
		return *e.DataRequest, nil
	case "commit":
		if e.Commit == nil {
			return nil, fmt.Errorf("chain: commit input envelope missing payload")
		}
		return *e.Commit, nil
	case "reveal":
		if e.Reveal == nil {
			return nil, fmt.Errorf("chain: reveal input envelope missing payload")
		}
		return *e.Reveal, nil
	default:
		return nil, fmt.Errorf("chain: unknown input tag %q", e.Tag)
	}
}

type outputEnvelope struct {
	Tag           string
	ValueTransfer *ValueTransferOutput `msgpack:",omitempty"`
	DataRequest   *DataRequestOutput   `msgpack:",omitempty"`
	Commit        *CommitOutput        `msgpack:",omitempty"`
	Reveal        *RevealOutput        `msgpack:",omitempty"`
	Tally         *TallyOutput         `msgpack:",omitempty"`
}

func encodeOutput(out Output) (outputEnvelope, error) {
	switch v := out.(type) {
	case ValueTransferOutput:
		return outputEnvelope{Tag: v.outputTag(), ValueTransfer: &v}, nil
	case DataRequestOutput:
		return outputEnvelope{Tag: v.outputTag(), DataRequest: &v}, nil
	case CommitOutput:
		return outputEnvelope{Tag: v.outputTag(), Commit: &v}, nil
	case RevealOutput:
		return outputEnvelope{Tag: v.outputTag(), Reveal: &v}, nil
	case TallyOutput:
		return outputEnvelope{Tag: v.outputTag(), Tally: &v}, nil
	default:
		return outputEnvelope{}, fmt.Errorf("chain: unknown output variant %T", out)
	}
}

func decodeOutput(e outputEnvelope) (Output, error) {
	switch e.Tag {
	case "value_transfer":
		if e.ValueTransfer == nil {
			return nil, fmt.Errorf("chain: value_transfer output envelope missing payload")
		}
		return *e.ValueTransfer, nil
	case "data_request":
		if e.DataRequest == nil {
			return nil, fmt.Errorf("chain: data_request output envelope missing payload")
		}
		return *e.DataRequest, nil
	case "commit":
		if e.Commit == nil {
			return nil, fmt.Errorf("chain: commit output envelope missing payload")
		}
		return *e.Commit, nil
	case "reveal":
		if e.Reveal == nil {
			return nil, fmt.Errorf("chain: reveal output envelope missing payload")
		}
		return *e.Reveal, nil
	case "tally":
		if e.Tally == nil {
			return nil, fmt.Errorf("chain: tally output envelope missing payload")
		}
		return *e.Tally, nil
	default:
		return nil, fmt.Errorf("chain: unknown output tag %q", e.Tag)
	}
}

// txWire is Transaction's on-the-wire shape.
type txWire struct {
	Version    uint32
	Inputs     []inputEnvelope
	Outputs    []outputEnvelope
	Signatures []KeyedSignature
}

var (
	_ msgpack.CustomEncoder = Transaction{}
	_ msgpack.CustomDecoder = (*Transaction)(nil)
)

// EncodeMsgpack implements msgpack.CustomEncoder so Transaction's tagged
// Input/Output interface slices round-trip through MessagePack.
func (tx Transaction) EncodeMsgpack(enc *msgpack.Encoder) error {
	w := txWire{Version: tx.Version, Signatures: tx.Signatures}
	for _, in := range tx.Inputs {
		ie, err := encodeInput(in)
		if err != nil {
			return err
		}
		w.Inputs = append(w.Inputs, ie)
	}
	for _, out := range tx.Outputs {
		oe, err := encodeOutput(out)
		if err != nil {
			return err
		}
		w.Outputs = append(w.Outputs, oe)
	}
	return enc.Encode(w)
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (tx *Transaction) DecodeMsgpack(dec *msgpack.Decoder) error {
	var w txWire
	if err := dec.Decode(&w); err != nil {
		return err
	}
	tx.Version = w.Version
	tx.Signatures = w.Signatures
	tx.Inputs = nil
	for _, ie := range w.Inputs {
		in, err := decodeInput(ie)
		if err != nil {
			return err
		}
		tx.Inputs = append(tx.Inputs, in)
	}
	tx.Outputs = nil
	for _, oe := range w.Outputs {
		out, err := decodeOutput(oe)
		if err != nil {
			return err
		}
		tx.Outputs = append(tx.Outputs, out)
	}
	return nil
}
