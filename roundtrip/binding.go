package roundtrip

import (
	"sort"

	"github.com/dylanxu/specgo/bitlayout"
	"github.com/dylanxu/specgo/codegen"
	"github.com/dylanxu/specgo/ir"
)

// Codec is anything callable with the fixed (payload, struct-buffer)
// shape every generated encode/decode function shares. CodecFn
// satisfies it against a real dlopen'd symbol; tests satisfy it with a
// plain Go function to exercise Campaign's failure-detection paths
// without a native compiler.
type Codec interface {
	Call(payload []byte, strct []byte) int
}

// MessageBinding is one message's resolved encode/decode callables
// plus everything needed to drive them: its struct layout and the
// occupied-bit mask used by the roundtrip verifier's mask property.
type MessageBinding struct {
	Message     ir.Message
	Symbols     codegen.MessageSymbols
	Layout      structLayout
	Encode      Codec
	Decode      Codec
	OccupiedSet map[int]bool
}

// Bind resolves one message's encode/decode symbols against lib.
func Bind(lib *Library, projectName string, msg ir.Message) (*MessageBinding, error) {
	symbols := codegen.ResolveMessageSymbols(projectName, msg.Name)

	encodeFn, err := lib.Codec(symbols.EncodeFn)
	if err != nil {
		return nil, err
	}
	decodeFn, err := lib.Codec(symbols.DecodeFn)
	if err != nil {
		return nil, err
	}

	occupied := map[int]bool{}
	for _, sig := range msg.Signals {
		set, err := bitlayout.OccupiedSet(sig.StartBit, sig.BitLength, sig.ByteOrder)
		if err != nil {
			return nil, err
		}
		for pos := range set {
			occupied[pos] = true
		}
	}

	return &MessageBinding{
		Message:     msg,
		Symbols:     symbols,
		Layout:      layoutFor(msg),
		Encode:      encodeFn,
		Decode:      decodeFn,
		OccupiedSet: occupied,
	}, nil
}

// BindSpec resolves bindings for every message in spec, in the same
// (id, name) order codegen renders them.
func BindSpec(lib *Library, spec *ir.Spec) ([]*MessageBinding, error) {
	msgs := make([]ir.Message, len(spec.Messages))
	copy(msgs, spec.Messages)
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].ID != msgs[j].ID {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].Name < msgs[j].Name
	})

	bindings := make([]*MessageBinding, 0, len(msgs))
	for _, msg := range msgs {
		b, err := Bind(lib, spec.Meta.Name, msg)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, b)
	}
	return bindings, nil
}
