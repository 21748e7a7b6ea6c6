package roundtrip

import (
	"encoding/binary"

	"github.com/dylanxu/specgo/codegen"
	"github.com/dylanxu/specgo/ir"
)

// structLayout is the one-field-per-8-bytes byte layout of a generated
// <msg>_t: every field is a uint64_t or int64_t, so there is no
// inter-field padding to account for on any common ABI.
type structLayout struct {
	signals []ir.Signal
}

func layoutFor(msg ir.Message) structLayout {
	return structLayout{signals: codegen.SortedSignals(msg)}
}

func (l structLayout) size() int { return len(l.signals) * 8 }

func (l structLayout) newBuffer() []byte { return make([]byte, l.size()) }

// set writes the raw bit pattern of field i into its 8-byte slot.
func (l structLayout) set(buf []byte, i int, raw uint64) {
	binary.LittleEndian.PutUint64(buf[i*8:i*8+8], raw)
}

// get reads the raw bit pattern of field i out of its 8-byte slot.
func (l structLayout) get(buf []byte, i int) uint64 {
	return binary.LittleEndian.Uint64(buf[i*8 : i*8+8])
}
