package codegen

import (
	"fmt"
	"math"
	"sort"

	"github.com/dylanxu/specgo/bitlayout"
	"github.com/dylanxu/specgo/codegen/render"
	"github.com/dylanxu/specgo/ir"
)

// Artifacts is the pair of generated files for one Spec, per spec.md
// §4.E: one header source and one implementation source.
type Artifacts struct {
	HeaderName string
	HeaderText []byte
	SourceName string
	SourceText []byte
}

type signalCtx struct {
	orig      ir.Signal
	cName     string
	cType     string
	rangeMinC string
	rangeMaxC string
	maskC     string
	positions []int
}

type messageCtx struct {
	orig    ir.Message
	symbols MessageSymbols
	signals []signalCtx
}

func unsignedMax(bitLength int) uint64 {
	if bitLength >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(bitLength)) - 1
}

func signedMin(bitLength int) int64 {
	if bitLength >= 64 {
		return math.MinInt64
	}
	return -(int64(1) << uint(bitLength-1))
}

func signedMax(bitLength int) int64 {
	if bitLength >= 64 {
		return math.MaxInt64
	}
	return (int64(1) << uint(bitLength-1)) - 1
}

func maskLiteral(bitLength int) string {
	if bitLength >= 64 {
		return "UINT64_MAX"
	}
	return fmt.Sprintf("0x%XULL", unsignedMax(bitLength))
}

// SortedSignals returns msg's signals ordered by (start_bit, name).
// This is the struct field order codegen emits, so anything that binds
// to the generated <msg>_t layout from outside this package — the
// roundtrip verifier's raw struct buffers, most notably — must iterate
// fields in this same order.
func SortedSignals(msg ir.Message) []ir.Signal {
	sorted := make([]ir.Signal, len(msg.Signals))
	copy(sorted, msg.Signals)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].StartBit != sorted[j].StartBit {
			return sorted[i].StartBit < sorted[j].StartBit
		}
		return sorted[i].Name < sorted[j].Name
	})
	return sorted
}

// buildContext converts a validated Spec into a deterministic render
// context. Messages are sorted by (id, name) and signals within a
// message by (start_bit, name), so the generated struct field order
// and bit-position tables never depend on the in-memory slice order
// the caller happened to build.
func buildContext(spec *ir.Spec) ([]messageCtx, error) {
	msgs := make([]ir.Message, len(spec.Messages))
	copy(msgs, spec.Messages)
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].ID != msgs[j].ID {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].Name < msgs[j].Name
	})

	var contexts []messageCtx
	for _, msg := range msgs {
		symbols := ResolveMessageSymbols(spec.Meta.Name, msg.Name)

		var signals []signalCtx
		for _, sig := range SortedSignals(msg) {
			if sig.BitLength > 64 {
				return nil, fmt.Errorf("codegen: unsupported bit_length %d in message %q signal %q",
					sig.BitLength, msg.Name, sig.Name)
			}
			positions, err := bitlayout.Positions(sig.StartBit, sig.BitLength, sig.ByteOrder)
			if err != nil {
				return nil, fmt.Errorf("codegen: message %q signal %q: %w", msg.Name, sig.Name, err)
			}

			sc := signalCtx{
				orig:      sig,
				cName:     Identifier(sig.Name),
				positions: positions,
				maskC:     maskLiteral(sig.BitLength),
			}
			if sig.Signed {
				sc.cType = "int64_t"
				sc.rangeMinC = signedLiteral(signedMin(sig.BitLength), sig.BitLength)
				sc.rangeMaxC = signedLiteral(signedMax(sig.BitLength), sig.BitLength)
			} else {
				sc.cType = "uint64_t"
				sc.rangeMinC = "0ULL"
				sc.rangeMaxC = unsignedLiteral(unsignedMax(sig.BitLength), sig.BitLength)
			}
			signals = append(signals, sc)
		}

		contexts = append(contexts, messageCtx{orig: msg, symbols: symbols, signals: signals})
	}
	return contexts, nil
}

func signedLiteral(v int64, bitLength int) string {
	if bitLength >= 64 {
		if v == signedMin(64) {
			return "INT64_MIN"
		}
		return "INT64_MAX"
	}
	return fmt.Sprintf("%dLL", v)
}

func unsignedLiteral(v uint64, bitLength int) string {
	if bitLength >= 64 {
		return "UINT64_MAX"
	}
	return fmt.Sprintf("%dULL", v)
}

// Generate renders the header and implementation sources for spec, per
// spec.md §4.E. Two calls on byte-identical IR always produce
// byte-identical output: no timestamps, host paths, or map iteration
// are consulted anywhere in this function.
func Generate(spec *ir.Spec) (Artifacts, error) {
	contexts, err := buildContext(spec)
	if err != nil {
		return Artifacts{}, err
	}

	headerName, sourceName := OutputFilenames(spec.Meta.Name)
	header := renderHeader(spec, headerName, contexts)
	source := renderSource(spec, headerName, contexts)

	return Artifacts{
		HeaderName: headerName,
		HeaderText: header,
		SourceName: sourceName,
		SourceText: source,
	}, nil
}

func renderHeader(spec *ir.Spec, headerName string, contexts []messageCtx) []byte {
	guard := HeaderGuard(spec.Meta.Name)
	b := render.NewBuilder()

	b.Line("#ifndef %s", guard)
	b.Line("#define %s", guard)
	b.Blank()
	b.Line("#include <stddef.h>")
	b.Line("#include <stdint.h>")
	b.Blank()
	b.Line("#ifdef __cplusplus")
	b.Line(`extern "C" {`)
	b.Line("#endif")
	b.Blank()
	b.Line("typedef enum {")
	b.Indent()
	b.Line("SPECGO_OK = 0,")
	b.Line("SPECGO_ERR_NULL = -1,")
	b.Line("SPECGO_ERR_SIZE = -2,")
	b.Line("SPECGO_ERR_RANGE = -3")
	b.Dedent()
	b.Line("} specgo_status_t;")

	for _, mc := range contexts {
		b.Blank()
		b.Line("enum {")
		b.Indent()
		b.Line("%s = %d", mc.symbols.IDMacro, mc.orig.ID)
		b.Dedent()
		b.Line("};")
		b.Blank()
		b.Line("enum {")
		b.Indent()
		b.Line("%s = %d", mc.symbols.DLCMacro, mc.orig.DLC)
		b.Dedent()
		b.Line("};")
		b.Blank()
		b.Line("typedef struct {")
		b.Indent()
		for _, sc := range mc.signals {
			b.Line("%s %s;", sc.cType, sc.cName)
		}
		b.Dedent()
		b.Line("} %s;", mc.symbols.StructName)
		b.Blank()
		b.Line("int %s(", mc.symbols.EncodeFn)
		b.Indent()
		b.Line("uint8_t *out_payload,")
		b.Line("size_t out_size,")
		b.Line("const %s *in", mc.symbols.StructName)
		b.Dedent()
		b.Line(");")
		b.Blank()
		b.Line("int %s(", mc.symbols.DecodeFn)
		b.Indent()
		b.Line("const uint8_t *payload,")
		b.Line("size_t payload_size,")
		b.Line("%s *out", mc.symbols.StructName)
		b.Dedent()
		b.Line(");")
	}

	b.Blank()
	b.Line("#ifdef __cplusplus")
	b.Line("}")
	b.Line("#endif")
	b.Blank()
	b.Line("#endif /* %s */", guard)

	return b.Bytes()
}

func renderSource(spec *ir.Spec, headerName string, contexts []messageCtx) []byte {
	b := render.NewBuilder()
	b.Line(`#include "%s"`, headerName)
	b.Blank()
	b.Line("#include <string.h>")
	b.Blank()
	b.Line("static inline void specgo_set_bit(uint8_t *buf, unsigned pos) {")
	b.Indent()
	b.Line("buf[pos / 8] |= (uint8_t)(1u << (pos %% 8));")
	b.Dedent()
	b.Line("}")
	b.Blank()
	b.Line("static inline unsigned specgo_get_bit(const uint8_t *buf, unsigned pos) {")
	b.Indent()
	b.Line("return (unsigned)((buf[pos / 8] >> (pos %% 8)) & 1u);")
	b.Dedent()
	b.Line("}")

	for _, mc := range contexts {
		b.Blank()
		renderEncode(b, spec.Meta.Name, mc)
		b.Blank()
		renderDecode(b, spec.Meta.Name, mc)
	}

	return b.Bytes()
}

func positionsLiteral(positions []int) string {
	s := ""
	for i, p := range positions {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%dU", p)
	}
	return s
}

func renderEncode(b *render.Builder, projectName string, mc messageCtx) {
	b.Line("int %s(", mc.symbols.EncodeFn)
	b.Indent()
	b.Line("uint8_t *out_payload,")
	b.Line("size_t out_size,")
	b.Line("const %s *in", mc.symbols.StructName)
	b.Dedent()
	b.Line(") {")
	b.Indent()
	b.Line("if (out_payload == NULL || in == NULL) {")
	b.Indent()
	b.Line("return SPECGO_ERR_NULL;")
	b.Dedent()
	b.Line("}")
	b.Line("if (out_size < %s) {", mc.symbols.DLCMacro)
	b.Indent()
	b.Line("return SPECGO_ERR_SIZE;")
	b.Dedent()
	b.Line("}")

	for _, sc := range mc.signals {
		if sc.orig.Signed {
			b.Line("if (in->%s < %s || in->%s > %s) {", sc.cName, sc.rangeMinC, sc.cName, sc.rangeMaxC)
		} else {
			b.Line("if (in->%s > %s) {", sc.cName, sc.rangeMaxC)
		}
		b.Indent()
		b.Line("return SPECGO_ERR_RANGE;")
		b.Dedent()
		b.Line("}")
	}

	b.Line("memset(out_payload, 0, %s);", mc.symbols.DLCMacro)

	for _, sc := range mc.signals {
		n := len(sc.positions)
		b.Line("{")
		b.Indent()
		b.Line("static const unsigned positions[%d] = { %s };", n, positionsLiteral(sc.positions))
		if sc.orig.Signed {
			b.Line("uint64_t raw = (uint64_t)in->%s & %s;", sc.cName, sc.maskC)
		} else {
			b.Line("uint64_t raw = (uint64_t)in->%s;", sc.cName)
		}
		b.Line("unsigned i;")
		b.Line("for (i = 0; i < %d; i++) {", n)
		b.Indent()
		b.Line("if ((raw >> i) & 1u) {")
		b.Indent()
		b.Line("specgo_set_bit(out_payload, positions[i]);")
		b.Dedent()
		b.Line("}")
		b.Dedent()
		b.Line("}")
		b.Dedent()
		b.Line("}")
	}

	b.Line("return SPECGO_OK;")
	b.Dedent()
	b.Line("}")
}

func renderDecode(b *render.Builder, projectName string, mc messageCtx) {
	b.Line("int %s(", mc.symbols.DecodeFn)
	b.Indent()
	b.Line("const uint8_t *payload,")
	b.Line("size_t payload_size,")
	b.Line("%s *out", mc.symbols.StructName)
	b.Dedent()
	b.Line(") {")
	b.Indent()
	b.Line("if (payload == NULL || out == NULL) {")
	b.Indent()
	b.Line("return SPECGO_ERR_NULL;")
	b.Dedent()
	b.Line("}")
	b.Line("if (payload_size < %s) {", mc.symbols.DLCMacro)
	b.Indent()
	b.Line("return SPECGO_ERR_SIZE;")
	b.Dedent()
	b.Line("}")
	b.Line("memset(out, 0, sizeof(*out));")

	for _, sc := range mc.signals {
		n := len(sc.positions)
		b.Line("{")
		b.Indent()
		b.Line("static const unsigned positions[%d] = { %s };", n, positionsLiteral(sc.positions))
		b.Line("uint64_t raw = 0;")
		b.Line("unsigned i;")
		b.Line("for (i = 0; i < %d; i++) {", n)
		b.Indent()
		b.Line("raw |= ((uint64_t)specgo_get_bit(payload, positions[i])) << i;")
		b.Dedent()
		b.Line("}")
		if sc.orig.Signed && n < 64 {
			b.Line("if (raw & (1ULL << %d)) {", n-1)
			b.Indent()
			b.Line("raw |= ~%s;", sc.maskC)
			b.Dedent()
			b.Line("}")
		}
		b.Line("out->%s = (%s)raw;", sc.cName, sc.cType)
		b.Dedent()
		b.Line("}")
	}

	b.Line("return SPECGO_OK;")
	b.Dedent()
	b.Line("}")
}
