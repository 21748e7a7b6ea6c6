package roundtrip

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/dylanxu/specgo/config"
)

// Failure records one violated property from one loop, carrying
// enough context for the error report (spec.md §6): the sampled
// input, what encode/decode actually produced, and which property
// rejected it.
type Failure struct {
	LoopIndex   int
	LoopSeed    uint64
	ProjectName string
	MessageName string
	EncodeFn    string
	DecodeFn    string
	Property    string
	CaseIndex   int
	Input       map[string]uint64
	Encoded     []byte
	Decoded     map[string]uint64
	Detail      string
}

// LoopSummary is the per-loop pass/fail tally written into the
// summary report.
type LoopSummary struct {
	LoopIndex    int
	Seed         uint64
	CasesRun     int
	FailureCount int
}

func (s LoopSummary) Passed() bool { return s.FailureCount == 0 }

// Campaign configures one roundtrip verification run against a set of
// message bindings, per spec.md §4.G.
type Campaign struct {
	ProjectName  string
	Bindings     []*MessageBinding
	Loops        int
	MasterSeed   uint64
	CasesPerSeed int
	FailPolicy   config.FailPolicy
	// Filter, when non-nil and enabled, restricts which bindings a
	// loop actually exercises to those admitted by QueryMessage.
	Filter *Filter
}

// Result is everything a completed (or partially completed, on
// stop-on-fail) campaign produced.
type Result struct {
	LoopSeeds     []uint64
	LoopSummaries []LoopSummary
	Failures      []Failure
	CasesRun      int
}

// Run drives the campaign loop by loop, in increasing seed order, per
// spec.md §5's requirement that loop reports be totally ordered. On
// StopOnFail the campaign halts after the first loop with any failure
// but still returns everything completed so far — a partial summary
// can always be written. ctx is checked between loops only, never
// mid-loop, so a cancellation always lands on a loop boundary.
func (c Campaign) Run(ctx context.Context) Result {
	seeds := LoopSeeds(c.MasterSeed, c.Loops)
	result := Result{LoopSeeds: seeds}

	for loopIndex, seed := range seeds {
		if ctx.Err() != nil {
			break
		}

		failures, cases := c.runLoop(loopIndex, seed)
		result.CasesRun += cases
		result.Failures = append(result.Failures, failures...)
		result.LoopSummaries = append(result.LoopSummaries, LoopSummary{
			LoopIndex:    loopIndex,
			Seed:         seed,
			CasesRun:     cases,
			FailureCount: len(failures),
		})

		if len(failures) > 0 && c.FailPolicy == config.StopOnFail {
			break
		}
	}

	return result
}

func (c Campaign) runLoop(loopIndex int, seed uint64) ([]Failure, int) {
	var failures []Failure
	cases := 0

	for msgIndex, binding := range c.Bindings {
		if c.Filter != nil && c.Filter.IsEnabled() && !c.Filter.QueryMessage(binding.Message.ID) {
			continue
		}

		mix := (seed << 20) ^ uint64(msgIndex) ^ uint64(binding.Message.ID)
		rng := rand.New(rand.NewSource(int64(mix)))

		for i := 0; i < c.CasesPerSeed; i++ {
			cases++
			if f := c.checkEncodeDecode(loopIndex, seed, binding, rng, i); f != nil {
				failures = append(failures, *f)
			}
		}

		for i := 0; i < c.CasesPerSeed; i++ {
			cases++
			if f := c.checkDecodeEncodeMasked(loopIndex, seed, binding, rng, i); f != nil {
				failures = append(failures, *f)
			}
		}
	}

	return failures, cases
}

func (c Campaign) newFailure(loopIndex int, seed uint64, b *MessageBinding, property string, caseIndex int, detail string) *Failure {
	return &Failure{
		LoopIndex:   loopIndex,
		LoopSeed:    seed,
		ProjectName: c.ProjectName,
		MessageName: b.Message.Name,
		EncodeFn:    b.Symbols.EncodeFn,
		DecodeFn:    b.Symbols.DecodeFn,
		Property:    property,
		CaseIndex:   caseIndex,
		Detail:      detail,
	}
}

// checkEncodeDecode implements the value-equality roundtrip property:
// decode(encode(x)) == x, field by field.
func (c Campaign) checkEncodeDecode(loopIndex int, seed uint64, b *MessageBinding, rng *rand.Rand, caseIndex int) *Failure {
	signals := b.Layout.signals
	input := make(map[string]uint64, len(signals))
	originalBuf := b.Layout.newBuffer()
	for i, sig := range signals {
		raw := RandomRawValue(sig, rng)
		b.Layout.set(originalBuf, i, raw)
		input[sig.Name] = raw
	}

	payload := make([]byte, b.Message.DLC)
	status := b.Encode.Call(payload, originalBuf)
	if status != 0 {
		f := c.newFailure(loopIndex, seed, b, "raw_encode_decode_roundtrip", caseIndex,
			fmt.Sprintf("encode status=%d", status))
		f.Input = input
		return f
	}

	decodedBuf := b.Layout.newBuffer()
	status = b.Decode.Call(payload, decodedBuf)
	if status != 0 {
		f := c.newFailure(loopIndex, seed, b, "raw_encode_decode_roundtrip", caseIndex,
			fmt.Sprintf("decode status=%d", status))
		f.Input = input
		f.Encoded = payload
		return f
	}

	decoded := make(map[string]uint64, len(signals))
	for i, sig := range signals {
		decoded[sig.Name] = b.Layout.get(decodedBuf, i)
	}
	for _, sig := range signals {
		if decoded[sig.Name] != input[sig.Name] {
			f := c.newFailure(loopIndex, seed, b, "raw_encode_decode_roundtrip", caseIndex,
				fmt.Sprintf("field mismatch: %s expected=%d got=%d", sig.Name, input[sig.Name], decoded[sig.Name]))
			f.Input = input
			f.Encoded = payload
			f.Decoded = decoded
			return f
		}
	}
	return nil
}

// checkDecodeEncodeMasked implements the mask property: for an
// arbitrary payload, decoding then re-encoding must zero every bit
// outside the message's occupied set and reproduce every bit inside
// it, per spec.md §4.G.
func (c Campaign) checkDecodeEncodeMasked(loopIndex int, seed uint64, b *MessageBinding, rng *rand.Rand, caseIndex int) *Failure {
	payloadIn := make([]byte, b.Message.DLC)
	rng.Read(payloadIn)

	decodedBuf := b.Layout.newBuffer()
	status := b.Decode.Call(payloadIn, decodedBuf)
	if status != 0 {
		return c.newFailure(loopIndex, seed, b, "raw_decode_encode_masked_roundtrip", caseIndex,
			fmt.Sprintf("decode status=%d", status))
	}

	payloadOut := make([]byte, b.Message.DLC)
	status = b.Encode.Call(payloadOut, decodedBuf)
	if status != 0 {
		return c.newFailure(loopIndex, seed, b, "raw_decode_encode_masked_roundtrip", caseIndex,
			fmt.Sprintf("encode status=%d", status))
	}

	for bitIndex := 0; bitIndex < b.Message.DLC*8; bitIndex++ {
		got := bitAt(payloadOut, bitIndex)
		want := 0
		if b.OccupiedSet[bitIndex] {
			want = bitAt(payloadIn, bitIndex)
		}
		if got != want {
			f := c.newFailure(loopIndex, seed, b, "raw_decode_encode_masked_roundtrip", caseIndex,
				fmt.Sprintf("bit mismatch at bit=%d: expected=%d got=%d", bitIndex, want, got))
			f.Encoded = payloadOut
			return f
		}
	}
	return nil
}

func bitAt(payload []byte, bitIndex int) int {
	return int((payload[bitIndex/8] >> uint(bitIndex%8)) & 1)
}
