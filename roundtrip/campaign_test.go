package roundtrip

import (
	"context"
	"testing"

	"github.com/dylanxu/specgo/config"
	"github.com/dylanxu/specgo/ir"
)

// funcCodec adapts a plain Go function to the Codec interface, used in
// place of a real dlopen'd CodecFn so these tests need no native
// compiler.
type funcCodec func(payload []byte, strct []byte) int

func (f funcCodec) Call(payload []byte, strct []byte) int { return f(payload, strct) }

func twoNibbleMessage() ir.Message {
	return ir.Message{
		ID: 0x102, Name: "sg_template_roundtrip_mismatch_msg", DLC: 1,
		Signals: []ir.Signal{
			{Name: "counter", StartBit: 0, BitLength: 4, ByteOrder: ir.LittleEndian, Scale: 1},
			{Name: "mode", StartBit: 4, BitLength: 4, ByteOrder: ir.LittleEndian, Scale: 1},
		},
	}
}

// correctBinding wires a binding whose encode/decode genuinely agree:
// payload[0] = counter | (mode << 4).
func correctBinding(msg ir.Message) *MessageBinding {
	layout := layoutFor(msg)
	encode := funcCodec(func(payload, strct []byte) int {
		counter := layout.get(strct, 0)
		mode := layout.get(strct, 1)
		payload[0] = byte((counter & 0x0F) | ((mode & 0x0F) << 4))
		return 0
	})
	decode := funcCodec(func(payload, strct []byte) int {
		layout.set(strct, 0, uint64(payload[0]&0x0F))
		layout.set(strct, 1, uint64((payload[0]>>4)&0x0F))
		return 0
	})
	return &MessageBinding{
		Message: msg,
		Layout:  layout,
		Encode:  encode,
		Decode:  decode,
		OccupiedSet: map[int]bool{
			0: true, 1: true, 2: true, 3: true,
			4: true, 5: true, 6: true, 7: true,
		},
	}
}

// buggyBinding reproduces the "intentional +1 bug" reference artifact:
// decode adds one to counter, so encode(decode(x)) != x.
func buggyBinding(msg ir.Message) *MessageBinding {
	b := correctBinding(msg)
	layout := b.Layout
	b.Decode = funcCodec(func(payload, strct []byte) int {
		counterRaw := payload[0] & 0x0F
		layout.set(strct, 0, uint64((counterRaw+1)&0x0F))
		layout.set(strct, 1, uint64((payload[0]>>4)&0x0F))
		return 0
	})
	return b
}

func TestCampaignPassesOnCorrectBinding(t *testing.T) {
	msg := twoNibbleMessage()
	campaign := Campaign{
		ProjectName:  "demo",
		Bindings:     []*MessageBinding{correctBinding(msg)},
		Loops:        3,
		MasterSeed:   42,
		CasesPerSeed: 8,
		FailPolicy:   config.ContinueOnFail,
	}
	result := campaign.Run(context.Background())
	if len(result.Failures) != 0 {
		t.Fatalf("expected no failures, got %d: %+v", len(result.Failures), result.Failures)
	}
	if result.CasesRun == 0 {
		t.Fatal("expected cases to run")
	}
}

// S6: the injected off-by-one decode bug must be caught by the
// value-equality roundtrip property.
func TestCampaignDetectsInjectedBug(t *testing.T) {
	msg := twoNibbleMessage()
	campaign := Campaign{
		ProjectName:  "demo",
		Bindings:     []*MessageBinding{buggyBinding(msg)},
		Loops:        1,
		MasterSeed:   7,
		CasesPerSeed: 8,
		FailPolicy:   config.ContinueOnFail,
	}
	result := campaign.Run(context.Background())
	if len(result.Failures) == 0 {
		t.Fatal("expected the injected decode bug to produce failures")
	}
	found := false
	for _, f := range result.Failures {
		if f.Property == "raw_encode_decode_roundtrip" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected at least one raw_encode_decode_roundtrip failure, got: %+v", result.Failures)
	}
}

func TestCampaignStopOnFailHaltsAfterFirstFailingLoop(t *testing.T) {
	msg := twoNibbleMessage()
	campaign := Campaign{
		ProjectName:  "demo",
		Bindings:     []*MessageBinding{buggyBinding(msg)},
		Loops:        10,
		MasterSeed:   7,
		CasesPerSeed: 4,
		FailPolicy:   config.StopOnFail,
	}
	result := campaign.Run(context.Background())
	if len(result.LoopSummaries) != 1 {
		t.Fatalf("expected exactly 1 loop to run under stop-on-fail, got %d", len(result.LoopSummaries))
	}
}

func TestCampaignContinueOnFailRunsAllLoops(t *testing.T) {
	msg := twoNibbleMessage()
	campaign := Campaign{
		ProjectName:  "demo",
		Bindings:     []*MessageBinding{buggyBinding(msg)},
		Loops:        5,
		MasterSeed:   7,
		CasesPerSeed: 4,
		FailPolicy:   config.ContinueOnFail,
	}
	result := campaign.Run(context.Background())
	if len(result.LoopSummaries) != 5 {
		t.Fatalf("expected all 5 loops to run under continue-on-fail, got %d", len(result.LoopSummaries))
	}
}

func TestCampaignHonorsContextCancellation(t *testing.T) {
	msg := twoNibbleMessage()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	campaign := Campaign{
		ProjectName:  "demo",
		Bindings:     []*MessageBinding{correctBinding(msg)},
		Loops:        5,
		MasterSeed:   1,
		CasesPerSeed: 2,
		FailPolicy:   config.ContinueOnFail,
	}
	result := campaign.Run(ctx)
	if len(result.LoopSummaries) != 0 {
		t.Fatalf("expected a pre-cancelled context to run zero loops, got %d", len(result.LoopSummaries))
	}
	if len(result.LoopSeeds) != 5 {
		t.Fatalf("loop seeds should still be derived even if no loops ran: got %d", len(result.LoopSeeds))
	}
}
