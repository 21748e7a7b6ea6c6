package roundtrip

import (
	"math/rand"
	"testing"

	"github.com/dylanxu/specgo/ir"
)

func TestSignalRangeUnsigned(t *testing.T) {
	sig := ir.Signal{BitLength: 4, Signed: false}
	lo, hi := SignalRange(sig)
	if lo != 0 || hi != 15 {
		t.Fatalf("got [%d, %d], want [0, 15]", lo, hi)
	}
}

func TestSignalRangeSigned(t *testing.T) {
	sig := ir.Signal{BitLength: 4, Signed: true}
	lo, hi := SignalRange(sig)
	if int64(lo) != -8 || int64(hi) != 7 {
		t.Fatalf("got [%d, %d], want [-8, 7]", int64(lo), int64(hi))
	}
}

func TestSignalRangeFullWidthUnsigned(t *testing.T) {
	sig := ir.Signal{BitLength: 64, Signed: false}
	lo, hi := SignalRange(sig)
	if lo != 0 || hi != ^uint64(0) {
		t.Fatalf("got [%d, %d], want [0, max uint64]", lo, hi)
	}
}

func TestSignalRangeFullWidthSigned(t *testing.T) {
	sig := ir.Signal{BitLength: 64, Signed: true}
	lo, hi := SignalRange(sig)
	if int64(lo) != -1<<63 || int64(hi) != (1<<63)-1 {
		t.Fatalf("got [%d, %d], want full int64 range", int64(lo), int64(hi))
	}
}

func TestRandomRawValueStaysInRangeUnsigned(t *testing.T) {
	sig := ir.Signal{BitLength: 6, Signed: false}
	lo, hi := SignalRange(sig)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		v := RandomRawValue(sig, rng)
		if v < lo || v > hi {
			t.Fatalf("sampled %d outside [%d, %d]", v, lo, hi)
		}
	}
}

func TestRandomRawValueStaysInRangeSigned(t *testing.T) {
	sig := ir.Signal{BitLength: 12, Signed: true}
	lo, hi := SignalRange(sig)
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 2000; i++ {
		v := int64(RandomRawValue(sig, rng))
		if v < int64(lo) || v > int64(hi) {
			t.Fatalf("sampled %d outside [%d, %d]", v, int64(lo), int64(hi))
		}
	}
}

func TestRandomRawValueFullWidthUnsignedNoPanic(t *testing.T) {
	sig := ir.Signal{BitLength: 64, Signed: false}
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 500; i++ {
		_ = RandomRawValue(sig, rng)
	}
}

func TestRandomRawValueFullWidthSignedNoPanic(t *testing.T) {
	sig := ir.Signal{BitLength: 64, Signed: true}
	rng := rand.New(rand.NewSource(4))
	for i := 0; i < 500; i++ {
		_ = RandomRawValue(sig, rng)
	}
}

func TestRandomRawValueCanHitBoundaries(t *testing.T) {
	sig := ir.Signal{BitLength: 4, Signed: false}
	lo, hi := SignalRange(sig)
	rng := rand.New(rand.NewSource(5))

	sawLo, sawHi := false, false
	for i := 0; i < 500; i++ {
		v := RandomRawValue(sig, rng)
		if v == lo {
			sawLo = true
		}
		if v == hi {
			sawHi = true
		}
	}
	if !sawLo || !sawHi {
		t.Fatalf("expected boundary sampling to eventually hit both bounds (lo seen=%v, hi seen=%v)", sawLo, sawHi)
	}
}
