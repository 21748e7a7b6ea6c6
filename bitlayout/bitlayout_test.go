package bitlayout

import (
	"reflect"
	"testing"

	"github.com/dylanxu/specgo/ir"
)

// S1: single 1-bit little-endian signal at start_bit 0, DLC 1.
func TestS1SingleBitLittleEndian(t *testing.T) {
	positions, err := Positions(0, 1, ir.LittleEndian)
	if err != nil {
		t.Fatal(err)
	}
	payload := make([]byte, 1)
	Encode(payload, positions, 1)
	if payload[0] != 0x01 {
		t.Fatalf("encoded payload = %#x, want 0x01", payload[0])
	}
	if got := Decode(payload, positions); got != 1 {
		t.Fatalf("decoded = %d, want 1", got)
	}
}

// S2: two 4-bit little-endian signals packed into one byte.
func TestS2TwoNibblesLittleEndian(t *testing.T) {
	aPos, _ := Positions(0, 4, ir.LittleEndian)
	bPos, _ := Positions(4, 4, ir.LittleEndian)

	payload := make([]byte, 1)
	Encode(payload, aPos, 0x5)
	Encode(payload, bPos, 0xA)
	if payload[0] != 0xA5 {
		t.Fatalf("encoded payload = %#x, want 0xA5", payload[0])
	}

	if got := Decode(payload, aPos); got != 5 {
		t.Fatalf("decoded A = %d, want 5", got)
	}
	if got := Decode(payload, bPos); got != 10 {
		t.Fatalf("decoded B = %d, want 10", got)
	}

	for b := 0; b < 256; b++ {
		p := []byte{byte(b)}
		a := Decode(p, aPos)
		bb := Decode(p, bPos)
		out := make([]byte, 1)
		Encode(out, aPos, a)
		Encode(out, bPos, bb)
		if out[0] != p[0] {
			t.Fatalf("roundtrip failed for byte %#x: got %#x", b, out[0])
		}
	}
}

// S3: big-endian signal, start_bit 7 (MSB of byte 0), length 16, DLC 2.
func TestS3Motorola16Bit(t *testing.T) {
	positions, err := Positions(7, 16, ir.BigEndian)
	if err != nil {
		t.Fatal(err)
	}
	payload := make([]byte, 2)
	Encode(payload, positions, 0x1234)
	want := []byte{0x12, 0x34}
	if !reflect.DeepEqual(payload, want) {
		t.Fatalf("encoded payload = %#v, want %#v", payload, want)
	}
	if got := Decode(payload, positions); got != 0x1234 {
		t.Fatalf("decoded = %#x, want 0x1234", got)
	}
}

func TestMotorolaByteAlignedMatchesIntel(t *testing.T) {
	// A signal that occupies exactly one byte and is byte-aligned encodes
	// identically under both byte orders (spec.md §4.D edge case).
	intelPos, _ := Positions(0, 8, ir.LittleEndian)
	motoPos, _ := Positions(7, 8, ir.BigEndian)

	for _, v := range []uint64{0x00, 0x01, 0x80, 0xFF, 0x3C} {
		a := make([]byte, 1)
		b := make([]byte, 1)
		Encode(a, intelPos, v)
		Encode(b, motoPos, v)
		if a[0] != b[0] {
			t.Fatalf("value %#x: intel=%#x moto=%#x, want equal", v, a[0], b[0])
		}
	}
}

func TestSignExtend(t *testing.T) {
	cases := []struct {
		raw    uint64
		length int
		want   int64
	}{
		{0xF, 4, -1},
		{0x7, 4, 7},
		{0x8, 4, -8},
		{0, 1, 0},
		{1, 1, -1},
	}
	for _, c := range cases {
		if got := SignExtend(c.raw, c.length); got != c.want {
			t.Fatalf("SignExtend(%#x, %d) = %d, want %d", c.raw, c.length, got, c.want)
		}
	}
}

func TestMaskUnion(t *testing.T) {
	aPos, _ := Positions(0, 4, ir.LittleEndian)
	bPos, _ := Positions(4, 4, ir.LittleEndian)
	aMask := Mask(1, aPos)
	bMask := Mask(1, bPos)
	if aMask[0]|bMask[0] != 0xFF {
		t.Fatalf("combined mask = %#x, want 0xff", aMask[0]|bMask[0])
	}
}

func TestPositionsRejectsOutOfRangeLength(t *testing.T) {
	if _, err := Positions(0, 0, ir.LittleEndian); err == nil {
		t.Fatal("expected error for zero length")
	}
	if _, err := Positions(0, 65, ir.LittleEndian); err == nil {
		t.Fatal("expected error for length > 64")
	}
}
