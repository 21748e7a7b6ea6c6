// Package bitlayout maps a signal's (start bit, length, byte order) to
// the absolute payload bit positions it occupies, and implements the
// scatter/gather encode and decode of a raw integer value into those
// positions. It is consumed by the validator (overlap/DLC checks), by
// codegen (bit literal tables), and by the roundtrip verifier (mask
// property), so the Motorola/Intel walk exists exactly once in this
// module instead of being duplicated at each call site.
package bitlayout

import (
	"fmt"

	"github.com/dylanxu/specgo/ir"
)

// Positions returns the length-long ordered list of absolute payload
// bit indices a signal occupies, ordered least-significant-bit-first:
// Positions(...)[i] is bit i of the signal's raw value.
//
// Little-endian ("Intel"): bits are contiguous upward from startBit.
//
// Big-endian ("Motorola"): startBit names the signal's MSB. Each byte is
// numbered 7..0 MSB-first; on underflow below bit 0 of a byte, the walk
// continues at bit 7 of the next byte (byte index increasing). That
// walk yields positions MSB-first, so it is reversed before return to
// keep the LSB-first contract uniform across both orders.
func Positions(startBit, length int, order ir.ByteOrder) ([]int, error) {
	if length <= 0 || length > 64 {
		return nil, fmt.Errorf("bitlayout: bit_length %d out of range [1,64]", length)
	}

	switch order {
	case ir.LittleEndian:
		positions := make([]int, length)
		for i := 0; i < length; i++ {
			positions[i] = startBit + i
		}
		return positions, nil

	case ir.BigEndian:
		msbFirst := make([]int, length)
		bitPos := startBit
		for i := 0; i < length; i++ {
			msbFirst[i] = bitPos
			if bitPos%8 == 0 {
				bitPos += 15
			} else {
				bitPos--
			}
		}
		lsbFirst := make([]int, length)
		for i, p := range msbFirst {
			lsbFirst[length-1-i] = p
		}
		return lsbFirst, nil

	default:
		return nil, fmt.Errorf("bitlayout: unsupported byte order %q", order)
	}
}

// OccupiedSet returns the unordered set of positions a signal occupies,
// used by the validator for DLC-bound and overlap checks where order
// does not matter.
func OccupiedSet(startBit, length int, order ir.ByteOrder) (map[int]bool, error) {
	positions, err := Positions(startBit, length, order)
	if err != nil {
		return nil, err
	}
	set := make(map[int]bool, len(positions))
	for _, p := range positions {
		set[p] = true
	}
	return set, nil
}

// Encode scatters the low `length` bits of raw into payload (a byte
// slice of at least ceil(max(positions)/8)+1 bytes) at the given
// positions, per spec.md §4.D: for i in 0..length, if bit i of raw is
// set, set payload bit positions[i].
func Encode(payload []byte, positions []int, raw uint64) {
	for i, pos := range positions {
		if (raw>>uint(i))&1 == 1 {
			payload[pos/8] |= 1 << uint(pos%8)
		}
	}
}

// Decode gathers the payload bits at the given positions back into an
// unsigned integer, LSB-first, per spec.md §4.D.
func Decode(payload []byte, positions []int) uint64 {
	var raw uint64
	for i, pos := range positions {
		bit := (uint64(payload[pos/8]) >> uint(pos%8)) & 1
		raw |= bit << uint(i)
	}
	return raw
}

// SignExtend interprets the low `length` bits of raw as a two's
// complement integer and sign-extends it to a full int64, per spec.md
// §4.D's decode step ("if signed, sign-extend from bit n-1 to 64 bits").
func SignExtend(raw uint64, length int) int64 {
	if length >= 64 {
		return int64(raw)
	}
	shift := uint(64 - length)
	return int64(raw<<shift) >> shift
}

// Mask returns the bitmask with exactly the bits named by positions
// set, as a little-endian byte slice of the given DLC length. It is
// used by the roundtrip verifier's mask property (spec.md §8 invariant
// 5) and can be folded (OR'd) across a message's signals to get the
// message-level occupied mask.
func Mask(dlc int, positions []int) []byte {
	mask := make([]byte, dlc)
	for _, pos := range positions {
		mask[pos/8] |= 1 << uint(pos%8)
	}
	return mask
}
