package roundtrip

import (
	"math"
	"math/rand"

	"github.com/dylanxu/specgo/ir"
)

// SignalRange returns the valid raw integer range for sig, mirroring
// the encode-side range check emitted by codegen. Both bounds are
// returned as raw bit patterns: callers that need signed semantics
// cast through int64.
func SignalRange(sig ir.Signal) (lo, hi uint64) {
	if sig.Signed {
		if sig.BitLength >= 64 {
			minI64 := int64(math.MinInt64)
			return uint64(minI64), uint64(math.MaxInt64)
		}
		min := -(int64(1) << uint(sig.BitLength-1))
		max := (int64(1) << uint(sig.BitLength-1)) - 1
		return uint64(min), uint64(max)
	}
	if sig.BitLength >= 64 {
		return 0, ^uint64(0)
	}
	return 0, (uint64(1) << uint(sig.BitLength)) - 1
}

// RandomRawValue samples a seeded raw value for sig from rng. Half the
// time it returns one of a small set of boundary values (min, max,
// zero, +/-1 when in range) to stress edge cases; the other half it
// draws uniformly across the signal's full range.
func RandomRawValue(sig ir.Signal, rng *rand.Rand) uint64 {
	lo, hi := SignalRange(sig)

	if rng.Float64() < 0.5 {
		candidates := boundaryCandidates(sig, lo, hi)
		return candidates[rng.Intn(len(candidates))]
	}
	return uniformInRange(sig, lo, hi, rng)
}

func boundaryCandidates(sig ir.Signal, lo, hi uint64) []uint64 {
	seen := map[uint64]bool{}
	var out []uint64
	add := func(v uint64) {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	add(lo)
	add(hi)
	add(0)
	if sig.Signed {
		if int64(lo) <= 1 && 1 <= int64(hi) {
			add(1)
		}
		if int64(lo) <= -1 && -1 <= int64(hi) {
			negOne := int64(-1)
			add(uint64(negOne))
		}
	} else {
		if lo <= 1 && 1 <= hi {
			add(1)
		}
	}
	return out
}

// uniformInRange draws uniformly from [lo, hi], both given as raw bit
// patterns. Differences and sums are computed with wrapping uint64/
// int64 arithmetic so a full-width range (e.g. the entire int64 or
// uint64 domain) never overflows the calculation.
func uniformInRange(sig ir.Signal, lo, hi uint64, rng *rand.Rand) uint64 {
	if sig.Signed {
		loI, hiI := int64(lo), int64(hi)
		span := uint64(hiI - loI)
		if span == ^uint64(0) {
			return rng.Uint64()
		}
		offset := rng.Uint64() % (span + 1)
		return uint64(loI + int64(offset))
	}
	span := hi - lo
	if span == ^uint64(0) {
		return rng.Uint64()
	}
	offset := rng.Uint64() % (span + 1)
	return lo + offset
}
