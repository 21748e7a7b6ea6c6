package validate

import (
	"fmt"
	"sort"

	"github.com/dylanxu/specgo/bitlayout"
	"github.com/dylanxu/specgo/ir"
)

// Semantic runs Layer-1 cross-field checks, per spec.md §4.C. It never
// short-circuits: every signal of every message is checked and all
// findings are returned in one batch, ported directly from
// original_source's layer1_semantic.py.
func Semantic(spec *ir.Spec) Issues {
	var issues Issues

	for mi, msg := range spec.Messages {
		mpath := fmt.Sprintf("/messages/%d", mi)
		issues = append(issues, checkBitOverlaps(msg, mpath)...)

		for si, sig := range msg.Signals {
			spath := fmt.Sprintf("%s/signals/%d", mpath, si)
			issues = append(issues, checkFitsDLC(sig, msg, spath)...)
			issues = append(issues, checkScaleNotZero(sig, spath)...)
			issues = append(issues, checkMinLessThanMax(sig, spath)...)
			issues = append(issues, checkDefaultInRange(sig, spath)...)
			issues = append(issues, checkEnumValues(sig, spath)...)
		}
	}

	return issues
}

func checkFitsDLC(sig ir.Signal, msg ir.Message, path string) Issues {
	positions, err := bitlayout.Positions(sig.StartBit, sig.BitLength, sig.ByteOrder)
	if err != nil {
		// Malformed byte_order/length is a Layer-0 concern; Layer-1 does
		// not re-raise it, it simply cannot compute bits and skips.
		return nil
	}

	dlcBits := msg.DLC * 8
	var first = -1
	for _, p := range positions {
		if p < 0 || p >= dlcBits {
			if first == -1 || p < first {
				first = p
			}
		}
	}
	if first == -1 {
		return nil
	}
	return Issues{{
		CategoryDLCOverflow, path,
		fmt.Sprintf("signal %q: bit %d exceeds DLC (%d bytes = %d bits)", sig.Name, first, msg.DLC, dlcBits),
	}}
}

func checkBitOverlaps(msg ir.Message, mpath string) Issues {
	var issues Issues
	type occupied struct {
		name string
		bits map[int]bool
	}
	var seen []occupied

	for _, sig := range msg.Signals {
		bits, err := bitlayout.OccupiedSet(sig.StartBit, sig.BitLength, sig.ByteOrder)
		if err != nil {
			continue
		}
		for _, prev := range seen {
			var overlap []int
			for b := range bits {
				if prev.bits[b] {
					overlap = append(overlap, b)
				}
			}
			if len(overlap) > 0 {
				sort.Ints(overlap)
				issues = append(issues, Issue{
					CategoryBitOverlap, mpath,
					fmt.Sprintf("signal %q overlaps with signal %q at bit(s) %v", sig.Name, prev.name, overlap),
				})
			}
		}
		seen = append(seen, occupied{sig.Name, bits})
	}
	return issues
}

func checkScaleNotZero(sig ir.Signal, path string) Issues {
	if sig.Scale == 0 {
		return Issues{{CategoryScaleZero, path, fmt.Sprintf("signal %q: scale is 0", sig.Name)}}
	}
	return nil
}

func checkMinLessThanMax(sig ir.Signal, path string) Issues {
	if sig.Min != nil && sig.Max != nil && *sig.Min >= *sig.Max {
		return Issues{{
			CategoryRangeInverted, path,
			fmt.Sprintf("signal %q: min (%v) is not less than max (%v)", sig.Name, *sig.Min, *sig.Max),
		}}
	}
	return nil
}

func checkDefaultInRange(sig ir.Signal, path string) Issues {
	if sig.Default == nil {
		return nil
	}
	var issues Issues
	if sig.Min != nil && *sig.Default < *sig.Min {
		issues = append(issues, Issue{
			CategoryDefaultOutOfRange, path,
			fmt.Sprintf("signal %q: default (%v) is less than min (%v)", sig.Name, *sig.Default, *sig.Min),
		})
	}
	if sig.Max != nil && *sig.Default > *sig.Max {
		issues = append(issues, Issue{
			CategoryDefaultOutOfRange, path,
			fmt.Sprintf("signal %q: default (%v) is greater than max (%v)", sig.Name, *sig.Default, *sig.Max),
		})
	}
	return issues
}

func checkEnumValues(sig ir.Signal, path string) Issues {
	if len(sig.Enum) == 0 {
		return nil
	}
	var minVal, maxVal int64
	if sig.Signed {
		minVal = -(int64(1) << uint(sig.BitLength-1))
		maxVal = (int64(1) << uint(sig.BitLength-1)) - 1
	} else {
		minVal = 0
		if sig.BitLength >= 64 {
			maxVal = int64(^uint64(0) >> 1) // best effort; 64-bit unsigned enums are out of scope for int64
		} else {
			maxVal = (int64(1) << uint(sig.BitLength)) - 1
		}
	}

	var issues Issues
	for _, entry := range sig.Enum {
		if entry.Value < minVal {
			issues = append(issues, Issue{
				CategoryEnumOutOfRange, path,
				fmt.Sprintf("signal %q, enum %q: value (%d) below min for %d-bit %s signal (%d)",
					sig.Name, entry.Name, entry.Value, sig.BitLength, signedness(sig.Signed), minVal),
			})
		}
		if entry.Value > maxVal {
			issues = append(issues, Issue{
				CategoryEnumOutOfRange, path,
				fmt.Sprintf("signal %q, enum %q: value (%d) exceeds max for %d-bit %s signal (%d)",
					sig.Name, entry.Name, entry.Value, sig.BitLength, signedness(sig.Signed), maxVal),
			})
		}
	}
	return issues
}

func signedness(signed bool) string {
	if signed {
		return "signed"
	}
	return "unsigned"
}
