package validate

import (
	"fmt"

	"github.com/dylanxu/specgo/ir"
)

// Schema runs Layer-0 structural checks against an already-parsed Spec
// (the closed-schema/unknown-key/type-mismatch checks themselves run
// during ir.ParseYAML; Schema checks the primitive-range constraints
// spec.md §4.B calls out: bit length, DLC, name uniqueness shape).
// Passing Schema is a precondition for Semantic.
func Schema(spec *ir.Spec) Issues {
	var issues Issues

	if spec.Meta.Name == "" {
		issues = append(issues, Issue{CategorySchema, "/meta/name", "name must not be empty"})
	}
	if spec.Meta.Source == "" {
		issues = append(issues, Issue{CategorySchema, "/meta/source", "source must not be empty"})
	}

	seenMsgID := make(map[uint32]bool)
	seenMsgName := make(map[string]bool)

	for mi, msg := range spec.Messages {
		mpath := fmt.Sprintf("/messages/%d", mi)

		if msg.DLC < 1 || msg.DLC > 64 {
			issues = append(issues, Issue{CategorySchema, mpath + "/dlc",
				fmt.Sprintf("dlc %d out of range [1,64]", msg.DLC)})
		}
		if msg.Name == "" {
			issues = append(issues, Issue{CategorySchema, mpath + "/name", "name must not be empty"})
		} else if seenMsgName[msg.Name] {
			issues = append(issues, Issue{CategorySchema, mpath + "/name",
				fmt.Sprintf("duplicate message name %q", msg.Name)})
		}
		seenMsgName[msg.Name] = true

		if seenMsgID[msg.ID] {
			issues = append(issues, Issue{CategorySchema, mpath + "/id",
				fmt.Sprintf("duplicate message id %d", msg.ID)})
		}
		seenMsgID[msg.ID] = true

		seenSigName := make(map[string]bool)
		for si, sig := range msg.Signals {
			spath := fmt.Sprintf("%s/signals/%d", mpath, si)

			if sig.Name == "" {
				issues = append(issues, Issue{CategorySchema, spath + "/name", "name must not be empty"})
			} else if seenSigName[sig.Name] {
				issues = append(issues, Issue{CategorySchema, spath + "/name",
					fmt.Sprintf("duplicate signal name %q in message %q", sig.Name, msg.Name)})
			}
			seenSigName[sig.Name] = true

			if sig.StartBit < 0 {
				issues = append(issues, Issue{CategorySchema, spath + "/start_bit",
					fmt.Sprintf("start_bit %d must be non-negative", sig.StartBit)})
			}
			if sig.BitLength < 1 || sig.BitLength > 64 {
				issues = append(issues, Issue{CategorySchema, spath + "/bit_length",
					fmt.Sprintf("bit_length %d out of range [1,64]", sig.BitLength)})
			}
			switch sig.ByteOrder {
			case ir.LittleEndian, ir.BigEndian:
			default:
				issues = append(issues, Issue{CategorySchema, spath + "/byte_order",
					fmt.Sprintf("unknown byte_order %q", sig.ByteOrder)})
			}

			seenEnumLabel := make(map[string]bool)
			seenEnumValue := make(map[int64]bool)
			for ei, entry := range sig.Enum {
				epath := fmt.Sprintf("%s/enum/%d", spath, ei)
				if seenEnumLabel[entry.Name] {
					issues = append(issues, Issue{CategorySchema, epath + "/name",
						fmt.Sprintf("duplicate enum label %q", entry.Name)})
				}
				seenEnumLabel[entry.Name] = true
				if seenEnumValue[entry.Value] {
					issues = append(issues, Issue{CategorySchema, epath + "/value",
						fmt.Sprintf("duplicate enum value %d", entry.Value)})
				}
				seenEnumValue[entry.Value] = true
			}
		}
	}

	return issues
}
