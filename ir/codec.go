package ir

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// SchemaError reports a Layer-0 structural failure: a type mismatch, a
// missing required field, or an unrecognized key. Path is a
// JSON-pointer-style location such as "/messages/0/signals/2/start_bit".
type SchemaError struct {
	Path    string
	Message string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("ir schema error at %s: %s", e.Path, e.Message)
}

// Category implements the stable-category-string contract of §7.
func (e *SchemaError) Category() string { return "IrSchemaError" }

var knownSpecKeys = map[string]bool{
	"ir_version": true,
	"meta":       true,
	"bus_type":   true,
	"messages":   true,
}

var knownMetaKeys = map[string]bool{
	"name": true, "version": true, "source": true, "format": true,
}

var knownBusTypeKeys = map[string]bool{
	"bustype": true, "busmode": true, "sup_bitrates": true,
}

var knownMessageKeys = map[string]bool{
	"id": true, "name": true, "dlc": true, "description": true, "signals": true,
}

var knownSignalKeys = map[string]bool{
	"name": true, "start_bit": true, "bit_length": true, "byte_order": true,
	"signed": true, "scale": true, "offset": true, "min": true, "max": true,
	"default": true, "unit": true, "enum": true,
}

var knownEnumKeys = map[string]bool{
	"name": true, "value": true, "description": true,
}

func rejectUnknown(node *yaml.Node, known map[string]bool, path string) error {
	if node.Kind != yaml.MappingNode {
		return &SchemaError{Path: path, Message: fmt.Sprintf("expected a mapping, got %s", kindName(node.Kind))}
	}
	for i := 0; i < len(node.Content); i += 2 {
		key := node.Content[i].Value
		if !known[key] {
			return &SchemaError{Path: path, Message: fmt.Sprintf("unknown field %q", key)}
		}
	}
	return nil
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}

func mustField(node *yaml.Node, key, path string) (*yaml.Node, error) {
	for i := 0; i < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1], nil
		}
	}
	return nil, &SchemaError{Path: path, Message: fmt.Sprintf("missing required field %q", key)}
}

// ParseYAML decodes a canonical IR document, rejecting any key not in
// the closed schema of spec.md §6. Forward-compatibility is explicit
// through ir_version rather than silently accepting unknown fields.
func ParseYAML(data []byte) (*Spec, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &SchemaError{Path: "/", Message: err.Error()}
	}
	if len(doc.Content) == 0 {
		return nil, &SchemaError{Path: "/", Message: "empty document"}
	}
	root := doc.Content[0]
	if err := rejectUnknown(root, knownSpecKeys, "/"); err != nil {
		return nil, err
	}

	spec := &Spec{}
	if n, err := mustField(root, "ir_version", "/ir_version"); err != nil {
		return nil, err
	} else if err := n.Decode(&spec.IRVersion); err != nil {
		return nil, &SchemaError{Path: "/ir_version", Message: err.Error()}
	}

	metaNode, err := mustField(root, "meta", "/meta")
	if err != nil {
		return nil, err
	}
	if err := rejectUnknown(metaNode, knownMetaKeys, "/meta"); err != nil {
		return nil, err
	}
	if err := metaNode.Decode(&spec.Meta); err != nil {
		return nil, &SchemaError{Path: "/meta", Message: err.Error()}
	}

	busNode, err := mustField(root, "bus_type", "/bus_type")
	if err != nil {
		return nil, err
	}
	if err := rejectUnknown(busNode, knownBusTypeKeys, "/bus_type"); err != nil {
		return nil, err
	}
	if err := busNode.Decode(&spec.BusType); err != nil {
		return nil, &SchemaError{Path: "/bus_type", Message: err.Error()}
	}

	msgsNode, err := mustField(root, "messages", "/messages")
	if err != nil {
		return nil, err
	}
	if msgsNode.Kind != yaml.SequenceNode {
		return nil, &SchemaError{Path: "/messages", Message: "expected a sequence"}
	}
	for i, msgNode := range msgsNode.Content {
		path := fmt.Sprintf("/messages/%d", i)
		if err := rejectUnknown(msgNode, knownMessageKeys, path); err != nil {
			return nil, err
		}
		var msg Message
		if err := msgNode.Decode(&msg); err != nil {
			return nil, &SchemaError{Path: path, Message: err.Error()}
		}

		sigsNode, err := mustField(msgNode, "signals", path+"/signals")
		if err != nil {
			return nil, err
		}
		if sigsNode.Kind != yaml.SequenceNode {
			return nil, &SchemaError{Path: path + "/signals", Message: "expected a sequence"}
		}
		for j, sigNode := range sigsNode.Content {
			sigPath := fmt.Sprintf("%s/signals/%d", path, j)
			if err := rejectUnknown(sigNode, knownSignalKeys, sigPath); err != nil {
				return nil, err
			}
			enumNode, _ := findField(sigNode, "enum")
			if enumNode != nil && enumNode.Kind == yaml.SequenceNode {
				for k, entryNode := range enumNode.Content {
					entryPath := fmt.Sprintf("%s/enum/%d", sigPath, k)
					if err := rejectUnknown(entryNode, knownEnumKeys, entryPath); err != nil {
						return nil, err
					}
				}
			}
		}
		spec.Messages = append(spec.Messages, msg)
	}

	return spec, nil
}

func findField(node *yaml.Node, key string) (*yaml.Node, bool) {
	if node.Kind != yaml.MappingNode {
		return nil, false
	}
	for i := 0; i < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1], true
		}
	}
	return nil, false
}

// EncodeYAML renders a Spec into its canonical on-disk form: UTF-8,
// stable key order (struct field order), two-space indent. Two
// consecutive calls on an identical Spec value always produce
// byte-identical output, per spec.md §4.A's round-trip stability
// requirement.
func EncodeYAML(spec *Spec) ([]byte, error) {
	var buf strings.Builder
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(spec); err != nil {
		return nil, fmt.Errorf("ir: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("ir: encode: %w", err)
	}
	return []byte(buf.String()), nil
}
