// Package codegen renders deterministic C encoder/decoder source from a
// validated IR Spec, per spec.md §4.E. naming.go is the pure naming
// policy: every generated identifier is derived purely from IR content,
// so two invocations on the same bytes always agree, and two specs
// never collide on a symbol.
package codegen

import (
	"fmt"
	"strings"
)

// VendorPrefix prefixes every generated public symbol to guarantee no
// cross-spec collisions, per spec.md §4.E.
const VendorPrefix = "specgo"

// Identifier normalizes arbitrary text into a C-safe, lowercase
// snake_case identifier: non-identifier characters become underscores,
// runs of underscores collapse, a leading digit is prefixed, ported
// from original_source's naming.py:c_identifier.
func Identifier(name string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(name) {
		if isAlnum(r) {
			b.WriteRune(r)
			lastUnderscore = false
		} else if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	cleaned := strings.Trim(b.String(), "_")
	if cleaned == "" {
		cleaned = "unnamed"
	}
	if cleaned[0] >= '0' && cleaned[0] <= '9' {
		cleaned = "_" + cleaned
	}
	return cleaned
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_'
}

// HeaderGuard builds the #ifndef header guard symbol for one project.
func HeaderGuard(projectName string) string {
	return fmt.Sprintf("%s_%s_PROTOCOL_H", strings.ToUpper(VendorPrefix), strings.ToUpper(Identifier(projectName)))
}

// OutputFilenames returns (header, source) filenames for a project.
func OutputFilenames(projectName string) (header, source string) {
	pc := Identifier(projectName)
	return pc + "_protocol.h", pc + "_protocol.c"
}

// MessageSymbols are the resolved C symbols for one protocol message.
type MessageSymbols struct {
	ProjectCName string
	MessageCName string
	StructName   string
	EncodeFn     string
	DecodeFn     string
	IDMacro      string
	DLCMacro     string
}

// ResolveMessageSymbols builds stable symbol names for one
// project/message pair, prefixed with the project's own sanitized name
// so no two specs can collide even if they share a message name.
func ResolveMessageSymbols(projectName, messageName string) MessageSymbols {
	pc := Identifier(projectName)
	mc := Identifier(messageName)
	macroPrefix := fmt.Sprintf("%s_%s_%s", strings.ToUpper(VendorPrefix), strings.ToUpper(pc), strings.ToUpper(mc))
	return MessageSymbols{
		ProjectCName: pc,
		MessageCName: mc,
		StructName:   fmt.Sprintf("%s_%s_t", pc, mc),
		EncodeFn:     fmt.Sprintf("%s_encode_%s", pc, mc),
		DecodeFn:     fmt.Sprintf("%s_decode_%s", pc, mc),
		IDMacro:      macroPrefix + "_ID",
		DLCMacro:     macroPrefix + "_DLC",
	}
}
