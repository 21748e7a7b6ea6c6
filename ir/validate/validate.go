package validate

import "github.com/dylanxu/specgo/ir"

// SemanticError wraps a non-empty Layer-1 Issues batch as the
// IrSemanticError kind of spec.md §7.
type SemanticError struct {
	Issues Issues
}

func (e *SemanticError) Error() string    { return e.Issues.Error() }
func (e *SemanticError) Category() string { return "IrSemanticError" }

// Validate runs Layer-0 then Layer-1 against spec, per spec.md §4.B's
// precondition rule: Layer-1 only runs if Layer-0 found no issues.
// Returns the combined issue batch; callers test len(issues) == 0 for
// success, or inspect issues for reporting.
func Validate(spec *ir.Spec) Issues {
	schemaIssues := Schema(spec)
	if len(schemaIssues) > 0 {
		return schemaIssues
	}
	return Semantic(spec)
}
