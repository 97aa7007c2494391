// internal/rules/ast.go
package rules

/*
 * Syntax tree for loan rule text.
 *
 * Parse produces a Document; Transform turns it into a RuleSet. Nodes are
 * never modified after parsing, so one Document may be transformed any
 * number of times with different Options.
 */

// Position is a 1-based line/column pair in the rule text.
type Position struct {
	Line   int
	Column int
}

// Document is one parsed rule text.
type Document struct {
	// Priority is nil when the text declares no priority line.
	Priority *PriorityDecl

	// Statements holds expression and fallback lines in source order.
	Statements []Statement
}

// Statement is an ExprLine or a FallbackLine.
type Statement interface {
	Pos() Position
	statement()
}

// PriorityDecl is the single "priority:" line.
type PriorityDecl struct {
	At         Position
	Priorities Priorities
	// Weights is empty unless a 7-letter table was declared.
	Weights WeightTable
}

// ExprLine is a criterion line, optionally assigning a policy.
// Indent is the absolute indentation depth of the line.
type ExprLine struct {
	At       Position
	Indent   int
	Criteria []Criterion
	Policy   *PolicyRef
}

// FallbackLine is the mandatory "fallback-policy:" line.
type FallbackLine struct {
	At     Position
	Policy PolicyRef
}

// PolicyRef names the policy assigned by a line.
type PolicyRef struct {
	At Position
	ID string
}

// Criterion is one attribute test on an expression line.
type Criterion struct {
	At      Position
	Type    CriterionType
	Negated bool
	All     bool
	IDs     []string
}

func (e *ExprLine) Pos() Position     { return e.At }
func (f *FallbackLine) Pos() Position { return f.At }

func (*ExprLine) statement()     {}
func (*FallbackLine) statement() {}
