// internal/rules/compile.go
package rules

import "fmt"

/*
 * Rule compilation.
 *
 * Compiles loan rule text into a RuleSet: one GeneratedRule per policy
 * assignment, each with the condition groups of its enclosing scopes and a
 * salience that makes exactly one rule win per transaction.
 *
 * Compilation workflow:
 *   1. Parse text into a Document (all syntax and table validation)
 *   2. Walk statements top to bottom, closing scopes whose depth is >= the
 *      new line's depth and pushing a scope per expression line
 *   3. On each policy assignment compute salience from the innermost scope
 *      and emit a rule reading the chain root to leaf
 *
 * Compile holds no state between calls; the same text and Options always
 * produce the same RuleSet.
 */

// Options configures a compilation.
type Options struct {
	// DefaultPriorities apply when the text has no priority line.
	DefaultPriorities Priorities
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{DefaultPriorities: DefaultPriorities()}
}

// Validate checks the configured default priorities.
func (o Options) Validate() error {
	if err := o.DefaultPriorities.Validate(); err != nil {
		return fmt.Errorf("default priorities: %w", err)
	}
	return nil
}

// ConditionGroup holds the conditions of one expression line.
type ConditionGroup struct {
	Line       int         `json:"line" yaml:"line"`
	Conditions []Condition `json:"conditions" yaml:"conditions"`
}

// GeneratedRule is one flat match rule.
type GeneratedRule struct {
	Name     string           `json:"name" yaml:"name"`
	Line     int              `json:"line" yaml:"line"`
	Salience int              `json:"salience" yaml:"salience"`
	When     []ConditionGroup `json:"when" yaml:"when"`
	PolicyID string           `json:"policyId" yaml:"policyId"`
}

// RuleSet is the output of one compilation, rules in source order.
type RuleSet struct {
	Priorities Priorities      `json:"priorities" yaml:"priorities"`
	Weights    WeightTable     `json:"weights,omitempty" yaml:"weights,omitempty"`
	Rules      []GeneratedRule `json:"rules" yaml:"rules"`
}

// Compile parses and compiles rule text.
func Compile(text string, opts Options) (*RuleSet, error) {
	doc, err := Parse(text)
	if err != nil {
		return nil, err
	}
	return Transform(doc, opts)
}

// Transform compiles a parsed Document.
func Transform(doc *Document, opts Options) (*RuleSet, error) {
	rs := &RuleSet{
		Priorities: opts.DefaultPriorities,
		Weights:    WeightTable{},
	}
	if doc.Priority != nil {
		rs.Priorities = doc.Priority.Priorities
		if len(doc.Priority.Weights) > 0 {
			rs.Weights = doc.Priority.Weights
		}
	}

	var stack scopeStack
	for _, stmt := range doc.Statements {
		switch s := stmt.(type) {
		case *ExprLine:
			stack.closeTo(s.Indent)
			sc, err := pushScope(stack.top(), s.Indent, s.At.Line, s.Criteria, rs.Weights)
			if err != nil {
				return nil, err
			}
			stack.push(sc)

			if s.Policy != nil {
				if rs.Priorities.Line == PriorityFirstLine && s.Policy.At.Line >= FirstLineBase {
					return nil, errorAt(KindSemantic, s.Policy.At, "first-line priority supports at most %d lines", FirstLineBase-1)
				}
				rs.Rules = append(rs.Rules, newRule(rs.Priorities, stack, *s.Policy))
			}

		case *FallbackLine:
			// depth 0 closes every open scope
			stack.closeTo(0)
			rs.Rules = append(rs.Rules, newRule(rs.Priorities, nil, s.Policy))
		}
	}
	return rs, nil
}

func newRule(p Priorities, chain scopeStack, policy PolicyRef) GeneratedRule {
	line := policy.At.Line
	return GeneratedRule{
		Name:     fmt.Sprintf("line %d", line),
		Line:     line,
		Salience: salience(p, chain.top(), line),
		When:     chain.groups(),
		PolicyID: policy.ID,
	}
}
