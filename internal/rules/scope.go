// internal/rules/scope.go
package rules

// scope is the match context of one expression line. It carries the
// categories and maximum weight accumulated from every enclosing scope plus
// the conditions of its own line. Scopes are values and never change after
// pushScope returns.
type scope struct {
	indent     int
	line       int
	categories categorySet
	maxWeight  int
	conditions []Condition
}

// pushScope builds the scope of an expression line nested in parent.
// A nil parent is the empty root context.
func pushScope(parent *scope, indent, line int, criteria []Criterion, weights WeightTable) (scope, error) {
	sc := scope{
		indent:     indent,
		line:       line,
		conditions: make([]Condition, 0, len(criteria)),
	}
	if parent != nil {
		sc.categories = parent.categories
		sc.maxWeight = parent.maxWeight
	}

	for _, c := range criteria {
		cond, cat, weight, err := normalize(c, weights)
		if err != nil {
			return scope{}, err
		}
		sc.categories = sc.categories.with(cat)
		sc.maxWeight = max(sc.maxWeight, weight)
		sc.conditions = append(sc.conditions, cond)
	}
	return sc, nil
}

// scopeStack holds the chain of open scopes, outermost first.
type scopeStack []scope

// closeTo pops every scope whose indentation is >= indent. A sibling at the
// same depth must not inherit the previous sibling's criteria, so equal
// depth closes too.
func (s *scopeStack) closeTo(indent int) {
	for n := len(*s); n > 0 && (*s)[n-1].indent >= indent; n = len(*s) {
		*s = (*s)[:n-1]
	}
}

func (s *scopeStack) push(sc scope) {
	*s = append(*s, sc)
}

// top returns the innermost open scope, or nil.
func (s scopeStack) top() *scope {
	if len(s) == 0 {
		return nil
	}
	return &s[len(s)-1]
}

// groups returns the condition groups of the open chain, root to leaf.
func (s scopeStack) groups() []ConditionGroup {
	groups := make([]ConditionGroup, 0, len(s))
	for _, sc := range s {
		groups = append(groups, ConditionGroup{
			Line:       sc.line,
			Conditions: sc.conditions,
		})
	}
	return groups
}
