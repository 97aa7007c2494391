// internal/rules/priority_test.go
package rules

import "testing"

func TestSalience_Bands(t *testing.T) {
	weights := WeightTable{"t": 7, "s": 6, "c": 5, "b": 4, "a": 3, "m": 2, "g": 1}
	crit := func(ct CriterionType) Criterion {
		return Criterion{Type: ct, IDs: []string{"x"}}
	}

	root, err := pushScope(nil, 0, 1, []Criterion{crit(PatronGroup)}, weights)
	if err != nil {
		t.Fatalf("pushScope() error = %v", err)
	}
	child, err := pushScope(&root, 2, 2, []Criterion{crit(ShelvingLocation), crit(BranchLocation)}, weights)
	if err != nil {
		t.Fatalf("pushScope() error = %v", err)
	}

	tests := []struct {
		name string
		p    Priorities
		sc   *scope
		line int
		want int
	}{
		{"fallback last-line", DefaultPriorities(), nil, 12, FallbackSalience},
		{"fallback first-line", Priorities{Line: PriorityFirstLine}, nil, 12, FallbackSalience},
		{"fallback line only", Priorities{Line: PriorityLastLine}, nil, 99, FallbackSalience},
		{"root line only", Priorities{Line: PriorityLastLine}, &root, 1, 1},
		{"root default", DefaultPriorities(), &root, 1, 1*SalienceBand0 + 1*SalienceBand1 + 1},
		{"child default", DefaultPriorities(), &child, 2, 6*SalienceBand0 + 2*SalienceBand1 + 2},
		{"child swapped", Priorities{Primary: PriorityNumberOfCriteria, Secondary: PriorityCriterium, Line: PriorityLastLine},
			&child, 2, 2*SalienceBand0 + 6*SalienceBand1 + 2},
		{"child line only", Priorities{Line: PriorityFirstLine}, &child, 2, FirstLineBase - 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := salience(tt.p, tt.sc, tt.line); got != tt.want {
				t.Errorf("salience() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPushScope_DoesNotMutateParent(t *testing.T) {
	parent, err := pushScope(nil, 0, 1, []Criterion{{Type: PatronGroup, IDs: []string{"staff"}}}, nil)
	if err != nil {
		t.Fatalf("pushScope() error = %v", err)
	}
	before := parent

	if _, err := pushScope(&parent, 2, 2, []Criterion{{Type: LoanType, IDs: []string{"rare"}}}, WeightTable{"t": 7}); err != nil {
		t.Fatalf("pushScope() error = %v", err)
	}

	if parent.categories != before.categories || parent.maxWeight != before.maxWeight || len(parent.conditions) != 1 {
		t.Errorf("parent changed: %+v, want %+v", parent, before)
	}
}

func TestPushScope_UnknownCriterion(t *testing.T) {
	_, err := pushScope(nil, 0, 3, []Criterion{{At: Position{3, 5}, Type: "z", IDs: []string{"x"}}}, nil)

	pe, ok := AsParseError(err)
	if !ok || pe.Kind != KindSemantic || pe.Line != 3 || pe.Column != 5 {
		t.Errorf("pushScope() error = %v, want semantic error at 3:5", err)
	}
}

func TestScopeStack_CloseTo(t *testing.T) {
	stack := scopeStack{{indent: 0}, {indent: 2}, {indent: 4}}

	stack.closeTo(4)
	if len(stack) != 2 {
		t.Fatalf("closeTo(4) left %d scopes, want 2 (equal depth closes)", len(stack))
	}
	stack.closeTo(3)
	if len(stack) != 2 {
		t.Fatalf("closeTo(3) left %d scopes, want 2", len(stack))
	}
	stack.closeTo(1)
	if len(stack) != 1 || stack.top().indent != 0 {
		t.Fatalf("closeTo(1) left %+v, want only depth 0", stack)
	}
	stack.closeTo(0)
	if stack.top() != nil {
		t.Errorf("closeTo(0) left %+v, want empty", stack)
	}
}

func TestParsePriorities(t *testing.T) {
	tests := []struct {
		name    string
		slots   [3]string
		want    Priorities
		wantErr bool
	}{
		{"default", [3]string{"criterium", "number-of-criteria", "last-line"}, DefaultPriorities(), false},
		{"line only", [3]string{"", "", "first-line"}, Priorities{Line: PriorityFirstLine}, false},
		{"unknown", [3]string{"newest", "", "last-line"}, Priorities{}, true},
		{"duplicate", [3]string{"criterium", "criterium", "last-line"}, Priorities{}, true},
		{"line in criteria slot", [3]string{"first-line", "", "last-line"}, Priorities{}, true},
		{"missing line", [3]string{"criterium", "", ""}, Priorities{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePriorities(tt.slots[0], tt.slots[1], tt.slots[2])
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePriorities() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParsePriorities() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestPriorityType_String(t *testing.T) {
	if got := PriorityNone.String(); got != "none" {
		t.Errorf("PriorityNone.String() = %q, want none", got)
	}
	text, err := PriorityNumberOfCriteria.MarshalText()
	if err != nil || string(text) != "number-of-criteria" {
		t.Errorf("MarshalText() = %q, %v, want number-of-criteria", text, err)
	}
}
