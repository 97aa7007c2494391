// internal/rules/property_test.go
package rules

import (
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

var allLetters = []string{"t", "a", "b", "c", "s", "m", "g"}

// buildRules renders a rule text from generated line shapes. Each value
// selects a depth (0, 2 or 4), a letter, and whether the line assigns a
// policy.
func buildRules(shapes []int) string {
	return buildRulesWith("priority: t, s, c, b, a, m, g", shapes, len(shapes))
}

// buildRulesWith renders shapes under the given priority line with the
// fallback line inserted before shape fallbackAt.
func buildRulesWith(priority string, shapes []int, fallbackAt int) string {
	var sb strings.Builder
	sb.WriteString(priority)
	sb.WriteString("\n")
	for i, v := range shapes {
		if i == fallbackAt {
			sb.WriteString("fallback-policy: fallback\n")
		}
		depth := (v % 3) * 2
		letter := allLetters[(v/3)%len(allLetters)]
		sb.WriteString(strings.Repeat(" ", depth))
		fmt.Fprintf(&sb, "%s id%d", letter, i)
		if v%2 == 0 {
			fmt.Fprintf(&sb, ": policy%d", i)
		}
		sb.WriteString("\n")
	}
	if fallbackAt >= len(shapes) {
		sb.WriteString("fallback-policy: fallback\n")
	}
	return sb.String()
}

// Property-based test: compilation is deterministic
func TestCompile_PropertyIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("compiling the same text twice yields identical output", prop.ForAll(
		func(shapes []int) bool {
			text := buildRules(shapes)
			first, err1 := Compile(text, DefaultOptions())
			second, err2 := Compile(text, DefaultOptions())
			if err1 != nil || err2 != nil {
				return false
			}
			return first.Drools() == second.Drools()
		},
		gen.SliceOf(gen.IntRange(0, 200)),
	))

	properties.TestingRun(t)
}

// Property-based test: every generated text has exactly one fallback rule
// and every other rule outranks it, wherever the fallback line sits
func TestCompile_PropertyFallbackIsLastResort(t *testing.T) {
	priorityLines := []string{
		"priority: t, s, c, b, a, m, g",
		"priority: last-line",
		"priority: first-line",
		"priority: number-of-criteria, first-line",
		"priority: criterium(t, s, c, b, a, m, g), number-of-criteria, last-line",
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("fallback rule has no conditions and lowest salience", prop.ForAll(
		func(shapes []int, priorityIdx int, fallbackAt int) bool {
			text := buildRulesWith(priorityLines[priorityIdx], shapes, fallbackAt)
			rs, err := Compile(text, DefaultOptions())
			if err != nil {
				return false
			}
			var fallback *GeneratedRule
			for i := range rs.Rules {
				if rs.Rules[i].PolicyID == "fallback" {
					if fallback != nil {
						return false
					}
					fallback = &rs.Rules[i]
				}
			}
			if fallback == nil || len(fallback.When) != 0 {
				return false
			}
			for _, r := range rs.Rules {
				if r.PolicyID != "fallback" && r.Salience <= fallback.Salience {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 200)),
		gen.IntRange(0, len(priorityLines)-1),
		gen.IntRange(0, 20),
	))

	properties.TestingRun(t)
}

// Property-based test: siblings never inherit each other's criteria
func TestCompile_PropertySiblingIsolation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("sibling scopes at equal depth are isolated", prop.ForAll(
		func(siblings int, indent int, letterIdx int) bool {
			var sb strings.Builder
			sb.WriteString("fallback-policy: fb\n")
			sb.WriteString("g root\n")
			for i := 0; i < siblings; i++ {
				letter := allLetters[(letterIdx+i)%len(allLetters)]
				fmt.Fprintf(&sb, "%s%s sib%d: p%d\n", strings.Repeat(" ", indent), letter, i, i)
			}

			rs, err := Compile(sb.String(), DefaultOptions())
			if err != nil {
				return false
			}
			if len(rs.Rules) != siblings+1 {
				return false
			}
			for i, r := range rs.Rules[1:] {
				if len(r.When) != 2 {
					return false
				}
				own := r.When[1].Conditions
				if len(own) != 1 || own[0].IDs[0] != fmt.Sprintf("sib%d", i) {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 10),
		gen.IntRange(1, 8),
		gen.IntRange(0, 6),
	))

	properties.TestingRun(t)
}

// Property-based test: a nested chain of depth N yields N condition groups
func TestCompile_PropertyNestedDepth(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("depth N chain emits N groups outermost first", prop.ForAll(
		func(depth int) bool {
			var sb strings.Builder
			for i := 0; i < depth; i++ {
				fmt.Fprintf(&sb, "%sm level%d", strings.Repeat(" ", i*2), i)
				if i == depth-1 {
					sb.WriteString(": leaf")
				}
				sb.WriteString("\n")
			}
			sb.WriteString("fallback-policy: fb\n")

			rs, err := Compile(sb.String(), DefaultOptions())
			if err != nil || len(rs.Rules) != 2 {
				return false
			}
			leaf := rs.Rules[0]
			if len(leaf.When) != depth {
				return false
			}
			for i, g := range leaf.When {
				if g.Line != i+1 || g.Conditions[0].IDs[0] != fmt.Sprintf("level%d", i) {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 20),
	))

	properties.TestingRun(t)
}

// Property-based test: weight tables compile only with 7 distinct letters
func TestCompile_PropertyWeightTableArity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("weight table succeeds iff it lists 7 distinct letters", prop.ForAll(
		func(picks []int) bool {
			letters := make([]string, len(picks))
			distinct := map[string]bool{}
			for i, p := range picks {
				letters[i] = allLetters[p]
				distinct[letters[i]] = true
			}
			text := "priority: criterium(" + strings.Join(letters, ", ") + "), last-line\nfallback-policy: fb"

			_, err := Compile(text, DefaultOptions())
			valid := len(letters) == WeightTableSize && len(distinct) == WeightTableSize
			if valid {
				return err == nil
			}
			pe, ok := AsParseError(err)
			return ok && (pe.Kind == KindArity || pe.Kind == KindDuplicate)
		},
		gen.SliceOf(gen.IntRange(0, 6)),
	))

	properties.Property("weight table of any length other than 7 fails", prop.ForAll(
		func(n int) bool {
			letters := make([]string, n)
			for i := range letters {
				letters[i] = allLetters[i%len(allLetters)]
			}
			text := "priority: " + strings.Join(letters, ", ") + "\nfallback-policy: fb"

			_, err := Compile(text, DefaultOptions())
			if n == WeightTableSize {
				return err == nil
			}
			pe, ok := AsParseError(err)
			return ok && pe.Kind == KindArity
		},
		gen.IntRange(1, 14),
	))

	properties.TestingRun(t)
}
