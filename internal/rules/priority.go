// internal/rules/priority.go
package rules

import "fmt"

/*
 * Salience model for generated rules.
 *
 * salience = band(Primary) * SalienceBand0
 *          + band(Secondary) * SalienceBand1
 *          + lineTerm
 *
 * band(PriorityCriterium)        = highest weight among the innermost
 *                                  scope's accumulated criteria (0..7)
 * band(PriorityNumberOfCriteria) = distinct categories in the innermost
 *                                  scope (0..4, locations count once)
 * band(PriorityNone)             = 0
 *
 * lineTerm is the line number for last-line (later lines win) or
 * FirstLineBase - line for first-line (earlier lines win). Bands stay below
 * 10, so a higher band always outranks any line term.
 *
 * The fallback rule is pinned to FallbackSalience wherever it appears. Every
 * scoped rule has a line term of at least 1, so the fallback stays the rule
 * of last resort under every priority declaration, including line-only ones.
 */

const (
	SalienceBand0 = 100_000_000
	SalienceBand1 = 10_000_000
	FirstLineBase = 10_000_000

	// FallbackSalience is the salience of the fallback rule.
	FallbackSalience = 0
)

// PriorityType is one priority strategy.
type PriorityType int

const (
	PriorityNone PriorityType = iota
	PriorityFirstLine
	PriorityLastLine
	PriorityNumberOfCriteria
	PriorityCriterium
)

var priorityNames = []string{
	PriorityNone:             "",
	PriorityFirstLine:        "first-line",
	PriorityLastLine:         "last-line",
	PriorityNumberOfCriteria: "number-of-criteria",
	PriorityCriterium:        "criterium",
}

// ParsePriorityType converts a strategy name to a PriorityType.
func ParsePriorityType(name string) (PriorityType, error) {
	if name == "none" {
		return PriorityNone, nil
	}
	for i, n := range priorityNames {
		if n == name {
			return PriorityType(i), nil
		}
	}
	return PriorityNone, fmt.Errorf("unknown priority type: %q", name)
}

func (p PriorityType) String() string {
	if p < 0 || int(p) >= len(priorityNames) {
		return fmt.Sprintf("PriorityType(%d)", int(p))
	}
	if p == PriorityNone {
		return "none"
	}
	return priorityNames[p]
}

// MarshalText renders the strategy name in JSON and YAML output.
func (p PriorityType) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p PriorityType) isLine() bool {
	return p == PriorityFirstLine || p == PriorityLastLine
}

func (p PriorityType) isCriteria() bool {
	return p == PriorityNumberOfCriteria || p == PriorityCriterium
}

// Priorities holds the three strategy slots of a document.
type Priorities struct {
	Primary   PriorityType `json:"primary" yaml:"primary"`
	Secondary PriorityType `json:"secondary" yaml:"secondary"`
	Line      PriorityType `json:"line" yaml:"line"`
}

// DefaultPriorities favors the most specific match, then later lines.
func DefaultPriorities() Priorities {
	return Priorities{
		Primary:   PriorityCriterium,
		Secondary: PriorityNumberOfCriteria,
		Line:      PriorityLastLine,
	}
}

// ParsePriorities builds Priorities from three strategy names. Empty names
// select PriorityNone for the criteria slots.
func ParsePriorities(primary, secondary, line string) (Priorities, error) {
	var p Priorities
	var err error
	if p.Primary, err = ParsePriorityType(primary); err != nil {
		return Priorities{}, err
	}
	if p.Secondary, err = ParsePriorityType(secondary); err != nil {
		return Priorities{}, err
	}
	if p.Line, err = ParsePriorityType(line); err != nil {
		return Priorities{}, err
	}
	return p, p.Validate()
}

// Validate checks slot kinds and that two criteria slots differ.
func (p Priorities) Validate() error {
	if !p.Line.isLine() {
		return fmt.Errorf("line priority must be first-line or last-line, got %s", p.Line)
	}
	for _, slot := range []PriorityType{p.Primary, p.Secondary} {
		if slot != PriorityNone && !slot.isCriteria() {
			return fmt.Errorf("criteria priority must be criterium or number-of-criteria, got %s", slot)
		}
	}
	if p.Primary != PriorityNone && p.Primary == p.Secondary {
		return fmt.Errorf("duplicate priority type %s", p.Primary)
	}
	return nil
}

// salience computes the ranking of a rule on line for the innermost scope.
// A nil scope is the fallback rule.
func salience(p Priorities, innermost *scope, line int) int {
	if innermost == nil {
		return FallbackSalience
	}
	total := line
	if p.Line == PriorityFirstLine {
		total = FirstLineBase - line
	}
	total += band(innermost, p.Secondary) * SalienceBand1
	total += band(innermost, p.Primary) * SalienceBand0
	return total
}

func band(sc *scope, p PriorityType) int {
	if sc == nil {
		return 0
	}
	switch p {
	case PriorityCriterium:
		return sc.maxWeight
	case PriorityNumberOfCriteria:
		return sc.categories.size()
	default:
		return 0
	}
}
