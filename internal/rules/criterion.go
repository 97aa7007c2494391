// internal/rules/criterion.go
package rules

import (
	"math/bits"
	"sort"
	"strconv"
	"strings"
)

/*
 * Criterion normalization.
 *
 * Maps each criterion letter to three things:
 *   - the fact class tested by the generated condition (ItemType, ...)
 *   - its category for number-of-criteria priority; the location letters
 *     a, b, c and s all share one category
 *   - its weight from the document's 7-letter weight table (0 if none)
 */

// CriterionType is a criterion letter.
type CriterionType string

const (
	LoanType           CriterionType = "t"
	CampusLocation     CriterionType = "a"
	BranchLocation     CriterionType = "b"
	CollectionLocation CriterionType = "c"
	ShelvingLocation   CriterionType = "s"
	MaterialType       CriterionType = "m"
	PatronGroup        CriterionType = "g"
)

// WeightTableSize is the number of letters a weight table must list.
const WeightTableSize = 7

// category is a bit in a categorySet.
type category uint8

const (
	categoryLoanType category = 1 << iota
	categoryLocation
	categoryMaterialType
	categoryPatronGroup
)

type criterionInfo struct {
	fact     string
	category category
}

var criterionTypes = map[CriterionType]criterionInfo{
	LoanType:           {fact: "LoanType", category: categoryLoanType},
	CampusLocation:     {fact: "CampusLocation", category: categoryLocation},
	BranchLocation:     {fact: "BranchLocation", category: categoryLocation},
	CollectionLocation: {fact: "CollectionLocation", category: categoryLocation},
	ShelvingLocation:   {fact: "ShelvingLocation", category: categoryLocation},
	MaterialType:       {fact: "ItemType", category: categoryMaterialType},
	PatronGroup:        {fact: "PatronGroup", category: categoryPatronGroup},
}

// ParseCriterionType converts a letter to a CriterionType.
func ParseCriterionType(s string) (CriterionType, bool) {
	t := CriterionType(s)
	_, ok := criterionTypes[t]
	return t, ok
}

// Fact returns the fact class name tested for this criterion type, or ""
// for unknown letters.
func (t CriterionType) Fact() string {
	return criterionTypes[t].fact
}

func unknownCriterion(pos Position, letter string) *ParseError {
	return errorAt(KindSemantic, pos,
		"Expected criterium type t, a, b, c, s, m or g but found: %s", letter)
}

// categorySet is an immutable set of categories. Copying it copies the set.
type categorySet uint8

func (s categorySet) with(c category) categorySet { return s | categorySet(c) }

func (s categorySet) size() int { return bits.OnesCount8(uint8(s)) }

// WeightTable maps criterion letters to weights 1..7.
type WeightTable map[CriterionType]int

// Weight returns the configured weight of t, 0 when absent.
func (w WeightTable) Weight(t CriterionType) int {
	return w[t]
}

// Letters returns the table's letters from highest to lowest weight.
func (w WeightTable) Letters() []CriterionType {
	letters := make([]CriterionType, 0, len(w))
	for t := range w {
		letters = append(letters, t)
	}
	sort.Slice(letters, func(i, j int) bool { return w[letters[i]] > w[letters[j]] })
	return letters
}

// ConditionOp is the comparison a Condition performs.
type ConditionOp string

const (
	OpAll   ConditionOp = "all"
	OpEq    ConditionOp = "eq"
	OpNeq   ConditionOp = "neq"
	OpIn    ConditionOp = "in"
	OpNotIn ConditionOp = "not-in"
)

// Condition is one normalized criterion test.
type Condition struct {
	Criterion CriterionType `json:"criterion" yaml:"criterion"`
	Fact      string        `json:"fact" yaml:"fact"`
	Op        ConditionOp   `json:"op" yaml:"op"`
	IDs       []string      `json:"ids,omitempty" yaml:"ids,omitempty"`
}

// normalize converts a parsed criterion into its condition, category and
// weight.
func normalize(c Criterion, weights WeightTable) (Condition, category, int, error) {
	info, ok := criterionTypes[c.Type]
	if !ok {
		return Condition{}, 0, 0, unknownCriterion(c.At, string(c.Type))
	}

	cond := Condition{
		Criterion: c.Type,
		Fact:      c.Type.Fact(),
	}
	switch {
	case c.All:
		cond.Op = OpAll
	case len(c.IDs) == 1 && c.Negated:
		cond.Op = OpNeq
	case len(c.IDs) == 1:
		cond.Op = OpEq
	case c.Negated:
		cond.Op = OpNotIn
	default:
		cond.Op = OpIn
	}
	if !c.All {
		cond.IDs = append([]string(nil), c.IDs...)
	}

	return cond, info.category, weights.Weight(c.Type), nil
}

// Drools renders the condition as a Drools pattern.
//
//	ItemType(id == "book")
//	LoanType(id not in ("rare", "reserve"))
func (c Condition) Drools() string {
	var sb strings.Builder
	sb.WriteString(c.Fact)
	switch c.Op {
	case OpAll:
		sb.WriteString("() // all")
		return sb.String()
	case OpEq:
		sb.WriteString("(id == ")
		sb.WriteString(strconv.Quote(c.IDs[0]))
	case OpNeq:
		sb.WriteString("(id != ")
		sb.WriteString(strconv.Quote(c.IDs[0]))
	case OpIn, OpNotIn:
		if c.Op == OpIn {
			sb.WriteString("(id in (")
		} else {
			sb.WriteString("(id not in (")
		}
		for i, id := range c.IDs {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(strconv.Quote(id))
		}
		sb.WriteString(")")
	}
	sb.WriteString(")")
	return sb.String()
}
