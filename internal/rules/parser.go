// internal/rules/parser.go
package rules

/*
 * Recursive-descent parser for loan rule text.
 *
 * Grammar (one statement per line, INDENT carries the absolute depth):
 *
 *   line         := INDENT (priorityLine | fallbackLine | exprLine) NEWLINE
 *   priorityLine := "priority" ":" (letters | slot ("," slot)*)
 *   slot         := "number-of-criteria" | "criterium" "(" letters ")"
 *                 | "first-line" | "last-line"
 *   letters      := LETTER (","? LETTER)*          exactly 7 distinct
 *   fallbackLine := "fallback-policy" ":" NAME
 *   exprLine     := criterion ("+" criterion)* (":" NAME)?
 *   criterion    := LETTER ("all" | "!"? NAME+)
 *
 * Validation that needs only the line itself (weight table arity and
 * uniqueness, duplicate priority types, unknown letters, statement
 * placement) happens here so that errors carry the exact token position.
 * The first error aborts parsing.
 */

const (
	keywordPriority         = "priority"
	keywordFallbackPolicy   = "fallback-policy"
	keywordAll              = "all"
	keywordCriterium        = "criterium"
	keywordNumberOfCriteria = "number-of-criteria"
	keywordFirstLine        = "first-line"
	keywordLastLine         = "last-line"
)

type parser struct {
	toks []Token
	i    int
	doc  *Document

	fallback *FallbackLine
}

// Parse parses rule text into a Document.
func Parse(text string) (*Document, error) {
	toks, err := Tokenize(text)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, doc: &Document{}}
	if err := p.document(); err != nil {
		return nil, err
	}
	return p.doc, nil
}

func (p *parser) peek() Token { return p.toks[p.i] }

func (p *parser) next() Token {
	t := p.toks[p.i]
	if t.Kind != TokenEOF {
		p.i++
	}
	return t
}

func (p *parser) expect(kind TokenKind, what string) (Token, error) {
	t := p.peek()
	if t.Kind != kind {
		return Token{}, errorAt(KindSyntax, t.Pos, "expected %s, found %s", what, t.describe())
	}
	return p.next(), nil
}

func (p *parser) document() error {
	for p.peek().Kind != TokenEOF {
		indent, err := p.expect(TokenIndent, "start of line")
		if err != nil {
			return err
		}
		if err := p.statement(indent); err != nil {
			return err
		}
		if _, err := p.expect(TokenNewline, "end of line"); err != nil {
			return err
		}
	}
	if p.fallback == nil {
		return errorAt(KindSyntax, p.peek().Pos, "fallback-policy missing")
	}
	return nil
}

func (p *parser) statement(indent Token) error {
	first := p.peek()
	if first.Kind != TokenWord {
		return errorAt(KindSyntax, first.Pos, "expected criterium, priority or fallback-policy, found %s", first.describe())
	}

	switch first.Text {
	case keywordPriority:
		return p.priorityLine(indent)
	case keywordFallbackPolicy:
		return p.fallbackLine(indent)
	default:
		return p.exprLine(indent)
	}
}

func (p *parser) priorityLine(indent Token) error {
	kw := p.next()
	if indent.Depth != 0 {
		return errorAt(KindSyntax, kw.Pos, "priority must not be indented")
	}
	if p.doc.Priority != nil {
		return errorAt(KindDuplicate, kw.Pos, "Duplicate priority declaration")
	}
	if len(p.doc.Statements) > 0 {
		return errorAt(KindSyntax, kw.Pos, "priority must precede all other lines")
	}
	if _, err := p.expect(TokenColon, "':'"); err != nil {
		return err
	}

	decl := &PriorityDecl{At: kw.Pos}

	// priority: t, s, c, b, a, m, g
	if t := p.peek(); t.Kind == TokenWord && len(t.Text) == 1 {
		weights, err := p.letters(TokenNewline)
		if err != nil {
			return err
		}
		decl.Priorities = DefaultPriorities()
		decl.Weights = weights
		p.doc.Priority = decl
		return nil
	}

	var slots []Token
	var types []PriorityType
	for {
		t, err := p.expect(TokenWord, "priority type")
		if err != nil {
			return err
		}

		var pt PriorityType
		switch t.Text {
		case keywordNumberOfCriteria:
			pt = PriorityNumberOfCriteria
		case keywordCriterium:
			pt = PriorityCriterium
		case keywordFirstLine:
			pt = PriorityFirstLine
		case keywordLastLine:
			pt = PriorityLastLine
		default:
			return errorAt(KindSyntax, t.Pos,
				"expected criterium, number-of-criteria, first-line or last-line, found '%s'", t.Text)
		}
		for _, prev := range types {
			if prev == pt {
				return errorAt(KindDuplicate, t.Pos, "Duplicate priority type")
			}
		}

		if pt == PriorityCriterium {
			if _, err := p.expect(TokenLParen, "'('"); err != nil {
				return err
			}
			weights, err := p.letters(TokenRParen)
			if err != nil {
				return err
			}
			if _, err := p.expect(TokenRParen, "')'"); err != nil {
				return err
			}
			decl.Weights = weights
		}

		slots = append(slots, t)
		types = append(types, pt)

		if p.peek().Kind != TokenComma {
			break
		}
		p.next()
	}

	last := len(types) - 1
	if len(types) > 3 {
		return errorAt(KindSyntax, slots[3].Pos, "at most three priority types expected")
	}
	if !types[last].isLine() {
		return errorAt(KindSyntax, slots[last].Pos, "last priority type must be first-line or last-line")
	}
	for i := 0; i < last; i++ {
		if !types[i].isCriteria() {
			return errorAt(KindSyntax, slots[i].Pos, "only the last priority type may be first-line or last-line")
		}
	}

	switch len(types) {
	case 1:
		decl.Priorities = Priorities{Line: types[0]}
	case 2:
		decl.Priorities = Priorities{Secondary: types[0], Line: types[1]}
	case 3:
		decl.Priorities = Priorities{Primary: types[0], Secondary: types[1], Line: types[2]}
	}
	p.doc.Priority = decl
	return nil
}

// letters parses a weight table up to (not including) the end token.
// Letters are separated by a single optional comma. The i-th letter gets
// weight 7 - i.
func (p *parser) letters(end TokenKind) (WeightTable, error) {
	var toks []Token
	afterComma := false
	for p.peek().Kind != end {
		t := p.next()
		switch t.Kind {
		case TokenComma:
			if len(toks) == 0 || afterComma || p.peek().Kind != TokenWord {
				return nil, errorAt(KindSyntax, t.Pos, "unexpected ',' in criterium letters")
			}
			afterComma = true
			continue
		case TokenWord:
			afterComma = false
			if _, ok := ParseCriterionType(t.Text); !ok {
				return nil, unknownCriterion(t.Pos, t.Text)
			}
			toks = append(toks, t)
		default:
			return nil, errorAt(KindSyntax, t.Pos, "expected criterium letter, found %s", t.describe())
		}
	}

	if len(toks) == 0 {
		return nil, errorAt(KindArity, p.peek().Pos, "7 letters expected, found only 0")
	}
	if len(toks) < WeightTableSize {
		return nil, errorAt(KindArity, toks[0].Pos, "7 letters expected, found only %d", len(toks))
	}
	if len(toks) > WeightTableSize {
		return nil, errorAt(KindArity, toks[0].Pos, "Only 7 letters expected, found %d", len(toks))
	}

	weights := make(WeightTable, WeightTableSize)
	for i, t := range toks {
		letter := CriterionType(t.Text)
		if _, dup := weights[letter]; dup {
			return nil, errorAt(KindDuplicate, t.Pos, "Duplicate letter %s", t.Text)
		}
		weights[letter] = WeightTableSize - i
	}
	return weights, nil
}

func (p *parser) fallbackLine(indent Token) error {
	kw := p.next()
	if indent.Depth != 0 {
		return errorAt(KindSyntax, kw.Pos, "fallback-policy must not be indented")
	}
	if p.fallback != nil {
		return errorAt(KindDuplicate, kw.Pos, "Duplicate fallback-policy, first declared in line %d", p.fallback.At.Line)
	}
	if _, err := p.expect(TokenColon, "':'"); err != nil {
		return err
	}
	policy, err := p.policy()
	if err != nil {
		return err
	}

	p.fallback = &FallbackLine{At: kw.Pos, Policy: policy}
	p.doc.Statements = append(p.doc.Statements, p.fallback)
	return nil
}

func (p *parser) exprLine(indent Token) error {
	expr := &ExprLine{At: p.peek().Pos, Indent: indent.Depth}
	for {
		c, err := p.criterion()
		if err != nil {
			return err
		}
		expr.Criteria = append(expr.Criteria, c)
		if p.peek().Kind != TokenPlus {
			break
		}
		p.next()
	}

	if p.peek().Kind == TokenColon {
		p.next()
		policy, err := p.policy()
		if err != nil {
			return err
		}
		expr.Policy = &policy
	}

	p.doc.Statements = append(p.doc.Statements, expr)
	return nil
}

func (p *parser) criterion() (Criterion, error) {
	t, err := p.expect(TokenWord, "criterium letter")
	if err != nil {
		return Criterion{}, err
	}
	ct, ok := ParseCriterionType(t.Text)
	if !ok {
		return Criterion{}, unknownCriterion(t.Pos, t.Text)
	}
	c := Criterion{At: t.Pos, Type: ct}

	if next := p.peek(); next.Kind == TokenWord && next.Text == keywordAll {
		p.next()
		c.All = true
		if after := p.peek(); after.Kind == TokenWord || after.Kind == TokenBang {
			return Criterion{}, errorAt(KindSyntax, after.Pos, "'all' cannot be combined with other names")
		}
		return c, nil
	}

	if p.peek().Kind == TokenBang {
		p.next()
		c.Negated = true
	}
	for p.peek().Kind == TokenWord {
		name := p.next()
		if name.Text == keywordAll {
			if c.Negated && len(c.IDs) == 0 {
				return Criterion{}, errorAt(KindSyntax, name.Pos, "'all' cannot be negated")
			}
			return Criterion{}, errorAt(KindSyntax, name.Pos, "'all' cannot be combined with other names")
		}
		c.IDs = append(c.IDs, name.Text)
	}
	if len(c.IDs) == 0 {
		return Criterion{}, errorAt(KindArity, p.peek().Pos, "criterium %s requires at least one name", t.Text)
	}
	return c, nil
}

func (p *parser) policy() (PolicyRef, error) {
	t, err := p.expect(TokenWord, "policy name")
	if err != nil {
		return PolicyRef{}, err
	}
	return PolicyRef{At: t.Pos, ID: t.Text}, nil
}
