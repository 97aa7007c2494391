// internal/rules/lexer.go
package rules

import (
	"strings"
)

/*
 * Line-oriented tokenizer for loan rule text.
 *
 * Every non-blank, non-comment line starts with exactly one TokenIndent
 * carrying the absolute indentation depth (count of leading spaces) and ends
 * with TokenNewline. The parser never sees relative indent/dedent pairs; the
 * scope stack compares absolute depths directly.
 *
 * Comments start with '#' or "//" and run to end of line. Tabs are rejected
 * inside indentation because their width is ambiguous.
 *
 * Keywords (priority, fallback-policy, all, criterium, ...) are lexed as
 * TokenWord; the parser decides by position whether a word is a keyword.
 */

// TokenKind identifies the lexical class of a token.
type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenIndent
	TokenNewline
	TokenWord
	TokenColon
	TokenComma
	TokenPlus
	TokenBang
	TokenLParen
	TokenRParen
)

var tokenNames = map[TokenKind]string{
	TokenEOF:     "end of input",
	TokenIndent:  "indentation",
	TokenNewline: "end of line",
	TokenWord:    "name",
	TokenColon:   "':'",
	TokenComma:   "','",
	TokenPlus:    "'+'",
	TokenBang:    "'!'",
	TokenLParen:  "'('",
	TokenRParen:  "')'",
}

func (k TokenKind) String() string {
	if name, ok := tokenNames[k]; ok {
		return name
	}
	return "unknown token"
}

// Token is one lexical unit. Depth is only set for TokenIndent.
type Token struct {
	Kind  TokenKind
	Text  string
	Depth int
	Pos   Position
}

// describe renders a token for error messages.
func (t Token) describe() string {
	if t.Kind == TokenWord {
		return "'" + t.Text + "'"
	}
	return t.Kind.String()
}

var punctuation = map[rune]TokenKind{
	':': TokenColon,
	',': TokenComma,
	'+': TokenPlus,
	'!': TokenBang,
	'(': TokenLParen,
	')': TokenRParen,
}

// Tokenize splits rule text into tokens, always ending with TokenEOF.
func Tokenize(text string) ([]Token, error) {
	lines := strings.Split(text, "\n")
	tokens := make([]Token, 0, len(lines)*4)

	for i, raw := range lines {
		lineNo := i + 1
		line := []rune(strings.TrimSuffix(raw, "\r"))

		depth, tab := 0, -1
		for depth < len(line) && (line[depth] == ' ' || line[depth] == '\t') {
			if line[depth] == '\t' && tab < 0 {
				tab = depth
			}
			depth++
		}
		if depth == len(line) || isCommentStart(line, depth) {
			continue
		}
		if tab >= 0 {
			return nil, errorAt(KindSyntax, Position{lineNo, tab + 1}, "tab character in indentation")
		}

		tokens = append(tokens, Token{
			Kind:  TokenIndent,
			Depth: depth,
			Pos:   Position{lineNo, depth + 1},
		})

		lineTokens, err := scanLine(line, depth, lineNo)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, lineTokens...)
		tokens = append(tokens, Token{
			Kind: TokenNewline,
			Pos:  Position{lineNo, len(line) + 1},
		})
	}

	last := []rune(strings.TrimSuffix(lines[len(lines)-1], "\r"))
	tokens = append(tokens, Token{
		Kind: TokenEOF,
		Pos:  Position{len(lines), len(last) + 1},
	})
	return tokens, nil
}

// scanLine tokenizes the part of a line after its indentation.
func scanLine(line []rune, col int, lineNo int) ([]Token, error) {
	var tokens []Token
	for col < len(line) {
		r := line[col]
		switch {
		case r == ' ' || r == '\t':
			col++
		case isCommentStart(line, col):
			return tokens, nil
		case isNameRune(r):
			start := col
			for col < len(line) && isNameRune(line[col]) {
				col++
			}
			tokens = append(tokens, Token{
				Kind: TokenWord,
				Text: string(line[start:col]),
				Pos:  Position{lineNo, start + 1},
			})
		default:
			kind, ok := punctuation[r]
			if !ok {
				return nil, errorAt(KindSyntax, Position{lineNo, col + 1}, "unexpected character %q", r)
			}
			tokens = append(tokens, Token{
				Kind: kind,
				Text: string(r),
				Pos:  Position{lineNo, col + 1},
			})
			col++
		}
	}
	return tokens, nil
}

func isCommentStart(line []rune, col int) bool {
	if line[col] == '#' {
		return true
	}
	return line[col] == '/' && col+1 < len(line) && line[col+1] == '/'
}

// isNameRune reports whether r may appear in a name: [A-Za-z0-9_.-].
func isNameRune(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') ||
		r == '_' || r == '-' || r == '.'
}
