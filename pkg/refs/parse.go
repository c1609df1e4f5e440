package refs

import (
	"strings"
	"unicode"

	"vantage/pkg/errors"
)

// =============================================================================
// Lexer
// =============================================================================

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokTag
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string // tag name for tokTag, raw text otherwise
	pos  int    // byte offset in the input
}

// lex splits a tag expression into tokens. Tags are bare words or quoted
// with single or double quotes; AND, OR and NOT are case-insensitive
// keywords. Positions are byte offsets for error reporting.
func lex(input string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(input) {
		r := rune(input[i])
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			i++
		case r == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "(", pos: i})
			i++
		case r == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")", pos: i})
			i++
		case r == '\'' || r == '"':
			quote := input[i]
			end := strings.IndexByte(input[i+1:], quote)
			if end < 0 {
				return nil, &errors.SyntaxError{Pos: i, Token: string(quote), Message: "unterminated quoted tag"}
			}
			name := input[i+1 : i+1+end]
			if name == "" {
				return nil, &errors.SyntaxError{Pos: i, Token: input[i : i+2], Message: "empty quoted tag"}
			}
			tokens = append(tokens, token{kind: tokTag, text: name, pos: i})
			i += end + 2
		case isBareTagRune(r):
			start := i
			for i < len(input) && isBareTagRune(rune(input[i])) {
				i++
			}
			word := input[start:i]
			switch strings.ToUpper(word) {
			case "AND":
				tokens = append(tokens, token{kind: tokAnd, text: word, pos: start})
			case "OR":
				tokens = append(tokens, token{kind: tokOr, text: word, pos: start})
			case "NOT":
				tokens = append(tokens, token{kind: tokNot, text: word, pos: start})
			default:
				tokens = append(tokens, token{kind: tokTag, text: word, pos: start})
			}
		default:
			return nil, &errors.SyntaxError{Pos: i, Token: string(r), Message: "unexpected character"}
		}
	}
	tokens = append(tokens, token{kind: tokEOF, pos: len(input)})
	return tokens, nil
}

func isBareTagRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == ':' || r == '.'
}

// =============================================================================
// Parser
// =============================================================================

// ParseTagExpr parses a boolean tag expression.
//
// Grammar, loosest binding first:
//
//	expr   := term   { OR term }
//	term   := factor { AND factor }
//	factor := NOT factor | '(' expr ')' | tag
//
// Violations return *errors.SyntaxError carrying the byte offset and the
// offending token.
func ParseTagExpr(input string) (TagExpr, error) {
	tokens, err := lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, &errors.SyntaxError{Pos: tok.pos, Token: tok.text, Message: "unexpected trailing input"}
	}
	return expr, nil
}

type parser struct {
	tokens []token
	i      int
}

func (p *parser) peek() token { return p.tokens[p.i] }

func (p *parser) next() token {
	tok := p.tokens[p.i]
	if tok.kind != tokEOF {
		p.i++
	}
	return tok
}

func (p *parser) parseOr() (TagExpr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orExpr{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (TagExpr, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = andExpr{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseFactor() (TagExpr, error) {
	tok := p.next()
	switch tok.kind {
	case tokNot:
		operand, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return notExpr{operand: operand}, nil
	case tokLParen:
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, &errors.SyntaxError{Pos: closing.pos, Token: closing.text, Message: "expected closing parenthesis"}
		}
		return expr, nil
	case tokTag:
		return tagAtom{name: tok.text}, nil
	case tokEOF:
		return nil, &errors.SyntaxError{Pos: tok.pos, Message: "expected a tag"}
	default:
		return nil, &errors.SyntaxError{Pos: tok.pos, Token: tok.text, Message: "expected a tag"}
	}
}
