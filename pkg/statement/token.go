package statement

import (
	"regexp"
	"strconv"
	"strings"

	"vantage/pkg/errors"
)

// =============================================================================
// Tokenizer
// =============================================================================

type tokenKind int

const (
	wordToken tokenKind = iota // lowercased scaffold word
	refToken                   // $$$name$$$ span, text holds the inner name
	numToken                   // non-negative integer
)

type token struct {
	kind  tokenKind
	text  string
	value int // numToken only
	pos   int // byte offset in the statement text
}

var refNameRe = regexp.MustCompile(`^[A-Za-z0-9_-]+`)

// tokenize splits statement text into reference spans, scaffold words and
// integers. Scaffold words are lowercased; trailing sentence punctuation is
// dropped. A malformed $$$...$$$ span is a syntax error.
func tokenize(text string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(text) {
		switch {
		case text[i] == ' ' || text[i] == '\t' || text[i] == '\n' || text[i] == '\r':
			i++

		case strings.HasPrefix(text[i:], "$$$"):
			rest := text[i+3:]
			name := refNameRe.FindString(rest)
			if name == "" || !strings.HasPrefix(rest[len(name):], "$$$") {
				return nil, &errors.SyntaxError{Pos: i, Token: "$$$", Message: "malformed reference token"}
			}
			tokens = append(tokens, token{kind: refToken, text: name, pos: i})
			i += len(name) + 6

		default:
			start := i
			for i < len(text) && text[i] != ' ' && text[i] != '\t' && text[i] != '\n' && text[i] != '\r' && !strings.HasPrefix(text[i:], "$$$") {
				i++
			}
			word := strings.TrimRight(text[start:i], ".,;:!?")
			if word == "" {
				continue
			}
			if n, err := strconv.Atoi(word); err == nil && n >= 0 {
				tokens = append(tokens, token{kind: numToken, text: word, value: n, pos: start})
				continue
			}
			tokens = append(tokens, token{kind: wordToken, text: strings.ToLower(word), pos: start})
		}
	}
	return tokens, nil
}

// ReferenceNames extracts the reference names embedded in statement text,
// in order of appearance, duplicates preserved.
func ReferenceNames(text string) ([]string, error) {
	tokens, err := tokenize(text)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, t := range tokens {
		if t.kind == refToken {
			names = append(names, t.text)
		}
	}
	return names, nil
}

// =============================================================================
// Cursor
// =============================================================================

// cursor walks a token stream. Matchers advance a copy and commit only on a
// full scaffold match, so alternatives can be tried in sequence.
type cursor struct {
	tokens []token
	i      int
}

func (c *cursor) done() bool { return c.i >= len(c.tokens) }

func (c *cursor) peek() (token, bool) {
	if c.done() {
		return token{}, false
	}
	return c.tokens[c.i], true
}

// word consumes the next token if it is one of the given scaffold words and
// returns the matched word.
func (c *cursor) word(options ...string) (string, bool) {
	t, ok := c.peek()
	if !ok || t.kind != wordToken {
		return "", false
	}
	for _, w := range options {
		if t.text == w {
			c.i++
			return w, true
		}
	}
	return "", false
}

// ref consumes the next token if it is a reference span.
func (c *cursor) ref() (string, bool) {
	t, ok := c.peek()
	if !ok || t.kind != refToken {
		return "", false
	}
	c.i++
	return t.text, true
}

// number consumes the next token if it is an integer.
func (c *cursor) number() (int, bool) {
	t, ok := c.peek()
	if !ok || t.kind != numToken {
		return 0, false
	}
	c.i++
	return t.value, true
}
