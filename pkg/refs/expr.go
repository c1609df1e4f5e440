// Package refs implements architectural references: named, intensional
// selections of graph entities. A reference stores how to select (a tag
// expression, a layer pointer or an explicit key list), never which
// entities it selected; resolution recomputes membership against the
// current snapshot on every call.
package refs

import (
	"fmt"
	"strings"
)

// TagExpr is a boolean expression over entity tags. Expressions are
// immutable once parsed; Matches evaluates a single entity's tag set.
type TagExpr interface {
	// Matches reports whether an entity with the given tags satisfies
	// the expression.
	Matches(tags map[string]struct{}) bool
	// String renders the expression in canonical form.
	String() string
}

// tagAtom matches entities carrying one tag.
type tagAtom struct {
	name string
}

func (t tagAtom) Matches(tags map[string]struct{}) bool {
	_, ok := tags[t.name]
	return ok
}

func (t tagAtom) String() string {
	if strings.ContainsAny(t.name, " \t()") || isKeyword(t.name) {
		return fmt.Sprintf("%q", t.name)
	}
	return t.name
}

// notExpr complements its operand against the resolution universe.
type notExpr struct {
	operand TagExpr
}

func (n notExpr) Matches(tags map[string]struct{}) bool {
	return !n.operand.Matches(tags)
}

func (n notExpr) String() string {
	if _, grouped := n.operand.(tagAtom); grouped {
		return "NOT " + n.operand.String()
	}
	return "NOT (" + n.operand.String() + ")"
}

// andExpr intersects its operands.
type andExpr struct {
	left, right TagExpr
}

func (a andExpr) Matches(tags map[string]struct{}) bool {
	return a.left.Matches(tags) && a.right.Matches(tags)
}

func (a andExpr) String() string {
	return parenthesize(a.left, true) + " AND " + parenthesize(a.right, true)
}

// orExpr unions its operands.
type orExpr struct {
	left, right TagExpr
}

func (o orExpr) Matches(tags map[string]struct{}) bool {
	return o.left.Matches(tags) || o.right.Matches(tags)
}

func (o orExpr) String() string {
	return parenthesize(o.left, false) + " OR " + parenthesize(o.right, false)
}

// parenthesize wraps operands whose precedence is lower than the parent's,
// so rendering round-trips through the parser unchanged.
func parenthesize(e TagExpr, insideAnd bool) string {
	if _, isOr := e.(orExpr); isOr && insideAnd {
		return "(" + e.String() + ")"
	}
	return e.String()
}

func isKeyword(word string) bool {
	switch strings.ToUpper(word) {
	case "AND", "OR", "NOT":
		return true
	}
	return false
}
