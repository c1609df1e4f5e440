package statement

import (
	"slices"

	"vantage/pkg/errors"
	"vantage/pkg/refs"
)

// =============================================================================
// Scaffold Matchers
// =============================================================================

// Each archetype has its own matcher over the token stream. A matcher
// either consumes the whole stream and returns an expression, declines
// (matched=false), or reports a syntax error for a scaffold it recognized
// but could not complete (the cardinality numeric slot).
type matcher func(tokens []token) (expr Expr, mod Modifier, matched bool, err error)

// matchers in trial order: the more specific scaffolds come first, so
// "there must be exactly 3 ..." is cardinality, not existence.
var matchers = []matcher{
	matchCardinality,
	matchCoverage,
	matchCorrespondence,
	matchRefinement,
	matchExistence,
	matchContainment,
	matchExclusion,
}

// modifier consumes a must/should token.
func modifier(c *cursor) (Modifier, bool) {
	if w, ok := c.word("must", "should"); ok {
		return Modifier(w), true
	}
	return "", false
}

// quantifier consumes an optional all/every prefix.
func quantifier(c *cursor) {
	c.word("all", "every")
}

// matchExistence handles "there must be $ref" and "$ref must exist".
func matchExistence(tokens []token) (Expr, Modifier, bool, error) {
	c := &cursor{tokens: tokens}
	if _, ok := c.word("there"); ok {
		mod, ok := modifier(c)
		if !ok {
			return nil, "", false, nil
		}
		if _, ok := c.word("be"); !ok {
			return nil, "", false, nil
		}
		ref, ok := c.ref()
		if !ok || !c.done() {
			return nil, "", false, nil
		}
		return Existence{Ref: ref}, mod, true, nil
	}

	c = &cursor{tokens: tokens}
	ref, ok := c.ref()
	if !ok {
		return nil, "", false, nil
	}
	mod, ok := modifier(c)
	if !ok {
		return nil, "", false, nil
	}
	if _, ok := c.word("exist"); !ok || !c.done() {
		return nil, "", false, nil
	}
	return Existence{Ref: ref}, mod, true, nil
}

// matchContainment handles "$X must be [contained] in $Y" and
// "$Y must contain $X", with an optional all/every prefix.
func matchContainment(tokens []token) (Expr, Modifier, bool, error) {
	c := &cursor{tokens: tokens}
	quantifier(c)
	first, ok := c.ref()
	if !ok {
		return nil, "", false, nil
	}
	mod, ok := modifier(c)
	if !ok {
		return nil, "", false, nil
	}

	if _, ok := c.word("be"); ok {
		c.word("contained")
		if _, ok := c.word("in"); !ok {
			return nil, "", false, nil
		}
		second, ok := c.ref()
		if !ok || !c.done() {
			return nil, "", false, nil
		}
		return Containment{Subject: first, Container: second}, mod, true, nil
	}

	if _, ok := c.word("contain"); ok {
		second, ok := c.ref()
		if !ok || !c.done() {
			return nil, "", false, nil
		}
		// "$Y must contain $X": the second span is the contained subject
		return Containment{Subject: second, Container: first}, mod, true, nil
	}

	return nil, "", false, nil
}

// matchExclusion handles "$X must not depend on $Y" with an optional
// "transitively" qualifier before or after "depend".
func matchExclusion(tokens []token) (Expr, Modifier, bool, error) {
	c := &cursor{tokens: tokens}
	quantifier(c)
	subject, ok := c.ref()
	if !ok {
		return nil, "", false, nil
	}
	mod, ok := modifier(c)
	if !ok {
		return nil, "", false, nil
	}
	if _, ok := c.word("not"); !ok {
		return nil, "", false, nil
	}
	_, transitive := c.word("transitively")
	if _, ok := c.word("depend"); !ok {
		return nil, "", false, nil
	}
	if !transitive {
		_, transitive = c.word("transitively")
	}
	if _, ok := c.word("on"); !ok {
		return nil, "", false, nil
	}
	forbidden, ok := c.ref()
	if !ok || !c.done() {
		return nil, "", false, nil
	}
	return Exclusion{Subject: subject, Forbidden: forbidden, Transitive: transitive}, mod, true, nil
}

// matchCardinality handles "there must be <op> N $ref". A recognized
// operator followed by a non-numeric slot is a syntax error, which demotes
// the statement to informal.
func matchCardinality(tokens []token) (Expr, Modifier, bool, error) {
	c := &cursor{tokens: tokens}
	if _, ok := c.word("there"); !ok {
		return nil, "", false, nil
	}
	mod, ok := modifier(c)
	if !ok {
		return nil, "", false, nil
	}
	if _, ok := c.word("be"); !ok {
		return nil, "", false, nil
	}

	var op CardinalityOp
	switch {
	case matchWords(c, "not", "exactly"):
		op = OpNe
	case matchWord(c, "exactly"):
		op = OpEq
	case matchWords(c, "at", "least"):
		op = OpGe
	case matchWords(c, "at", "most"):
		op = OpLe
	case matchWords(c, "more", "than"):
		op = OpGt
	case matchWords(c, "fewer", "than"), matchWords(c, "less", "than"):
		op = OpLt
	default:
		return nil, "", false, nil
	}

	n, ok := c.number()
	if !ok {
		tok, _ := c.peek()
		return nil, "", false, &errors.SyntaxError{Pos: tok.pos, Token: tok.text, Message: "cardinality needs a non-negative integer"}
	}
	ref, ok := c.ref()
	if !ok || !c.done() {
		return nil, "", false, nil
	}
	return Cardinality{Ref: ref, Op: op, Value: n}, mod, true, nil
}

func matchWord(c *cursor, w string) bool {
	_, ok := c.word(w)
	return ok
}

func matchWords(c *cursor, words ...string) bool {
	save := c.i
	for _, w := range words {
		if _, ok := c.word(w); !ok {
			c.i = save
			return false
		}
	}
	return true
}

// matchCoverage handles ownership scaffolds: "<subject> must have an owner
// on $L", "... must be covered by $L", "... must belong to a group on $L".
// The subject is "all components", "every component in the system",
// "all|every $ref" or a bare $ref.
func matchCoverage(tokens []token) (Expr, Modifier, bool, error) {
	c := &cursor{tokens: tokens}

	subject, ok := coverageSubject(c)
	if !ok {
		return nil, "", false, nil
	}
	mod, ok := modifier(c)
	if !ok {
		return nil, "", false, nil
	}

	switch {
	case matchWords(c, "have", "an", "owner", "on"),
		matchWords(c, "have", "a", "owner", "on"),
		matchWords(c, "be", "covered", "by"),
		matchWords(c, "belong", "to", "a", "group", "on"),
		matchWords(c, "belong", "to", "an", "group", "on"):
	default:
		return nil, "", false, nil
	}

	layer, ok := c.ref()
	if !ok || !c.done() {
		return nil, "", false, nil
	}
	return Coverage{Subject: subject, Layer: layer}, mod, true, nil
}

func coverageSubject(c *cursor) (string, bool) {
	if matchWords(c, "all", "components") {
		return CoverageAll, true
	}
	if matchWords(c, "every", "component", "in", "the", "system") {
		return CoverageAll, true
	}
	save := c.i
	c.word("all", "every")
	if ref, ok := c.ref(); ok {
		return ref, true
	}
	c.i = save
	return "", false
}

// matchCorrespondence handles "$A [must] corresponds|aligns|matches with $B"
// and "$A must correspond|align|match to|with $B".
func matchCorrespondence(tokens []token) (Expr, Modifier, bool, error) {
	c := &cursor{tokens: tokens}
	a, ok := c.ref()
	if !ok {
		return nil, "", false, nil
	}
	mod, hasMod := modifier(c)
	if !hasMod {
		mod = ModifierMust
	}
	if _, ok := c.word("corresponds", "correspond", "aligns", "align", "matches", "match"); !ok {
		return nil, "", false, nil
	}
	if _, ok := c.word("with", "to"); !ok {
		return nil, "", false, nil
	}
	b, ok := c.ref()
	if !ok || !c.done() {
		return nil, "", false, nil
	}
	return Correspondence{A: a, B: b}, mod, true, nil
}

// matchRefinement handles "$A [must] refine[s] $B", "$A must be a
// refinement of $B" and "$A [must] nest[s] within $B".
func matchRefinement(tokens []token) (Expr, Modifier, bool, error) {
	c := &cursor{tokens: tokens}
	fine, ok := c.ref()
	if !ok {
		return nil, "", false, nil
	}
	mod, hasMod := modifier(c)
	if !hasMod {
		mod = ModifierMust
	}

	switch {
	case matchWord(c, "refines"), matchWord(c, "refine"):
	case matchWords(c, "be", "a", "refinement", "of"), matchWords(c, "be", "an", "refinement", "of"):
	case matchWord(c, "nests"), matchWord(c, "nest"):
		if _, ok := c.word("within"); !ok {
			return nil, "", false, nil
		}
	default:
		return nil, "", false, nil
	}

	coarse, ok := c.ref()
	if !ok || !c.done() {
		return nil, "", false, nil
	}
	return Refinement{Fine: fine, Coarse: coarse}, mod, true, nil
}

// =============================================================================
// Classification
// =============================================================================

// ParseResult is the outcome of classifying one statement text.
type ParseResult struct {
	Classification  Classification `json:"classification"`
	Type            Type           `json:"type"`
	Modifier        Modifier       `json:"modifier,omitempty"`
	Expr            Expr           `json:"expr,omitempty"`
	UnresolvedNames []string       `json:"unresolved_names,omitempty"`
	SyntaxErr       string         `json:"syntax_error,omitempty"`
}

// Parse classifies statement text against the registered references.
//
// The pipeline: extract $$$name$$$ tokens, try the seven scaffolds in
// order, then grade the match. No scaffold → informal. Scaffold with
// unregistered names → semi-formal, the partial expression kept with its
// unresolved names listed. Scaffold whose names all resolve → formal. A
// name bound to a broken reference definition → invalid. Syntax errors
// (malformed spans, non-numeric cardinality slots) demote to informal and
// are reported in the result, never returned as a process fault.
func Parse(text string, references map[string]refs.Reference) ParseResult {
	tokens, err := tokenize(text)
	if err != nil {
		return ParseResult{Classification: ClassInformal, Type: TypeUnclassified, SyntaxErr: err.Error()}
	}

	var expr Expr
	var mod Modifier
	for _, match := range matchers {
		e, m, ok, err := match(tokens)
		if err != nil {
			return ParseResult{Classification: ClassInformal, Type: TypeUnclassified, SyntaxErr: err.Error()}
		}
		if ok {
			expr, mod = e, m
			break
		}
	}
	if expr == nil {
		return ParseResult{Classification: ClassInformal, Type: TypeUnclassified}
	}

	result := ParseResult{Type: expr.Type(), Modifier: mod, Expr: expr}
	for _, name := range expr.ReferenceNames() {
		ref, known := references[name]
		if !known {
			if !slices.Contains(result.UnresolvedNames, name) {
				result.UnresolvedNames = append(result.UnresolvedNames, name)
			}
			continue
		}
		if err := ref.Validate(); err != nil {
			result.Classification = ClassInvalid
			result.SyntaxErr = err.Error()
			return result
		}
	}

	if len(result.UnresolvedNames) > 0 {
		result.Classification = ClassSemiFormal
	} else {
		result.Classification = ClassFormal
	}
	return result
}
